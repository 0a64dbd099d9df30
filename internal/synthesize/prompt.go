package synthesize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jobforge/jobforge/internal/model"
)

const draftSystem = `You write job postings for a recruiting platform.

CRITICAL RULES:
1. Every sentence that states a fact about the company or the posting MUST end
   with a citation tag of the form [REF:<id>] or [REF:<id1>,<id2>] using ONLY
   ids from the provided reference list.
2. DO NOT state any company fact that is not in the reference list. No
   guessing, no outside knowledge.
3. Headers and calls to action need no citation.
4. Keep the language of the hiring request.`

// buildDraftPrompt composes the generation prompt: the intent, then each
// retrieved fact as "[id] payload" forming the strict citation allowlist.
func buildDraftPrompt(intent model.IntentRecord, rc model.RetrievedContext, avoid []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a job posting draft.\n\nRole: %s\nCompany reference: %s\n", intent.RequestedRole, intent.CompanyRef)
	if len(intent.Constraints) > 0 {
		b.WriteString("Constraints:\n")
		for _, k := range sortedKeys(intent.Constraints) {
			fmt.Fprintf(&b, "- %s: %s\n", k, intent.Constraints[k])
		}
	}
	if intent.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", intent.Notes)
	}

	b.WriteString("\nReference facts (the ONLY allowed citation ids):\n")
	for _, f := range rc.Facts {
		fmt.Fprintf(&b, "[%s] %s\n", f.ID, f.Payload)
	}

	if len(avoid) > 0 {
		b.WriteString("\nThe previous draft contained disallowed wording. You MUST NOT use these phrases or anything equivalent:\n")
		for _, span := range avoid {
			fmt.Fprintf(&b, "- %q\n", span)
		}
	}

	return b.String()
}

const repromptSuffix = `

The draft below contains factual sentences without citation tags. Rewrite it so
every factual sentence carries a [REF:<id>] tag from the allowed list, or drop
the sentence if no reference supports it. Change nothing else.

Draft:
`

const correctionSystem = `You repair individual sentences of a job posting.
For each flagged sentence, return a replacement that is fully supported by the
allowed references and carries its [REF:<id>] tag, or an empty string to
delete the sentence. Never touch any other part of the draft.`

const correctionSchema = `{
  "replacements": [
    {"original": "the exact flagged sentence", "replacement": "corrected sentence with [REF:id], or empty to remove"}
  ]
}`

// buildCorrectionPrompt asks for targeted span replacements only.
func buildCorrectionPrompt(rc model.RetrievedContext, body string, offending []model.ClaimVerdict) string {
	var b strings.Builder

	b.WriteString("Allowed references:\n")
	for _, f := range rc.Facts {
		fmt.Fprintf(&b, "[%s] %s\n", f.ID, f.Payload)
	}

	b.WriteString("\nFlagged sentences:\n")
	for _, cv := range offending {
		fmt.Fprintf(&b, "- %q (%s: %s)\n", cv.Claim.Text, cv.Verdict, cv.Reason)
	}

	b.WriteString("\nFull draft for context (do not rewrite unflagged sentences):\n")
	b.WriteString(body)
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
