// Package verify classifies every claim of a draft against the retrieved
// reference facts and produces a verification report.
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/jobforge/jobforge/internal/llm"
	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/store"
)

const groundingSystem = `You compare one sentence from a job posting against
the reference facts it cites. Answer with exactly one word:
SUPPORTED if the references fully support the sentence,
CONTRADICTED if the sentence conflicts with any reference,
UNVERIFIABLE if the references neither support nor contradict it.`

// Verifier checks drafts claim by claim. Verification never mutates the
// draft; running it twice over the same draft and context yields the same
// report.
type Verifier struct {
	store  store.ReferenceStore
	router *llm.Router
}

// New creates a verifier over the reference store and provider router.
func New(refStore store.ReferenceStore, router *llm.Router) *Verifier {
	return &Verifier{store: refStore, router: router}
}

// Verify classifies every claim of the draft and reports whether the draft
// passes without hallucinations.
func (v *Verifier) Verify(ctx context.Context, draft model.Draft, rc model.RetrievedContext) (*model.VerificationReport, error) {
	report := &model.VerificationReport{OverallPass: true}

	for _, claim := range draft.Claims {
		cv, err := v.verifyClaim(ctx, claim, rc)
		if err != nil {
			return nil, err
		}
		if cv.Verdict.IsHallucination() {
			report.OverallPass = false
		}
		report.Claims = append(report.Claims, cv)
	}

	return report, nil
}

func (v *Verifier) verifyClaim(ctx context.Context, claim model.Claim, rc model.RetrievedContext) (model.ClaimVerdict, error) {
	cv := model.ClaimVerdict{Claim: claim}

	if len(claim.CitedIDs) == 0 {
		cv.Verdict = model.VerdictExtrinsic
		cv.Reason = "factual sentence cites no reference"
		return cv, nil
	}

	for _, id := range claim.CitedIDs {
		if rc.Contains(id) {
			continue
		}
		cv.Verdict = model.VerdictExtrinsic
		if v.knownFact(ctx, id) {
			cv.Reason = fmt.Sprintf("cited reference %s is outside the retrieved context", id)
		} else {
			cv.Reason = fmt.Sprintf("cited reference %s does not exist", id)
		}
		return cv, nil
	}

	verdict, err := v.compare(ctx, claim, rc)
	if err != nil {
		return cv, err
	}
	cv.Verdict = verdict
	if verdict != model.VerdictGrounded {
		cv.Reason = fmt.Sprintf("references %s do not support the sentence", strings.Join(claim.CitedIDs, ", "))
	}
	return cv, nil
}

// knownFact reports whether the id resolves in the reference store at all.
func (v *Verifier) knownFact(ctx context.Context, id string) bool {
	if v.store == nil {
		return false
	}
	facts, err := v.store.LookupByIDs(ctx, []string{id})
	return err == nil && len(facts) > 0
}

// compare asks a provider whether the cited facts support the claim text.
// Temperature zero keeps repeated runs consistent.
func (v *Verifier) compare(ctx context.Context, claim model.Claim, rc model.RetrievedContext) (model.Verdict, error) {
	var b strings.Builder
	b.WriteString("References:\n")
	for _, id := range claim.CitedIDs {
		if f, ok := rc.Lookup(id); ok {
			fmt.Fprintf(&b, "[%s] %s\n", f.ID, f.Payload)
		}
	}
	fmt.Fprintf(&b, "\nSentence:\n%s\n", claim.Text)

	resp, _, err := v.router.Generate(ctx, llm.Request{
		System:      groundingSystem,
		Prompt:      b.String(),
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("grounding comparison: %w", err)
	}

	switch answer := strings.ToUpper(strings.TrimSpace(resp.Text)); {
	case strings.HasPrefix(answer, "SUPPORTED"):
		return model.VerdictGrounded, nil
	case strings.HasPrefix(answer, "CONTRADICTED"):
		return model.VerdictIntrinsic, nil
	default:
		return model.VerdictUnverifiable, nil
	}
}
