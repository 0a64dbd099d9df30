// Package synthesize composes retrieved facts and intent into generation
// prompts and turns provider output into citation-annotated drafts.
package synthesize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobforge/jobforge/internal/llm"
	"github.com/jobforge/jobforge/internal/model"
)

// Synthesizer produces drafts where every factual sentence is annotated
// with the reference ids it is grounded on.
type Synthesizer struct {
	router *llm.Router
}

// New creates a synthesizer over the given provider router.
func New(router *llm.Router) *Synthesizer {
	return &Synthesizer{router: router}
}

// Synthesize generates a draft for one attempt. If the provider returns
// factual sentences without citations the synthesizer reprompts once; any
// sentence still uncited after that is surfaced as an empty-citation claim
// for the verifier to classify, never dropped.
func (s *Synthesizer) Synthesize(ctx context.Context, intent model.IntentRecord, rc model.RetrievedContext, attempt int, avoid []string) (*model.Draft, error) {
	prompt := buildDraftPrompt(intent, rc, avoid)

	resp, provider, err := s.router.Generate(ctx, llm.Request{
		System:      draftSystem,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize draft: %w", err)
	}

	body := resp.Text
	claims := ParseDraft(body)

	if hasUncited(claims) {
		// One refusal reprompt; the contract allows exactly one.
		resp2, provider2, err := s.router.Generate(ctx, llm.Request{
			System:      draftSystem,
			Prompt:      prompt + repromptSuffix + body,
			Temperature: 0.3,
		})
		if err == nil {
			body = resp2.Text
			claims = ParseDraft(body)
			provider = provider2
		}
	}

	return &model.Draft{
		Body:         body,
		Claims:       claims,
		ProviderUsed: provider,
		Attempt:      attempt,
	}, nil
}

// RewriteAvoiding regenerates a draft under instruction to avoid the flagged
// spans (the sensitive-draft rewrite loop).
func (s *Synthesizer) RewriteAvoiding(ctx context.Context, intent model.IntentRecord, rc model.RetrievedContext, attempt int, spans []string) (*model.Draft, error) {
	return s.Synthesize(ctx, intent, rc, attempt, spans)
}

type correctionReply struct {
	Replacements []struct {
		Original    string `json:"original"`
		Replacement string `json:"replacement"`
	} `json:"replacements"`
}

// Correct regenerates only the offending spans of a draft, preserving the
// rest verbatim, and returns a fresh superseding Draft.
func (s *Synthesizer) Correct(ctx context.Context, rc model.RetrievedContext, draft model.Draft, offending []model.ClaimVerdict) (*model.Draft, error) {
	if len(offending) == 0 {
		return &draft, nil
	}

	resp, provider, err := s.router.Generate(ctx, llm.Request{
		System:      correctionSystem,
		Prompt:      buildCorrectionPrompt(rc, draft.Body, offending),
		SchemaHint:  correctionSchema,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("correct draft: %w", err)
	}

	var reply correctionReply
	if err := json.Unmarshal([]byte(stripFences(resp.Text)), &reply); err != nil {
		return nil, fmt.Errorf("correction reply is not valid JSON: %w", err)
	}

	body := draft.Body
	for _, r := range reply.Replacements {
		if r.Original == "" {
			continue
		}
		if r.Replacement == "" {
			body = removeSentence(body, r.Original)
		} else {
			body = strings.Replace(body, r.Original, r.Replacement, 1)
		}
	}

	return &model.Draft{
		Body:         body,
		Claims:       ParseDraft(body),
		ProviderUsed: provider,
		Attempt:      draft.Attempt,
	}, nil
}

// Reparse builds a superseding draft from operator-edited text.
func Reparse(body, provider string, attempt int) *model.Draft {
	return &model.Draft{
		Body:         body,
		Claims:       ParseDraft(body),
		ProviderUsed: provider,
		Attempt:      attempt,
	}
}

func hasUncited(claims []model.Claim) bool {
	for _, c := range claims {
		if len(c.CitedIDs) == 0 {
			return true
		}
	}
	return false
}

// removeSentence drops a sentence and tidies the whitespace it leaves behind.
func removeSentence(body, sentence string) string {
	body = strings.Replace(body, sentence, "", 1)
	body = strings.ReplaceAll(body, "  ", " ")
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" && len(lines) > 0 && lines[len(lines)-1] == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// stripFences removes a surrounding markdown code fence from a JSON reply.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
