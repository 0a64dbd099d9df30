// Package intake converts free-text hiring requests into typed intent records.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jobforge/jobforge/internal/llm"
	"github.com/jobforge/jobforge/internal/model"
)

const structureSystem = `You structure hiring requests for a job-posting generator.
Extract only what the request states. Never invent a company reference or role.
If a field is absent, leave it empty.`

const structureSchema = `{
  "requested_role": "string, the role being hired for",
  "company_ref": "string, the company reference code (e.g. E000023944), empty if absent",
  "constraints": {"employment_type": "", "experience_level": "", "salary": "", "location": "", "deadline": "", "contact": ""},
  "free_text_notes": "string, anything else relevant from the request"
}`

// Structurer turns raw natural-language requests into IntentRecords with a
// single provider call.
type Structurer struct {
	router *llm.Router
}

// NewStructurer creates an input structurer over the given router.
func NewStructurer(router *llm.Router) *Structurer {
	return &Structurer{router: router}
}

// Structure extracts an IntentRecord from raw text and applies explicit
// constraint overrides. Mandatory fields that cannot be extracted after one
// provider call fail with model.ErrMalformedIntent; ambiguous free text is
// never guessed at twice.
func (s *Structurer) Structure(ctx context.Context, rawText string, overrides map[string]string) (*model.IntentRecord, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: empty request", model.ErrMalformedIntent)
	}

	resp, _, err := s.router.Generate(ctx, llm.Request{
		System:      structureSystem,
		Prompt:      "Hiring request:\n" + rawText,
		SchemaHint:  structureSchema,
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("structure input: %w", err)
	}

	intent, err := parseIntent(resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedIntent, err)
	}

	rec := intent.WithOverrides(overrides)
	if !rec.Valid() {
		return nil, fmt.Errorf("%w: role=%q company_ref=%q", model.ErrMalformedIntent, rec.RequestedRole, rec.CompanyRef)
	}
	return &rec, nil
}

func parseIntent(text string) (model.IntentRecord, error) {
	var rec model.IntentRecord
	if err := json.Unmarshal([]byte(stripFences(text)), &rec); err != nil {
		return rec, fmt.Errorf("provider returned non-JSON intent: %v", err)
	}
	rec.RequestedRole = strings.TrimSpace(rec.RequestedRole)
	rec.CompanyRef = strings.TrimSpace(rec.CompanyRef)
	// Discard empty constraint values so overrides and display stay clean.
	for k, v := range rec.Constraints {
		if strings.TrimSpace(v) == "" {
			delete(rec.Constraints, k)
		}
	}
	return rec, nil
}

// stripFences removes a surrounding markdown code fence, which some models
// emit even when asked for bare JSON.
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
