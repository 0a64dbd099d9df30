package model

import "strings"

// IntentRecord is the structured form of a hiring request.
// It is created once by the input structurer and never mutated afterwards.
type IntentRecord struct {
	RequestedRole string            `json:"requested_role"`          // e.g. "Unity 게임 개발자"
	CompanyRef    string            `json:"company_ref"`             // stable company reference, e.g. "E000023944"
	Constraints   map[string]string `json:"constraints,omitempty"`   // normalized field -> value
	Notes         string            `json:"free_text_notes,omitempty"`
}

// Recognized constraint keys. Unknown keys are carried through untouched so
// operator-supplied overrides are never silently dropped.
const (
	ConstraintEmploymentType  = "employment_type"
	ConstraintExperienceLevel = "experience_level"
	ConstraintSalary          = "salary"
	ConstraintLocation        = "location"
	ConstraintDeadline        = "deadline"
	ConstraintContact         = "contact"
)

// Valid reports whether the mandatory fields could be extracted.
func (r IntentRecord) Valid() bool {
	return strings.TrimSpace(r.RequestedRole) != "" && strings.TrimSpace(r.CompanyRef) != ""
}

// Keywords returns the terms used for supplementary fact ranking:
// the requested role plus any free-text notes, lower-cased and split.
func (r IntentRecord) Keywords() []string {
	raw := strings.Fields(strings.ToLower(r.RequestedRole + " " + r.Notes))
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, w := range raw {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// WithOverrides returns a copy of the record with explicit constraint
// overrides applied. Overrides always win over extracted values.
func (r IntentRecord) WithOverrides(overrides map[string]string) IntentRecord {
	if len(overrides) == 0 {
		return r
	}
	merged := make(map[string]string, len(r.Constraints)+len(overrides))
	for k, v := range r.Constraints {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	r.Constraints = merged
	return r
}
