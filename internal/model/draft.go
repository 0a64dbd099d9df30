package model

// Claim is a single factual sentence in a draft together with the
// reference ids it cites. CitedIDs may be empty - that is exactly what the
// verifier classifies as an extrinsic hallucination.
type Claim struct {
	Text     string   `json:"text_span"`
	CitedIDs []string `json:"cited_reference_ids,omitempty"`
}

// Cites reports whether the claim cites the given reference id.
func (c Claim) Cites(id string) bool {
	for _, cid := range c.CitedIDs {
		if cid == id {
			return true
		}
	}
	return false
}

// Draft is one generated posting. Drafts are recreated on every
// generation/correction cycle and superseded, never edited in place.
type Draft struct {
	Body         string  `json:"body_text"`
	Claims       []Claim `json:"claims"`
	ProviderUsed string  `json:"provider_used"`
	Attempt      int     `json:"attempt_number"`
}

// UncitedClaims returns the claims that carry no citations at all.
func (d Draft) UncitedClaims() []Claim {
	var out []Claim
	for _, c := range d.Claims {
		if len(c.CitedIDs) == 0 {
			out = append(out, c)
		}
	}
	return out
}
