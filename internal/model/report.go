package model

// Verdict classifies a single claim after grounding verification.
type Verdict string

const (
	VerdictGrounded     Verdict = "grounded"
	VerdictIntrinsic    Verdict = "intrinsic_hallucination" // cites a real source but contradicts it
	VerdictExtrinsic    Verdict = "extrinsic_hallucination" // cites nothing, or a source outside the retrieved context
	VerdictUnverifiable Verdict = "unverifiable"            // cited source exists but neither supports nor contradicts
)

// IsHallucination reports whether this verdict blocks an automatic pass.
func (v Verdict) IsHallucination() bool {
	return v == VerdictIntrinsic || v == VerdictExtrinsic
}

// ClaimVerdict is the per-claim outcome of verification.
type ClaimVerdict struct {
	Claim   Claim   `json:"claim"`
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// VerificationReport is the result of verifying one draft against the
// retrieved context. OverallPass is true iff no claim carries a
// hallucination verdict.
type VerificationReport struct {
	Claims      []ClaimVerdict `json:"claims"`
	OverallPass bool           `json:"overall_pass"`
}

// Hallucinations returns the claim verdicts that still need correction.
func (r VerificationReport) Hallucinations() []ClaimVerdict {
	var out []ClaimVerdict
	for _, cv := range r.Claims {
		if cv.Verdict.IsHallucination() {
			out = append(out, cv)
		}
	}
	return out
}
