package model

import "time"

// Stage enumerates the workflow state machine.
type Stage string

const (
	StageStructuring      Stage = "structuring"
	StageScreeningRequest Stage = "screening_request"
	StageRetrieving       Stage = "retrieving"
	StageSynthesizing     Stage = "synthesizing"
	StageScreeningDraft   Stage = "screening_draft"
	StageVerifying        Stage = "verifying"
	StageCorrecting       Stage = "correcting"
	StageAwaitingHuman    Stage = "awaiting_human_decision"
	StageApproved         Stage = "approved"
	StageRejected         Stage = "rejected"
)

// Terminal reports whether no transition leaves this stage.
func (s Stage) Terminal() bool {
	return s == StageApproved || s == StageRejected
}

// PauseReason explains why a workflow stopped at the human gate.
type PauseReason string

const (
	PauseReadyForApproval     PauseReason = "ready_for_approval"
	PauseInsufficientContext  PauseReason = "insufficient_context"
	PauseSensitiveDraft       PauseReason = "sensitive_draft_budget_exhausted"
	PauseVerificationBudget   PauseReason = "verification_budget_exhausted"
	PauseGenerationUnavail    PauseReason = "generation_unavailable"
	PauseMalformedIntent      PauseReason = "malformed_intent"
)

// Decision is an operator resolution for a paused workflow.
type Decision string

const (
	DecisionApprove    Decision = "approve"
	DecisionEdit       Decision = "edit"
	DecisionRegenerate Decision = "regenerate"
	DecisionReject     Decision = "reject"
)

// ValidDecision reports whether d is one of the accepted operator decisions.
func ValidDecision(d Decision) bool {
	switch d {
	case DecisionApprove, DecisionEdit, DecisionRegenerate, DecisionReject:
		return true
	}
	return false
}

// ScreenOutcome records the latest sensitivity screen result for operator display.
type ScreenOutcome struct {
	Phase      string   `json:"phase"` // "request" or "draft"
	Flagged    bool     `json:"flagged"`
	Categories []string `json:"categories,omitempty"`
	Spans      []string `json:"offending_spans,omitempty"`
}

// WorkflowState is the single mutable record owned by the orchestrator.
// All other components receive copies or views and never mutate it.
type WorkflowState struct {
	ID      string `json:"workflow_id"`
	Stage   Stage  `json:"stage"`
	RawText string `json:"raw_text,omitempty"`

	Overrides map[string]string `json:"overrides,omitempty"`

	Intent  *IntentRecord       `json:"intent,omitempty"`
	Context *RetrievedContext   `json:"context,omitempty"`
	Draft   *Draft              `json:"draft,omitempty"`
	Report  *VerificationReport `json:"report,omitempty"`
	Screen  *ScreenOutcome      `json:"screen,omitempty"`

	AttemptCount    int    `json:"attempt_count"`
	CorrectionCount int    `json:"correction_count"`
	RewriteCount    int    `json:"rewrite_count"`
	ProviderUsed    string `json:"provider_used,omitempty"`

	PendingHuman bool        `json:"pending_human_input"`
	PauseReason  PauseReason `json:"pause_reason,omitempty"`
	Errors       []string    `json:"errors,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep-enough copy safe to hand to callers: the nested
// records are immutable by convention, so sharing their slices is fine as
// long as the pointers themselves are fresh.
func (s *WorkflowState) Clone() *WorkflowState {
	cp := *s
	if s.Intent != nil {
		intent := *s.Intent
		cp.Intent = &intent
	}
	if s.Context != nil {
		rc := *s.Context
		cp.Context = &rc
	}
	if s.Draft != nil {
		d := *s.Draft
		cp.Draft = &d
	}
	if s.Report != nil {
		r := *s.Report
		cp.Report = &r
	}
	if s.Screen != nil {
		sc := *s.Screen
		cp.Screen = &sc
	}
	cp.Errors = append([]string(nil), s.Errors...)
	return &cp
}
