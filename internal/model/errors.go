package model

import "errors"

// Workflow error taxonomy. Transient provider errors are recovered inside the
// router and never escape as workflow failure; policy and data-sufficiency
// conditions always surface at the human decision point.
var (
	// ErrMalformedIntent means mandatory intent fields (company reference,
	// role) could not be extracted after one provider call. Surfaced to the
	// caller, never retried silently.
	ErrMalformedIntent = errors.New("malformed intent: company reference or role missing")

	// ErrSensitiveInput is the terminal, user-facing rejection of a flagged
	// request.
	ErrSensitiveInput = errors.New("sensitive input rejected")

	// ErrInsufficientContext means the company reference resolved to zero
	// records. Recoverable via human input.
	ErrInsufficientContext = errors.New("insufficient context: company reference resolved to no records")

	// ErrProviderTimeout and ErrProviderError are per-call failures handled
	// by the router's retry/failover.
	ErrProviderTimeout = errors.New("provider timeout")
	ErrProviderError   = errors.New("provider error")

	// ErrAllProvidersExhausted means every configured provider failed.
	ErrAllProvidersExhausted = errors.New("all generation providers exhausted")

	// ErrVerificationBudget means the correction loop ran out of budget with
	// hallucinations still present.
	ErrVerificationBudget = errors.New("verification budget exceeded")

	ErrCompanyNotFound  = errors.New("company not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowTerminal = errors.New("workflow already in a terminal stage")
	ErrNotAwaitingInput = errors.New("workflow is not awaiting human input")
)
