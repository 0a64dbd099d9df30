// Package workflow drives a posting request through structuring, screening,
// retrieval, synthesis, verification and the human approval gate, persisting
// the state after every transition.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobforge/jobforge/internal/intake"
	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/retrieve"
	"github.com/jobforge/jobforge/internal/screen"
	"github.com/jobforge/jobforge/internal/store"
	"github.com/jobforge/jobforge/internal/synthesize"
	"github.com/jobforge/jobforge/internal/verify"
)

// Deps carries the components the engine orchestrates.
type Deps struct {
	Structurer  *intake.Structurer
	Screen      *screen.Screen
	Retriever   *retrieve.Retriever
	Synthesizer *synthesize.Synthesizer
	Verifier    *verify.Verifier
	States      store.WorkflowStore

	Budgets         model.BudgetConfig
	RequireApproval bool
}

// Engine owns every workflow state mutation. Components never touch the
// state record; they receive copies and return results the engine applies.
type Engine struct {
	deps Deps

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates the orchestrator.
func NewEngine(deps Deps) *Engine {
	return &Engine{deps: deps, locks: make(map[string]*sync.Mutex)}
}

// lockFor serializes operations on one workflow id; distinct workflows
// proceed concurrently.
func (e *Engine) lockFor(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// releaseIfTerminal drops a workflow's mutex once it can no longer mutate.
// A later caller gets a fresh mutex and bails at the terminal-stage check.
func (e *Engine) releaseIfTerminal(st *model.WorkflowState) {
	if !st.Stage.Terminal() {
		return
	}
	e.mu.Lock()
	delete(e.locks, st.ID)
	e.mu.Unlock()
}

// Start creates a workflow for a free-text request and runs it until it
// reaches a pause or a terminal stage.
func (e *Engine) Start(ctx context.Context, rawText string, overrides map[string]string) (*model.WorkflowState, error) {
	now := time.Now().UTC()
	st := &model.WorkflowState{
		ID:        uuid.NewString(),
		Stage:     model.StageStructuring,
		RawText:   rawText,
		Overrides: overrides,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.save(ctx, st); err != nil {
		return nil, err
	}

	l := e.lockFor(st.ID)
	l.Lock()
	defer l.Unlock()

	if err := e.advance(ctx, st); err != nil {
		return nil, err
	}
	e.releaseIfTerminal(st)
	return st.Clone(), nil
}

// GetState returns a copy of the current workflow state.
func (e *Engine) GetState(ctx context.Context, id string) (*model.WorkflowState, error) {
	return e.deps.States.Load(ctx, id)
}

// History returns the superseded draft/report pairs of a workflow, oldest
// first.
func (e *Engine) History(ctx context.Context, id string) ([]store.HistoryEntry, error) {
	if _, err := e.deps.States.Load(ctx, id); err != nil {
		return nil, err
	}
	return e.deps.States.History(ctx, id)
}

// SubmitFeedback resolves a paused workflow with an operator decision and,
// where the decision resumes generation, runs it to the next pause.
func (e *Engine) SubmitFeedback(ctx context.Context, id string, decision model.Decision, text string) (*model.WorkflowState, error) {
	if !model.ValidDecision(decision) {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}

	l := e.lockFor(id)
	l.Lock()
	defer l.Unlock()

	st, err := e.deps.States.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Stage.Terminal() {
		e.releaseIfTerminal(st)
		return nil, fmt.Errorf("workflow %s: %w", id, model.ErrWorkflowTerminal)
	}
	if !st.PendingHuman {
		return nil, fmt.Errorf("workflow %s: %w", id, model.ErrNotAwaitingInput)
	}

	switch decision {
	case model.DecisionApprove:
		if st.Draft == nil {
			return nil, fmt.Errorf("workflow %s has no draft to approve", id)
		}
		// The approved draft is exactly the reviewed draft, byte for byte.
		st.Stage = model.StageApproved
		e.clearPause(st)

	case model.DecisionReject:
		st.Stage = model.StageRejected
		e.clearPause(st)

	case model.DecisionEdit:
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("edit decision needs replacement text")
		}
		if err := e.applyEdit(ctx, st, text); err != nil {
			return nil, err
		}

	case model.DecisionRegenerate:
		if err := e.applyRegenerate(ctx, st); err != nil {
			return nil, err
		}
	}

	if err := e.save(ctx, st); err != nil {
		return nil, err
	}
	if !st.Stage.Terminal() && !st.PendingHuman {
		if err := e.advance(ctx, st); err != nil {
			return nil, err
		}
	}
	e.releaseIfTerminal(st)
	return st.Clone(), nil
}

// Cancel rejects a non-terminal workflow regardless of its stage.
func (e *Engine) Cancel(ctx context.Context, id string) (*model.WorkflowState, error) {
	l := e.lockFor(id)
	l.Lock()
	defer l.Unlock()

	st, err := e.deps.States.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Stage.Terminal() {
		e.releaseIfTerminal(st)
		return nil, fmt.Errorf("workflow %s: %w", id, model.ErrWorkflowTerminal)
	}
	st.Stage = model.StageRejected
	e.clearPause(st)
	if err := e.save(ctx, st); err != nil {
		return nil, err
	}
	e.releaseIfTerminal(st)
	return st.Clone(), nil
}

// applyEdit archives the reviewed draft and replaces it with operator text.
// The edited draft still goes through draft screening and verification.
func (e *Engine) applyEdit(ctx context.Context, st *model.WorkflowState, text string) error {
	if st.Draft == nil || st.Context == nil {
		return fmt.Errorf("workflow %s has no draft to edit", st.ID)
	}
	if err := e.deps.States.AppendHistory(ctx, st.ID, *st.Draft, st.Report); err != nil {
		return err
	}
	attempt := st.AttemptCount
	if attempt == 0 {
		attempt = 1
	}
	st.Draft = synthesize.Reparse(text, "operator", attempt)
	st.Report = nil
	st.CorrectionCount = 0
	st.Stage = model.StageScreeningDraft
	e.clearPause(st)
	return nil
}

// applyRegenerate restarts generation from the stage the pause interrupted.
func (e *Engine) applyRegenerate(ctx context.Context, st *model.WorkflowState) error {
	if st.Draft != nil {
		if err := e.deps.States.AppendHistory(ctx, st.ID, *st.Draft, st.Report); err != nil {
			return err
		}
	}
	st.Draft = nil
	st.Report = nil
	st.CorrectionCount = 0
	st.RewriteCount = 0

	switch {
	case st.PauseReason == model.PauseMalformedIntent || st.Intent == nil:
		st.Stage = model.StageStructuring
	case st.PauseReason == model.PauseInsufficientContext || st.Context == nil:
		st.Stage = model.StageRetrieving
	default:
		st.Stage = model.StageSynthesizing
	}
	e.clearPause(st)
	return nil
}

// advance runs the state machine until the workflow pauses or terminates,
// persisting after every transition.
func (e *Engine) advance(ctx context.Context, st *model.WorkflowState) error {
	for !st.Stage.Terminal() && !st.PendingHuman {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.step(ctx, st); err != nil {
			return err
		}
		if err := e.save(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) step(ctx context.Context, st *model.WorkflowState) error {
	switch st.Stage {
	case model.StageStructuring:
		return e.stepStructure(ctx, st)
	case model.StageScreeningRequest:
		return e.stepScreenRequest(st)
	case model.StageRetrieving:
		return e.stepRetrieve(ctx, st)
	case model.StageSynthesizing:
		return e.stepSynthesize(ctx, st)
	case model.StageScreeningDraft:
		return e.stepScreenDraft(ctx, st)
	case model.StageVerifying:
		return e.stepVerify(ctx, st)
	case model.StageCorrecting:
		return e.stepCorrect(ctx, st)
	default:
		return fmt.Errorf("workflow %s: no transition from stage %s", st.ID, st.Stage)
	}
}

func (e *Engine) stepStructure(ctx context.Context, st *model.WorkflowState) error {
	intent, err := e.deps.Structurer.Structure(ctx, st.RawText, st.Overrides)
	if err != nil {
		if errors.Is(err, model.ErrMalformedIntent) {
			e.pause(st, model.PauseMalformedIntent, err)
			return nil
		}
		if errors.Is(err, model.ErrAllProvidersExhausted) {
			e.pause(st, model.PauseGenerationUnavail, err)
			return nil
		}
		return err
	}
	st.Intent = intent
	st.Stage = model.StageScreeningRequest
	return nil
}

func (e *Engine) stepScreenRequest(st *model.WorkflowState) error {
	res := e.deps.Screen.Scan(st.RawText, screen.PhaseRequest)
	st.Screen = &model.ScreenOutcome{
		Phase:      string(res.Phase),
		Flagged:    res.Flagged,
		Categories: res.Categories,
		Spans:      res.Spans,
	}
	if res.Flagged {
		// Discriminatory requests never reach retrieval.
		st.Errors = append(st.Errors, fmt.Sprintf("%s: request rejected by sensitivity screen (%s)",
			model.ErrSensitiveInput, strings.Join(res.Categories, ", ")))
		st.Stage = model.StageRejected
		return nil
	}
	st.Stage = model.StageRetrieving
	return nil
}

func (e *Engine) stepRetrieve(ctx context.Context, st *model.WorkflowState) error {
	rc, err := e.deps.Retriever.Retrieve(ctx, *st.Intent)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientContext) {
			e.pause(st, model.PauseInsufficientContext, err)
			return nil
		}
		return err
	}
	st.Context = rc
	st.Stage = model.StageSynthesizing
	return nil
}

func (e *Engine) stepSynthesize(ctx context.Context, st *model.WorkflowState) error {
	st.AttemptCount++
	draft, err := e.deps.Synthesizer.Synthesize(ctx, *st.Intent, *st.Context, st.AttemptCount, nil)
	if err != nil {
		if errors.Is(err, model.ErrAllProvidersExhausted) {
			e.pause(st, model.PauseGenerationUnavail, err)
			return nil
		}
		return err
	}
	st.Draft = draft
	st.ProviderUsed = draft.ProviderUsed
	st.Stage = model.StageScreeningDraft
	return nil
}

func (e *Engine) stepScreenDraft(ctx context.Context, st *model.WorkflowState) error {
	res := e.deps.Screen.Scan(st.Draft.Body, screen.PhaseDraft)
	st.Screen = &model.ScreenOutcome{
		Phase:      string(res.Phase),
		Flagged:    res.Flagged,
		Categories: res.Categories,
		Spans:      res.Spans,
	}
	if !res.Flagged {
		st.Stage = model.StageVerifying
		return nil
	}

	if st.RewriteCount >= e.deps.Budgets.MaxDraftRewrite {
		e.pause(st, model.PauseSensitiveDraft,
			fmt.Errorf("%w: draft still flagged after %d rewrites", model.ErrSensitiveInput, st.RewriteCount))
		return nil
	}

	if err := e.deps.States.AppendHistory(ctx, st.ID, *st.Draft, nil); err != nil {
		return err
	}
	st.RewriteCount++
	st.AttemptCount++
	draft, err := e.deps.Synthesizer.RewriteAvoiding(ctx, *st.Intent, *st.Context, st.AttemptCount, res.Spans)
	if err != nil {
		if errors.Is(err, model.ErrAllProvidersExhausted) {
			e.pause(st, model.PauseGenerationUnavail, err)
			return nil
		}
		return err
	}
	st.Draft = draft
	st.ProviderUsed = draft.ProviderUsed
	return nil
}

func (e *Engine) stepVerify(ctx context.Context, st *model.WorkflowState) error {
	report, err := e.deps.Verifier.Verify(ctx, *st.Draft, *st.Context)
	if err != nil {
		if errors.Is(err, model.ErrAllProvidersExhausted) {
			e.pause(st, model.PauseGenerationUnavail, err)
			return nil
		}
		return err
	}
	st.Report = report

	if report.OverallPass {
		if e.deps.RequireApproval {
			e.pause(st, model.PauseReadyForApproval, nil)
		} else {
			st.Stage = model.StageApproved
		}
		return nil
	}

	if st.CorrectionCount >= e.deps.Budgets.MaxCorrections {
		st.Errors = append(st.Errors, fmt.Sprintf("%s: %d hallucinated claims remain after %d corrections",
			model.ErrVerificationBudget, len(report.Hallucinations()), st.CorrectionCount))
		e.pause(st, model.PauseVerificationBudget, nil)
		return nil
	}
	st.Stage = model.StageCorrecting
	return nil
}

func (e *Engine) stepCorrect(ctx context.Context, st *model.WorkflowState) error {
	if err := e.deps.States.AppendHistory(ctx, st.ID, *st.Draft, st.Report); err != nil {
		return err
	}

	draft, err := e.deps.Synthesizer.Correct(ctx, *st.Context, *st.Draft, st.Report.Hallucinations())
	if err != nil {
		if errors.Is(err, model.ErrAllProvidersExhausted) {
			e.pause(st, model.PauseGenerationUnavail, err)
			return nil
		}
		return err
	}
	st.Draft = draft
	if draft.ProviderUsed != "" {
		st.ProviderUsed = draft.ProviderUsed
	}
	st.CorrectionCount++
	st.Report = nil
	st.Stage = model.StageVerifying
	return nil
}

func (e *Engine) pause(st *model.WorkflowState, reason model.PauseReason, cause error) {
	st.Stage = model.StageAwaitingHuman
	st.PendingHuman = true
	st.PauseReason = reason
	if cause != nil {
		st.Errors = append(st.Errors, cause.Error())
	}
}

func (e *Engine) clearPause(st *model.WorkflowState) {
	st.PendingHuman = false
	st.PauseReason = ""
}

func (e *Engine) save(ctx context.Context, st *model.WorkflowState) error {
	st.UpdatedAt = time.Now().UTC()
	return e.deps.States.Save(ctx, st)
}
