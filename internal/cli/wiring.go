package cli

import (
	"time"

	"github.com/jobforge/jobforge/internal/intake"
	"github.com/jobforge/jobforge/internal/llm"
	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/retrieve"
	"github.com/jobforge/jobforge/internal/screen"
	"github.com/jobforge/jobforge/internal/store"
	"github.com/jobforge/jobforge/internal/synthesize"
	"github.com/jobforge/jobforge/internal/verify"
	"github.com/jobforge/jobforge/internal/workflow"
)

// backingStore is the full storage surface the commands need.
type backingStore interface {
	store.ReferenceStore
	store.WorkflowStore
	store.Ingestor
	store.CompanyDirectory
}

// openBacking selects SQLite when a path is configured, in-memory otherwise.
// The returned closer is a no-op for the in-memory store.
func openBacking(cfg *model.Config) (backingStore, func() error, error) {
	if cfg.Store.Path == "" {
		return store.NewMemoryStore(), func() error { return nil }, nil
	}
	s, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// buildEngine assembles the workflow engine from configuration.
func buildEngine(cfg *model.Config, backing backingStore) (*workflow.Engine, error) {
	router, err := llm.RouterFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	cacheTTL := time.Duration(cfg.Retrieval.CacheTTLSecs) * time.Second
	return workflow.NewEngine(workflow.Deps{
		Structurer:  intake.NewStructurer(router),
		Screen:      screen.New(),
		Retriever:   retrieve.New(backing, cfg.Retrieval.MaxFacts, cacheTTL),
		Synthesizer: synthesize.New(router),
		Verifier:    verify.New(backing, router),
		States:      backing,
		Budgets:     cfg.Budgets,

		RequireApproval: cfg.RequireApproval,
	}), nil
}
