package store

import (
	"context"
	"time"

	"github.com/jobforge/jobforge/internal/model"
)

// ReferenceStore is the read-only query interface over company records,
// prior postings, and welfare/history facts. Unknown companies and ids
// return empty results, never errors.
type ReferenceStore interface {
	// LookupByCompany returns every fact tied to a company reference, in
	// stable order (company profile first, then tagged facts by sequence).
	LookupByCompany(ctx context.Context, ref string) ([]model.ReferenceFact, error)

	// LookupByIDs resolves reference ids to facts; unknown ids are skipped.
	LookupByIDs(ctx context.Context, ids []string) ([]model.ReferenceFact, error)

	// Search returns facts whose payload matches any keyword, optionally
	// restricted to one source tag, capped at limit.
	Search(ctx context.Context, keywords []string, tag model.SourceTag, limit int) ([]model.ReferenceFact, error)
}

// HistoryEntry is one superseded draft/report pair kept for audit.
type HistoryEntry struct {
	Draft   model.Draft               `json:"draft"`
	Report  *model.VerificationReport `json:"report,omitempty"`
	SavedAt time.Time                 `json:"saved_at"`
}

// WorkflowStore persists workflow state. State must survive process
// restarts while a workflow is suspended at the human gate, so every
// transition is written through.
type WorkflowStore interface {
	Save(ctx context.Context, state *model.WorkflowState) error

	// Load returns model.ErrWorkflowNotFound for unknown ids.
	Load(ctx context.Context, id string) (*model.WorkflowState, error)

	// AppendHistory archives a superseded draft and its report.
	AppendHistory(ctx context.Context, workflowID string, draft model.Draft, report *model.VerificationReport) error

	History(ctx context.Context, workflowID string) ([]HistoryEntry, error)
}

// CompanyRecord is the ingestion shape used by the fixture loader. Welfare,
// history, talent and posting entries become individually citable facts.
type CompanyRecord struct {
	CompanyRef     string   `yaml:"company_ref" json:"company_ref"`
	Name           string   `yaml:"name" json:"name"`
	Classification string   `yaml:"classification,omitempty" json:"classification,omitempty"`
	IntroSummary   string   `yaml:"intro_summary,omitempty" json:"intro_summary,omitempty"`
	MainBusiness   string   `yaml:"main_business,omitempty" json:"main_business,omitempty"`
	Welfare        []string `yaml:"welfare,omitempty" json:"welfare,omitempty"`
	History        []string `yaml:"history,omitempty" json:"history,omitempty"`
	Talent         []string `yaml:"talent,omitempty" json:"talent,omitempty"`
	Postings       []string `yaml:"postings,omitempty" json:"postings,omitempty"`
}

// Ingestor accepts company records; both store implementations support it.
// Re-ingesting a company replaces its facts.
type Ingestor interface {
	PutCompany(ctx context.Context, rec CompanyRecord) error
}

// CompanySummary is the lookup view of an ingested company.
type CompanySummary struct {
	CompanyRef     string `json:"company_ref"`
	Name           string `json:"name"`
	Classification string `json:"classification,omitempty"`
	IntroSummary   string `json:"intro_summary,omitempty"`
	MainBusiness   string `json:"main_business,omitempty"`
	FactCount      int    `json:"fact_count"`
}

// CompanyDirectory lists and resolves ingested companies.
type CompanyDirectory interface {
	// SearchCompanies matches query against company name or reference,
	// case-insensitively; an empty query lists every company up to limit.
	SearchCompanies(ctx context.Context, query string, limit int) ([]CompanySummary, error)

	// GetCompany returns model.ErrCompanyNotFound for unknown refs.
	GetCompany(ctx context.Context, ref string) (CompanySummary, error)
}

// Facts expands a company record into its reference facts with canonical ids.
func (r CompanyRecord) Facts() []model.ReferenceFact {
	profile := r.Name
	if r.Classification != "" {
		profile += " (" + r.Classification + ")"
	}
	if r.IntroSummary != "" {
		profile += ": " + r.IntroSummary
	}
	if r.MainBusiness != "" {
		profile += " — 주요사업: " + r.MainBusiness
	}

	facts := []model.ReferenceFact{
		{ID: model.FactID(model.SourceCompany, r.CompanyRef, 0), SourceTag: model.SourceCompany, Payload: profile},
	}
	appendTagged := func(tag model.SourceTag, items []string) {
		for i, payload := range items {
			facts = append(facts, model.ReferenceFact{
				ID:        model.FactID(tag, r.CompanyRef, i+1),
				SourceTag: tag,
				Payload:   payload,
			})
		}
	}
	appendTagged(model.SourceWelfare, r.Welfare)
	appendTagged(model.SourceHistory, r.History)
	appendTagged(model.SourceTalent, r.Talent)
	appendTagged(model.SourcePosting, r.Postings)
	return facts
}
