package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobforge/jobforge/internal/model"
)

// MemoryStore is an in-memory ReferenceStore and WorkflowStore, used by
// tests and zero-setup demo runs. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	facts     []model.ReferenceFact // insertion order
	byID      map[string]model.ReferenceFact
	byCompany map[string][]string // company ref -> fact ids in order
	companies map[string]CompanySummary

	states  map[string]*model.WorkflowState
	history map[string][]HistoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]model.ReferenceFact),
		byCompany: make(map[string][]string),
		companies: make(map[string]CompanySummary),
		states:    make(map[string]*model.WorkflowState),
		history:   make(map[string][]HistoryEntry),
	}
}

// Add registers facts under the given company reference, preserving order.
func (s *MemoryStore) Add(companyRef string, facts ...model.ReferenceFact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range facts {
		if _, dup := s.byID[f.ID]; dup {
			continue
		}
		s.facts = append(s.facts, f)
		s.byID[f.ID] = f
		s.byCompany[companyRef] = append(s.byCompany[companyRef], f.ID)
	}
}

// PutCompany ingests a company record as reference facts, replacing any
// facts from an earlier ingest of the same company.
func (s *MemoryStore) PutCompany(ctx context.Context, rec CompanyRecord) error {
	facts := rec.Facts()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeCompanyLocked(rec.CompanyRef)
	for _, f := range facts {
		s.facts = append(s.facts, f)
		s.byID[f.ID] = f
		s.byCompany[rec.CompanyRef] = append(s.byCompany[rec.CompanyRef], f.ID)
	}
	s.companies[rec.CompanyRef] = CompanySummary{
		CompanyRef:     rec.CompanyRef,
		Name:           rec.Name,
		Classification: rec.Classification,
		IntroSummary:   rec.IntroSummary,
		MainBusiness:   rec.MainBusiness,
		FactCount:      len(facts),
	}
	return nil
}

// removeCompanyLocked drops a company's facts from every index. Caller holds mu.
func (s *MemoryStore) removeCompanyLocked(companyRef string) {
	ids := s.byCompany[companyRef]
	if len(ids) == 0 {
		return
	}
	stale := make(map[string]bool, len(ids))
	for _, id := range ids {
		stale[id] = true
		delete(s.byID, id)
	}
	kept := s.facts[:0]
	for _, f := range s.facts {
		if !stale[f.ID] {
			kept = append(kept, f)
		}
	}
	s.facts = kept
	delete(s.byCompany, companyRef)
}

// LookupByCompany returns every fact tied to the company reference.
func (s *MemoryStore) LookupByCompany(ctx context.Context, ref string) ([]model.ReferenceFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byCompany[ref]
	out := make([]model.ReferenceFact, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	return out, nil
}

// LookupByIDs resolves ids to facts; unknown ids are skipped.
func (s *MemoryStore) LookupByIDs(ctx context.Context, ids []string) ([]model.ReferenceFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ReferenceFact, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Search returns facts whose payload contains any keyword, optionally
// restricted to one tag, in stable insertion order.
func (s *MemoryStore) Search(ctx context.Context, keywords []string, tag model.SourceTag, limit int) ([]model.ReferenceFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ReferenceFact
	for _, f := range s.facts {
		if tag != "" && f.SourceTag != tag {
			continue
		}
		if !matchesAny(f.Payload, keywords) {
			continue
		}
		out = append(out, f)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesAny(payload string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(payload)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// SearchCompanies matches query against company name or reference.
func (s *MemoryStore) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	var out []CompanySummary
	for _, c := range s.companies {
		if q != "" && !strings.Contains(strings.ToLower(c.Name), q) && !strings.Contains(strings.ToLower(c.CompanyRef), q) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyRef < out[j].CompanyRef })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetCompany resolves one company reference.
func (s *MemoryStore) GetCompany(ctx context.Context, ref string) (CompanySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.companies[ref]
	if !ok {
		return CompanySummary{}, model.ErrCompanyNotFound
	}
	return c, nil
}

// Save persists a copy of the workflow state.
func (s *MemoryStore) Save(ctx context.Context, state *model.WorkflowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ID] = state.Clone()
	return nil
}

// Load returns a copy of the stored state.
func (s *MemoryStore) Load(ctx context.Context, id string) (*model.WorkflowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return nil, model.ErrWorkflowNotFound
	}
	return st.Clone(), nil
}

// AppendHistory archives a superseded draft and report.
func (s *MemoryStore) AppendHistory(ctx context.Context, workflowID string, draft model.Draft, report *model.VerificationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[workflowID] = append(s.history[workflowID], HistoryEntry{
		Draft:   draft,
		Report:  report,
		SavedAt: time.Now().UTC(),
	})
	return nil
}

// History returns the archived drafts for a workflow, oldest first.
func (s *MemoryStore) History(ctx context.Context, workflowID string) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.history[workflowID]
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.Before(out[j].SavedAt) })
	return out, nil
}
