// Package retrieve resolves intent records against the reference store into
// a bounded, reference-tagged fact set for one generation attempt.
package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jobforge/jobforge/internal/cache"
	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/store"
)

// Retriever selects the citation allowlist for a generation attempt.
// Selection is deterministic given the same store snapshot.
type Retriever struct {
	store    store.ReferenceStore
	cache    *cache.FactCache
	maxFacts int
}

// New creates a retriever. cacheTTL <= 0 disables caching.
func New(refStore store.ReferenceStore, maxFacts int, cacheTTL time.Duration) *Retriever {
	if maxFacts <= 0 {
		maxFacts = 12
	}
	var fc *cache.FactCache
	if cacheTTL > 0 {
		fc = cache.NewFactCache(cacheTTL, 2*cacheTTL)
	}
	return &Retriever{store: refStore, cache: fc, maxFacts: maxFacts}
}

// Retrieve builds the RetrievedContext for an intent: exact company match
// first, then supplementary facts ranked by keyword overlap against the
// requested role and notes, capped at the configured fact count. A company
// reference that resolves to zero records is model.ErrInsufficientContext -
// a branch to the human gate, not a hard failure.
func (r *Retriever) Retrieve(ctx context.Context, intent model.IntentRecord) (*model.RetrievedContext, error) {
	companyFacts, err := r.companySnapshot(ctx, intent.CompanyRef)
	if err != nil {
		return nil, fmt.Errorf("retrieve company facts: %w", err)
	}
	if len(companyFacts) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrInsufficientContext, intent.CompanyRef)
	}

	keywords := intent.Keywords()

	// Prior postings for similar roles are supplementary grounding too.
	postings, err := r.store.Search(ctx, keywords, model.SourcePosting, r.maxFacts)
	if err != nil {
		return nil, fmt.Errorf("search postings: %w", err)
	}

	selected := rank(companyFacts, postings, intent.CompanyRef, keywords, r.maxFacts)
	return &model.RetrievedContext{CompanyRef: intent.CompanyRef, Facts: selected}, nil
}

func (r *Retriever) companySnapshot(ctx context.Context, ref string) ([]model.ReferenceFact, error) {
	if r.cache != nil {
		if facts, ok := r.cache.Get(ref); ok {
			return facts, nil
		}
	}
	facts, err := r.store.LookupByCompany(ctx, ref)
	if err != nil {
		return nil, err
	}
	if r.cache != nil && len(facts) > 0 {
		r.cache.Set(ref, facts)
	}
	return facts, nil
}

// rank orders facts deterministically: the company profile always leads,
// supplementary facts follow by descending keyword overlap with stable
// fact-id tie-break, truncated to max.
func rank(companyFacts, postings []model.ReferenceFact, companyRef string, keywords []string, max int) []model.ReferenceFact {
	var (
		profile       []model.ReferenceFact
		supplementary []model.ReferenceFact
	)
	seen := map[string]bool{}
	add := func(f model.ReferenceFact) {
		if seen[f.ID] {
			return
		}
		seen[f.ID] = true
		if f.SourceTag == model.SourceCompany {
			profile = append(profile, f)
		} else {
			supplementary = append(supplementary, f)
		}
	}
	for _, f := range companyFacts {
		add(f)
	}
	for _, f := range postings {
		// Search is store-wide; keep only this company's postings.
		if strings.HasPrefix(f.ID, string(model.SourcePosting)+":"+companyRef+"/") {
			add(f)
		}
	}

	type scored struct {
		fact  model.ReferenceFact
		score int
		order int
	}
	ranked := make([]scored, len(supplementary))
	for i, f := range supplementary {
		ranked[i] = scored{fact: f, score: overlap(f.Payload, keywords), order: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].fact.ID < ranked[j].fact.ID
	})

	out := append([]model.ReferenceFact{}, profile...)
	for _, sc := range ranked {
		if len(out) >= max {
			break
		}
		out = append(out, sc.fact)
	}
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func overlap(payload string, keywords []string) int {
	lower := strings.ToLower(payload)
	n := 0
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			n++
		}
	}
	return n
}
