package model

import (
	"fmt"
	"strings"
)

// SourceTag identifies which reference table a fact came from.
type SourceTag string

const (
	SourceCompany SourceTag = "company" // core company profile record
	SourceWelfare SourceTag = "welfare" // benefit/welfare items
	SourceHistory SourceTag = "history" // company history entries
	SourceTalent  SourceTag = "talent"  // talent criteria
	SourcePosting SourceTag = "posting" // prior job postings
)

// ReferenceFact is a single verifiable record from the reference store.
// Facts are read-only to the workflow; the ID is stable across runs.
type ReferenceFact struct {
	ID        string    `json:"reference_id"` // "<tag>:<company_ref>/<n>", company facts are "company:<company_ref>"
	SourceTag SourceTag `json:"source_table_tag"`
	Payload   string    `json:"payload"`
}

// FactID builds the canonical reference id for a fact.
func FactID(tag SourceTag, companyRef string, n int) string {
	if tag == SourceCompany {
		return fmt.Sprintf("%s:%s", tag, companyRef)
	}
	return fmt.Sprintf("%s:%s/%d", tag, companyRef, n)
}

// RetrievedContext is the ordered, bounded set of facts selected for one
// generation attempt. Every member existed in the store at selection time.
type RetrievedContext struct {
	CompanyRef string          `json:"company_ref"`
	Facts      []ReferenceFact `json:"facts"`
}

// IDs returns the citation allowlist for this context, in selection order.
func (c RetrievedContext) IDs() []string {
	ids := make([]string, len(c.Facts))
	for i, f := range c.Facts {
		ids[i] = f.ID
	}
	return ids
}

// Contains reports whether id is part of the citation allowlist.
func (c RetrievedContext) Contains(id string) bool {
	for _, f := range c.Facts {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Lookup returns the fact with the given id, if selected.
func (c RetrievedContext) Lookup(id string) (ReferenceFact, bool) {
	for _, f := range c.Facts {
		if f.ID == id {
			return f, true
		}
	}
	return ReferenceFact{}, false
}

// Empty reports whether no facts were retrieved.
func (c RetrievedContext) Empty() bool {
	return len(c.Facts) == 0
}

func (c RetrievedContext) String() string {
	return fmt.Sprintf("context[%s: %s]", c.CompanyRef, strings.Join(c.IDs(), ", "))
}
