package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobforge/jobforge/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS companies (
	company_ref    TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	classification TEXT,
	intro_summary  TEXT,
	main_business  TEXT
);

CREATE TABLE IF NOT EXISTS reference_facts (
	id          TEXT PRIMARY KEY,
	company_ref TEXT NOT NULL,
	source_tag  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_facts_company ON reference_facts(company_ref, source_tag, seq);

CREATE TABLE IF NOT EXISTS workflow_states (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS workflow_history (
	rowid       INTEGER PRIMARY KEY AUTOINCREMENT,
	workflow_id TEXT NOT NULL,
	draft       TEXT NOT NULL,
	report      TEXT,
	saved_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_history_workflow ON workflow_history(workflow_id, rowid);
`

// SQLite backs both the reference store and the workflow store with a
// single database file (pure-Go driver, no cgo).
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates, if needed) the database at path with
// foreign keys on and the schema applied.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// PutCompany upserts a company record and its reference facts.
func (s *SQLite) PutCompany(ctx context.Context, rec CompanyRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO companies (company_ref, company_name, classification, intro_summary, main_business)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(company_ref) DO UPDATE SET
			company_name = excluded.company_name,
			classification = excluded.classification,
			intro_summary = excluded.intro_summary,
			main_business = excluded.main_business`,
		rec.CompanyRef, rec.Name, rec.Classification, rec.IntroSummary, rec.MainBusiness)
	if err != nil {
		return fmt.Errorf("upsert company: %w", err)
	}

	// Re-ingesting replaces the company's facts; stale rows must not stay citable.
	if _, err = tx.ExecContext(ctx, `DELETE FROM reference_facts WHERE company_ref = ?`, rec.CompanyRef); err != nil {
		return fmt.Errorf("clear facts for %s: %w", rec.CompanyRef, err)
	}

	for i, f := range rec.Facts() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reference_facts (id, company_ref, source_tag, seq, payload)
			VALUES (?, ?, ?, ?, ?)`,
			f.ID, rec.CompanyRef, string(f.SourceTag), i, f.Payload)
		if err != nil {
			return fmt.Errorf("insert fact %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// LookupByCompany returns every fact tied to the company reference, in
// stable seq order. Unknown companies return an empty slice.
func (s *SQLite) LookupByCompany(ctx context.Context, ref string) ([]model.ReferenceFact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_tag, payload FROM reference_facts
		WHERE company_ref = ? ORDER BY seq`, ref)
	if err != nil {
		return nil, fmt.Errorf("lookup by company: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFacts(rows)
}

// LookupByIDs resolves ids to facts; unknown ids are skipped. Result order
// follows the requested id order.
func (s *SQLite) LookupByIDs(ctx context.Context, ids []string) ([]model.ReferenceFact, error) {
	if len(ids) == 0 {
		return []model.ReferenceFact{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_tag, payload FROM reference_facts
		WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("lookup by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	found, err := scanFacts(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.ReferenceFact, len(found))
	for _, f := range found {
		byID[f.ID] = f
	}
	out := make([]model.ReferenceFact, 0, len(found))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// SearchCompanies matches query against company name or reference,
// case-insensitively; an empty query lists every company up to limit.
func (s *SQLite) SearchCompanies(ctx context.Context, query string, limit int) ([]CompanySummary, error) {
	q := `
		SELECT c.company_ref, c.company_name, c.classification, c.intro_summary, c.main_business,
		       (SELECT COUNT(*) FROM reference_facts f WHERE f.company_ref = c.company_ref)
		FROM companies c`
	var args []any
	if query = strings.TrimSpace(query); query != "" {
		q += ` WHERE c.company_name LIKE ? OR c.company_ref LIKE ?`
		pat := "%" + query + "%"
		args = append(args, pat, pat)
	}
	q += ` ORDER BY c.company_ref`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CompanySummary
	for rows.Next() {
		var (
			c                      CompanySummary
			class, intro, business sql.NullString
		)
		if err := rows.Scan(&c.CompanyRef, &c.Name, &class, &intro, &business, &c.FactCount); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.Classification, c.IntroSummary, c.MainBusiness = class.String, intro.String, business.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCompany resolves one company reference.
func (s *SQLite) GetCompany(ctx context.Context, ref string) (CompanySummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT c.company_ref, c.company_name, c.classification, c.intro_summary, c.main_business,
		       (SELECT COUNT(*) FROM reference_facts f WHERE f.company_ref = c.company_ref)
		FROM companies c WHERE c.company_ref = ?`, ref)
	var (
		c                      CompanySummary
		class, intro, business sql.NullString
	)
	if err := row.Scan(&c.CompanyRef, &c.Name, &class, &intro, &business, &c.FactCount); err != nil {
		if err == sql.ErrNoRows {
			return CompanySummary{}, model.ErrCompanyNotFound
		}
		return CompanySummary{}, fmt.Errorf("get company: %w", err)
	}
	c.Classification, c.IntroSummary, c.MainBusiness = class.String, intro.String, business.String
	return c, nil
}

// Search returns facts whose payload contains any keyword, optionally
// restricted to one tag.
func (s *SQLite) Search(ctx context.Context, keywords []string, tag model.SourceTag, limit int) ([]model.ReferenceFact, error) {
	var (
		clauses []string
		args    []any
	)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		clauses = append(clauses, "payload LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	query := `SELECT id, source_tag, payload FROM reference_facts WHERE 1=1`
	if len(clauses) > 0 {
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	if tag != "" {
		query += " AND source_tag = ?"
		args = append(args, string(tag))
	}
	query += " ORDER BY company_ref, seq"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanFacts(rows)
}

func scanFacts(rows *sql.Rows) ([]model.ReferenceFact, error) {
	out := []model.ReferenceFact{}
	for rows.Next() {
		var f model.ReferenceFact
		var tag string
		if err := rows.Scan(&f.ID, &tag, &f.Payload); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		f.SourceTag = model.SourceTag(tag)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Save writes the workflow state as a JSON payload keyed by workflow id.
func (s *SQLite) Save(ctx context.Context, state *model.WorkflowState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_states (id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		state.ID, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Load reads a workflow state back; model.ErrWorkflowNotFound for unknowns.
func (s *SQLite) Load(ctx context.Context, id string) (*model.WorkflowState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM workflow_states WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, model.ErrWorkflowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	var state model.WorkflowState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// AppendHistory archives a superseded draft and its report.
func (s *SQLite) AppendHistory(ctx context.Context, workflowID string, draft model.Draft, report *model.VerificationReport) error {
	draftJSON, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	var reportJSON sql.NullString
	if report != nil {
		b, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		reportJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_history (workflow_id, draft, report, saved_at) VALUES (?, ?, ?, ?)`,
		workflowID, string(draftJSON), reportJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// History returns the archived drafts for a workflow, oldest first.
func (s *SQLite) History(ctx context.Context, workflowID string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT draft, report, saved_at FROM workflow_history
		WHERE workflow_id = ? ORDER BY rowid`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []HistoryEntry{}
	for rows.Next() {
		var (
			entry      HistoryEntry
			draftJSON  string
			reportJSON sql.NullString
		)
		if err := rows.Scan(&draftJSON, &reportJSON, &entry.SavedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if err := json.Unmarshal([]byte(draftJSON), &entry.Draft); err != nil {
			return nil, fmt.Errorf("unmarshal history draft: %w", err)
		}
		if reportJSON.Valid {
			var report model.VerificationReport
			if err := json.Unmarshal([]byte(reportJSON.String), &report); err != nil {
				return nil, fmt.Errorf("unmarshal history report: %w", err)
			}
			entry.Report = &report
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
