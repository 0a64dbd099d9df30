package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

const apiIntentJSON = `{"requested_role":"백엔드 개발자","company_ref":"E000023944","constraints":{},"free_text_notes":""}`

const apiDraft = `네오플레이 스튜디오는 모바일 게임 개발사입니다. [REF:company:E000023944]
자율 출퇴근제를 운영합니다. [REF:welfare:E000023944/1]`

type stubLLM struct{}

func (stubLLM) Name() string                       { return "openai" }
func (stubLLM) IsAvailable(_ context.Context) bool { return true }

func (stubLLM) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	switch {
	case strings.Contains(req.System, "structure hiring requests"):
		return &llm.Response{Text: apiIntentJSON}, nil
	case strings.Contains(req.System, "write job postings"):
		return &llm.Response{Text: apiDraft}, nil
	case strings.Contains(req.System, "compare one sentence"):
		return &llm.Response{Text: "SUPPORTED"}, nil
	}
	return nil, fmt.Errorf("unexpected request")
}

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemoryStore()
	require.NoError(t, mem.PutCompany(context.Background(), store.CompanyRecord{
		CompanyRef:     "E000023944",
		Name:           "네오플레이 스튜디오",
		Classification: "모바일 게임 개발사",
		Welfare:        []string{"자율 출퇴근제 운영"},
	}))

	router, err := llm.NewRouter([]llm.Provider{stubLLM{}}, nil, 0)
	require.NoError(t, err)

	eng := workflow.NewEngine(workflow.Deps{
		Structurer:  intake.NewStructurer(router),
		Screen:      screen.New(),
		Retriever:   retrieve.New(mem, 12, time.Minute),
		Synthesizer: synthesize.New(router),
		Verifier:    verify.New(mem, router),
		States:      mem,
		Budgets:     model.BudgetConfig{MaxCorrections: 3, MaxDraftRewrite: 2, ProviderRetries: 1},

		RequireApproval: true,
	})
	return NewServer(eng, mem).Router()
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func startWorkflow(t *testing.T, r *gin.Engine) model.WorkflowState {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/postings", gin.H{"raw_text": "E000023944 백엔드 개발자 공고"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var st model.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestHealthz(t *testing.T) {
	r := newTestServer(t)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartPosting(t *testing.T) {
	r := newTestServer(t)
	st := startWorkflow(t, r)

	assert.NotEmpty(t, st.ID)
	assert.Equal(t, model.StageAwaitingHuman, st.Stage)
	assert.Equal(t, model.PauseReadyForApproval, st.PauseReason)
	require.NotNil(t, st.Draft)
	assert.Equal(t, apiDraft, st.Draft.Body)
}

func TestStartPosting_MissingRequestBody(t *testing.T) {
	r := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/v1/postings", gin.H{"constraints": gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPosting(t *testing.T) {
	r := newTestServer(t)
	st := startWorkflow(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/v1/postings/"+st.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, st.ID, got.ID)

	w = doJSON(t, r, http.MethodGet, "/api/v1/postings/no-such-id", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitFeedback_ApproveFlow(t *testing.T) {
	r := newTestServer(t)
	st := startWorkflow(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/postings/"+st.ID+"/feedback", gin.H{"decision": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got model.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StageApproved, got.Stage)

	// A second decision on a terminal workflow conflicts.
	w = doJSON(t, r, http.MethodPost, "/api/v1/postings/"+st.ID+"/feedback", gin.H{"decision": "reject"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitFeedback_Validation(t *testing.T) {
	r := newTestServer(t)
	st := startWorkflow(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/v1/postings/"+st.ID+"/feedback", gin.H{"decision": "ship_it"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/postings/"+st.ID+"/feedback", gin.H{"decision": "edit", "text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	r := newTestServer(t)
	st := startWorkflow(t, r)

	edited := "점심 식대 지원 문구를 뺀 공고입니다. [REF:company:E000023944]"
	w := doJSON(t, r, http.MethodPost, "/api/v1/postings/"+st.ID+"/feedback", gin.H{"decision": "edit", "text": edited})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/v1/postings/"+st.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		History []store.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, apiDraft, resp.History[0].Draft.Body)

	w = doJSON(t, r, http.MethodGet, "/api/v1/postings/no-such-id/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelEndpoint(t *testing.T) {
	r := newTestServer(t)
	st := startWorkflow(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/postings/"+st.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got model.WorkflowState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StageRejected, got.Stage)
}

func TestSearchCompanies(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/companies?q=네오플레이", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Companies []store.CompanySummary `json:"companies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Companies, 1)
	assert.Equal(t, "E000023944", resp.Companies[0].CompanyRef)
	assert.Equal(t, 2, resp.Companies[0].FactCount)

	// Reference fragments match too.
	w = doJSON(t, r, http.MethodGet, "/api/v1/companies?q=E0000239", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Companies, 1)

	// No match is an empty list, not an error.
	w = doJSON(t, r, http.MethodGet, "/api/v1/companies?q=없는회사", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Companies)

	w = doJSON(t, r, http.MethodGet, "/api/v1/companies?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCompany(t *testing.T) {
	r := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/companies/E000023944", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got store.CompanySummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "네오플레이 스튜디오", got.Name)
	assert.Equal(t, "모바일 게임 개발사", got.Classification)

	w = doJSON(t, r, http.MethodGet, "/api/v1/companies/E999999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
