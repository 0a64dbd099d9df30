package verify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge/internal/llm"
	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/store"
	"github.com/jobforge/jobforge/internal/synthesize"
)

type verdictProvider struct {
	answers map[string]string // substring of prompt -> answer
	calls   int
}

func (p *verdictProvider) Name() string                       { return "openai" }
func (p *verdictProvider) IsAvailable(_ context.Context) bool { return true }

func (p *verdictProvider) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.calls++
	for needle, answer := range p.answers {
		if needle != "" && strings.Contains(req.Prompt, needle) {
			return &llm.Response{Text: answer}, nil
		}
	}
	return &llm.Response{Text: "SUPPORTED"}, nil
}

func newVerifier(t *testing.T, p *verdictProvider) (*Verifier, model.RetrievedContext) {
	t.Helper()

	mem := store.NewMemoryStore()
	facts := []model.ReferenceFact{
		{ID: "company:E000023944", SourceTag: model.SourceCompany, Payload: "네오플레이 스튜디오, 게임 개발사"},
		{ID: "welfare:E000023944/1", SourceTag: model.SourceWelfare, Payload: "자율 출퇴근제 운영"},
		{ID: "history:E000023944/1", SourceTag: model.SourceHistory, Payload: "2020년 설립"},
	}
	mem.Add("E000023944", facts...)
	mem.Add("E000099999", model.ReferenceFact{ID: "welfare:E000099999/1", SourceTag: model.SourceWelfare, Payload: "사내 카페 운영"})

	rc := model.RetrievedContext{CompanyRef: "E000023944", Facts: facts}
	router, err := llm.NewRouter([]llm.Provider{p}, nil, 0)
	require.NoError(t, err)
	return New(mem, router), rc
}

func draftOf(body string) model.Draft {
	return model.Draft{Body: body, Claims: synthesize.ParseDraft(body), Attempt: 1}
}

func TestVerify_AllClaimsCiteContextSubset_Passes(t *testing.T) {
	p := &verdictProvider{}
	v, rc := newVerifier(t, p)

	draft := draftOf("네오플레이 스튜디오는 게임 개발사입니다. [REF:company:E000023944]\n자율 출퇴근제를 운영합니다. [REF:welfare:E000023944/1]")
	report, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	assert.True(t, report.OverallPass)
	require.Len(t, report.Claims, 2)
	for _, cv := range report.Claims {
		assert.Equal(t, model.VerdictGrounded, cv.Verdict)
	}
}

func TestVerify_UncitedFactualSentenceIsExtrinsic(t *testing.T) {
	p := &verdictProvider{}
	v, rc := newVerifier(t, p)

	draft := draftOf("연봉은 업계 최고 수준입니다.")
	report, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	assert.False(t, report.OverallPass)
	require.Len(t, report.Claims, 1)
	assert.Equal(t, model.VerdictExtrinsic, report.Claims[0].Verdict)
	assert.Equal(t, 0, p.calls, "no provider call for citation-free sentences")
}

func TestVerify_CitationOutsideContextIsExtrinsic(t *testing.T) {
	p := &verdictProvider{}
	v, rc := newVerifier(t, p)

	// Exists in the store but was not retrieved for this workflow.
	draft := draftOf("사내 카페를 운영합니다. [REF:welfare:E000099999/1]")
	report, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	require.Len(t, report.Claims, 1)
	assert.Equal(t, model.VerdictExtrinsic, report.Claims[0].Verdict)
	assert.Contains(t, report.Claims[0].Reason, "outside the retrieved context")
}

func TestVerify_UnknownCitationIsExtrinsic(t *testing.T) {
	p := &verdictProvider{}
	v, rc := newVerifier(t, p)

	draft := draftOf("수상 경력이 있습니다. [REF:history:E000023944/99]")
	report, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	require.Len(t, report.Claims, 1)
	assert.Equal(t, model.VerdictExtrinsic, report.Claims[0].Verdict)
	assert.Contains(t, report.Claims[0].Reason, "does not exist")
}

func TestVerify_ContradictedClaimIsIntrinsic(t *testing.T) {
	p := &verdictProvider{answers: map[string]string{"2010년 설립": "CONTRADICTED"}}
	v, rc := newVerifier(t, p)

	draft := draftOf("2010년 설립된 회사입니다. [REF:history:E000023944/1]")
	report, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	require.Len(t, report.Claims, 1)
	assert.Equal(t, model.VerdictIntrinsic, report.Claims[0].Verdict)
	assert.False(t, report.OverallPass)
}

func TestVerify_UnverifiableDoesNotBlockPass(t *testing.T) {
	p := &verdictProvider{answers: map[string]string{"근무 분위기": "UNVERIFIABLE"}}
	v, rc := newVerifier(t, p)

	draft := draftOf("근무 분위기가 자유롭습니다. [REF:welfare:E000023944/1]")
	report, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	require.Len(t, report.Claims, 1)
	assert.Equal(t, model.VerdictUnverifiable, report.Claims[0].Verdict)
	assert.True(t, report.OverallPass)
}

func TestVerify_Idempotent(t *testing.T) {
	p := &verdictProvider{answers: map[string]string{"2010년 설립": "CONTRADICTED"}}
	v, rc := newVerifier(t, p)

	draft := draftOf("네오플레이 스튜디오는 게임 개발사입니다. [REF:company:E000023944]\n2010년 설립된 회사입니다. [REF:history:E000023944/1]\n근거 없는 문장입니다.")

	first, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)
	second, err := v.Verify(context.Background(), draft, rc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

type downProvider struct{}

func (downProvider) Name() string                       { return "openai" }
func (downProvider) IsAvailable(_ context.Context) bool { return false }

func (downProvider) Generate(context.Context, llm.Request) (*llm.Response, error) {
	return nil, model.ErrProviderError
}

func TestVerify_ProviderFailureSurfaces(t *testing.T) {
	router, err := llm.NewRouter([]llm.Provider{downProvider{}}, nil, 0)
	require.NoError(t, err)
	v := New(store.NewMemoryStore(), router)

	rc := model.RetrievedContext{CompanyRef: "E000023944", Facts: []model.ReferenceFact{
		{ID: "company:E000023944", SourceTag: model.SourceCompany, Payload: "회사 소개"},
	}}
	draft := draftOf("회사 소개입니다. [REF:company:E000023944]")

	_, err = v.Verify(context.Background(), draft, rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAllProvidersExhausted)
}
