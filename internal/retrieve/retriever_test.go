package retrieve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge/internal/model"
	"github.com/jobforge/jobforge/internal/store"
)

func seedCompany(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	st.Add("E000023944",
		model.ReferenceFact{ID: "welfare:E000023944/1", SourceTag: model.SourceWelfare, Payload: "유연근무제 운영"},
		model.ReferenceFact{ID: "welfare:E000023944/2", SourceTag: model.SourceWelfare, Payload: "자기계발비 지원"},
		model.ReferenceFact{ID: "history:E000023944/1", SourceTag: model.SourceHistory, Payload: "2018년 법인 설립"},
		model.ReferenceFact{ID: "history:E000023944/2", SourceTag: model.SourceHistory, Payload: "2019년 첫 모바일 게임 출시"},
		model.ReferenceFact{ID: "history:E000023944/3", SourceTag: model.SourceHistory, Payload: "2021년 글로벌 퍼블리싱 계약"},
		model.ReferenceFact{ID: "history:E000023944/4", SourceTag: model.SourceHistory, Payload: "2022년 사옥 이전"},
		model.ReferenceFact{ID: "history:E000023944/5", SourceTag: model.SourceHistory, Payload: "2024년 누적 다운로드 1천만"},
	)
	return st
}

func TestRetriever_ReturnsExactCompanyFacts(t *testing.T) {
	// Two welfare and five history facts in store: the context is exactly
	// those seven facts, nothing more.
	r := New(seedCompany(t), 12, 0)
	intent := model.IntentRecord{RequestedRole: "Unity 게임 개발자", CompanyRef: "E000023944"}

	rc, err := r.Retrieve(context.Background(), intent)
	require.NoError(t, err)
	require.Len(t, rc.Facts, 7)
	assert.Equal(t, "E000023944", rc.CompanyRef)
	for _, f := range seedFactIDs() {
		assert.True(t, rc.Contains(f), "missing %s", f)
	}
}

func seedFactIDs() []string {
	return []string{
		"welfare:E000023944/1", "welfare:E000023944/2",
		"history:E000023944/1", "history:E000023944/2", "history:E000023944/3",
		"history:E000023944/4", "history:E000023944/5",
	}
}

func TestRetriever_Deterministic(t *testing.T) {
	r := New(seedCompany(t), 12, 0)
	intent := model.IntentRecord{RequestedRole: "게임 개발자", CompanyRef: "E000023944", Notes: "모바일 게임"}

	first, err := r.Retrieve(context.Background(), intent)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := r.Retrieve(context.Background(), intent)
		require.NoError(t, err)
		assert.Equal(t, first.IDs(), again.IDs())
	}
	// keyword-matching facts rank ahead of unrelated ones
	assert.Equal(t, "history:E000023944/2", first.IDs()[0], "게임-matching history fact should lead")
}

func TestRetriever_InsufficientContext(t *testing.T) {
	r := New(store.NewMemoryStore(), 12, 0)
	_, err := r.Retrieve(context.Background(), model.IntentRecord{RequestedRole: "개발자", CompanyRef: "E404"})
	assert.ErrorIs(t, err, model.ErrInsufficientContext)
}

func TestRetriever_CapsFactCount(t *testing.T) {
	r := New(seedCompany(t), 3, 0)
	rc, err := r.Retrieve(context.Background(), model.IntentRecord{RequestedRole: "개발자", CompanyRef: "E000023944"})
	require.NoError(t, err)
	assert.Len(t, rc.Facts, 3)
}

func TestRetriever_CachedSnapshot(t *testing.T) {
	st := seedCompany(t)
	r := New(st, 12, time.Minute)
	intent := model.IntentRecord{RequestedRole: "개발자", CompanyRef: "E000023944"}

	first, err := r.Retrieve(context.Background(), intent)
	require.NoError(t, err)

	// facts added after the snapshot are not visible until the TTL expires
	st.Add("E000023944", model.ReferenceFact{ID: "welfare:E000023944/3", SourceTag: model.SourceWelfare, Payload: "야근 없음"})
	again, err := r.Retrieve(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, first.IDs(), again.IDs())
}
