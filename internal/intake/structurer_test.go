package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge/internal/llm"
	"github.com/jobforge/jobforge/internal/model"
)

type scriptedProvider struct {
	text string
	err  error
}

func (p *scriptedProvider) Name() string                         { return "scripted" }
func (p *scriptedProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *scriptedProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Text: p.text, Model: "scripted"}, nil
}

func newStructurer(t *testing.T, p llm.Provider) *Structurer {
	t.Helper()
	r, err := llm.NewRouter([]llm.Provider{p}, nil, 0)
	require.NoError(t, err)
	return NewStructurer(r)
}

func TestStructurer_ExtractsIntent(t *testing.T) {
	s := newStructurer(t, &scriptedProvider{text: `{
		"requested_role": "Unity 게임 개발자",
		"company_ref": "E000023944",
		"constraints": {"experience_level": "신입", "salary": ""},
		"free_text_notes": "게임 클라이언트 개발 담당"
	}`})

	intent, err := s.Structure(context.Background(), "Unity 게임 개발자 모집, E000023944, 신입 가능", nil)
	require.NoError(t, err)
	assert.Equal(t, "Unity 게임 개발자", intent.RequestedRole)
	assert.Equal(t, "E000023944", intent.CompanyRef)
	assert.Equal(t, "신입", intent.Constraints[model.ConstraintExperienceLevel])
	// empty extracted values are dropped
	_, has := intent.Constraints[model.ConstraintSalary]
	assert.False(t, has)
}

func TestStructurer_OverridesWin(t *testing.T) {
	s := newStructurer(t, &scriptedProvider{text: `{
		"requested_role": "백엔드 개발자",
		"company_ref": "E000023944",
		"constraints": {"location": "서울"}
	}`})

	intent, err := s.Structure(context.Background(), "백엔드 개발자 모집",
		map[string]string{model.ConstraintLocation: "부산", model.ConstraintDeadline: "2026-09-30"})
	require.NoError(t, err)
	assert.Equal(t, "부산", intent.Constraints[model.ConstraintLocation])
	assert.Equal(t, "2026-09-30", intent.Constraints[model.ConstraintDeadline])
}

func TestStructurer_MalformedIntent(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing company ref", `{"requested_role": "개발자", "company_ref": ""}`},
		{"missing role", `{"requested_role": "", "company_ref": "E000023944"}`},
		{"non-JSON reply", `I could not understand the request.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStructurer(t, &scriptedProvider{text: tt.text})
			_, err := s.Structure(context.Background(), "뭔가 모호한 요청", nil)
			assert.ErrorIs(t, err, model.ErrMalformedIntent)
		})
	}
}

func TestStructurer_EmptyRequest(t *testing.T) {
	s := newStructurer(t, &scriptedProvider{text: `{}`})
	_, err := s.Structure(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, model.ErrMalformedIntent)
}

func TestStructurer_FencedJSON(t *testing.T) {
	s := newStructurer(t, &scriptedProvider{text: "```json\n{\"requested_role\": \"QA 엔지니어\", \"company_ref\": \"E000000001\"}\n```"})
	intent, err := s.Structure(context.Background(), "QA 엔지니어 모집 E000000001", nil)
	require.NoError(t, err)
	assert.Equal(t, "QA 엔지니어", intent.RequestedRole)
}
