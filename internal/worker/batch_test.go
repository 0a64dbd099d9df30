package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge/internal/model"
)

type stubEngine struct {
	calls    atomic.Int64
	failWith error
	delay    time.Duration
}

func (s *stubEngine) Start(ctx context.Context, rawText string, _ map[string]string) (*model.WorkflowState, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.failWith != nil {
		return nil, s.failWith
	}
	return &model.WorkflowState{
		ID:      "wf-" + rawText,
		Stage:   model.StageAwaitingHuman,
		RawText: rawText,
	}, nil
}

func writeBatchFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "requests.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestProcessFile_RunsEveryRequest(t *testing.T) {
	eng := &stubEngine{}
	path := writeBatchFile(t, "E000023944 백엔드 개발자 공고\n\n# comment line\nE000023944 기획자 공고\n")

	results, err := NewBatchProcessor(eng, 4).ProcessFile(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, int64(2), eng.calls.Load())
	// File order is preserved regardless of completion order.
	assert.Equal(t, 1, results[0].Line)
	assert.Equal(t, 4, results[1].Line)
	assert.Equal(t, "E000023944 백엔드 개발자 공고", results[0].Request)
	require.NotNil(t, results[0].State)
	assert.NoError(t, results[0].GetError())
}

func TestProcessFile_EmptyFileFails(t *testing.T) {
	path := writeBatchFile(t, "\n# only comments\n")
	_, err := NewBatchProcessor(&stubEngine{}, 2).ProcessFile(context.Background(), path)
	assert.Error(t, err)
}

func TestProcess_EngineErrorsAreCollectedNotFatal(t *testing.T) {
	eng := &stubEngine{failWith: errors.New("provider down")}
	results := NewBatchProcessor(eng, 2).Process(context.Background(), []string{"a", "b"}, nil)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Error(t, r.GetError())
		assert.Nil(t, r.State)
	}
}

func TestPool_ShutdownStopsWork(t *testing.T) {
	eng := &stubEngine{delay: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(eng, 1).Process(ctx, []string{"a", "b", "c", "d"}, nil)

	// A cancelled context never completes the full batch: jobs are either
	// skipped outright or fail with the context error.
	completed := 0
	for _, r := range results {
		if r.GetError() == nil {
			completed++
		}
	}
	assert.Less(t, completed, 4)
}
