package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jobforge/jobforge/internal/model"
)

// Starter runs one posting workflow to its first pause or terminal stage.
type Starter interface {
	Start(ctx context.Context, rawText string, overrides map[string]string) (*model.WorkflowState, error)
}

// PostingJob generates one posting from a hiring request
type PostingJob struct {
	Line    int
	Request string
	Engine  Starter
}

// PostingResult is the outcome of one batch entry
type PostingResult struct {
	Line    int
	Request string
	State   *model.WorkflowState
	Err     error
}

// GetError returns the job error, if any
func (r *PostingResult) GetError() error {
	return r.Err
}

// Execute runs the workflow for this request
func (j *PostingJob) Execute(ctx context.Context) Result {
	st, err := j.Engine.Start(ctx, j.Request, nil)
	return &PostingResult{Line: j.Line, Request: j.Request, State: st, Err: err}
}

// BatchProcessor fans hiring requests out over a worker pool
type BatchProcessor struct {
	engine  Starter
	workers int
}

// NewBatchProcessor creates a batch processor over the engine
func NewBatchProcessor(engine Starter, workers int) *BatchProcessor {
	return &BatchProcessor{engine: engine, workers: workers}
}

// ProcessFile reads one hiring request per line and runs them concurrently,
// returning results in file order. Blank lines and '#' comments are skipped.
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*PostingResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var (
		requests []string
		lines    []int
	)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		requests = append(requests, text)
		lines = append(lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("no requests in %s", path)
	}

	return b.Process(ctx, requests, lines), nil
}

// Process runs the requests through the pool.
func (b *BatchProcessor) Process(ctx context.Context, requests []string, lines []int) []*PostingResult {
	pool := NewPool(b.workers)
	pool.Start()

	// Cancellation drains the pool instead of leaking workers.
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			pool.Shutdown()
		case <-stop:
		}
	}()

	for i, req := range requests {
		line := i + 1
		if i < len(lines) {
			line = lines[i]
		}
		pool.Submit(&PostingJob{Line: line, Request: req, Engine: b.engine})
	}

	raw := pool.Wait()
	close(stop)

	results := make([]*PostingResult, 0, len(raw))
	for _, r := range raw {
		if pr, ok := r.(*PostingResult); ok {
			results = append(results, pr)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Line < results[j].Line })
	return results
}
