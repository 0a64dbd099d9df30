package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge/internal/model"
)

// fakeProvider fails a fixed number of calls before succeeding.
type fakeProvider struct {
	name      string
	failUntil int
	calls     int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	p.calls++
	if p.calls <= p.failUntil {
		return nil, fmt.Errorf("%s: %w: simulated timeout", p.name, model.ErrProviderTimeout)
	}
	return &Response{Text: "ok from " + p.name, Model: "fake"}, nil
}

func TestRouter_PrimarySuccess(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	secondary := &fakeProvider{name: "secondary"}
	r, err := NewRouter([]Provider{primary, secondary}, nil, 1)
	require.NoError(t, err)

	resp, used, err := r.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "primary", used)
	assert.Equal(t, "ok from primary", resp.Text)
	assert.Equal(t, 0, secondary.calls)
}

func TestRouter_FailoverOnSecondConsecutiveFailure(t *testing.T) {
	// Primary times out on the initial call and the single retry; the router
	// must fail over to the secondary without surfacing an error.
	primary := &fakeProvider{name: "primary", failUntil: 2}
	secondary := &fakeProvider{name: "secondary"}
	r, err := NewRouter([]Provider{primary, secondary}, nil, 1)
	require.NoError(t, err)

	resp, used, err := r.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", used)
	assert.Equal(t, "ok from secondary", resp.Text)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, int64(2), r.ConsecutiveFailures(0))
}

func TestRouter_RetrySameProviderFirst(t *testing.T) {
	// One failure followed by a success on the same provider: no failover.
	primary := &fakeProvider{name: "primary", failUntil: 1}
	secondary := &fakeProvider{name: "secondary"}
	r, err := NewRouter([]Provider{primary, secondary}, nil, 1)
	require.NoError(t, err)

	_, used, err := r.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "primary", used)
	assert.Equal(t, 0, secondary.calls)
	// Success resets the streak.
	assert.Equal(t, int64(0), r.ConsecutiveFailures(0))
}

func TestRouter_AllProvidersExhausted(t *testing.T) {
	primary := &fakeProvider{name: "primary", failUntil: 10}
	secondary := &fakeProvider{name: "secondary", failUntil: 10}
	r, err := NewRouter([]Provider{primary, secondary}, nil, 1)
	require.NoError(t, err)

	_, _, err = r.Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAllProvidersExhausted)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 2, secondary.calls)
}

func TestRouter_CancelledContext(t *testing.T) {
	primary := &fakeProvider{name: "primary"}
	r, err := NewRouter([]Provider{primary}, nil, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = r.Generate(ctx, Request{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, primary.calls)
}

func TestRouter_NeedsProviders(t *testing.T) {
	_, err := NewRouter(nil, nil, 1)
	assert.Error(t, err)
}
