package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a scripted Client for router tests.
type fakeClient struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeClient) Complete(_ context.Context, _ Request) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeClient) Name() string { return f.name }

func TestRouter_PrimaryServes(t *testing.T) {
	primary := &fakeClient{name: "kimi", text: "from kimi"}
	fallback := &fakeClient{name: "grok", text: "from grok"}
	r := NewRouter(nil, primary, fallback)

	text, err := r.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from kimi", text)
	assert.Equal(t, 0, fallback.calls, "fallback must not be called when primary succeeds")
}

func TestRouter_FallsBackOnTransientFailure(t *testing.T) {
	primary := &fakeClient{name: "kimi", err: &APIError{Provider: "kimi", Status: http.StatusServiceUnavailable}}
	fallback := &fakeClient{name: "grok", text: "from grok"}
	r := NewRouter(nil, primary, fallback)

	text, err := r.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from grok", text)
}

func TestRouter_FallsBackOnOpenCircuit(t *testing.T) {
	primary := &fakeClient{name: "kimi", err: ErrCircuitOpen}
	fallback := &fakeClient{name: "grok", text: "from grok"}
	r := NewRouter(nil, primary, fallback)

	text, err := r.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "from grok", text)
}

func TestRouter_PermanentErrorShortCircuits(t *testing.T) {
	primary := &fakeClient{name: "kimi", err: &APIError{Provider: "kimi", Status: http.StatusBadRequest}}
	fallback := &fakeClient{name: "grok", text: "from grok"}
	r := NewRouter(nil, primary, fallback)

	_, err := r.Complete(context.Background(), Request{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 0, fallback.calls, "a bad request fails everywhere, skip the fallback")
}

func TestRouter_AllProvidersFailed(t *testing.T) {
	primary := &fakeClient{name: "kimi", err: &APIError{Provider: "kimi", Status: http.StatusBadGateway}}
	fallback := &fakeClient{name: "grok", err: errors.New("connection refused")}
	r := NewRouter(nil, primary, fallback)

	_, err := r.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestRouter_NoProviders(t *testing.T) {
	r := NewRouter(nil)
	_, err := r.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestRouter_Providers(t *testing.T) {
	r := NewRouter(nil, &fakeClient{name: "kimi"}, &fakeClient{name: "grok"})
	assert.Equal(t, []string{"kimi", "grok"}, r.Providers())
}
