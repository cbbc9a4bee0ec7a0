package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/internal/application/fragment"
	"github.com/turtacn/autofragment/internal/chem/smiles"
	domain "github.com/turtacn/autofragment/internal/domain/fragment"
	httpserver "github.com/turtacn/autofragment/internal/interfaces/http"
	"github.com/turtacn/autofragment/internal/interfaces/http/handlers"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

type memResults struct {
	runs map[string]*molecule.DecompositionResult
}

func (m *memResults) Get(_ context.Context, runID string) (*molecule.DecompositionResult, error) {
	r, ok := m.runs[runID]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "run %s not found", runID)
	}
	return r, nil
}

func (m *memResults) List(context.Context) ([]string, error) {
	return []string{"run-1"}, nil
}

func (m *memResults) PresignedURL(_ context.Context, runID string, _ time.Duration) (string, error) {
	return "http://objects.local/results/" + runID + ".json.zst", nil
}

func newAPIClient(t *testing.T, opts ...Option) *Client {
	svc := fragment.NewService(domain.NewDecomposer(smiles.NewToolkit()), nil)
	store := &memResults{runs: map[string]*molecule.DecompositionResult{
		"run-1": {
			RunID:     "run-1",
			Radius:    1,
			Fragments: map[string]molecule.FragmentCountMap{"water": {"[OH2]": 1}},
			FailedIDs: []string{},
		},
	}}
	router := httpserver.NewRouter(httpserver.RouterConfig{
		FragmentHandler: handlers.NewFragmentHandler(svc),
		ResultHandler:   handlers.NewResultHandler(store),
		Mode:            "test",
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/", append([]Option{WithRetryMax(0)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("http://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", c.baseURL)
	assert.Equal(t, 3, c.retryMax)
	assert.Contains(t, c.userAgent, "autofrag-go-client/")
	assert.Same(t, c.Fragments(), c.Fragments())
	assert.Same(t, c.Results(), c.Results())
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://host", "no-scheme"} {
		_, err := NewClient(u)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidParam), u)
	}
}

func TestOptions(t *testing.T) {
	hc := &http.Client{}
	c, err := NewClient("https://h",
		WithHTTPClient(hc),
		WithAPIKey("k"),
		WithRetryMax(5),
		WithRetryWait(time.Second, 2*time.Second),
		WithUserAgent("ua"),
	)
	require.NoError(t, err)
	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, "k", c.apiKey)
	assert.Equal(t, 5, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "ua", c.userAgent)

	c, err = NewClient("https://h", WithRetryMax(-1), WithRetryWait(time.Second, time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax)
}

func TestFragments_Decompose(t *testing.T) {
	c := newAPIClient(t)

	resp, err := c.Fragments().Decompose(context.Background(), &molecule.DecomposeRequest{
		RunID:     "r1",
		Molecules: map[string]string{"water": "O", "bad": "not a valid structure"},
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.Result.RunID)
	assert.Equal(t, molecule.FragmentCountMap{"O": 1}, resp.Result.Fragments["water"])
	assert.Equal(t, []string{"bad"}, resp.Result.FailedIDs)
	assert.Equal(t, 2, resp.Stats.Molecules)
}

func TestFragments_CountError(t *testing.T) {
	c := newAPIClient(t)

	_, err := c.Fragments().Count(context.Background(), &molecule.CountRequest{SMILES: "not a valid structure"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, string(errors.ErrCodeStructureParseFailed), apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.True(t, apiErr.IsClientError())
}

func TestResults(t *testing.T) {
	c := newAPIClient(t)
	ctx := context.Background()

	runs, err := c.Results().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, runs)

	res, err := c.Results().Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Radius)

	csv, err := c.Results().Matrix(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "id,[OH2]\nwater,1\n", string(csv))

	loc, err := c.Results().DownloadURL(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "http://objects.local/results/run-1.json.zst", loc)

	_, err = c.Results().Get(ctx, "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())

	_, err = c.Results().Get(ctx, "")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"runs":["a"]}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithAPIKey("secret"), WithRetryWait(time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	runs, err := c.Results().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, runs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"COMMON_001","message":"internal server error","request_id":"srv-1"}`))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithRetryMax(1), WithRetryWait(time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Results().List(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
	assert.Equal(t, "COMMON_001", apiErr.Code)
	assert.Equal(t, "srv-1", apiErr.RequestID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("plain failure"))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithRetryWait(time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	_, err = c.Results().List(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "plain failure", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCalculateBackoff(t *testing.T) {
	c, err := NewClient("http://h", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	require.NoError(t, err)

	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 125*time.Millisecond)

	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 375*time.Millisecond)
}

//Personal.AI order the ending
