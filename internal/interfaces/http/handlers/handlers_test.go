package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/internal/application/fragment"
	"github.com/turtacn/autofragment/internal/chem/smiles"
	domain "github.com/turtacn/autofragment/internal/domain/fragment"
	pkgerrors "github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func newFragmentRouter(svc fragment.Service) *gin.Engine {
	h := NewFragmentHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(RequestIDKey, "req-1") })
	r.POST("/decompose", h.Decompose)
	r.POST("/count", h.Count)
	return r
}

func toolkitService() fragment.Service {
	return fragment.NewService(domain.NewDecomposer(smiles.NewToolkit()), nil)
}

// ---------------------------------------------------------------------------
// FragmentHandler
// ---------------------------------------------------------------------------

func TestFragmentHandler_Decompose(t *testing.T) {
	r := newFragmentRouter(toolkitService())

	w := doJSON(r, http.MethodPost, "/decompose", molecule.DecomposeRequest{
		RunID:     "run-1",
		Molecules: map[string]string{"water": "O", "bad": "not a valid structure"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp molecule.DecomposeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Result.RunID)
	assert.Equal(t, molecule.FragmentCountMap{"O": 1}, resp.Result.Fragments["water"])
	assert.Equal(t, []string{"bad"}, resp.Result.FailedIDs)
	assert.Equal(t, 1, resp.Stats.Failed)
}

func TestFragmentHandler_DecomposeNegativeRadius(t *testing.T) {
	r := newFragmentRouter(toolkitService())

	w := doJSON(r, http.MethodPost, "/decompose", `{"radius":-1,"molecules":{"a":"C"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "FRAG_004", resp.Code)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestFragmentHandler_BadBody(t *testing.T) {
	r := newFragmentRouter(toolkitService())

	w := doJSON(r, http.MethodPost, "/decompose", `{"molecules":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "COMMON_002", decodeError(t, w).Code)
}

func TestFragmentHandler_Count(t *testing.T) {
	r := newFragmentRouter(toolkitService())

	w := doJSON(r, http.MethodPost, "/count", molecule.CountRequest{SMILES: "O"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp molecule.CountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Radius)
	assert.Equal(t, molecule.FragmentCountMap{"O": 1}, resp.Fragments)
}

func TestFragmentHandler_CountUnparsable(t *testing.T) {
	r := newFragmentRouter(toolkitService())

	w := doJSON(r, http.MethodPost, "/count", molecule.CountRequest{SMILES: "not a valid structure"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "FRAG_001", decodeError(t, w).Code)
}

type erroringService struct{ err error }

func (s erroringService) Decompose(context.Context, *molecule.DecomposeRequest) (*molecule.DecomposeResponse, error) {
	return nil, s.err
}

func (s erroringService) Count(context.Context, *molecule.CountRequest) (*molecule.CountResponse, error) {
	return nil, s.err
}

func TestFragmentHandler_UncodedErrorIsMasked(t *testing.T) {
	r := newFragmentRouter(erroringService{err: errors.New("secret connection string leaked")})

	w := doJSON(r, http.MethodPost, "/decompose", `{"molecules":{}}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "COMMON_001", resp.Code)
	assert.NotContains(t, w.Body.String(), "secret")
}

// ---------------------------------------------------------------------------
// ResultHandler
// ---------------------------------------------------------------------------

type memResults struct {
	runs map[string]*molecule.DecompositionResult
	err  error
}

func (m *memResults) Get(_ context.Context, runID string) (*molecule.DecompositionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.runs[runID]
	if !ok {
		return nil, pkgerrors.NotFound("object not found").WithDetail(runID)
	}
	return r, nil
}

func (m *memResults) List(context.Context) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	ids := make([]string, 0, len(m.runs))
	for id := range m.runs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memResults) PresignedURL(_ context.Context, runID string, _ time.Duration) (string, error) {
	return "https://objects.example/results/" + runID + ".json.gz?sig=x", nil
}

func newResultRouter(store ResultReader) *gin.Engine {
	h := NewResultHandler(store)
	r := gin.New()
	r.GET("/results", h.List)
	r.GET("/results/:runID", h.Get)
	r.GET("/results/:runID/matrix", h.Matrix)
	r.GET("/results/:runID/download", h.Download)
	return r
}

func sampleResults() *memResults {
	res := molecule.NewDecompositionResult(1)
	res.RunID = "run-1"
	res.Fragments["ethanol"] = molecule.FragmentCountMap{"[CH3]": 1, "[OH]": 1}
	res.Fragments["methane"] = molecule.FragmentCountMap{"[CH4]": 1}
	return &memResults{runs: map[string]*molecule.DecompositionResult{"run-1": res}}
}

func TestResultHandler_List(t *testing.T) {
	r := newResultRouter(sampleResults())

	w := doJSON(r, http.MethodGet, "/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"runs":["run-1"]}`, w.Body.String())
}

func TestResultHandler_Get(t *testing.T) {
	r := newResultRouter(sampleResults())

	w := doJSON(r, http.MethodGet, "/results/run-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got molecule.DecompositionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Len(t, got.Fragments, 2)

	w = doJSON(r, http.MethodGet, "/results/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "COMMON_005", decodeError(t, w).Code)
}

func TestResultHandler_Matrix(t *testing.T) {
	r := newResultRouter(sampleResults())

	w := doJSON(r, http.MethodGet, "/results/run-1/matrix", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "id,[CH3],[CH4],[OH]\nethanol,1,0,1\nmethane,0,1,0\n", w.Body.String())
}

func TestResultHandler_Download(t *testing.T) {
	r := newResultRouter(sampleResults())

	w := doJSON(r, http.MethodGet, "/results/run-1/download", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://objects.example/results/run-1.json.gz?sig=x", w.Header().Get("Location"))
}

func TestResultHandler_StorageError(t *testing.T) {
	r := newResultRouter(&memResults{err: pkgerrors.New(pkgerrors.ErrCodeStorageError, "bucket unreachable")})

	w := doJSON(r, http.MethodGet, "/results", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "COMMON_018", decodeError(t, w).Code)
}

// ---------------------------------------------------------------------------
// HealthHandler
// ---------------------------------------------------------------------------

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(_ context.Context) error { return s.err }

func newHealthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestHealthHandler_Liveness(t *testing.T) {
	r := newHealthRouter(NewHealthHandler("1.2.3", stubChecker{name: "redis", err: errors.New("down")}))

	w := doJSON(r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("no checkers", func(t *testing.T) {
		w := doJSON(newHealthRouter(NewHealthHandler("v")), http.MethodGet, "/readyz", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready"}`, w.Body.String())
	})

	t.Run("all healthy", func(t *testing.T) {
		h := NewHealthHandler("v", stubChecker{name: "redis"}, stubChecker{name: "minio"})
		w := doJSON(newHealthRouter(h), http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "healthy", resp.Components["redis"].Status)
		assert.Equal(t, "healthy", resp.Components["minio"].Status)
	})

	t.Run("one unhealthy", func(t *testing.T) {
		h := NewHealthHandler("v", stubChecker{name: "redis"}, stubChecker{name: "minio", err: errors.New("connection refused")})
		w := doJSON(newHealthRouter(h), http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "unhealthy", resp.Components["minio"].Status)
		assert.Equal(t, "connection refused", resp.Components["minio"].Error)
	})
}

//Personal.AI order the ending
