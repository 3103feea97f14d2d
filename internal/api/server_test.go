package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-importer/adapters"
	"storefront-importer/extractor"
	"storefront-importer/importer"
	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubExtractor serves one product for any valid URL
type stubExtractor struct {
	registry *adapters.Registry
}

func (s *stubExtractor) Detect(rawURL string) types.PlatformID {
	return s.registry.Detect(rawURL)
}

func (s *stubExtractor) Extract(ctx context.Context, rawURL string) (types.CanonicalProduct, error) {
	if !adapters.ValidProductURL(rawURL) {
		return types.CanonicalProduct{}, extractor.ErrInvalidURL
	}
	return types.CanonicalProduct{Platform: s.Detect(rawURL), SourceURL: rawURL, Title: "Widget"}, nil
}

func (s *stubExtractor) ExtractListing(ctx context.Context, rawURL string) ([]types.CanonicalProduct, error) {
	return nil, extractor.ErrListingUnsupported
}

type stubBackend struct {
	calls  int
	result types.ImportResult
}

func (b *stubBackend) ImportProduct(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions) types.ImportResult {
	b.calls++
	return b.result
}

func (b *stubBackend) ImportBulk(ctx context.Context, products []types.CanonicalProduct, options types.ImportOptions) types.ImportResult {
	b.calls++
	return b.result
}

func (b *stubBackend) ImportToDestination(ctx context.Context, product types.CanonicalProduct, options types.ImportOptions, destinationID string) types.ImportResult {
	if destinationID == "down" {
		return types.Failure(types.ErrNetwork, "store unreachable")
	}
	return types.ImportResult{OK: true, CreatedID: "p-" + destinationID}
}

type stubJobs struct{}

func (stubJobs) GetJobStatus(ctx context.Context, jobID string) (types.JobStatus, error) {
	if jobID == "weird" {
		return types.JobStatus{}, importer.ErrUnknownJobStatus
	}
	return types.JobStatus{JobID: jobID, State: types.JobCompleted}, nil
}

func setupTestRouter(backend *stubBackend) *gin.Engine {
	logger := testLogger()
	source := &stubExtractor{registry: adapters.DefaultRegistry(logger)}

	var client orchestrator.Importer
	if backend != nil {
		client = backend
	}
	orch := orchestrator.New(source, client, logger)

	return NewServer(source, orch, stubJobs{}, logger).Router()
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, APIResponse) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp APIResponse
	if w.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestDetect(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w, resp := do(t, router, http.MethodGet, "/detect?url=https://www.amazon.com/dp/B000000001", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "amazon", data["platform"])
	assert.Equal(t, true, data["supported"])

	w, _ = do(t, router, http.MethodGet, "/detect", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtract(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w, resp := do(t, router, http.MethodPost, "/extract", map[string]interface{}{"url": "https://www.etsy.com/listing/1/mug"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Widget", resp.Data.(map[string]interface{})["title"])

	w, _ = do(t, router, http.MethodPost, "/extract", map[string]interface{}{"url": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, http.MethodPost, "/extract", map[string]interface{}{"url": "https://example.com/", "listing": true})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = do(t, router, http.MethodPost, "/extract", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport(t *testing.T) {
	backend := &stubBackend{result: types.ImportResult{OK: true, JobID: "job-7"}}
	router := setupTestRouter(backend)

	w, resp := do(t, router, http.MethodPost, "/import", map[string]interface{}{"url": "https://www.etsy.com/listing/1/mug", "preset": "full"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "job-7", resp.Data.(map[string]interface{})["job_id"])
	assert.Equal(t, 1, backend.calls)
}

func TestImport_EmptyURL(t *testing.T) {
	backend := &stubBackend{}
	router := setupTestRouter(backend)

	w, resp := do(t, router, http.MethodPost, "/import", map[string]interface{}{"url": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, string(types.ErrInvalidURL), resp.Code)
	assert.Zero(t, backend.calls)
}

func TestImport_UnknownPreset(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w, _ := do(t, router, http.MethodPost, "/import", map[string]interface{}{"url": "https://www.etsy.com/listing/1/mug", "preset": "turbo"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport_ClientNotLoaded(t *testing.T) {
	router := setupTestRouter(nil)

	w, resp := do(t, router, http.MethodPost, "/import", map[string]interface{}{"url": "https://www.etsy.com/listing/1/mug"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, string(types.ErrClientNotLoaded), resp.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["can_fallback"])
}

func TestRetry(t *testing.T) {
	backend := &stubBackend{result: types.Failure(types.ErrInternal, "db down")}
	router := setupTestRouter(backend)

	w, _ := do(t, router, http.MethodPost, "/import/retry", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, router, http.MethodPost, "/import", map[string]interface{}{"url": "https://www.etsy.com/listing/1/mug"})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	backend.result = types.ImportResult{OK: true, JobID: "job-8"}
	w, resp := do(t, router, http.MethodPost, "/import/retry", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, backend.calls)
}

func TestDestinations(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w, resp := do(t, router, http.MethodPost, "/import/destinations", map[string]interface{}{
		"url":          "https://www.etsy.com/listing/1/mug",
		"destinations": []map[string]string{{"id": "a", "name": "A"}, {"id": "down", "name": "Down"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, string(types.FanOutPartialSuccess), data["outcome"])
	report := data["report"].(map[string]interface{})
	assert.Equal(t, float64(2), report["total"])
	assert.Equal(t, float64(1), report["failed"])

	w, _ = do(t, router, http.MethodPost, "/import/destinations", map[string]interface{}{"url": "https://www.etsy.com/listing/1/mug"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobStatus(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w, resp := do(t, router, http.MethodGet, "/jobs/job-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", resp.Data.(map[string]interface{})["status"])

	w, _ = do(t, router, http.MethodGet, "/jobs/weird", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDebugToggle(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	_, resp := do(t, router, http.MethodGet, "/debug", nil)
	assert.Equal(t, false, resp.Data.(map[string]interface{})["enabled"])

	w, _ := do(t, router, http.MethodPut, "/debug", map[string]interface{}{"enabled": true})
	assert.Equal(t, http.StatusOK, w.Code)

	_, resp = do(t, router, http.MethodGet, "/debug", nil)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["enabled"])

	w, _ = do(t, router, http.MethodPut, "/debug", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := setupTestRouter(&stubBackend{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/import", nil)
	req.Header.Set("Origin", "https://shop.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
