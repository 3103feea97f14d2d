package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-importer/adapters"
	"storefront-importer/internal/types"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testBackend(baseURL string) *types.BackendConfig {
	config := types.DefaultConfig().Backend
	config.BaseURL = baseURL
	config.APIKey = "secret"
	config.Timeout = 2 * time.Second
	return &config
}

func widget() types.CanonicalProduct {
	price := types.Price{Amount: 19.99, Currency: "USD"}
	return types.CanonicalProduct{
		Platform:  types.PlatformEtsy,
		SourceURL: "https://www.etsy.com/listing/1/widget",
		Title:     "Widget",
		Price:     &price,
	}
}

func TestImportProduct_Success(t *testing.T) {
	var got importRequest
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/import", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"job_id":"job-42"}`))
	}))
	defer server.Close()

	client := NewClient(testBackend(server.URL+"/api/"), nil, testLogger())

	result := client.ImportProduct(context.Background(), widget(), types.FullImport)

	assert.Equal(t, types.ImportResult{OK: true, JobID: "job-42"}, result)
	assert.Equal(t, actionSingle, got.Action)
	require.NotNil(t, got.Product)
	assert.Equal(t, "Widget", got.Product.Title)
	assert.Equal(t, types.FullImport, got.Options)
	assert.Empty(t, got.DestinationID)
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.NotEmpty(t, headers.Get("X-Request-ID"))
}

func TestImportProduct_Classification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   types.ImportResult
	}{
		{
			name:   "known code",
			status: http.StatusBadRequest,
			body:   `{"success":false,"error":"bad url","error_code":"INVALID_URL"}`,
			want:   types.Failure(types.ErrInvalidURL, "bad url"),
		},
		{
			name:   "internal",
			status: http.StatusOK,
			body:   `{"success":false,"error":"db down","error_code":"INTERNAL"}`,
			want:   types.Failure(types.ErrInternal, "db down"),
		},
		{
			name:   "unknown code",
			status: http.StatusOK,
			body:   `{"success":false,"error":"quota","error_code":"QUOTA_EXCEEDED"}`,
			want:   types.Failure(types.ErrUnexpected, "quota"),
		},
		{
			name:   "server error without body",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			want:   types.Failure(types.ErrInternal, "backend returned 502"),
		},
		{
			name:   "server error without code",
			status: http.StatusInternalServerError,
			body:   `{"success":false}`,
			want:   types.Failure(types.ErrInternal, "Internal Server Error"),
		},
		{
			name:   "missing success field",
			status: http.StatusOK,
			body:   `{"job_id":"x"}`,
			want:   types.Failure(types.ErrUnexpected, "unreadable backend response (status 200)"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			config := testBackend(server.URL)
			config.Breaker.Enabled = false
			client := NewClient(config, nil, testLogger())

			assert.Equal(t, tt.want, client.ImportProduct(context.Background(), widget(), types.QuickImport))
		})
	}
}

func TestImportProduct_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(testBackend(server.URL), nil, testLogger())

	result := client.ImportProduct(context.Background(), widget(), types.QuickImport)

	assert.False(t, result.OK)
	assert.Equal(t, types.ErrNetwork, result.Code)
}

func TestImportProduct_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(testBackend(server.URL), nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := client.ImportProduct(ctx, widget(), types.QuickImport)

	assert.Equal(t, types.ErrNetwork, result.Code)
}

func TestImportProduct_BreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	config := testBackend(server.URL)
	config.Breaker = types.BreakerConfig{Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 2, FailureRatio: 0.5}
	client := NewClient(config, nil, testLogger())

	for i := 0; i < 2; i++ {
		result := client.ImportProduct(context.Background(), widget(), types.QuickImport)
		assert.Equal(t, types.ErrInternal, result.Code)
	}

	result := client.ImportProduct(context.Background(), widget(), types.QuickImport)

	assert.Equal(t, types.ErrNetwork, result.Code)
	assert.Contains(t, result.Message, "backend unavailable")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestImportBulk(t *testing.T) {
	var got importRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"job_id":"bulk-1"}`))
	}))
	defer server.Close()

	client := NewClient(testBackend(server.URL), nil, testLogger())

	result := client.ImportBulk(context.Background(), []types.CanonicalProduct{widget(), widget()}, types.ImportWithReviews)

	assert.True(t, result.OK)
	assert.Equal(t, actionBulk, got.Action)
	assert.Nil(t, got.Product)
	assert.Len(t, got.Products, 2)
	assert.Equal(t, types.ImportWithReviews, got.Options)
}

func TestImportBulk_Empty(t *testing.T) {
	client := NewClient(testBackend("http://127.0.0.1:1"), nil, testLogger())

	result := client.ImportBulk(context.Background(), nil, types.QuickImport)

	assert.False(t, result.OK)
	assert.Equal(t, types.ErrInvalidURL, result.Code)
}

func TestImportToDestination(t *testing.T) {
	var got importRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"created_id":"gid://shop/Product/9"}`))
	}))
	defer server.Close()

	client := NewClient(testBackend(server.URL), nil, testLogger())

	result := client.ImportToDestination(context.Background(), widget(), types.QuickImport, "store-2")

	assert.True(t, result.OK)
	assert.Equal(t, "gid://shop/Product/9", result.CreatedID)
	assert.Equal(t, "store-2", got.DestinationID)
}

func TestDetectPlatform(t *testing.T) {
	client := NewClient(testBackend("http://localhost"), adapters.DefaultRegistry(testLogger()), testLogger())

	assert.Equal(t, types.PlatformWalmart, client.DetectPlatform("https://www.walmart.com/ip/1"))
	assert.Equal(t, types.PlatformUnknown, client.DetectPlatform(""))

	bare := NewClient(testBackend("http://localhost"), nil, testLogger())
	assert.Equal(t, types.PlatformUnknown, bare.DetectPlatform("https://www.walmart.com/ip/1"))
}

func TestGetJobStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/jobs/job-1":
			w.Write([]byte(`{"job_id":"job-1","status":"running","progress":{"current":2,"total":5,"stage":"enrich"}}`))
		case "/jobs/job-2":
			w.Write([]byte(`{"status":"exploded"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(testBackend(server.URL), nil, testLogger())

	job, err := client.GetJobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, types.JobRunning, job.State)
	assert.False(t, job.State.Terminal())
	require.NotNil(t, job.Progress)
	assert.Equal(t, types.JobProgress{Current: 2, Total: 5, Stage: "enrich"}, *job.Progress)

	_, err = client.GetJobStatus(context.Background(), "job-2")
	assert.True(t, errors.Is(err, ErrUnknownJobStatus))

	_, err = client.GetJobStatus(context.Background(), "missing")
	assert.Error(t, err)

	_, err = client.GetJobStatus(context.Background(), "  ")
	assert.Error(t, err)
}
