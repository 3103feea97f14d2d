package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-importer/internal/types"
)

func TestNewLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, logrus.WarnLevel, NewLogger("warn").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("nonsense").GetLevel())

	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, logrus.DebugLevel, NewLogger("warn").GetLevel())
}

func TestNew_WiresPipeline(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"job_id":"job-1"}`))
	}))
	defer backend.Close()

	cfg := types.DefaultConfig()
	cfg.Backend.BaseURL = backend.URL
	cfg.State.Dir = t.TempDir()

	a, err := New(cfg, NewLogger("error"), nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Orchestrator.Debug().Set(true))

	reloaded, err := New(cfg, NewLogger("error"), nil)
	require.NoError(t, err)
	defer reloaded.Close()
	assert.True(t, reloaded.Orchestrator.Debug().Enabled())

	result := a.Orchestrator.Import(context.Background(), "not a url", types.QuickImport)
	assert.Equal(t, types.ErrInvalidURL, result.Code)
	assert.Equal(t, types.PlatformEtsy, a.Client.DetectPlatform("https://www.etsy.com/listing/1/mug"))
}
