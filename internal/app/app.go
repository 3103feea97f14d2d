package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"storefront-importer/extractor"
	"storefront-importer/importer"
	"storefront-importer/internal/activity"
	"storefront-importer/internal/state"
	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

// App is the wired extraction and import pipeline shared by the binaries
type App struct {
	Config       *types.Config
	Logger       *logrus.Logger
	Extractor    *extractor.Extractor
	Client       *importer.Client
	Orchestrator *orchestrator.Orchestrator

	// History reads back pushed activity records; nil without Redis
	History *activity.RedisLogger

	closeActivity func() error
}

// NewLogger creates the logger used by both binaries. LOG_LEVEL wins over
// the configured level.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		level = levelStr
	}
	if parsed, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(parsed)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

// New wires the pipeline from cfg. handler may be nil.
func New(cfg *types.Config, logger *logrus.Logger, handler orchestrator.ResponseHandler) (*App, error) {
	debug := orchestrator.NewDebugConfig(nil)
	store, err := state.NewStore(cfg.State.Dir)
	if err != nil {
		logger.WithError(err).Warn("State store unavailable; debug mode will not persist")
	} else {
		debug = orchestrator.NewDebugConfig(store)
		logger.Debugf("Loaded state from %s", store.Path())
	}

	sink, closeActivity, err := activity.FromConfig(&cfg.Activity, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up activity log: %w", err)
	}

	ext := extractor.NewExtractor(cfg, logger)
	client := importer.NewClient(&cfg.Backend, ext.Registry(), logger)

	opts := []orchestrator.Option{
		orchestrator.WithActivityLogger(sink),
		orchestrator.WithDebugConfig(debug),
	}
	if handler != nil {
		opts = append(opts, orchestrator.WithResponseHandler(handler))
	}

	history, _ := activity.History(sink)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Extractor:     ext,
		Client:        client,
		Orchestrator:  orchestrator.New(ext, client, logger, opts...),
		History:       history,
		closeActivity: closeActivity,
	}, nil
}

// Close releases the browser and the activity sink
func (a *App) Close() {
	a.Extractor.Close()
	if err := a.closeActivity(); err != nil {
		a.Logger.WithError(err).Warn("Failed to close activity sink")
	}
}
