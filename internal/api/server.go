package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

// ProductExtractor is the extraction surface the API exposes
type ProductExtractor interface {
	Detect(rawURL string) types.PlatformID
	Extract(ctx context.Context, rawURL string) (types.CanonicalProduct, error)
	ExtractListing(ctx context.Context, rawURL string) ([]types.CanonicalProduct, error)
}

// JobQuerier fetches backend job state
type JobQuerier interface {
	GetJobStatus(ctx context.Context, jobID string) (types.JobStatus, error)
}

// APIResponse is the envelope of every response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Server is the HTTP facade over the pipeline
type Server struct {
	extractor    ProductExtractor
	orchestrator *orchestrator.Orchestrator
	jobs         JobQuerier
	logger       *logrus.Logger

	// requestTimeout bounds extraction and import work per request
	requestTimeout time.Duration
}

// NewServer creates a new API server. jobs may be nil when no backend is configured.
func NewServer(extractor ProductExtractor, orch *orchestrator.Orchestrator, jobs JobQuerier, logger *logrus.Logger) *Server {
	return &Server{
		extractor:      extractor,
		orchestrator:   orch,
		jobs:           jobs,
		logger:         logger,
		requestTimeout: 10 * time.Minute,
	}
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(s.logger))
	router.Use(CORSMiddleware())

	router.GET("/health", s.handleHealth)
	router.GET("/detect", s.handleDetect)
	router.POST("/extract", s.handleExtract)

	imports := router.Group("/import")
	{
		imports.POST("", s.handleImport)
		imports.POST("/retry", s.handleRetry)
		imports.POST("/destinations", s.handleDestinations)
	}

	router.GET("/jobs/:id", s.handleJobStatus)
	router.GET("/debug", s.handleGetDebug)
	router.PUT("/debug", s.handleSetDebug)

	return router
}

// Start listens on port until the server fails
func (s *Server) Start(port string) error {
	s.logger.Infof("Starting API server on port %s", port)
	s.logger.Info("Available endpoints:")
	s.logger.Info("  GET  /health               - Health check")
	s.logger.Info("  GET  /detect?url=          - Detect the marketplace of a URL")
	s.logger.Info("  POST /extract              - Extract a product or listing page")
	s.logger.Info("  POST /import               - Extract and import a product")
	s.logger.Info("  POST /import/retry         - Replay the last import")
	s.logger.Info("  POST /import/destinations  - Import into several stores")
	s.logger.Info("  GET  /jobs/:id             - Query a backend job")
	s.logger.Info("  GET  /debug, PUT /debug    - Read or toggle debug mode")

	return http.ListenAndServe(":"+port, s.Router())
}

func (s *Server) sendError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Error: message})
}
