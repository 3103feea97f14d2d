package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-importer/extractor"
	"storefront-importer/fanout"
	"storefront-importer/internal/types"
	"storefront-importer/orchestrator"
)

type extractRequest struct {
	URL     string `json:"url" binding:"required"`
	Listing bool   `json:"listing"`
}

type importRequest struct {
	URL     string               `json:"url"`
	Preset  string               `json:"preset"`
	Options *types.ImportOptions `json:"options"`
	Listing bool                 `json:"listing"`
}

type destinationsRequest struct {
	URL          string               `json:"url"`
	Preset       string               `json:"preset"`
	Options      *types.ImportOptions `json:"options"`
	Destinations []fanout.Destination `json:"destinations"`
}

type debugRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleDetect(c *gin.Context) {
	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		s.sendError(c, http.StatusBadRequest, "url query parameter is required")
		return
	}

	platform := s.extractor.Detect(rawURL)
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: gin.H{
			"url":       rawURL,
			"platform":  platform,
			"supported": platform != types.PlatformUnknown,
		},
	})
}

func (s *Server) handleExtract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	url := strings.TrimSpace(req.URL)
	s.logger.Infof("Extract request received for %s (listing=%t)", url, req.Listing)

	var (
		data interface{}
		err  error
	)
	if req.Listing {
		data, err = s.extractor.ExtractListing(ctx, url)
	} else {
		data, err = s.extractor.Extract(ctx, url)
	}

	switch {
	case errors.Is(err, extractor.ErrInvalidURL):
		s.sendError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, extractor.ErrListingUnsupported):
		s.sendError(c, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		s.sendError(c, http.StatusBadGateway, err.Error())
	default:
		c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
	}
}

func (s *Server) handleImport(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	options, err := resolveOptions(req.Preset, req.Options)
	if err != nil {
		s.sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	url := strings.TrimSpace(req.URL)
	var result types.ImportResult
	if req.Listing {
		result = s.orchestrator.ImportListing(ctx, url, options)
	} else {
		result = s.orchestrator.ImportFor(ctx, c.GetString("request_id"), url, options)
	}

	s.sendResult(c, result)
}

func (s *Server) handleRetry(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	result, replayed := s.orchestrator.Retry(ctx)
	if !replayed {
		s.sendError(c, http.StatusConflict, "No previous import to retry")
		return
	}

	s.sendResult(c, result)
}

func (s *Server) handleDestinations(c *gin.Context) {
	var req destinationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	options, err := resolveOptions(req.Preset, req.Options)
	if err != nil {
		s.sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.requestTimeout)
	defer cancel()

	report, err := s.orchestrator.ImportToDestinations(ctx, strings.TrimSpace(req.URL), options, req.Destinations, nil)
	switch {
	case errors.Is(err, fanout.ErrNoDestination), errors.Is(err, extractor.ErrInvalidURL):
		s.sendError(c, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.sendError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: report.Outcome() != types.FanOutTotalFailure,
		Data: gin.H{
			"outcome": report.Outcome(),
			"message": report.Message(),
			"report":  report,
		},
	})
}

func (s *Server) handleJobStatus(c *gin.Context) {
	if s.jobs == nil {
		s.sendError(c, http.StatusServiceUnavailable, "Import backend is not configured")
		return
	}

	job, err := s.jobs.GetJobStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.sendError(c, http.StatusBadGateway, err.Error())
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: job})
}

func (s *Server) handleGetDebug(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"enabled": s.orchestrator.Debug().Enabled()}})
}

func (s *Server) handleSetDebug(c *gin.Context) {
	var req debugRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.sendError(c, http.StatusBadRequest, "enabled is required")
		return
	}

	if err := s.orchestrator.Debug().Set(*req.Enabled); err != nil {
		s.logger.Errorf("Failed to persist debug mode: %v", err)
		s.sendError(c, http.StatusInternalServerError, "Failed to persist debug mode")
		return
	}

	s.logger.Infof("Debug mode set to %t", *req.Enabled)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"enabled": *req.Enabled}})
}

func (s *Server) sendResult(c *gin.Context, result types.ImportResult) {
	resp := APIResponse{Success: result.OK, Data: result}
	if !result.OK {
		resp.Error = result.Message
		resp.Code = string(result.Code)
	}
	c.JSON(statusFor(result), resp)
}

// statusFor maps an import outcome onto an HTTP status
func statusFor(result types.ImportResult) int {
	if result.OK {
		return http.StatusOK
	}

	switch result.Code {
	case types.ErrInvalidURL:
		return http.StatusBadRequest
	case types.ErrClientNotLoaded:
		return http.StatusServiceUnavailable
	case types.ErrNetwork, types.ErrInternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func resolveOptions(preset string, explicit *types.ImportOptions) (types.ImportOptions, error) {
	if explicit != nil {
		return *explicit, nil
	}
	return orchestrator.ParsePreset(preset)
}
