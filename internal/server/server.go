// Package server exposes the read-only reconciliation API. Every request
// triggers a fresh fiscal-window reconciliation run; nothing is cached or
// written, so repeated calls against unchanged source tables return
// identical bodies.
package server

import (
	"context"
	"net/http"
	"time"

	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/recon"
	"sales-reconciliation-service/internal/reporter"
	apperrors "sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Runner executes one reconciliation run for the fiscal window containing
// the reference time. *recon.Service satisfies it.
type Runner interface {
	Run(ctx context.Context, ref time.Time) (*recon.Result, error)
}

// Server serves the reconciliation API over an injected runner.
type Server struct {
	runner Runner
	log    logger.Logger

	// now supplies the reference time for window derivation; injectable
	// for tests.
	now func() time.Time
}

// New creates an API server.
func New(runner Runner, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Server{
		runner: runner,
		log:    log,
		now:    time.Now,
	}
}

// Router builds the gin engine with all API routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/pivot", s.handlePivot)
		api.GET("/kpis", s.handleKPIs)
		api.GET("/diffs", s.handleDiffs)
		api.GET("/audit", s.handleAudit)
		api.GET("/consistency", s.handleConsistency)
	}
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handlePivot returns the resolved month-by-channel grid with provenance.
func (s *Server) handlePivot(c *gin.Context) {
	payload, ok := s.runReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window": payload.Window,
		"rows":   payload.Rows,
	})
}

// handleKPIs returns the derived per-month indicators.
func (s *Server) handleKPIs(c *gin.Context) {
	payload, ok := s.runReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window": payload.Window,
		"kpis":   payload.KPIs,
	})
}

// handleDiffs returns both standing comparisons. only_nonzero defaults to
// true; passing false pads the listings to the full grid.
func (s *Server) handleDiffs(c *gin.Context) {
	payload, ok := s.runReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window":              payload.Window,
		"stored_unified_diff": payload.StoredUnifiedDiff,
		"pipeline_diff":       payload.PipelineDiff,
	})
}

// handleAudit returns the unclassified channel label audit.
func (s *Server) handleAudit(c *gin.Context) {
	payload, ok := s.runReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window":       payload.Window,
		"unclassified": payload.Unclassified,
	})
}

// handleConsistency reports the channel-sum check outcome as data rather
// than as a failure, so operators can read the discrepancy list from a
// 200 response. Other endpoints keep refusing with 409 while the
// invariant is violated.
func (s *Server) handleConsistency(c *gin.Context) {
	result, err := s.runner.Run(c.Request.Context(), s.now())
	if err != nil {
		if ce, ok := recon.AsConsistencyError(err); ok {
			c.JSON(http.StatusOK, gin.H{
				"window":        ce.WindowLabel,
				"consistent":    false,
				"discrepancies": ce.Discrepancies,
			})
			return
		}
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"window":        result.Window.Label,
		"consistent":    true,
		"discrepancies": []models.MonthDiscrepancy{},
	})
}

// runReport parses the shared query parameters, executes a run and
// reduces it. A false return means the response has been written.
func (s *Server) runReport(c *gin.Context) (*reporter.Payload, bool) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.FormatJSON

	if raw := c.Query("month"); raw != "" {
		m, err := models.ParseMonth(raw)
		if err != nil {
			s.renderError(c, apperrors.InputError(apperrors.CodeInvalidMonth, "month", raw).
				WithSuggestion("use an ISO first-of-month date such as 2025-09-01"))
			return nil, false
		}
		config.Month = m
	}
	if raw := c.Query("only_nonzero"); raw != "" {
		switch raw {
		case "true", "1":
			config.OnlyNonZero = true
		case "false", "0":
			config.OnlyNonZero = false
		default:
			s.renderError(c, apperrors.InputError(apperrors.CodeMissingParameter, "only_nonzero", raw).
				WithSuggestion("use true or false"))
			return nil, false
		}
	}

	result, err := s.runner.Run(c.Request.Context(), s.now())
	if err != nil {
		s.renderError(c, err)
		return nil, false
	}

	gen, err := reporter.NewGenerator(config)
	if err != nil {
		s.renderError(c, err)
		return nil, false
	}
	payload, err := gen.BuildPayload(result)
	if err != nil {
		s.renderError(c, apperrors.InputError(apperrors.CodeInvalidWindow, "month", config.Month.String()).
			WithSuggestion("pick a month inside the current fiscal window"))
		return nil, false
	}
	return payload, true
}

// renderError maps the error taxonomy onto HTTP statuses. Consistency
// violations carry their per-month discrepancy list in the body.
func (s *Server) renderError(c *gin.Context, err error) {
	re, ok := apperrors.AsReconError(err)
	if !ok {
		re = apperrors.InternalError("handle_request", err)
	}

	body := gin.H{
		"category": re.Category,
		"code":     re.Code,
		"message":  re.Message,
	}
	if re.Suggestion != "" {
		body["suggestion"] = re.Suggestion
	}
	if ce, ok := recon.AsConsistencyError(err); ok {
		body["discrepancies"] = ce.Discrepancies
	}

	s.log.WithError(err).WithFields(logger.Fields{
		"path":   c.FullPath(),
		"status": re.HTTPStatus(),
	}).Error("request failed")

	c.JSON(re.HTTPStatus(), body)
}
