package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"atlas_scraper/models"
	"atlas_scraper/scraper"
)

// AnalysisService is what the handlers need from the orchestrator.
type AnalysisService interface {
	Analyze(ctx context.Context, req scraper.AnalyzeRequest) (*scraper.Outcome, error)
}

// RunHistory backs the /api/runs endpoints. Nil disables them.
type RunHistory interface {
	RecentRuns(limit int) ([]models.AnalysisRun, error)
	RunLogs(runID int64, limit int) ([]models.RunLog, error)
}

type Handler struct {
	service AnalysisService
	runs    RunHistory
	log     *logrus.Logger
}

func NewHandler(service AnalysisService, runs RunHistory, log *logrus.Logger) *Handler {
	return &Handler{service: service, runs: runs, log: log}
}

type analysisRequest struct {
	URL         string `json:"url" binding:"required"`
	Platform    string `json:"platform" binding:"required"`
	UseMockData bool   `json:"useMockData"`
}

func (h *Handler) PropertyAnalysis(c *gin.Context) {
	var req analysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "url and platform are required",
		})
		return
	}

	platform, ok := models.ParsePlatform(req.Platform)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "unsupported platform: must be one of idealista, fotocasa, habitaclia",
		})
		return
	}

	if !platform.MatchesURL(req.URL) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "url does not look like a " + platform.String() + " listing",
		})
		return
	}

	outcome, err := h.service.Analyze(c.Request.Context(), scraper.AnalyzeRequest{
		RequestID:   uuid.NewString(),
		Platform:    platform,
		URL:         req.URL,
		UseMockData: req.UseMockData,
	})
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	message := "Analysis completed"
	if outcome.Confidence.IsFallback() {
		message = "Analysis completed with estimated data"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    outcome.Analysis,
	})
}

func (h *Handler) writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scraper.ErrUnsupportedPlatform):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "unsupported platform or url",
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"success": false,
			"message": "analysis timed out",
		})
	case errors.Is(err, context.Canceled):
		c.Status(499)
	default:
		h.log.WithError(err).Error("analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "internal server error",
		})
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Runs(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []models.AnalysisRun{}})
		return
	}

	runs, err := h.runs.RecentRuns(50)
	if err != nil {
		h.log.WithError(err).Error("run history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "internal server error",
		})
		return
	}
	if runs == nil {
		runs = []models.AnalysisRun{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": runs})
}

func (h *Handler) RunLogs(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "run id must be a positive integer",
		})
		return
	}

	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": []models.RunLog{}})
		return
	}

	logs, err := h.runs.RunLogs(id, 200)
	if err != nil {
		h.log.WithError(err).Error("run log query failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "internal server error",
		})
		return
	}
	if logs == nil {
		logs = []models.RunLog{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": logs})
}
