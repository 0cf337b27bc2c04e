// internal/handler/analysis_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iqdump-service/internal/report"
	"iqdump-service/internal/service"
	"iqdump-service/internal/utils"
)

// AnalysisHandler handles metric analysis and production plan requests
type AnalysisHandler struct {
	dutService      *service.DutService
	analysisService *service.AnalysisService
	planService     *service.PlanService
	logger          *utils.ServiceLogger
}

// ParseRequest tunes one analysis pass over the captured files
type ParseRequest struct {
	SampleRateMHz uint8           `json:"sample_rate_mhz,omitempty" binding:"omitempty,min=1" example:"40"`
	Formats       []report.Format `json:"formats,omitempty"`
	Plot          *bool           `json:"plot,omitempty"`
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(
	dutService *service.DutService,
	analysisService *service.AnalysisService,
	planService *service.PlanService,
	logger *zap.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		dutService:      dutService,
		analysisService: analysisService,
		planService:     planService,
		logger:          utils.NewServiceLogger(logger, "analysis-handler"),
	}
}

// RegisterRoutes registers analysis and plan routes
func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/analysis/parse", h.Parse)
	router.POST("/plans/default/run", h.RunDefaultPlan)
}

// Parse analyses every captured file and writes the reports
// @Summary Analyse captures
// @Description Compute RF metrics for every captured file and write the configured report formats
// @Tags Analysis
// @Accept json
// @Produce json
// @Param request body ParseRequest false "Analysis options"
// @Success 200 {object} utils.APIResponse{data=service.AnalysisOutcome} "Analysis finished"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 500 {object} utils.APIResponse "Report could not be written"
// @Router /analysis/parse [post]
func (h *AnalysisHandler) Parse(c *gin.Context) {
	var req ParseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	outcome, err := h.analysisService.Run(c.Request.Context(), h.dutService.Catalog(), &service.AnalysisRequest{
		SampleRateMHz: req.SampleRateMHz,
		Formats:       req.Formats,
		Plot:          req.Plot,
	})
	if err != nil {
		respondError(c, h.logger, "Analysis failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Analysis finished", outcome)
}

// RunDefaultPlan runs the production plan against the connected DUT
// @Summary Run the production plan
// @Description Initialise ATE, sweep every gain stage of LB then HB, and analyse the captures
// @Tags Plans
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.PlanReport} "Plan finished"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Failure 502 {object} utils.APIResponse "DUT reported an error"
// @Failure 503 {object} utils.APIResponse "Link failure"
// @Router /plans/default/run [post]
func (h *AnalysisHandler) RunDefaultPlan(c *gin.Context) {
	planReport, err := h.planService.Execute(c.Request.Context(), service.DefaultPlan())
	if err != nil {
		status, code := errorStatus(err)
		h.logger.Error("Production plan failed", zap.Error(err))
		c.JSON(status, utils.APIResponse{
			Success: false,
			Message: "Production plan failed",
			Data:    planReport,
			Error: &utils.APIError{
				Code:    code,
				Message: "Production plan failed",
				Details: err.Error(),
			},
			Timestamp: time.Now(),
			RequestID: c.GetString("request_id"),
		})
		return
	}

	h.logger.Info("Production plan finished", zap.Duration("duration", planReport.Duration))
	utils.SuccessResponse(c, http.StatusOK, "Plan finished", planReport)
}
