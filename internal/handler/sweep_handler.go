// internal/handler/sweep_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"iqdump-service/internal/model"
	"iqdump-service/internal/repository"
	"iqdump-service/internal/service"
	"iqdump-service/internal/utils"
)

// SweepHandler handles gain sweep requests
type SweepHandler struct {
	dutService *service.DutService
	logger     *utils.ServiceLogger
}

// NewSweepHandler creates a new sweep handler
func NewSweepHandler(dutService *service.DutService, logger *zap.Logger) *SweepHandler {
	return &SweepHandler{
		dutService: dutService,
		logger:     utils.NewServiceLogger(logger, "sweep-handler"),
	}
}

// RegisterRoutes registers sweep routes
func (h *SweepHandler) RegisterRoutes(router *gin.RouterGroup) {
	sweeps := router.Group("/sweeps")
	{
		sweeps.POST("", h.RunSweep)
		sweeps.GET("", h.ListSweeps)
		sweeps.GET("/:id", h.GetSweep)
	}
}

// RunSweep runs one gain sweep and waits for it to finish
// @Summary Run a gain sweep
// @Description Sweep one gain stage of one band over the range spanned by values, capturing and transferring one file per value
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param request body model.SweepRequest true "Sweep request"
// @Success 200 {object} utils.APIResponse{data=service.SweepOutcome} "Sweep finished"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Failure 503 {object} utils.APIResponse "Sweep aborted by a link failure"
// @Router /sweeps [post]
func (h *SweepHandler) RunSweep(c *gin.Context) {
	var req model.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	band, err := model.ParseBand(string(req.Band))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid band", err)
		return
	}
	stage, err := model.ParseGainStage(string(req.Stage))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid gain stage", err)
		return
	}
	req.Band, req.Stage = band, stage

	outcome, err := h.dutService.RunSweep(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, "Sweep failed", err)
		return
	}

	h.logger.Info("Sweep finished",
		zap.String("run_id", outcome.Run.ID.String()),
		zap.Int("succeeded", outcome.Run.Succeeded),
		zap.Int("failed", outcome.Run.Failed),
	)
	utils.SuccessResponse(c, http.StatusOK, "Sweep finished", outcome)
}

// ListSweeps lists recorded sweep runs
// @Summary List sweeps
// @Tags Sweeps
// @Produce json
// @Param band query string false "Filter by band" Enums(HB, LB)
// @Param stage query string false "Filter by gain stage" Enums(fem, lna, vga)
// @Param status query string false "Filter by status" Enums(running, completed, aborted, failed)
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} utils.APIResponse{data=object{sweeps=[]model.SweepRun,total=int,page=int,per_page=int}} "Sweeps retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /sweeps [get]
func (h *SweepHandler) ListSweeps(c *gin.Context) {
	var filter repository.SweepFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters", err)
		return
	}
	if filter.Band != nil {
		band, err := model.ParseBand(string(*filter.Band))
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid band", err)
			return
		}
		filter.Band = &band
	}
	if filter.Stage != nil {
		stage, err := model.ParseGainStage(string(*filter.Stage))
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid gain stage", err)
			return
		}
		filter.Stage = &stage
	}

	runs, total, err := h.dutService.ListSweeps(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, h.logger, "Failed to list sweeps", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Sweeps retrieved", gin.H{
		"sweeps":   runs,
		"total":    total,
		"page":     filter.Page,
		"per_page": filter.PerPage,
	})
}

// GetSweep returns a recorded run with its iterations
// @Summary Get sweep details
// @Tags Sweeps
// @Produce json
// @Param id path string true "Sweep run ID"
// @Success 200 {object} utils.APIResponse{data=service.SweepDetails} "Sweep retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid ID"
// @Failure 404 {object} utils.APIResponse "Sweep not found"
// @Router /sweeps/{id} [get]
func (h *SweepHandler) GetSweep(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid sweep ID", err)
		return
	}

	details, err := h.dutService.GetSweep(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get sweep", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "Sweep retrieved", details)
}
