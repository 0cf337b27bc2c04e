// internal/handler/dut_handler.go
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iqdump-service/internal/model"
	"iqdump-service/internal/service"
	"iqdump-service/internal/utils"
)

// DutHandler handles DUT connection and band control requests
type DutHandler struct {
	dutService *service.DutService
	logger     *utils.ServiceLogger
}

// ConnectRequest overrides the configured DUT address
type ConnectRequest struct {
	Address string `json:"address,omitempty" example:"192.168.1.1:9600"`
}

// NewDutHandler creates a new DUT handler
func NewDutHandler(dutService *service.DutService, logger *zap.Logger) *DutHandler {
	return &DutHandler{
		dutService: dutService,
		logger:     utils.NewServiceLogger(logger, "dut-handler"),
	}
}

// RegisterRoutes registers DUT routes
func (h *DutHandler) RegisterRoutes(router *gin.RouterGroup) {
	dut := router.Group("/dut")
	{
		dut.POST("/connect", h.Connect)
		dut.POST("/disconnect", h.Disconnect)
		dut.GET("/status", h.Status)
		dut.POST("/ate-init", h.ATEInit)

		bands := dut.Group("/bands/:band")
		{
			bands.POST("/down", h.ShutDownBand)
			bands.POST("/up", h.ShutUpBand)
			bands.POST("/rx/open", h.OpenRx)
			bands.POST("/rx/close", h.CloseRx)
		}
	}
	router.GET("/captures", h.ListCaptures)
}

// Connect opens the control session
// @Summary Connect to the DUT
// @Description Open the control session, replacing any existing one. The configured address is used when none is given.
// @Tags DUT
// @Accept json
// @Produce json
// @Param request body ConnectRequest false "Connection override"
// @Success 200 {object} utils.APIResponse{data=service.DutStatus} "Connected"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 503 {object} utils.APIResponse "DUT unreachable"
// @Router /dut/connect [post]
func (h *DutHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	status, err := h.dutService.Connect(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, h.logger, "Failed to connect to DUT", err)
		return
	}

	h.logger.Info("DUT connected", zap.String("address", status.Address))
	utils.SuccessResponse(c, http.StatusOK, "DUT connected", status)
}

// Disconnect closes the control session
// @Summary Disconnect from the DUT
// @Tags DUT
// @Produce json
// @Success 200 {object} utils.APIResponse "Disconnected"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Router /dut/disconnect [post]
func (h *DutHandler) Disconnect(c *gin.Context) {
	if err := h.dutService.Disconnect(); err != nil {
		respondError(c, h.logger, "Failed to disconnect from DUT", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "DUT disconnected", nil)
}

// Status returns the connection snapshot
// @Summary DUT status
// @Description Connection state, link counters, phy indexes and capture count
// @Tags DUT
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.DutStatus} "Status retrieved"
// @Router /dut/status [get]
func (h *DutHandler) Status(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Status retrieved", h.dutService.Status())
}

// ATEInit initialises the ATE channel
// @Summary Initialise ATE mode
// @Tags DUT
// @Produce json
// @Success 200 {object} utils.APIResponse "ATE initialised"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Failure 502 {object} utils.APIResponse "DUT reported an error"
// @Failure 503 {object} utils.APIResponse "Link failure"
// @Router /dut/ate-init [post]
func (h *DutHandler) ATEInit(c *gin.Context) {
	if err := h.dutService.ATEInit(c.Request.Context()); err != nil {
		respondError(c, h.logger, "ATE init failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "ATE initialised", nil)
}

// ShutDownBand takes a band offline
// @Summary Shut down a band
// @Tags DUT
// @Produce json
// @Param band path string true "Band" Enums(HB, LB)
// @Success 200 {object} utils.APIResponse "Band shut down"
// @Failure 400 {object} utils.APIResponse "Unknown band"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Failure 502 {object} utils.APIResponse "DUT reported an error"
// @Router /dut/bands/{band}/down [post]
func (h *DutHandler) ShutDownBand(c *gin.Context) {
	h.bandAction(c, "Band shut down", h.dutService.ShutDownBand)
}

// ShutUpBand brings a band back online
// @Summary Bring up a band
// @Tags DUT
// @Produce json
// @Param band path string true "Band" Enums(HB, LB)
// @Success 200 {object} utils.APIResponse "Band brought up"
// @Failure 400 {object} utils.APIResponse "Unknown band"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Failure 502 {object} utils.APIResponse "DUT reported an error"
// @Router /dut/bands/{band}/up [post]
func (h *DutHandler) ShutUpBand(c *gin.Context) {
	h.bandAction(c, "Band brought up", h.dutService.ShutUpBand)
}

// OpenRx starts continuous receive
// @Summary Open continuous receive
// @Tags DUT
// @Produce json
// @Param band path string true "Band" Enums(HB, LB)
// @Success 200 {object} utils.APIResponse "Receive opened"
// @Failure 400 {object} utils.APIResponse "Unknown band"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Router /dut/bands/{band}/rx/open [post]
func (h *DutHandler) OpenRx(c *gin.Context) {
	h.bandAction(c, "Receive opened", h.dutService.OpenRx)
}

// CloseRx stops continuous receive
// @Summary Close continuous receive
// @Tags DUT
// @Produce json
// @Param band path string true "Band" Enums(HB, LB)
// @Success 200 {object} utils.APIResponse "Receive closed"
// @Failure 400 {object} utils.APIResponse "Unknown band"
// @Failure 409 {object} utils.APIResponse "Not connected"
// @Router /dut/bands/{band}/rx/close [post]
func (h *DutHandler) CloseRx(c *gin.Context) {
	h.bandAction(c, "Receive closed", h.dutService.CloseRx)
}

func (h *DutHandler) bandAction(c *gin.Context, message string, op func(context.Context, model.Band) error) {
	band, err := model.ParseBand(c.Param("band"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid band", err)
		return
	}

	if err := op(c.Request.Context(), band); err != nil {
		respondError(c, h.logger, "Band operation failed", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, message, gin.H{"band": band})
}

// ListCaptures lists the captured files awaiting analysis
// @Summary List captures
// @Tags Analysis
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{captures=[]string,total=int}} "Captures retrieved"
// @Router /captures [get]
func (h *DutHandler) ListCaptures(c *gin.Context) {
	paths := h.dutService.Catalog().Paths()
	utils.SuccessResponse(c, http.StatusOK, "Captures retrieved", gin.H{
		"captures": paths,
		"total":    len(paths),
	})
}
