// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"iqdump-service/internal/service"
	"iqdump-service/internal/utils"
)

// DiscoveryHandler handles DUT discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dut/discover", h.Discover)
}

// Discover scans for DUT control endpoints
// @Summary Discover DUTs
// @Description Probe the configured networks for an open control port and list matching serial ports
// @Tags DUT
// @Produce json
// @Param scanner query string false "Scanner to run: tcp or serial (default: all)"
// @Success 200 {object} utils.APIResponse{data=service.DiscoveryResult} "Scan completed"
// @Failure 400 {object} utils.APIResponse "Unknown scanner"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /dut/discover [get]
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	result, err := h.discoveryService.Scan(c.Request.Context(), c.Query("scanner"))
	if err != nil {
		respondError(c, h.logger, "Discovery scan failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Scan completed", result)
}
