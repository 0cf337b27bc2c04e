// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"iqdump-service/internal/config"
	"iqdump-service/internal/database"
	"iqdump-service/internal/events"
	"iqdump-service/internal/handler"
	"iqdump-service/internal/middleware"
	"iqdump-service/internal/service"
	"iqdump-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	db               *database.DB
	bus              *events.Bus
	dutService       *service.DutService
	analysisService  *service.AnalysisService
	planService      *service.PlanService
	discoveryService *service.DiscoveryService
}

// NewRouter creates a new router instance; db may be nil
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	db *database.DB,
	bus *events.Bus,
	dutService *service.DutService,
	analysisService *service.AnalysisService,
	planService *service.PlanService,
	discoveryService *service.DiscoveryService,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		db:               db,
		bus:              bus,
		dutService:       dutService,
		analysisService:  analysisService,
		planService:      planService,
		discoveryService: discoveryService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else if r.config.App.Environment == "test" {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	r.addMiddleware(router)
	r.addRoutes(router)
	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(utils.NewServiceLogger(r.logger, "http-server")))
	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.db, r.dutService, r.config, r.logger)
	dutHandler := handler.NewDutHandler(r.dutService, r.logger)
	sweepHandler := handler.NewSweepHandler(r.dutService, r.logger)
	analysisHandler := handler.NewAnalysisHandler(r.dutService, r.analysisService, r.planService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.bus, r.logger)

	healthHandler.RegisterRoutes(router)

	apiV1 := router.Group("/api/v1")
	dutHandler.RegisterRoutes(apiV1)
	sweepHandler.RegisterRoutes(apiV1)
	analysisHandler.RegisterRoutes(apiV1)
	discoveryHandler.RegisterRoutes(apiV1)

	wsHandler.RegisterRoutes(router.Group("/ws"))

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
