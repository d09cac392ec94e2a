package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sitegrid/sitegrid/pkg/apiserver/handlers"
	"github.com/sitegrid/sitegrid/pkg/apiserver/middleware"
	"github.com/sitegrid/sitegrid/pkg/auth"
	"github.com/sitegrid/sitegrid/pkg/config"
	"github.com/sitegrid/sitegrid/pkg/model"
	"github.com/sitegrid/sitegrid/pkg/planner"
	"github.com/sitegrid/sitegrid/pkg/store"
)

type Server struct {
	router  *gin.Engine
	store   store.SiteStore
	planner *planner.Planner
	tokens  *auth.TokenManager
	cfg     *config.Config
	logger  *zap.Logger
}

func NewServer(s store.SiteStore, p *planner.Planner, tokens *auth.TokenManager, cfg *config.Config, logger *zap.Logger) *Server {
	srv := &Server{
		store:   s,
		planner: p,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
	}
	srv.setupRouter()
	return srv
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(s.cfg.Server.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(s.store, s.tokens, s.logger)
	r.POST("/api/v1/auth/login", authHandler.Login)

	admin := middleware.RequireRole(model.RoleAdmin)
	planners := middleware.RequireRole(model.RoleAdmin, model.RoleTradeManager)

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.tokens))

		api.POST("/users", admin, authHandler.CreateUser)
		api.GET("/users/me", authHandler.Me)

		projectHandler := handlers.NewProjectHandler(s.store, s.logger)
		api.GET("/projects", projectHandler.List)
		api.POST("/projects", admin, projectHandler.Create)
		api.GET("/projects/:id", projectHandler.Get)
		api.DELETE("/projects/:id", admin, projectHandler.Delete)

		modelHandler := handlers.NewModelHandler(s.store, s.logger)
		api.GET("/models", modelHandler.List)
		api.POST("/models", admin, modelHandler.Create)
		api.GET("/models/:id", modelHandler.Get)
		api.DELETE("/models/:id", admin, modelHandler.Delete)

		gridHandler := handlers.NewGridHandler(s.store, s.planner, s.logger)
		api.POST("/grid/generate", admin, gridHandler.Generate)
		api.GET("/grid/:model_id", gridHandler.ListCells)
		api.GET("/grid/:model_id/usage", gridHandler.Usage)

		tradeHandler := handlers.NewTradeHandler(s.store, s.logger)
		api.GET("/trades", tradeHandler.List)
		api.POST("/trades", admin, tradeHandler.Create)

		capacityHandler := handlers.NewCapacityHandler(s.store, s.logger)
		api.PATCH("/capacities/cell/:id", admin, capacityHandler.UpdateCell)
		api.GET("/capacities/cell/:id/trades", capacityHandler.ListTrades)
		api.POST("/capacities/trade", admin, capacityHandler.UpsertTrade)

		allocationHandler := handlers.NewAllocationHandler(s.store, s.planner, s.logger)
		api.POST("/allocations", planners, allocationHandler.Create)
		api.POST("/allocations/check", allocationHandler.Check)
		api.GET("/allocations/by-date/:date", allocationHandler.ListByDate)
		api.DELETE("/allocations/:id", planners, allocationHandler.Delete)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
