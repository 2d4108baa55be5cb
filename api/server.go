package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capacitylab/fleet-advisor/api/handlers"
	"github.com/capacitylab/fleet-advisor/api/middleware"
	"github.com/capacitylab/fleet-advisor/api/websocket"
	"github.com/capacitylab/fleet-advisor/internal/events"
	"github.com/capacitylab/fleet-advisor/pkg/config"
	"github.com/capacitylab/fleet-advisor/pkg/database"
)

const maxRequestBodyBytes = 1 << 20

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	db         *database.DB
	advisor    handlers.Advisor
	wsHub      *websocket.Hub
	wsBridge   *websocket.EventBridge
}

// NewServer builds the HTTP surface. db may be nil when persistence is
// disabled; bus may be nil to disable the WebSocket event stream.
func NewServer(cfg *config.Config, advisor handlers.Advisor, db *database.DB, bus *events.Bus) *Server {
	if cfg.App.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	wsHub := websocket.NewHub(&cfg.WebSocket)

	s := &Server{
		router:  router,
		config:  cfg,
		db:      db,
		advisor: advisor,
		wsHub:   wsHub,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if bus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.API.CORS)))
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBodyBytes))

	rateLimiter := middleware.NewRateLimiter(s.config.API.RateLimit, time.Minute)
	s.router.Use(middleware.RateLimit(rateLimiter))
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.db, s.advisor)
	advisorHandler := handlers.NewAdvisorHandler(s.advisor, &s.config.API)

	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/metrics/recent", advisorHandler.GetRecentSamples)
		v1.GET("/metrics/latest", advisorHandler.GetLatestSample)
		v1.GET("/metrics/summary", advisorHandler.GetSummary)

		v1.GET("/forecast", advisorHandler.GetForecast)

		v1.GET("/scaling/status", advisorHandler.GetScalingStatus)
		v1.GET("/scaling/events", advisorHandler.GetScalingEvents)
		v1.POST("/scaling/evaluate", advisorHandler.Evaluate)
		v1.POST("/scaling/rollback", advisorHandler.Rollback)

		v1.GET("/config", advisorHandler.GetPolicy)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.API.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
