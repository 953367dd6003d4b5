// Package server exposes the planning core over REST and WebSocket using
// gin. Handlers translate typed planner errors into HTTP statuses; no
// business logic lives here.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"quartermaster/internal/catalog"
	"quartermaster/internal/config"
	"quartermaster/internal/constraints"
	"quartermaster/internal/llm"
	"quartermaster/internal/logging"
	"quartermaster/internal/observability"
	"quartermaster/internal/planner"
	"quartermaster/internal/session"
)

const (
	serviceName    = "quartermaster"
	serviceVersion = "1.0.0"
)

// Deps are the wired components the server serves.
type Deps struct {
	Catalog     *catalog.Catalog
	Index       *catalog.Index
	Planner     *planner.Planner
	Constraints *constraints.Service
	Sessions    *session.Manager
	Logger      logging.Logger
	Metrics     *observability.MetricsCollector
	Tracer      *observability.TracerProvider

	// Clients resolves LLM clients with the application's configured
	// endpoint, model, and retry policy. Defaults to an unconfigured factory.
	Clients llm.Factory

	// Defaults for session agents when a request names no provider.
	DefaultProvider string
	DefaultAPIKey   string
}

// Server is the REST/WebSocket front end.
type Server struct {
	config config.ServerConfig
	deps   Deps
	engine *gin.Engine
	http   *http.Server

	upgrader websocket.Upgrader

	// LLM client per live session; falls back to the default provider for
	// sessions resumed after a restart.
	mu             sync.Mutex
	sessionClients map[string]llm.Client
}

// New builds the server and registers all routes.
func New(cfg config.ServerConfig, deps Deps) *Server {
	deps.Logger = logging.OrNop(deps.Logger)
	if deps.Clients == nil {
		deps.Clients = llm.NewFactory(llm.Settings{})
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 1 && cfg.AllowOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		config: cfg,
		deps:   deps,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessionClients: make(map[string]llm.Client),
	}

	engine.Use(s.requestIDMiddleware())
	engine.Use(s.tracingMiddleware())
	engine.Use(s.metricsMiddleware())
	s.routes()

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.handleRoot)

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)

	api.GET("/catalog/components", s.handleComponents)
	api.GET("/catalog/vendors", s.handleVendors)
	api.GET("/catalog/items", s.handleItems)
	api.GET("/catalog/search", s.handleSearch)

	api.POST("/procurement", s.handleProcurement)
	api.POST("/negotiate", s.handleNegotiate)

	api.POST("/constraints", s.handleApplyConstraints)
	api.GET("/constraints/:request_id", s.handleConstraintsHistory)

	api.POST("/sessions", s.handleStartSession)
	api.GET("/sessions/:id", s.handleGetSession)
	api.POST("/sessions/:id/messages", s.handleSessionMessage)
	api.GET("/sessions/:id/ws", s.handleSessionWS)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("REST server listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) sessionClient(sessionID string) llm.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.sessionClients[sessionID]; ok {
		return client
	}
	client, err := s.deps.Clients(s.deps.DefaultProvider, s.deps.DefaultAPIKey)
	if err != nil {
		client = llm.NewDeterministic()
	}
	s.sessionClients[sessionID] = client
	return client
}

func (s *Server) bindSessionClient(sessionID string, client llm.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionClients[sessionID] = client
}
