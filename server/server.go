package server

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/npuflow/logger"
	"github.com/kbukum/npuflow/server/endpoint"
	"github.com/kbukum/npuflow/server/middleware"
)

// Server serves the harness API on a gin engine behind the net/http
// middleware chain.
type Server struct {
	config Config
	engine *gin.Engine
	log    *logger.Logger

	middlewares []middleware.Middleware

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// New creates a server. Routes and middleware are added before Start.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Server{
		config: cfg,
		engine: gin.New(),
		log:    log.WithComponent("server"),
	}
}

// GinEngine returns the engine for route registration.
func (s *Server) GinEngine() *gin.Engine {
	return s.engine
}

// Use appends net/http middleware. The first added is the outermost.
func (s *Server) Use(mw ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw...)
}

// ApplyMiddleware installs recovery, request id, tracing, CORS, the body
// size limit and request logging.
func (s *Server) ApplyMiddleware() {
	s.Use(
		middleware.Recovery(s.log),
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.CORS(s.config.CORS),
		middleware.BodySizeLimit(s.config.MaxBodySize),
		middleware.RequestLogger(s.log),
	)
}

// RegisterDefaultEndpoints adds /health, /ready and /info.
func (s *Server) RegisterDefaultEndpoints(serviceName string, checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(serviceName, checker))
	s.engine.GET("/ready", endpoint.Readiness(serviceName, checker))
	s.engine.GET("/info", endpoint.Info(serviceName))
}

// Handler returns the full handler: middleware chain, then gin, wrapped for
// h2c when enabled.
func (s *Server) Handler() http.Handler {
	var h http.Handler = middleware.Chain(s.middlewares...)(s.engine)
	if s.config.H2C && !s.config.TLS.Enabled() {
		h = h2c.NewHandler(h, &http2.Server{IdleTimeout: s.config.IdleTimeout})
	}
	return h
}

// Start binds the listener and serves in the background. It returns once
// the port is bound.
func (s *Server) Start(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer != nil {
		return fmt.Errorf("server already started on %s", s.listener.Addr())
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	tlsConfig, err := s.config.TLS.Build()
	if err != nil {
		return err
	}
	if tlsConfig != nil {
		srv.TLSConfig = tlsConfig
		if err := http2.ConfigureServer(srv, &http2.Server{IdleTimeout: s.config.IdleTimeout}); err != nil {
			return fmt.Errorf("configure http2: %w", err)
		}
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", addr, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, srv.TLSConfig)
	}
	s.httpServer, s.listener = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("server stopped unexpectedly")
		}
	}()
	s.log.Info("HTTP server listening", logger.Fields("addr", ln.Addr().String(), "h2c", s.config.H2C, "tls", tlsConfig != nil))
	return nil
}

// Stop shuts the server down, waiting up to ShutdownTimeout for running
// batches.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer, s.listener = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpServer != nil
}
