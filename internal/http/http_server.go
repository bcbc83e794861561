package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/testhub.net/internal/adapter/metrics"
	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/core/services/execution"
	"gitlab.com/testhub.net/internal/core/services/module"
	"gitlab.com/testhub.net/internal/core/services/suite"
	"gitlab.com/testhub.net/internal/core/services/testcase"
	"gitlab.com/testhub.net/internal/handlers"
	"gitlab.com/testhub.net/internal/handlers/modules"
	"gitlab.com/testhub.net/internal/handlers/reports"
	"gitlab.com/testhub.net/internal/handlers/suites"
	"gitlab.com/testhub.net/internal/handlers/testcases"
)

type ServiceProvider struct {
	moduleService    module.IModuleService
	testCaseService  testcase.ITestCaseService
	suiteService     suite.ISuiteService
	executionService execution.IExecutionService

	store   secondary.Store
	jwt     primary.JWTService
	metrics *metrics.Metrics
}

func NewServiceProvider(
	moduleService module.IModuleService,
	testCaseService testcase.ITestCaseService,
	suiteService suite.ISuiteService,
	executionService execution.IExecutionService,
	store secondary.Store,
	jwt primary.JWTService,
	metrics *metrics.Metrics,
) *ServiceProvider {
	return &ServiceProvider{
		moduleService:    moduleService,
		testCaseService:  testCaseService,
		suiteService:     suiteService,
		executionService: executionService,
		store:            store,
		jwt:              jwt,
		metrics:          metrics,
	}
}

type Server struct {
	router          *mux.Router
	cfg             *config.HTTPConfig
	ServiceProvider ServiceProvider
	logger          primary.Logger

	srv      *http.Server
	listener net.Listener
}

func NewServer(cfg *config.HTTPConfig, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		cfg:             cfg,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

// Init builds the router. /healthz and /metrics stay open; /api is behind the
// bearer token check when auth is enabled.
func (s *Server) Init() error {
	p := s.ServiceProvider
	r := mux.NewRouter()
	if p.metrics != nil {
		r.Use(p.metrics.Middleware)
		r.Handle("/metrics", p.metrics.Handler()).Methods("GET")
	}
	handlers.NewHealthHandler(p.store, s.logger).RegisterRoutes(r)

	api := r.PathPrefix("/api").Subrouter()
	if s.cfg.AuthEnabled {
		if p.jwt == nil {
			return errors.New("http auth is enabled but no jwt service is configured")
		}
		api.Use(handlers.New(p.jwt, s.logger).JWTMiddleware)
	}
	modules.NewHandler(p.moduleService, s.logger).RegisterRoutes(api)
	testcases.NewHandler(p.testCaseService, s.logger).RegisterRoutes(api)
	suites.NewHandler(p.suiteService, s.logger).RegisterRoutes(api)
	reports.NewHandler(p.executionService, s.logger).RegisterRoutes(api)

	s.router = r
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the port and serves in the background. A bind failure is
// returned; later serve errors are logged.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("http server is not initialised")
	}
	// Set up server
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		s.logger.Error("Failed to bind http port", "addr", s.srv.Addr, "error", err)
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	s.listener = listener

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", listener.Addr().String(), "service", s.cfg.ServiceName)
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, useful when the port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down http server", "error", err)
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
