package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beacon/internal/api/handlers/http/admin"
	"beacon/internal/api/handlers/http/public"
	"beacon/internal/api/handlers/http/system"
	"beacon/internal/api/ws"
	"beacon/internal/config"
	"beacon/internal/middleware"
	"beacon/internal/service"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
	wsh    *ws.Handler
}

func NewServer(cfg *config.Config, logger *slog.Logger, svc *service.Service, wsHandler *ws.Handler) *Server {
	publicHandler := public.NewHandler(logger, svc.IngestService, svc.IncidentService, svc.ChatService)
	adminHandler := admin.NewHandler(logger, svc.IncidentService, svc.StatsService)
	systemHandler := system.NewHandler(logger)

	r := InitRouter(cfg, publicHandler, adminHandler, systemHandler, wsHandler, logger)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
		wsh:    wsHandler,
	}
}

func InitRouter(cfg *config.Config, publicHandler *public.Handler, adminHandler *admin.Handler, systemHandler *system.Handler, wsHandler *ws.Handler, logger *slog.Logger) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/incidents", func(ir chi.Router) {
			ir.With(middleware.Limit(10, 20, 5*time.Minute, logger)).Post("/", publicHandler.IncidentReport)
			ir.Get("/", publicHandler.IncidentList)
			ir.Get("/{id}", publicHandler.IncidentGet)
		})

		api.Route("/chat", func(cr chi.Router) {
			cr.With(middleware.Limit(10, 20, 5*time.Minute, logger)).Post("/messages", publicHandler.ChatSend)
			cr.Get("/messages", publicHandler.ChatRecent)
		})

		api.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.APIKeyMiddleware(cfg.APIKey))
			ar.Use(middleware.Limit(2, 5, 10*time.Minute, logger))

			ar.Patch("/incidents/{id}/status", adminHandler.IncidentStatusUpdate)
			ar.Get("/stats", adminHandler.AdminStats)
		})

		api.Handle("/ws", wsHandler)
		api.Get("/health", systemHandler.SystemHealth)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		// Tell live subscribers to reconnect before the listener goes away.
		s.wsh.DrainAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
