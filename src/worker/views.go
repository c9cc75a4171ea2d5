package worker

import (
	"context"
	"net/http"
	"time"

	"server/src/config"
	"server/src/scheduler"
	"server/src/utils"
	handlers "server/src/worker/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router  *chi.Mux
	Handler handlers.Handler

	refreshTask *scheduler.ScheduledTask
}

func NewServer(cfg *config.Config) (*Server, error) {
	handler, err := handlers.NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: *handler,
	}
	server.InitRoutes()

	cronSpec := cfg.Service.RefreshCron
	if cronSpec == "" {
		cronSpec = "0 6 * * *"
	}
	logger := utils.NewLogger(logrus.InfoLevel, false, "")
	task, err := scheduler.NewScheduledTask(cronSpec, func() {
		ctx := utils.WithLogger(context.Background(), logger)
		if _, err := handler.Refresh.RefreshAll(ctx); err != nil {
			logger.Errorf("scheduled connection sweep failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	server.refreshTask = task

	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Get("/alive", handlers.Healthcheck)
	s.Router.Route("/api/refresh", func(r chi.Router) {
		r.Post("/all", s.Handler.RefreshAllConnections)
	})
}

func (s *Server) Stop() {
	if s.refreshTask != nil {
		s.refreshTask.Cancel()
	}
}

func NewHTTPServer(server *Server, port string) *http.Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Handler:      server,
	}
	return httpServer
}
