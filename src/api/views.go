package api

import (
	"net/http"
	"time"

	handlers "server/src/api/handlers"
	"server/src/config"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	Router  *chi.Mux
	Handler handlers.Handler
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
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Get("/alive", handlers.Healthcheck)

	s.Router.Route("/api/snaptrade", func(r chi.Router) {
		r.Get("/status", s.Handler.GetAPIStatus)
		r.Post("/register", s.Handler.RegisterUser)
		r.Delete("/register", s.Handler.DeregisterUser)
		r.Post("/link", s.Handler.CreateLink)
		r.Get("/accounts", s.Handler.GetAccounts)
		r.Get("/holdings", s.Handler.GetHoldings)
		r.Post("/sync", s.Handler.SyncAccounts)
		r.Post("/callback", s.Handler.HandleCallback)
	})

	s.Router.Route("/api/assets", func(r chi.Router) {
		r.Get("/", s.Handler.GetAssets)
		r.Get("/summary", s.Handler.GetAssetSummary)
		r.Get("/report", s.Handler.GetReport)
		r.Get("/export", s.Handler.ExportAssets)
	})

	s.Router.Get("/api/categories", s.Handler.GetCategories)
}

func NewHTTPServer(server *Server, port string) *http.Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		Handler:      server,
	}
	return httpServer
}
