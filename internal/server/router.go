package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/creditlens/creditlens/internal/api"
	"github.com/creditlens/creditlens/internal/api/handlers"
	"github.com/creditlens/creditlens/internal/api/middleware"
)

type RouterConfig struct {
	ReportHandler *handlers.ReportHandler
	ChatHandler   *handlers.ChatHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Report uploads carry whole PDF documents.
	const maxBodyBytes int64 = 64 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Post("/", cfg.ReportHandler.Create)
		r.Get("/{jobID}", cfg.ReportHandler.Get)
		r.Get("/{jobID}/download", cfg.ReportHandler.Download)
	})

	r.Route("/chat/sessions", func(r chi.Router) {
		r.Post("/", cfg.ChatHandler.CreateSession)
		r.Get("/{sessionID}", cfg.ChatHandler.GetSession)
		r.Post("/{sessionID}/messages", cfg.ChatHandler.Ask)
		r.Delete("/{sessionID}", cfg.ChatHandler.DeleteSession)
	})

	return r
}
