package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aeonisk/arbiter/internal/api"
	"github.com/aeonisk/arbiter/internal/api/handlers"
	"github.com/aeonisk/arbiter/internal/api/middleware"
)

type RouterConfig struct {
	AuthToken        string
	ChatHandler      *handlers.ChatHandler
	SearchHandler    *handlers.SearchHandler
	ContentHandler   *handlers.ContentHandler
	CharacterHandler *handlers.CharacterHandler
	RollHandler      *handlers.RollHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.AuthToken))

		r.Post("/chat", cfg.ChatHandler.Chat)
		r.Post("/search", cfg.SearchHandler.Search)

		r.Route("/content", func(r chi.Router) {
			r.Post("/reload", cfg.ContentHandler.Reload)
			r.Get("/stats", cfg.ContentHandler.Stats)
		})

		r.Route("/characters", func(r chi.Router) {
			r.Post("/", cfg.CharacterHandler.Create)
			r.Get("/", cfg.CharacterHandler.List)
			r.Get("/{id}", cfg.CharacterHandler.Get)
			r.Patch("/{id}", cfg.CharacterHandler.Update)
			r.Delete("/{id}", cfg.CharacterHandler.Delete)
		})

		r.Route("/roll", func(r chi.Router) {
			r.Post("/check", cfg.RollHandler.SkillCheck)
			r.Post("/ritual", cfg.RollHandler.Ritual)
			r.Post("/attack", cfg.RollHandler.Attack)
		})
	})

	return r
}
