package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mediasvc "github.com/MakeNowJust/mastodon/internal/services/media"
	ratesvc "github.com/MakeNowJust/mastodon/internal/services/rate"
	statussvc "github.com/MakeNowJust/mastodon/internal/services/statuses"
	"github.com/MakeNowJust/mastodon/internal/transport/http/handlers"
)

type Dependencies struct {
	StatusService *statussvc.Service
	MediaService  *mediasvc.Service
	PublishLimit  *ratesvc.Limiter
	Logger        *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	statusHandler := handlers.NewStatusHandler(deps.StatusService, deps.PublishLimit, deps.Logger)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)

	r.Get("/healthz", healthHandler.Check)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(AccountMiddleware(deps.Logger))
		api.Post("/statuses", statusHandler.Create)
		api.Get("/statuses/{id}", statusHandler.Get)
		api.Post("/media", mediaHandler.Upload)
	})
}
