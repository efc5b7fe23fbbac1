package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"cost-recon/internal/config"
	"cost-recon/internal/middleware"
	recHnd "cost-recon/internal/reconcile/handler"
	"cost-recon/server/http/handlers"
)

// NewRouter wires the batch endpoints. Only the upload group carries the body cap.
func NewRouter(cfg config.Config, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(
		middleware.Recover(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.CORS(cfg.AllowOrigins),
	)
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) << 20))
		r.Post("/compare", recHnd.Compare(cfg, logger))
		r.Post("/cost-upload", recHnd.CostUpload(cfg, logger))
		r.Post("/variance", recHnd.Variance(cfg, logger))
	})
	return r
}
