package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/reconciler/internal/http/discrepancy"
	"github.com/MrJamesThe3rd/reconciler/internal/http/ingest"
	"github.com/MrJamesThe3rd/reconciler/internal/http/match"
	auth "github.com/MrJamesThe3rd/reconciler/internal/http/middleware"
	"github.com/MrJamesThe3rd/reconciler/internal/http/reconcile"
)

type Options struct {
	// AllowedOrigins enables CORS when non-empty.
	AllowedOrigins []string
	// JWTSecret enables bearer-token auth on the API when non-empty.
	JWTSecret string
}

func New(
	opts Options,
	reconcileV1 *reconcile.Handler,
	discrepanciesV1 *discrepancy.Handler,
	matchesV1 *match.Handler,
	ingestV1 *ingest.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v1", func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(auth.Auth([]byte(opts.JWTSecret)))
		}

		r.Route("/reconcile", reconcileV1.Routes)
		r.Route("/discrepancies", discrepanciesV1.Routes)
		r.Route("/matches", matchesV1.Routes)

		r.Route("/ingest", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json", "multipart/form-data"))
			ingestV1.Routes(r)
		})
	})

	return router
}
