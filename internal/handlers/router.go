package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

type RouterOptions struct {
	Logger      *slog.Logger
	CORSOrigins []string
	// Static is mounted at "/" when set.
	Static http.Handler
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:         slog.LevelInfo,
			Schema:        httplog.SchemaECS,
			RecoverPanics: true,
			Skip: func(req *http.Request, respStatus int) bool {
				return req.URL.Path == "/ping" && respStatus == http.StatusOK
			},
		}))
	} else {
		r.Use(middleware.Recoverer)
	}

	r.Use(cors.Handler(corsOptions(opts.CORSOrigins)))

	h.RegisterRoutes(r)

	if opts.Static != nil {
		r.Handle("/*", opts.Static)
	}
	return r
}

// corsOptions allows credentials. Browsers refuse "*" on credentialed
// requests, so a wildcard reflects the caller's origin instead.
func corsOptions(origins []string) cors.Options {
	o := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		o.AllowOriginFunc = func(_ *http.Request, _ string) bool { return true }
		return o
	}
	o.AllowedOrigins = origins
	return o
}
