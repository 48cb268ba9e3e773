// Package api implements the upload service HTTP surface: video uploads
// for recorded takes, per-test listings, health and service info.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/checkcells/checkcells/internal/config"
	"github.com/checkcells/checkcells/internal/storage"
	"github.com/checkcells/checkcells/internal/types"
)

// BlobStore persists uploaded recordings. Satisfied by both the S3 and
// the local-disk store.
type BlobStore interface {
	Put(ctx context.Context, sampleID string, takeIndex int, data []byte, mimeType, ext string, metadata map[string]string) (storage.StoredObject, error)
	List(ctx context.Context, sampleID string) ([]storage.StoredObject, error)
}

// Server is the upload service.
type Server struct {
	cfg      config.AppConfig
	store    BlobStore
	location types.StorageLocation
	diskRoot string // non-empty when serving local uploads
	version  string
	router   chi.Router
}

// Option configures the server.
type Option func(*Server)

// WithVersion sets the version reported by the service info endpoint.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New wires the upload service around the given store. location states
// which backend the store writes to; diskRoot enables static serving of
// local uploads and may be empty for remote storage.
func New(cfg config.AppConfig, store BlobStore, location types.StorageLocation, diskRoot string, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		location: location,
		diskRoot: diskRoot,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestID)
	r.Use(corsHandler(s.cfg.AllowedOrigins))
	r.Use(requestLogger)

	r.Route("/api/upload", func(r chi.Router) {
		if s.cfg.RateLimitEnabled {
			r.Use(httprate.Limit(
				s.cfg.RateLimitRPM,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
					writeError(w, http.StatusTooManyRequests, "Too many requests", "Please try again later")
				}),
			))
		}
		r.Post("/video", s.handleUploadVideo)
		r.Post("/videos", s.handleUploadVideos)
		r.Get("/health", s.handleHealth)
		r.Get("/videos/{testId}", s.handleListVideos)
	})

	r.Get("/", s.handleServiceInfo)

	if s.diskRoot != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.diskRoot)))
		r.Get("/uploads/*", func(w http.ResponseWriter, r *http.Request) {
			fs.ServeHTTP(w, r)
		})
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w)
	})

	return r
}

func (s *Server) handleServiceInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "CheckCells Upload Server",
		"version": s.version,
		"endpoints": map[string]string{
			"health":         "/api/upload/health",
			"uploadSingle":   "POST /api/upload/video",
			"uploadMultiple": "POST /api/upload/videos",
		},
		"s3Configured": s.location == types.StorageRemote,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Upload service is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
