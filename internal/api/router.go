package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/loaderd/internal/snapshot"
	"github.com/starford/loaderd/internal/store"
	"github.com/starford/loaderd/internal/tracker"
)

// Deps carries the collaborators the API routes need.
type Deps struct {
	DB         *store.DB
	Snapshots  *snapshot.Store
	Runner     *tracker.Runner
	UploadsDir string
	MaxUpload  int64
	UploadTTL  time.Duration
	Logger     *slog.Logger
}

// NewRouter mounts every API route. Public routes (registration, file
// sharing, public topic browsing) sit outside the auth group; topic
// management requires a Bearer API key.
func NewRouter(d Deps) chi.Router {
	auth := &authHandler{db: d.DB, logger: d.Logger}
	uploads := &uploadHandler{
		db: d.DB, dir: d.UploadsDir, maxBytes: d.MaxUpload,
		ttl: d.UploadTTL, logger: d.Logger,
	}
	md := &mdHandler{db: d.DB, logger: d.Logger}
	topics := &topicHandler{db: d.DB, runner: d.Runner, logger: d.Logger}
	snaps := &snapshotHandler{db: d.DB, snaps: d.Snapshots, logger: d.Logger}
	public := &publicHandler{db: d.DB, snaps: d.Snapshots, logger: d.Logger}

	r := chi.NewRouter()

	// Registration and key verification.
	r.Post("/auth/register", auth.register)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(d.DB))
		r.Get("/auth/verify", auth.verify)
	})

	// File backups: anonymous, code-gated.
	r.Post("/upload", uploads.upload)
	r.Get("/download/{code}", uploads.download)

	// Markdown documents: anonymous, permanent.
	r.Post("/md", md.create)
	r.Get("/md", md.list)
	r.Get("/md/{code}", md.get)
	r.Get("/md/{code}/raw", md.raw)

	// Public topic discovery.
	r.Get("/tracker", public.list)
	r.Get("/tracker/{id}", public.get)
	r.Get("/tracker/{id}/latest", public.latest)

	// Topic management, owner-scoped.
	r.Route("/api/tracker", func(r chi.Router) {
		r.Use(RequireAuth(d.DB))
		r.Post("/", topics.create)
		r.Get("/", topics.list)
		r.Get("/{id}", topics.get)
		r.Patch("/{id}", topics.update)
		r.Delete("/{id}", topics.delete)
		r.Post("/{id}/run", topics.run)
		r.Get("/{id}/snapshots", snaps.list)
		r.Get("/{id}/snapshots/{timestamp}", snaps.get)
	})

	return r
}
