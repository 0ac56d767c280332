package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/photo-publisher/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	imagesHandler := handlers.NewImagesHandler(s.session)
	surfacesHandler := handlers.NewSurfacesHandler()
	metadataHandler := handlers.NewMetadataHandler(s.config, s.session)
	exportHandler := handlers.NewExportHandler(s.session, s.jobManager)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Images
		r.Post("/images", imagesHandler.Upload)
		r.Get("/images", imagesHandler.List)
		r.Delete("/images/{id}", imagesHandler.Delete)
		r.Get("/images/{id}/metadata", imagesHandler.Metadata)

		// Surfaces
		r.Get("/surfaces", surfacesHandler.List)

		// Metadata generation
		r.Post("/metadata/generate", metadataHandler.Generate)
		r.Get("/metadata/categories", metadataHandler.Categories)

		// Export (long-running operations)
		r.Post("/export", exportHandler.Start)
		r.Get("/export/{jobId}", exportHandler.Status)
		r.Get("/export/{jobId}/events", exportHandler.Events)
		r.Get("/export/{jobId}/download", exportHandler.Download)
		r.Delete("/export/{jobId}", exportHandler.Cancel)
	})

	s.router.Get("/", s.serveLanding)
}

// serveLanding serves a placeholder page pointing at the API.
func (s *Server) serveLanding(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Photo Publisher</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Photo Publisher</h1>
        <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
