package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-publisher/internal/constants"
	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

// ImagesHandler handles image ingestion and listing endpoints.
type ImagesHandler struct {
	session *session.Session
}

// NewImagesHandler creates a new images handler.
func NewImagesHandler(sess *session.Session) *ImagesHandler {
	return &ImagesHandler{session: sess}
}

// Upload handles multipart image uploads. Each file must decode as an
// image; undecodable files fail the whole request so the UI never shows a
// half-ingested batch.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var added []*session.SourceImage
	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to open file: %s", fileHeader.Filename))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read file: %s", fileHeader.Filename))
			return
		}

		img, err := h.session.AddImage(fileHeader.Filename, data)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("not a supported image: %s", fileHeader.Filename))
			return
		}
		added = append(added, img)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"uploaded": len(added),
		"images":   added,
	})
}

// List returns all images in the session, in ingestion order.
func (h *ImagesHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"images": h.session.Images(),
	})
}

// Delete removes an image (and its metadata) from the session.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing image ID")
		return
	}

	if !h.session.RemoveImage(id) {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Metadata returns the per-surface metadata table of one image. Absent
// surfaces mean "not yet generated".
func (h *ImagesHandler) Metadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.session.Image(id) == nil {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}

	table := h.session.MetadataFor(id)
	out := make(map[string]any, len(table))
	for surf, md := range table {
		out[surf.Key()] = md
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"image_id": id,
		"metadata": out,
	})
}

// SurfacesHandler serves the static surface profile table.
type SurfacesHandler struct{}

// NewSurfacesHandler creates a new surfaces handler.
func NewSurfacesHandler() *SurfacesHandler {
	return &SurfacesHandler{}
}

// surfaceInfo is the wire form of one surface profile.
type surfaceInfo struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	MaxDimension int     `json:"max_dimension"`
	Quality      float64 `json:"quality"`
}

// List returns every surface with its profile.
func (h *SurfacesHandler) List(w http.ResponseWriter, r *http.Request) {
	var out []surfaceInfo
	for _, s := range surface.All() {
		p := s.Profile()
		out = append(out, surfaceInfo{
			Key:          s.Key(),
			Label:        p.Label,
			MaxDimension: p.MaxDimension,
			Quality:      p.Quality,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"surfaces": out})
}
