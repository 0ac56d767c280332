package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/photo-publisher/internal/config"
	"github.com/kozaktomas/photo-publisher/internal/metadata"
	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

// MetadataHandler handles metadata generation endpoints.
type MetadataHandler struct {
	config  *config.Config
	session *session.Session
}

// NewMetadataHandler creates a new metadata handler.
func NewMetadataHandler(cfg *config.Config, sess *session.Session) *MetadataHandler {
	return &MetadataHandler{config: cfg, session: sess}
}

// GenerateRequest selects the pairs to generate metadata for.
type GenerateRequest struct {
	ImageIDs []string `json:"image_ids"`
	Surfaces []string `json:"surfaces"`
	Category string   `json:"category"`
	Location string   `json:"location"`
}

// Generate produces and persists metadata for every selected
// (image, surface) pair. Existing entries are overwritten.
func (h *MetadataHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if len(req.ImageIDs) == 0 {
		respondError(w, http.StatusBadRequest, "image_ids is required")
		return
	}
	if req.Category == "" {
		req.Category = h.config.Business.DefaultCategory
	}

	surfaces, err := resolveSurfaces(req.Surfaces)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	generated := 0
	flagged := 0
	for _, id := range req.ImageIDs {
		img := h.session.Image(id)
		if img == nil {
			respondError(w, http.StatusNotFound, "image not found: "+id)
			return
		}
		for _, surf := range surfaces {
			md := metadata.Generate(img.OriginalFilename, img.PhotoID, surf, h.config.Business.Name, req.Category, req.Location)
			h.session.SetMetadata(id, surf, md)
			generated++
			if !md.AltTextInRange {
				flagged++
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"generated":        generated,
		"alt_text_flagged": flagged,
	})
}

// Categories returns the known category keys for the UI dropdown.
func (h *MetadataHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"categories": metadata.Categories(),
		"default":    h.config.Business.DefaultCategory,
	})
}

// resolveSurfaces parses surface keys, defaulting to the full set.
func resolveSurfaces(keys []string) ([]surface.Surface, error) {
	if len(keys) == 0 {
		return surface.All(), nil
	}
	return surface.ParseAll(keys)
}
