// Package session holds the in-memory working set for one publishing
// session: the ingested source images and the per-image, per-surface
// metadata table. There is no persistence; closing the session loses it.
//
// The session is an explicit object passed to whoever needs it, never a
// package-level singleton. Reads and writes are mutex-guarded because the
// web layer serves requests concurrently, but an export run only reads.
package session

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sync"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"

	"github.com/kozaktomas/photo-publisher/internal/metadata"
	"github.com/kozaktomas/photo-publisher/internal/slugify"
	"github.com/kozaktomas/photo-publisher/internal/surface"
)

// SourceImage is one ingested photograph. Immutable after creation.
type SourceImage struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	// PhotoID is the slug component for this image, unique within the
	// session: images with colliding filenames get an ordinal suffix so
	// their slugs and published filenames stay distinct.
	PhotoID  string `json:"photo_id"`
	ByteSize int    `json:"byte_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	data []byte
}

// Data returns the raw encoded bytes of the source image.
func (img *SourceImage) Data() []byte {
	return img.data
}

// Session is the mutable state of one publishing session.
type Session struct {
	mu     sync.RWMutex
	images map[string]*SourceImage
	order  []string
	// metadata is sparse: an absent entry means "not yet generated".
	metadata map[string]map[surface.Surface]metadata.SurfaceMetadata
}

// New creates an empty session.
func New() *Session {
	return &Session{
		images:   make(map[string]*SourceImage),
		metadata: make(map[string]map[surface.Surface]metadata.SurfaceMetadata),
	}
}

// AddImage ingests an image. The bytes must decode as a supported format;
// dimensions are recorded from the decoded header. The assigned photo id is
// derived from the filename and suffixed if another session image already
// claimed it.
func (s *Session) AddImage(originalFilename string, data []byte) (*SourceImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", originalFilename, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := slugify.PhotoID(originalFilename)
	photoID := base
	for n := 2; s.photoIDTakenLocked(photoID); n++ {
		photoID = fmt.Sprintf("%s-%d", base, n)
	}

	img := &SourceImage{
		ID:               uuid.New().String(),
		OriginalFilename: originalFilename,
		PhotoID:          photoID,
		ByteSize:         len(data),
		Width:            cfg.Width,
		Height:           cfg.Height,
		data:             data,
	}

	s.images[img.ID] = img
	s.order = append(s.order, img.ID)

	return img, nil
}

// photoIDTakenLocked reports whether a photo id is already claimed by a
// session image. Caller must hold s.mu.
func (s *Session) photoIDTakenLocked(photoID string) bool {
	for _, img := range s.images {
		if img.PhotoID == photoID {
			return true
		}
	}
	return false
}

// Image returns the image with the given id, or nil.
func (s *Session) Image(id string) *SourceImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images[id]
}

// Images returns all images in ingestion order.
func (s *Session) Images() []*SourceImage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SourceImage, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.images[id])
	}
	return out
}

// RemoveImage drops an image and its metadata, releasing the pixel data.
func (s *Session) RemoveImage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.images[id]
	if !ok {
		return false
	}
	img.data = nil
	delete(s.images, id)
	delete(s.metadata, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// SetMetadata stores (or overwrites) the metadata record for one
// (image, surface) pair.
func (s *Session) SetMetadata(imageID string, surf surface.Surface, md metadata.SurfaceMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, ok := s.metadata[imageID]
	if !ok {
		table = make(map[surface.Surface]metadata.SurfaceMetadata)
		s.metadata[imageID] = table
	}
	table[surf] = md
}

// Metadata returns the record for one (image, surface) pair, if generated.
func (s *Session) Metadata(imageID string, surf surface.Surface) (metadata.SurfaceMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md, ok := s.metadata[imageID][surf]
	return md, ok
}

// MetadataFor returns a copy of an image's full per-surface table.
func (s *Session) MetadataFor(imageID string) map[surface.Surface]metadata.SurfaceMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[surface.Surface]metadata.SurfaceMetadata, len(s.metadata[imageID]))
	for surf, md := range s.metadata[imageID] {
		out[surf] = md
	}
	return out
}

// Count returns the number of images in the session.
func (s *Session) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
