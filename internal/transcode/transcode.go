// Package transcode loads source images and re-encodes them per surface
// profile: aspect-preserving downscale to the profile's max dimension
// (never upscaling) and JPEG output at the profile's quality factor.
package transcode

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/kozaktomas/photo-publisher/internal/surface"
)

// Artifact is the encoded output for one (image, surface) pair. It lives
// only long enough to be written into the export archive.
type Artifact struct {
	Data     []byte
	Width    int
	Height   int
	ByteSize int
}

// LoadError reports a source decode failure.
type LoadError struct{ Err error }

func (e *LoadError) Error() string { return fmt.Sprintf("failed to decode image: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// RenderError reports a failure to produce a valid raster target.
type RenderError struct{ Err error }

func (e *RenderError) Error() string { return fmt.Sprintf("failed to render image: %v", e.Err) }
func (e *RenderError) Unwrap() error { return e.Err }

// EncodeError reports a JPEG encode failure.
type EncodeError struct{ Err error }

func (e *EncodeError) Error() string { return fmt.Sprintf("failed to encode image: %v", e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }

// TargetSize computes the output dimensions for a source of the given size
// under a max-dimension cap. If the longest edge already fits, dimensions
// are unchanged. Otherwise both are scaled by maxDim/longest and rounded to
// the nearest integer independently, so the rendered aspect ratio can drift
// by at most one pixel per dimension.
func TargetSize(width, height, maxDim int) (int, int) {
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= maxDim {
		return width, height
	}

	scale := float64(maxDim) / float64(longest)
	newW := int(math.Round(float64(width) * scale))
	newH := int(math.Round(float64(height) * scale))
	return newW, newH
}

// Transcode decodes data, resizes it per the surface profile, and re-encodes
// it as JPEG at the profile's quality factor. Failures are per-artifact:
// callers skip the artifact and continue the batch.
func Transcode(data []byte, profile surface.Profile) (*Artifact, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	newW, newH := TargetSize(width, height, profile.MaxDimension)
	if newW <= 0 || newH <= 0 {
		return nil, &RenderError{Err: fmt.Errorf("computed %dx%d target for %dx%d source", newW, newH, width, height)}
	}

	if newW != width || newH != height {
		resized := image.NewRGBA(image.Rect(0, 0, newW, newH))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	quality := int(math.Round(profile.Quality * 100))
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &EncodeError{Err: err}
	}

	return &Artifact{
		Data:     buf.Bytes(),
		Width:    newW,
		Height:   newH,
		ByteSize: buf.Len(),
	}, nil
}
