// Package export orchestrates a full export run: metadata validation,
// manifest construction, per-surface transcoding, a self-consistency check,
// and zip packaging. A run either reaches Finalized with provably matching
// counts (archived files == manifest rows == images x surfaces) or aborts
// with a typed error; partial archives are never produced.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/kozaktomas/photo-publisher/internal/session"
	"github.com/kozaktomas/photo-publisher/internal/surface"
	"github.com/kozaktomas/photo-publisher/internal/transcode"
)

// State names one phase of an export run.
type State string

// Export run states, in order of progression.
const (
	StateIdle        State = "idle"
	StateValidating  State = "validating_metadata"
	StateManifests   State = "building_manifests"
	StateTranscoding State = "transcoding_artifacts"
	StateSelfTesting State = "self_testing"
	StatePackaging   State = "packaging"
	StateFinalized   State = "finalized"
	StateAborted     State = "aborted"
)

// ProgressInfo is reported to the OnProgress callback between steps.
type ProgressInfo struct {
	Stage   State  `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
	Done    bool   `json:"done"`
}

// Options configures one export run.
type Options struct {
	// OnProgress, if set, receives step descriptions and a 0-100 percent.
	OnProgress func(ProgressInfo)
}

// Summary holds the counts the self-test compared.
type Summary struct {
	ImageCount    int `json:"image_count"`
	SurfaceCount  int `json:"surface_count"`
	ExpectedFiles int `json:"expected_files"`
	ArchivedFiles int `json:"archived_files"`
	RowCount      int `json:"row_count"`
}

// Result is the outcome of a finalized export run.
type Result struct {
	Archive []byte  `json:"-"`
	Summary Summary `json:"summary"`
}

// archiveEntry is one file queued for the zip.
type archiveEntry struct {
	path string
	data []byte
}

// run reports the phase progression of one export to its callback.
type run struct {
	opts Options
}

func (r *run) setState(state State, percent int, message string) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(ProgressInfo{
			Stage:   state,
			Percent: percent,
			Message: message,
			Done:    state == StateFinalized,
		})
	}
}

func (r *run) abort(err error) error {
	r.setState(StateAborted, 100, err.Error())
	return err
}

// Run executes an export over the selected image and surface sets. Work is
// strictly sequential: one decoded raster and one encoded artifact live at
// a time, and ctx is checked between pairs so a user abort takes effect at
// the next pair boundary.
func Run(ctx context.Context, sess *session.Session, imageIDs []string, surfaces []surface.Surface, opts Options) (*Result, error) {
	r := &run{opts: opts}

	if len(imageIDs) == 0 {
		return nil, r.abort(fmt.Errorf("no images selected"))
	}
	if len(surfaces) == 0 {
		return nil, r.abort(fmt.Errorf("no surfaces selected"))
	}

	images := make([]*session.SourceImage, 0, len(imageIDs))
	for _, id := range imageIDs {
		img := sess.Image(id)
		if img == nil {
			return nil, r.abort(fmt.Errorf("unknown image id %s", id))
		}
		images = append(images, img)
	}

	// Validate: every pair must have metadata with a filename and slug
	// before anything is built. All gaps are reported at once.
	r.setState(StateValidating, 2, fmt.Sprintf("Validating metadata for %d pairs", len(images)*len(surfaces)))

	recs := make(records, len(images))
	var missing []Pair
	for _, img := range images {
		recs[img.ID] = sess.MetadataFor(img.ID)
		for _, surf := range surfaces {
			md, ok := recs[img.ID][surf]
			if !ok || md.Filename == "" || md.SlugBase == "" {
				missing = append(missing, Pair{
					ImageID:          img.ID,
					OriginalFilename: img.OriginalFilename,
					Surface:          surf.Key(),
				})
			}
		}
	}
	if len(missing) > 0 {
		return nil, r.abort(&MissingMetadataError{Pairs: missing})
	}

	r.setState(StateManifests, 8, "Building manifests")
	longRows := buildLongRows(images, surfaces, recs)
	wideRows := buildWideRows(images, surfaces, recs)

	// Transcode the cross-product. Per-artifact failures are logged and
	// skipped; the self-test below turns any shortfall into a hard abort.
	expected := len(images) * len(surfaces)
	var entries []archiveEntry
	var failed []Pair
	done := 0
	for _, img := range images {
		for _, surf := range surfaces {
			if err := ctx.Err(); err != nil {
				return nil, r.abort(fmt.Errorf("export cancelled: %w", err))
			}

			md := recs[img.ID][surf]
			r.setState(StateTranscoding, 10+75*done/expected,
				fmt.Sprintf("Transcoding %s for %s", img.OriginalFilename, surf.Label()))

			artifact, err := transcode.Transcode(img.Data(), surf.Profile())
			if err != nil {
				log.Printf("export: skipping %s/%s: %v", img.OriginalFilename, surf.Key(), err)
				failed = append(failed, Pair{
					ImageID:          img.ID,
					OriginalFilename: img.OriginalFilename,
					Surface:          surf.Key(),
				})
				done++
				continue
			}

			entries = append(entries, archiveEntry{
				path: surf.Key() + "/" + md.Filename,
				data: artifact.Data,
			})
			done++
		}
	}

	// Self-test: expected, archived, and manifested counts must agree
	// before anything is packaged. Archived counts distinct paths, so two
	// entries that would land on the same zip path (and overwrite each
	// other on extraction) fail the check instead of passing by count.
	r.setState(StateSelfTesting, 88, "Running self-test")
	rowCount := len(longRows) - 1 // minus header
	paths := make(map[string]bool, len(entries))
	for _, entry := range entries {
		paths[entry.path] = true
	}
	if expected != len(paths) || expected != rowCount {
		return nil, r.abort(&SelfTestMismatchError{
			Expected: expected,
			Archived: len(paths),
			Rows:     rowCount,
			Failed:   failed,
		})
	}

	r.setState(StatePackaging, 92, "Packaging archive")
	archive, err := buildArchive(longRows, wideRows, entries)
	if err != nil {
		return nil, r.abort(&PackagingError{Err: err})
	}

	result := &Result{
		Archive: archive,
		Summary: Summary{
			ImageCount:    len(images),
			SurfaceCount:  len(surfaces),
			ExpectedFiles: expected,
			ArchivedFiles: len(entries),
			RowCount:      rowCount,
		},
	}
	r.setState(StateFinalized, 100, "Export finalized")
	return result, nil
}

// buildArchive zips both manifests at the root and every artifact under its
// surface folder.
func buildArchive(longRows, wideRows [][]string, entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	longFile, err := zw.Create(LongManifestName)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", LongManifestName, err)
	}
	if err := writeCSV(longFile, longRows); err != nil {
		return nil, fmt.Errorf("writing %s: %w", LongManifestName, err)
	}

	wideFile, err := zw.Create(WideManifestName)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", WideManifestName, err)
	}
	if err := writeCSV(wideFile, wideRows); err != nil {
		return nil, fmt.Errorf("writing %s: %w", WideManifestName, err)
	}

	for _, entry := range entries {
		f, err := zw.Create(entry.path)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", entry.path, err)
		}
		if _, err := f.Write(entry.data); err != nil {
			return nil, fmt.Errorf("writing %s: %w", entry.path, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}
