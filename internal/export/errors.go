package export

import (
	"fmt"
	"strings"
)

// Pair identifies one (image, surface) unit of an export run.
type Pair struct {
	ImageID          string `json:"image_id"`
	OriginalFilename string `json:"original_filename"`
	Surface          string `json:"surface"`
}

func (p Pair) String() string {
	return p.OriginalFilename + "/" + p.Surface
}

// MissingMetadataError aborts an export before anything is built: one or
// more selected pairs have no generated metadata. The caller recovers by
// re-running generation for the listed pairs.
type MissingMetadataError struct {
	Pairs []Pair
}

func (e *MissingMetadataError) Error() string {
	names := make([]string, len(e.Pairs))
	for i, p := range e.Pairs {
		names[i] = p.String()
	}
	return fmt.Sprintf("metadata missing for %d pair(s): %s", len(e.Pairs), strings.Join(names, ", "))
}

// SelfTestMismatchError aborts an export after transcoding: the expected
// file count, the archived artifact count, and the manifest row count
// disagree. The archive is discarded; nothing is downloadable.
type SelfTestMismatchError struct {
	Expected int
	Archived int
	Rows     int
	Failed   []Pair // pairs whose artifacts failed transcoding, if any
}

func (e *SelfTestMismatchError) Error() string {
	msg := fmt.Sprintf("self-test failed: expected %d files, archived %d, manifest rows %d",
		e.Expected, e.Archived, e.Rows)
	if len(e.Failed) > 0 {
		names := make([]string, len(e.Failed))
		for i, p := range e.Failed {
			names[i] = p.String()
		}
		msg += "; failed artifacts: " + strings.Join(names, ", ")
	}
	return msg
}

// PackagingError wraps any failure during final serialization/compression.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string { return fmt.Sprintf("packaging failed: %v", e.Err) }
func (e *PackagingError) Unwrap() error { return e.Err }
