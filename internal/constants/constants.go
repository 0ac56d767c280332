// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Upload constants
const (
	// MaxUploadSize is the maximum total size of a multipart upload request
	MaxUploadSize = 100 << 20 // 100MB
)

// Job constants
const (
	// EventChannelBuffer is the buffer size of per-listener job event channels
	EventChannelBuffer = 100

	// CompletedJobTTLSeconds is how long finished export jobs stay
	// retrievable (and downloadable) before cleanup drops them
	CompletedJobTTLSeconds = 3600
)
