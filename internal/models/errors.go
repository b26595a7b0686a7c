package models

import "errors"

// Sentinel errors for the failure classes the API distinguishes. Services
// wrap these with fmt.Errorf("...: %w", ...) so handlers can map them to
// HTTP statuses with errors.Is while keeping the descriptive message.
var (
	// ErrValidation marks a request rejected before any I/O happened.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a lookup by id, url or slug that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a uniqueness violation (folder segment, slug, url).
	ErrConflict = errors.New("already exists")

	// ErrFolderNotEmpty is returned when deleting a non-empty folder
	// without the force flag.
	ErrFolderNotEmpty = errors.New("folder is not empty")

	// ErrThumbnailerUnavailable means the PDF rasterization capability is
	// missing from the deployment. Unlike a per-file conversion failure,
	// this aborts the enclosing upload.
	ErrThumbnailerUnavailable = errors.New("pdf thumbnailer is unavailable")
)
