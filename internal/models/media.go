package models

import (
	"strings"
	"time"
)

// MediaType is the coarse classification of a stored asset, derived from its
// MIME type.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypePDF   MediaType = "pdf"
	MediaTypeFile  MediaType = "file"
)

// StorageDriverLocal is the only storage driver tag in use today. The column
// exists so remote backends can be added without a schema change.
const StorageDriverLocal = "local"

// DetectMediaType derives the media type from a MIME type
func DetectMediaType(mimeType string) MediaType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo
	case mimeType == "application/pdf":
		return MediaTypePDF
	default:
		return MediaTypeFile
	}
}

// Media represents one stored binary and its catalog metadata
type Media struct {
	ID            int64     `json:"id" db:"id"`
	Filename      string    `json:"filename" db:"filename"`
	OriginalName  string    `json:"originalName" db:"original_name"`
	MimeType      string    `json:"mimeType" db:"mime_type"`
	Size          int64     `json:"size" db:"size"`
	URL           string    `json:"url" db:"url"`
	ThumbnailURL  *string   `json:"thumbnailUrl" db:"thumbnail_url"`
	MediaType     MediaType `json:"mediaType" db:"media_type"`
	StorageDriver string    `json:"storageDriver" db:"storage_driver"`
	FolderID      *int64    `json:"folderId" db:"folder_id"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}

// MediaFolder is a flat, named grouping of media items, mirrored by a
// directory under the upload root.
type MediaFolder struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// MediaPage is one page of the asset listing. Folders is populated only when
// listing the root (no folder filter).
type MediaPage struct {
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	Total    int           `json:"total"`
	Items    []Media       `json:"items"`
	Folders  []MediaFolder `json:"folders,omitempty"`
}

// FolderPage is one page of a single folder's items plus the folder itself.
type FolderPage struct {
	Folder   MediaFolder `json:"folder"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
	Total    int         `json:"total"`
	Items    []Media     `json:"items"`
}

// UploadFile is an in-memory uploaded file as extracted from a multipart
// request.
type UploadFile struct {
	OriginalName string
	MimeType     string
	Data         []byte
}

// Size returns the byte length of the upload
func (f *UploadFile) Size() int64 {
	return int64(len(f.Data))
}
