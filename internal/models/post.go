package models

import (
	"encoding/json"
	"time"

	"github.com/khmerweb/cms-backend/internal/httputil"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// LocalizedText is a short per-language text value ({en?, km?}). Empty
// strings are never stored; a language is either present or omitted.
type LocalizedText struct {
	En string `json:"en,omitempty"`
	Km string `json:"km,omitempty"`
}

// IsEmpty reports whether no language is populated.
func (t LocalizedText) IsEmpty() bool {
	return t.En == "" && t.Km == ""
}

// LocalizedTextPatch is the request-side counterpart of LocalizedText with
// per-language presence tracking, so an update can touch one language
// without clearing the other.
type LocalizedTextPatch struct {
	En httputil.OptionalString `json:"en"`
	Km httputil.OptionalString `json:"km"`
}

// Post is a content item owning a localized document map and a cover image.
type Post struct {
	ID          int64           `json:"id" db:"id"`
	Title       LocalizedText   `json:"title" db:"title"`
	Description *LocalizedText  `json:"description" db:"description"`
	Slug        *string         `json:"slug" db:"slug"`
	Content     json.RawMessage `json:"content" db:"content"`
	Status      PostStatus      `json:"status" db:"status"`
	IsFeatured  bool            `json:"isFeatured" db:"is_featured"`
	CoverImage  *string         `json:"coverImage" db:"cover_image"`
	Documents   *PostDocuments  `json:"documents" db:"documents"`
	Link        *string         `json:"link" db:"link"`
	CategoryID  *int64          `json:"categoryId" db:"category_id"`
	PublishedAt *time.Time      `json:"publishedAt" db:"published_at"`
	ExpiredAt   *time.Time      `json:"expiredAt" db:"expired_at"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// PostPage is one page of the post listing.
type PostPage struct {
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Total    int    `json:"total"`
	Items    []Post `json:"items"`
}

// CreatePostInput is the payload for creating a post. Document channels ride
// along in DocumentFieldInput; binary channels arrive separately as
// PostUploads.
type CreatePostInput struct {
	Title       LocalizedTextPatch      `json:"title"`
	Description *LocalizedTextPatch     `json:"description"`
	Content     httputil.OptionalJSON   `json:"content"`
	Status      *PostStatus             `json:"status"`
	IsPublished *bool                   `json:"isPublished"`
	IsFeatured  *bool                   `json:"isFeatured"`
	PublishedAt httputil.OptionalString `json:"publishedAt"`
	ExpiredAt   httputil.OptionalString `json:"expiredAt"`
	CategoryID  httputil.OptionalInt64  `json:"categoryId"`
	CoverImage  httputil.OptionalString `json:"coverImage"`
	Link        httputil.OptionalString `json:"link"`
	DocumentFieldInput
}

// UpdatePostInput is the payload for updating a post. Every field is
// merge-patch: absent fields leave the stored value untouched.
type UpdatePostInput struct {
	Title       *LocalizedTextPatch     `json:"title"`
	Description *LocalizedTextPatch     `json:"description"`
	Content     httputil.OptionalJSON   `json:"content"`
	Status      *PostStatus             `json:"status"`
	IsPublished *bool                   `json:"isPublished"`
	IsFeatured  *bool                   `json:"isFeatured"`
	PublishedAt httputil.OptionalString `json:"publishedAt"`
	ExpiredAt   httputil.OptionalString `json:"expiredAt"`
	CategoryID  httputil.OptionalInt64  `json:"categoryId"`
	CoverImage  httputil.OptionalString `json:"coverImage"`
	Link        httputil.OptionalString `json:"link"`
	DocumentFieldInput
}

// PostUploads bundles the binary channels of a post request.
type PostUploads struct {
	CoverImage *UploadFile
	DocumentUploads
}
