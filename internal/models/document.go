package models

import (
	"encoding/json"

	"github.com/khmerweb/cms-backend/internal/httputil"
)

// DocumentLocale is one of the two supported content languages.
type DocumentLocale string

const (
	DocumentLocaleEn DocumentLocale = "en"
	DocumentLocaleKm DocumentLocale = "km"
)

// DocumentLocales lists the supported locales in resolution order.
var DocumentLocales = []DocumentLocale{DocumentLocaleEn, DocumentLocaleKm}

// DocumentRef is a per-locale document reference attached to a post. A
// populated entry always carries a non-empty URL.
type DocumentRef struct {
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnailUrl"`
}

// PostDocuments is the localized document map of a post. Absent locales are
// omitted entirely; an all-empty map is stored as NULL, never as {}.
type PostDocuments struct {
	En *DocumentRef `json:"en,omitempty"`
	Km *DocumentRef `json:"km,omitempty"`
}

// Get returns the entry for the locale, or nil.
func (d *PostDocuments) Get(locale DocumentLocale) *DocumentRef {
	if d == nil {
		return nil
	}
	if locale == DocumentLocaleKm {
		return d.Km
	}
	return d.En
}

// Set stores the entry for the locale. A nil ref clears it.
func (d *PostDocuments) Set(locale DocumentLocale, ref *DocumentRef) {
	if locale == DocumentLocaleKm {
		d.Km = ref
		return
	}
	d.En = ref
}

// Clone deep-copies the map; cloning nil yields an empty, writable value.
func (d *PostDocuments) Clone() *PostDocuments {
	next := &PostDocuments{}
	if d == nil {
		return next
	}
	if d.En != nil && d.En.URL != "" {
		next.En = &DocumentRef{URL: d.En.URL, ThumbnailURL: d.En.ThumbnailURL}
	}
	if d.Km != nil && d.Km.URL != "" {
		next.Km = &DocumentRef{URL: d.Km.URL, ThumbnailURL: d.Km.ThumbnailURL}
	}
	return next
}

// Normalize drops locales without a URL and collapses an empty map to nil.
func (d *PostDocuments) Normalize() *PostDocuments {
	if d == nil {
		return nil
	}
	normalized := &PostDocuments{}
	if d.En != nil && d.En.URL != "" {
		normalized.En = d.En
	}
	if d.Km != nil && d.Km.URL != "" {
		normalized.Km = d.Km
	}
	if normalized.En == nil && normalized.Km == nil {
		return nil
	}
	return normalized
}

// DocumentRefPatch is the structured per-locale override supplied by a
// request. URL is required when the object is present; ThumbnailURL absent
// triggers a catalog backfill by URL.
type DocumentRefPatch struct {
	URL          *string                 `json:"url"`
	ThumbnailURL httputil.OptionalString `json:"thumbnailUrl"`
}

// OptionalDocumentRef distinguishes an absent locale sub-object from an
// explicit null (which clears the locale).
type OptionalDocumentRef struct {
	Present bool
	Value   *DocumentRefPatch
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalDocumentRef) UnmarshalJSON(data []byte) error {
	o.Present = true

	var patch *DocumentRefPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return err
	}
	o.Value = patch
	return nil
}

// DocumentsPatch carries the per-locale sub-objects of a structured
// `documents` override.
type DocumentsPatch struct {
	En OptionalDocumentRef `json:"en"`
	Km OptionalDocumentRef `json:"km"`
}

// Locale returns the patch entry for the locale.
func (p *DocumentsPatch) Locale(locale DocumentLocale) OptionalDocumentRef {
	if locale == DocumentLocaleKm {
		return p.Km
	}
	return p.En
}

// OptionalDocumentsPatch distinguishes an absent `documents` field from an
// explicit null (which clears both locales).
type OptionalDocumentsPatch struct {
	Present bool
	Value   *DocumentsPatch
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalDocumentsPatch) UnmarshalJSON(data []byte) error {
	o.Present = true

	var patch *DocumentsPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return err
	}
	o.Value = patch
	return nil
}

// DocumentFieldInput bundles the non-file document channels of a post
// create/update request: the legacy bare-URL fields and the structured
// override. Channels absent from the request leave the stored value alone.
type DocumentFieldInput struct {
	Document   httputil.OptionalString `json:"document"`
	DocumentEn httputil.OptionalString `json:"documentEn"`
	DocumentKm httputil.OptionalString `json:"documentKm"`
	Documents  OptionalDocumentsPatch  `json:"documents"`
}

// DocumentUploads bundles the uploaded document binaries of a request. The
// unlocalized Document upload acts as the En upload when DocumentEn is not
// supplied.
type DocumentUploads struct {
	Document   *UploadFile
	DocumentEn *UploadFile
	DocumentKm *UploadFile
}

// ForLocale returns the winning upload for the locale.
func (u DocumentUploads) ForLocale(locale DocumentLocale) *UploadFile {
	if locale == DocumentLocaleKm {
		return u.DocumentKm
	}
	if u.DocumentEn != nil {
		return u.DocumentEn
	}
	return u.Document
}
