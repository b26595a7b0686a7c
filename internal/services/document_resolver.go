package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/models"
)

// AssetCatalog is the slice of the media service the resolver depends on:
// persisting uploaded binaries and looking assets up by URL for thumbnail
// backfill.
type AssetCatalog interface {
	SaveFile(ctx context.Context, file *models.UploadFile, folder *models.MediaFolder) (*models.Media, error)
	FindByURL(ctx context.Context, url string) (*models.Media, error)
}

// documentOpinion is one channel's verdict for one locale. set=false means
// the channel has no opinion and the previous verdict stands; set=true with a
// nil ref clears the locale.
type documentOpinion struct {
	set bool
	ref *models.DocumentRef
}

// documentChannel resolves one input channel for one locale.
type documentChannel func(ctx context.Context, locale models.DocumentLocale) (documentOpinion, error)

// DocumentResolver merges the competing document input channels of a post
// request into the canonical per-locale document map.
type DocumentResolver struct {
	assets AssetCatalog
	logger *zap.Logger
}

// NewDocumentResolver creates a new document resolver
func NewDocumentResolver(assets AssetCatalog, logger *zap.Logger) *DocumentResolver {
	return &DocumentResolver{
		assets: assets,
		logger: logger,
	}
}

// Resolve computes the next document map from the stored one and the request
// channels. Channels are applied per locale in fixed priority order (legacy
// bare-URL fields, then the structured override, then uploaded binaries) with
// the last opinionated channel winning; locales no channel mentions keep
// their stored value. Uploads always win so a multipart request carrying both
// a stale URL field and a fresh file never discards the file.
func (r *DocumentResolver) Resolve(ctx context.Context, current *models.PostDocuments, fields models.DocumentFieldInput, uploads models.DocumentUploads) (*models.PostDocuments, error) {
	channels := []documentChannel{
		r.legacyChannel(fields),
		r.structuredChannel(fields),
		r.uploadChannel(uploads),
	}

	result := current.Clone()
	for _, locale := range models.DocumentLocales {
		for _, channel := range channels {
			opinion, err := channel(ctx, locale)
			if err != nil {
				return nil, err
			}
			if opinion.set {
				result.Set(locale, opinion.ref)
			}
		}
	}

	return result.Normalize(), nil
}

// legacyChannel maps the flat document/documentEn/documentKm URL fields.
// documentEn wins for en over the unlocalized document field; documentKm only
// ever affects km. An explicit empty string or null clears the locale.
func (r *DocumentResolver) legacyChannel(fields models.DocumentFieldInput) documentChannel {
	return func(ctx context.Context, locale models.DocumentLocale) (documentOpinion, error) {
		field := fields.DocumentKm
		if locale == models.DocumentLocaleEn {
			field = fields.DocumentEn
			if !field.Present {
				field = fields.Document
			}
		}

		if !field.Present {
			return documentOpinion{}, nil
		}
		if field.Value == nil || strings.TrimSpace(*field.Value) == "" {
			return documentOpinion{set: true}, nil
		}

		docURL := strings.TrimSpace(*field.Value)
		return documentOpinion{
			set: true,
			ref: &models.DocumentRef{
				URL:          docURL,
				ThumbnailURL: r.backfillThumbnail(ctx, docURL),
			},
		}, nil
	}
}

// structuredChannel maps the documents:{en?,km?} override. documents:null
// clears both locales; a null locale sub-object clears that locale; a
// sub-object without a thumbnail gets one backfilled from the catalog.
func (r *DocumentResolver) structuredChannel(fields models.DocumentFieldInput) documentChannel {
	return func(ctx context.Context, locale models.DocumentLocale) (documentOpinion, error) {
		if !fields.Documents.Present {
			return documentOpinion{}, nil
		}
		if fields.Documents.Value == nil {
			return documentOpinion{set: true}, nil
		}

		entry := fields.Documents.Value.Locale(locale)
		if !entry.Present {
			return documentOpinion{}, nil
		}
		if entry.Value == nil {
			return documentOpinion{set: true}, nil
		}

		if entry.Value.URL == nil || strings.TrimSpace(*entry.Value.URL) == "" {
			return documentOpinion{set: true}, nil
		}
		docURL := strings.TrimSpace(*entry.Value.URL)

		var thumbnail *string
		if entry.Value.ThumbnailURL.Present {
			if entry.Value.ThumbnailURL.Value != nil {
				if trimmed := strings.TrimSpace(*entry.Value.ThumbnailURL.Value); trimmed != "" {
					thumbnail = &trimmed
				}
			}
		} else {
			thumbnail = r.backfillThumbnail(ctx, docURL)
		}

		return documentOpinion{
			set: true,
			ref: &models.DocumentRef{
				URL:          docURL,
				ThumbnailURL: thumbnail,
			},
		}, nil
	}
}

// uploadChannel saves the locale's uploaded binary through the asset catalog.
func (r *DocumentResolver) uploadChannel(uploads models.DocumentUploads) documentChannel {
	return func(ctx context.Context, locale models.DocumentLocale) (documentOpinion, error) {
		file := uploads.ForLocale(locale)
		if file == nil {
			return documentOpinion{}, nil
		}

		media, err := r.assets.SaveFile(ctx, file, nil)
		if err != nil {
			return documentOpinion{}, fmt.Errorf("failed to save %s document upload: %w", locale, err)
		}

		return documentOpinion{
			set: true,
			ref: &models.DocumentRef{
				URL:          media.URL,
				ThumbnailURL: media.ThumbnailURL,
			},
		}, nil
	}
}

// backfillThumbnail looks the URL up in the asset catalog. Unknown URLs and
// lookup failures both yield no thumbnail; backfill is best effort.
func (r *DocumentResolver) backfillThumbnail(ctx context.Context, docURL string) *string {
	media, err := r.assets.FindByURL(ctx, docURL)
	if err != nil {
		r.logger.Warn("thumbnail backfill lookup failed",
			zap.String("url", docURL),
			zap.Error(err),
		)
		return nil
	}
	if media == nil {
		return nil
	}
	return media.ThumbnailURL
}
