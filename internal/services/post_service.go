package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/httputil"
	"github.com/khmerweb/cms-backend/internal/models"
)

// postDateLayouts are the accepted formats for publishedAt/expiredAt fields.
var postDateLayouts = []string{time.RFC3339, "2006-01-02"}

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	ListPage(ctx context.Context, isFeatured *bool, limit, offset int) ([]models.Post, int, error)
	Update(ctx context.Context, post *models.Post) error
	DeleteByID(ctx context.Context, id int64) error
}

// DocumentMerger resolves the document channels of a post request
type DocumentMerger interface {
	Resolve(ctx context.Context, current *models.PostDocuments, fields models.DocumentFieldInput, uploads models.DocumentUploads) (*models.PostDocuments, error)
}

// PostService handles business logic for posts
type PostService struct {
	postRepo     PostRepository
	categoryRepo CategoryRepository
	storage      FileStorage
	resolver     DocumentMerger
	logger       *zap.Logger
	now          nowFunc
}

// NewPostService creates a new post service
func NewPostService(postRepo PostRepository, categoryRepo CategoryRepository, fileStorage FileStorage, resolver DocumentMerger, logger *zap.Logger) *PostService {
	return &PostService{
		postRepo:     postRepo,
		categoryRepo: categoryRepo,
		storage:      fileStorage,
		resolver:     resolver,
		logger:       logger,
		now:          defaultNow,
	}
}

// Create creates a post from the request payload and its uploaded binaries
func (s *PostService) Create(ctx context.Context, input *models.CreatePostInput, uploads models.PostUploads) (*models.Post, error) {
	title := applyLocalizedPatch(models.LocalizedText{}, input.Title)
	if title.IsEmpty() {
		return nil, fmt.Errorf("title requires at least one language: %w", models.ErrValidation)
	}

	postSlug, err := s.uniqueSlug(ctx, title, 0)
	if err != nil {
		return nil, err
	}

	status, err := resolvePostStatus(models.PostStatusDraft, input.Status, input.IsPublished)
	if err != nil {
		return nil, err
	}

	publishedAt, err := parseDateField(input.PublishedAt, nil, "publishedAt")
	if err != nil {
		return nil, err
	}
	expiredAt, err := parseDateField(input.ExpiredAt, nil, "expiredAt")
	if err != nil {
		return nil, err
	}
	if status == models.PostStatusPublished && publishedAt == nil {
		now := s.now()
		publishedAt = &now
	}
	if err := validateDateRange(publishedAt, expiredAt); err != nil {
		return nil, err
	}

	categoryID, err := s.resolveCategoryID(ctx, nil, input.CategoryID)
	if err != nil {
		return nil, err
	}

	coverImage, coverUploaded, err := s.resolveCoverImage(nil, input.CoverImage, uploads.CoverImage)
	if err != nil {
		return nil, err
	}

	documents, err := s.resolver.Resolve(ctx, nil, input.DocumentFieldInput, uploads.DocumentUploads)
	if err != nil {
		s.cleanupUploadedCover(coverUploaded, coverImage)
		return nil, err
	}

	now := s.now()
	post := &models.Post{
		Title:       title,
		Description: applyLocalizedPatchPtr(nil, input.Description),
		Slug:        postSlug,
		Status:      status,
		CoverImage:  coverImage,
		Documents:   documents,
		CategoryID:  categoryID,
		PublishedAt: publishedAt,
		ExpiredAt:   expiredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.Content.Present {
		post.Content = input.Content.Value
	}
	if input.IsFeatured != nil {
		post.IsFeatured = *input.IsFeatured
	}
	post.Link = applyOptionalString(input.Link, nil)

	id, err := s.postRepo.Create(ctx, post)
	if err != nil {
		s.cleanupUploadedCover(coverUploaded, coverImage)
		return nil, err
	}
	post.ID = id

	return post, nil
}

// Update merge-patches a post. Fields absent from the request leave the
// stored value untouched; the document channels run through the resolver
// against the stored map.
func (s *PostService) Update(ctx context.Context, id int64, input *models.UpdatePostInput, uploads models.PostUploads) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := applyLocalizedPatch(post.Title, *input.Title)
		if title.IsEmpty() {
			return nil, fmt.Errorf("title requires at least one language: %w", models.ErrValidation)
		}
		if title != post.Title {
			post.Slug, err = s.uniqueSlug(ctx, title, id)
			if err != nil {
				return nil, err
			}
		}
		post.Title = title
	}
	post.Description = applyLocalizedPatchPtr(post.Description, input.Description)

	post.Status, err = resolvePostStatus(post.Status, input.Status, input.IsPublished)
	if err != nil {
		return nil, err
	}

	post.PublishedAt, err = parseDateField(input.PublishedAt, post.PublishedAt, "publishedAt")
	if err != nil {
		return nil, err
	}
	post.ExpiredAt, err = parseDateField(input.ExpiredAt, post.ExpiredAt, "expiredAt")
	if err != nil {
		return nil, err
	}
	if post.Status == models.PostStatusPublished && post.PublishedAt == nil {
		now := s.now()
		post.PublishedAt = &now
	}
	if err := validateDateRange(post.PublishedAt, post.ExpiredAt); err != nil {
		return nil, err
	}

	post.CategoryID, err = s.resolveCategoryID(ctx, post.CategoryID, input.CategoryID)
	if err != nil {
		return nil, err
	}

	if input.Content.Present {
		post.Content = input.Content.Value
	}
	if input.IsFeatured != nil {
		post.IsFeatured = *input.IsFeatured
	}
	post.Link = applyOptionalString(input.Link, post.Link)

	oldCover := post.CoverImage
	newCover, coverUploaded, err := s.resolveCoverImage(post.CoverImage, input.CoverImage, uploads.CoverImage)
	if err != nil {
		return nil, err
	}
	post.CoverImage = newCover

	post.Documents, err = s.resolver.Resolve(ctx, post.Documents, input.DocumentFieldInput, uploads.DocumentUploads)
	if err != nil {
		s.cleanupUploadedCover(coverUploaded, newCover)
		return nil, err
	}

	post.UpdatedAt = s.now()

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.cleanupUploadedCover(coverUploaded, newCover)
		return nil, err
	}

	// The replaced cover file is deleted only after the row points away
	// from it.
	if oldCover != nil && (post.CoverImage == nil || *post.CoverImage != *oldCover) {
		if err := s.storage.Delete(*oldCover); err != nil {
			s.logger.Warn("failed to delete replaced cover image",
				zap.String("url", *oldCover),
				zap.Error(err),
			)
		}
	}

	return post, nil
}

// Delete removes a post, then its cover image file
func (s *PostService) Delete(ctx context.Context, id int64) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.postRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	if post.CoverImage != nil {
		if err := s.storage.Delete(*post.CoverImage); err != nil {
			s.logger.Warn("failed to delete cover image",
				zap.String("url", *post.CoverImage),
				zap.Error(err),
			)
		}
	}

	return nil
}

// List retrieves one page of posts, optionally filtered to featured ones
func (s *PostService) List(ctx context.Context, page, pageSize int, isFeatured *bool) (*models.PostPage, error) {
	page, pageSize = clampPagination(page, pageSize)

	items, total, err := s.postRepo.ListPage(ctx, isFeatured, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &models.PostPage{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}, nil
}

// GetByID retrieves a post by id
func (s *PostService) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// GetBySlug retrieves a post by slug
func (s *PostService) GetBySlug(ctx context.Context, postSlug string) (*models.Post, error) {
	return s.postRepo.GetBySlug(ctx, postSlug)
}

// uniqueSlug derives a slug from the title and rejects collisions with other
// posts. A title that yields no slug (untransliterable script) leaves the
// slug null.
func (s *PostService) uniqueSlug(ctx context.Context, title models.LocalizedText, excludeID int64) (*string, error) {
	base := title.En
	if base == "" {
		base = title.Km
	}

	candidate := slug.Make(base)
	if candidate == "" {
		return nil, nil
	}

	existing, err := s.postRepo.GetBySlug(ctx, candidate)
	if err != nil {
		if isNotFound(err) {
			return &candidate, nil
		}
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing.ID != excludeID {
		return nil, fmt.Errorf("slug %q is taken by post %d: %w", candidate, existing.ID, models.ErrConflict)
	}

	return &candidate, nil
}

// resolveCategoryID applies the categoryId patch, verifying the target exists.
func (s *PostService) resolveCategoryID(ctx context.Context, current *int64, field httputil.OptionalInt64) (*int64, error) {
	if !field.Present {
		return current, nil
	}
	if field.Value == nil {
		return nil, nil
	}

	if _, err := s.categoryRepo.GetByID(ctx, *field.Value); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("category %d does not exist: %w", *field.Value, models.ErrValidation)
		}
		return nil, err
	}

	return field.Value, nil
}

// resolveCoverImage applies the cover image channels: an uploaded binary
// beats the URL field. The second return reports whether a new file was
// written so a failed request can compensate.
func (s *PostService) resolveCoverImage(current *string, field httputil.OptionalString, upload *models.UploadFile) (*string, bool, error) {
	if upload != nil {
		coverURL, err := s.storage.Store(upload.Data, upload.OriginalName, "")
		if err != nil {
			return nil, false, fmt.Errorf("failed to store cover image: %w", err)
		}
		return &coverURL, true, nil
	}

	return applyOptionalString(field, current), false, nil
}

func (s *PostService) cleanupUploadedCover(uploaded bool, coverURL *string) {
	if !uploaded || coverURL == nil {
		return
	}
	if err := s.storage.Delete(*coverURL); err != nil {
		s.logger.Warn("failed to clean up cover image",
			zap.String("url", *coverURL),
			zap.Error(err),
		)
	}
}

// resolvePostStatus applies the status patch. The explicit status field wins
// over the isPublished shorthand.
func resolvePostStatus(current models.PostStatus, status *models.PostStatus, isPublished *bool) (models.PostStatus, error) {
	if status != nil {
		switch *status {
		case models.PostStatusDraft, models.PostStatusPublished:
			return *status, nil
		default:
			return "", fmt.Errorf("unknown status %q: %w", *status, models.ErrValidation)
		}
	}
	if isPublished != nil {
		if *isPublished {
			return models.PostStatusPublished, nil
		}
		return models.PostStatusDraft, nil
	}
	return current, nil
}

// parseDateField applies a date patch: absent keeps the stored value, null or
// empty clears it, anything else must parse as RFC3339 or YYYY-MM-DD.
func parseDateField(field httputil.OptionalString, current *time.Time, name string) (*time.Time, error) {
	if !field.Present {
		return current, nil
	}
	if field.Value == nil {
		return nil, nil
	}

	raw := strings.TrimSpace(*field.Value)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range postDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid %s value %q: %w", name, raw, models.ErrValidation)
}

func validateDateRange(publishedAt, expiredAt *time.Time) error {
	if publishedAt != nil && expiredAt != nil && !expiredAt.After(*publishedAt) {
		return fmt.Errorf("expiredAt must be after publishedAt: %w", models.ErrValidation)
	}
	return nil
}

// applyLocalizedPatch merges a per-language patch onto a stored value.
func applyLocalizedPatch(current models.LocalizedText, patch models.LocalizedTextPatch) models.LocalizedText {
	if patch.En.Present {
		current.En = ""
		if patch.En.Value != nil {
			current.En = strings.TrimSpace(*patch.En.Value)
		}
	}
	if patch.Km.Present {
		current.Km = ""
		if patch.Km.Value != nil {
			current.Km = strings.TrimSpace(*patch.Km.Value)
		}
	}
	return current
}

// applyLocalizedPatchPtr is applyLocalizedPatch for nullable fields; an
// all-empty result collapses to nil.
func applyLocalizedPatchPtr(current *models.LocalizedText, patch *models.LocalizedTextPatch) *models.LocalizedText {
	if patch == nil {
		return current
	}

	base := models.LocalizedText{}
	if current != nil {
		base = *current
	}

	next := applyLocalizedPatch(base, *patch)
	if next.IsEmpty() {
		return nil
	}
	return &next
}

// applyOptionalString applies a nullable string patch, trimming values and
// collapsing empty strings to nil.
func applyOptionalString(field httputil.OptionalString, current *string) *string {
	if !field.Present {
		return current
	}
	if field.Value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*field.Value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
