// Package services holds the business logic. Dependencies are declared as
// interfaces at the consumer so tests can swap in hand-written mocks.
package services

import (
	"context"
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/models"
	"github.com/khmerweb/cms-backend/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// FileStorage defines the interface for file storage operations
type FileStorage interface {
	Store(data []byte, originalName, folderSegment string) (string, error)
	Delete(url string) error
	CreateFolderDir(segment string) error
	RemoveFolderDir(segment string) error
}

// ThumbnailDeriver produces a preview URL for a stored PDF file
type ThumbnailDeriver interface {
	Derive(ctx context.Context, sourceURL string) (string, error)
}

// MediaRepository defines the interface for media data access
type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Media, error)
	GetByURL(ctx context.Context, url string) (*models.Media, error)
	Update(ctx context.Context, media *models.Media) error
	DeleteByID(ctx context.Context, id int64) error
	ListPage(ctx context.Context, folderID *int64, limit, offset int) ([]models.Media, int, error)
	ListByFolder(ctx context.Context, folderID int64) ([]models.Media, error)
}

// FolderRepository defines the interface for folder data access
type FolderRepository interface {
	Create(ctx context.Context, folder *models.MediaFolder) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.MediaFolder, error)
	List(ctx context.Context) ([]models.MediaFolder, error)
	DeleteByID(ctx context.Context, id int64) error
}

// MediaService handles business logic for the asset and folder catalogs.
// thumbnailer is nil when the rasterization capability is absent from the
// deployment; PDF saves then fail fast instead of silently losing previews.
type MediaService struct {
	mediaRepo   MediaRepository
	folderRepo  FolderRepository
	storage     FileStorage
	thumbnailer ThumbnailDeriver
	logger      *zap.Logger
	now         nowFunc
}

// NewMediaService creates a new media service
func NewMediaService(mediaRepo MediaRepository, folderRepo FolderRepository, fileStorage FileStorage, thumbnailer ThumbnailDeriver, logger *zap.Logger) *MediaService {
	return &MediaService{
		mediaRepo:   mediaRepo,
		folderRepo:  folderRepo,
		storage:     fileStorage,
		thumbnailer: thumbnailer,
		logger:      logger,
		now:         defaultNow,
	}
}

// Upload stores a batch of files. Each file is an independent unit of work:
// a later file's failure never undoes an earlier file's successful save, so
// the items saved before the failure are returned alongside the error.
func (s *MediaService) Upload(ctx context.Context, files []models.UploadFile, folderID *int64) ([]models.Media, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files supplied: %w", models.ErrValidation)
	}

	var folder *models.MediaFolder
	if folderID != nil {
		var err error
		folder, err = s.folderRepo.GetByID(ctx, *folderID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve target folder: %w", err)
		}
	}

	saved := make([]models.Media, 0, len(files))
	for i := range files {
		media, err := s.SaveFile(ctx, &files[i], folder)
		if err != nil {
			return saved, fmt.Errorf("failed to save file %q: %w", files[i].OriginalName, err)
		}
		saved = append(saved, *media)
	}

	return saved, nil
}

// SaveFile runs the single-file save path: write the bytes, derive a PDF
// thumbnail, create the catalog row. Any failure after the byte write deletes
// the written files again so no orphan is left on disk.
func (s *MediaService) SaveFile(ctx context.Context, file *models.UploadFile, folder *models.MediaFolder) (*models.Media, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, fmt.Errorf("empty file: %w", models.ErrValidation)
	}

	mediaType := models.DetectMediaType(file.MimeType)
	if mediaType == models.MediaTypePDF && s.thumbnailer == nil {
		return nil, fmt.Errorf("cannot save %q: %w", file.OriginalName, models.ErrThumbnailerUnavailable)
	}

	folderSegment := ""
	var folderID *int64
	if folder != nil {
		folderSegment = storage.FolderSegment(folder.Name)
		folderID = &folder.ID
	}

	fileURL, err := s.storage.Store(file.Data, file.OriginalName, folderSegment)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	var thumbnailURL *string
	if mediaType == models.MediaTypePDF {
		thumb, err := s.thumbnailer.Derive(ctx, fileURL)
		if err != nil {
			// Per-file conversion failure degrades to no thumbnail.
			s.logger.Warn("pdf thumbnail derivation failed",
				zap.String("url", fileURL),
				zap.Error(err),
			)
		} else if thumb != "" {
			thumbnailURL = &thumb
		}
	}

	media := &models.Media{
		Filename:      filenameFromURL(fileURL),
		OriginalName:  file.OriginalName,
		MimeType:      file.MimeType,
		Size:          file.Size(),
		URL:           fileURL,
		ThumbnailURL:  thumbnailURL,
		MediaType:     mediaType,
		StorageDriver: models.StorageDriverLocal,
		FolderID:      folderID,
		CreatedAt:     s.now(),
	}

	id, err := s.mediaRepo.Create(ctx, media)
	if err != nil {
		s.deleteStoredFiles(fileURL, thumbnailURL)
		return nil, fmt.Errorf("failed to create media record: %w", err)
	}
	media.ID = id

	return media, nil
}

// FindAll retrieves one page of the asset listing. A nil folderID scopes the
// listing to the root and includes the folder list in the result.
func (s *MediaService) FindAll(ctx context.Context, page, pageSize int, folderID *int64) (*models.MediaPage, error) {
	page, pageSize = clampPagination(page, pageSize)

	items, total, err := s.mediaRepo.ListPage(ctx, folderID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	result := &models.MediaPage{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}

	if folderID == nil {
		folders, err := s.folderRepo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list folders: %w", err)
		}
		result.Folders = folders
	}

	return result, nil
}

// FindOne retrieves one asset by id
func (s *MediaService) FindOne(ctx context.Context, id int64) (*models.Media, error) {
	return s.mediaRepo.GetByID(ctx, id)
}

// FindByURL retrieves an asset by its stored URL. An unknown URL is an absent
// result, not an error; callers use this for best-effort thumbnail backfill.
func (s *MediaService) FindByURL(ctx context.Context, rawURL string) (*models.Media, error) {
	media, err := s.mediaRepo.GetByURL(ctx, normalizeAssetURL(rawURL))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return media, nil
}

// Replace swaps the stored file of an existing asset, keeping its id. The new
// file is written first and the previous files are deleted last, so a crash
// mid-operation leaves the old file intact rather than losing data.
func (s *MediaService) Replace(ctx context.Context, id int64, file *models.UploadFile) (*models.Media, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, fmt.Errorf("empty file: %w", models.ErrValidation)
	}

	existing, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	mediaType := models.DetectMediaType(file.MimeType)
	if mediaType == models.MediaTypePDF && s.thumbnailer == nil {
		return nil, fmt.Errorf("cannot replace %q: %w", file.OriginalName, models.ErrThumbnailerUnavailable)
	}

	folderSegment := ""
	if existing.FolderID != nil {
		folder, err := s.folderRepo.GetByID(ctx, *existing.FolderID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve folder: %w", err)
		}
		folderSegment = storage.FolderSegment(folder.Name)
	}

	newURL, err := s.storage.Store(file.Data, file.OriginalName, folderSegment)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	var newThumbnail *string
	if mediaType == models.MediaTypePDF {
		thumb, err := s.thumbnailer.Derive(ctx, newURL)
		if err != nil {
			s.logger.Warn("pdf thumbnail derivation failed",
				zap.String("url", newURL),
				zap.Error(err),
			)
		} else if thumb != "" {
			newThumbnail = &thumb
		}
	}

	oldURL := existing.URL
	oldThumbnail := existing.ThumbnailURL

	updated := *existing
	updated.Filename = filenameFromURL(newURL)
	updated.OriginalName = file.OriginalName
	updated.MimeType = file.MimeType
	updated.Size = file.Size()
	updated.URL = newURL
	updated.ThumbnailURL = newThumbnail
	updated.MediaType = mediaType

	if err := s.mediaRepo.Update(ctx, &updated); err != nil {
		s.deleteStoredFiles(newURL, newThumbnail)
		return nil, fmt.Errorf("failed to update media record: %w", err)
	}

	s.deleteStoredFiles(oldURL, oldThumbnail)

	return &updated, nil
}

// Remove deletes an asset: the catalog row first, then the local files.
func (s *MediaService) Remove(ctx context.Context, id int64) error {
	media, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.mediaRepo.DeleteByID(ctx, id); err != nil {
		return err
	}

	if media.StorageDriver == models.StorageDriverLocal {
		s.deleteStoredFiles(media.URL, media.ThumbnailURL)
	}

	return nil
}

// CreateFolder creates a folder row and its on-disk directory. Uniqueness is
// checked on the derived segment, not the raw name, since two readable names
// can collapse to the same directory.
func (s *MediaService) CreateFolder(ctx context.Context, name string) (*models.MediaFolder, error) {
	if err := validation.Validate(name, validation.Required, validation.Length(1, 120)); err != nil {
		return nil, fmt.Errorf("invalid folder name: %v: %w", err, models.ErrValidation)
	}

	segment := storage.FolderSegment(name)
	if segment == "" {
		return nil, fmt.Errorf("folder name %q yields no usable directory segment: %w", name, models.ErrValidation)
	}

	existing, err := s.folderRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	for _, folder := range existing {
		if storage.FolderSegment(folder.Name) == segment {
			return nil, fmt.Errorf("folder %q collides with %q: %w", name, folder.Name, models.ErrConflict)
		}
	}

	now := s.now()
	folder := &models.MediaFolder{
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.folderRepo.Create(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder record: %w", err)
	}
	folder.ID = id

	if err := s.storage.CreateFolderDir(segment); err != nil {
		// No shared transaction across DB and filesystem: compensate.
		if delErr := s.folderRepo.DeleteByID(ctx, id); delErr != nil {
			s.logger.Error("failed to roll back folder record after directory error",
				zap.Int64("folder_id", id),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to create folder directory: %w", err)
	}

	return folder, nil
}

// ListFolders retrieves all folders ordered by name
func (s *MediaService) ListFolders(ctx context.Context) ([]models.MediaFolder, error) {
	return s.folderRepo.List(ctx)
}

// FindFolderWithItems retrieves a folder and one page of its assets
func (s *MediaService) FindFolderWithItems(ctx context.Context, id int64, page, pageSize int) (*models.FolderPage, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	page, pageSize = clampPagination(page, pageSize)

	items, total, err := s.mediaRepo.ListPage(ctx, &id, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder items: %w", err)
	}

	return &models.FolderPage{
		Folder:   *folder,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Items:    items,
	}, nil
}

// DeleteFolder deletes a folder. A non-empty folder without force is rejected
// with a count-bearing error. With force, every contained asset's files and
// row are removed first, then the folder row, then the directory. Returns the
// number of assets removed.
func (s *MediaService) DeleteFolder(ctx context.Context, id int64, force bool) (int, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	items, err := s.mediaRepo.ListByFolder(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to list folder items: %w", err)
	}

	if len(items) > 0 && !force {
		return 0, fmt.Errorf("folder is not empty (%d items): %w", len(items), models.ErrFolderNotEmpty)
	}

	for i := range items {
		item := &items[i]
		if item.StorageDriver == models.StorageDriverLocal {
			s.deleteStoredFiles(item.URL, item.ThumbnailURL)
		}
		if err := s.mediaRepo.DeleteByID(ctx, item.ID); err != nil {
			return 0, fmt.Errorf("failed to delete folder item %d: %w", item.ID, err)
		}
	}

	if err := s.folderRepo.DeleteByID(ctx, id); err != nil {
		return 0, err
	}

	if err := s.storage.RemoveFolderDir(storage.FolderSegment(folder.Name)); err != nil {
		s.logger.Warn("failed to remove folder directory",
			zap.String("folder", folder.Name),
			zap.Error(err),
		)
	}

	return len(items), nil
}

// deleteStoredFiles best-effort deletes a stored file and its thumbnail.
func (s *MediaService) deleteStoredFiles(fileURL string, thumbnailURL *string) {
	if err := s.storage.Delete(fileURL); err != nil {
		s.logger.Warn("failed to delete stored file",
			zap.String("url", fileURL),
			zap.Error(err),
		)
	}
	if thumbnailURL != nil {
		if err := s.storage.Delete(*thumbnailURL); err != nil {
			s.logger.Warn("failed to delete thumbnail file",
				zap.String("url", *thumbnailURL),
				zap.Error(err),
			)
		}
	}
}

// clampPagination normalizes a pagination window: page >= 1, pageSize within
// [1, 50] with 20 as the unspecified default.
func clampPagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// normalizeAssetURL reduces an absolute URL to the path the catalog stores.
func normalizeAssetURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" {
		return rawURL
	}
	return parsed.Path
}

// filenameFromURL extracts the stored filename from a public URL.
func filenameFromURL(fileURL string) string {
	for i := len(fileURL) - 1; i >= 0; i-- {
		if fileURL[i] == '/' {
			return fileURL[i+1:]
		}
	}
	return fileURL
}
