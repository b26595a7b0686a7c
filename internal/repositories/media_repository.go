// Package repositories provides raw-SQL data access on top of database/sql.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/khmerweb/cms-backend/internal/models"
)

// mediaColumns is the select list shared by every media query.
const mediaColumns = `id, filename, original_name, mime_type, size, url, thumbnail_url, media_type, storage_driver, folder_id, created_at`

// mediaRepository implements media catalog data access
type mediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *sql.DB) *mediaRepository {
	return &mediaRepository{
		db: db,
	}
}

// Create inserts a new media record and returns its id
func (r *mediaRepository) Create(ctx context.Context, media *models.Media) (int64, error) {
	query := `
		INSERT INTO media (filename, original_name, mime_type, size, url, thumbnail_url, media_type, storage_driver, folder_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		media.Filename,
		media.OriginalName,
		media.MimeType,
		media.Size,
		media.URL,
		media.ThumbnailURL,
		media.MediaType,
		media.StorageDriver,
		media.FolderID,
		media.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, fmt.Errorf("media url %q: %w", media.URL, models.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create media: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted media id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a media record by id
func (r *mediaRepository) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE id = ?
		LIMIT 1
	`

	media, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media with id %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media by id: %w", err)
	}

	return media, nil
}

// GetByURL retrieves a media record by its stored public URL
func (r *mediaRepository) GetByURL(ctx context.Context, url string) (*models.Media, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE url = ?
		LIMIT 1
	`

	media, err := scanMedia(r.db.QueryRowContext(ctx, query, url))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media with url %q: %w", url, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media by url: %w", err)
	}

	return media, nil
}

// Update rewrites the mutable columns of a media record
func (r *mediaRepository) Update(ctx context.Context, media *models.Media) error {
	query := `
		UPDATE media
		SET filename = ?, original_name = ?, mime_type = ?, size = ?, url = ?, thumbnail_url = ?, media_type = ?, storage_driver = ?, folder_id = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		media.Filename,
		media.OriginalName,
		media.MimeType,
		media.Size,
		media.URL,
		media.ThumbnailURL,
		media.MediaType,
		media.StorageDriver,
		media.FolderID,
		media.ID,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("media url %q: %w", media.URL, models.ErrConflict)
		}
		return fmt.Errorf("failed to update media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("media with id %d: %w", media.ID, models.ErrNotFound)
	}

	return nil
}

// DeleteByID deletes a media record by id
func (r *mediaRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM media WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("media with id %d: %w", id, models.ErrNotFound)
	}

	return nil
}

// ListPage retrieves one page of media records scoped to a folder. A nil
// folderID scopes the listing to the root (folder_id IS NULL).
func (r *mediaRepository) ListPage(ctx context.Context, folderID *int64, limit, offset int) ([]models.Media, int, error) {
	whereClause := "WHERE folder_id IS NULL"
	var whereArgs []any
	if folderID != nil {
		whereClause = "WHERE folder_id = ?"
		whereArgs = append(whereArgs, *folderID)
	}

	countQuery := `SELECT COUNT(*) FROM media ` + whereClause

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, whereArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count media: %w", err)
	}

	query := `
		SELECT ` + mediaColumns + `
		FROM media
		` + whereClause + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	args := append(whereArgs, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	items, err := collectMedia(rows)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListByFolder retrieves every media record in a folder
func (r *mediaRepository) ListByFolder(ctx context.Context, folderID int64) ([]models.Media, error) {
	query := `
		SELECT ` + mediaColumns + `
		FROM media
		WHERE folder_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media by folder: %w", err)
	}
	defer rows.Close()

	return collectMedia(rows)
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner) (*models.Media, error) {
	var media models.Media
	var thumbnailURL sql.NullString
	var folderID sql.NullInt64
	var createdAt time.Time

	err := row.Scan(
		&media.ID,
		&media.Filename,
		&media.OriginalName,
		&media.MimeType,
		&media.Size,
		&media.URL,
		&thumbnailURL,
		&media.MediaType,
		&media.StorageDriver,
		&folderID,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if thumbnailURL.Valid {
		media.ThumbnailURL = &thumbnailURL.String
	}
	if folderID.Valid {
		media.FolderID = &folderID.Int64
	}
	media.CreatedAt = createdAt

	return &media, nil
}

func collectMedia(rows *sql.Rows) ([]models.Media, error) {
	var items []models.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		items = append(items, *media)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}
