package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/khmerweb/cms-backend/internal/models"
)

// folderRepository implements media folder data access
type folderRepository struct {
	db *sql.DB
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(db *sql.DB) *folderRepository {
	return &folderRepository{
		db: db,
	}
}

// Create inserts a new folder and returns its id. A unique key violation on
// the name column surfaces as models.ErrConflict.
func (r *folderRepository) Create(ctx context.Context, folder *models.MediaFolder) (int64, error) {
	query := `
		INSERT INTO media_folders (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, folder.Name, folder.CreatedAt, folder.UpdatedAt)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, fmt.Errorf("folder %q: %w", folder.Name, models.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create folder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted folder id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a folder by id
func (r *folderRepository) GetByID(ctx context.Context, id int64) (*models.MediaFolder, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM media_folders
		WHERE id = ?
		LIMIT 1
	`

	var folder models.MediaFolder
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&folder.ID,
		&folder.Name,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("folder with id %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder by id: %w", err)
	}

	return &folder, nil
}

// List retrieves all folders ordered by name
func (r *folderRepository) List(ctx context.Context) ([]models.MediaFolder, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM media_folders
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []models.MediaFolder
	for rows.Next() {
		var folder models.MediaFolder
		if err := rows.Scan(&folder.ID, &folder.Name, &folder.CreatedAt, &folder.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return folders, nil
}

// DeleteByID deletes a folder by id
func (r *folderRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM media_folders WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("folder with id %d: %w", id, models.ErrNotFound)
	}

	return nil
}
