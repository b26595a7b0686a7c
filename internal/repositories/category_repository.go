package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/khmerweb/cms-backend/internal/models"
)

// categoryRepository implements category data access
type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new category repository
func NewCategoryRepository(db *sql.DB) *categoryRepository {
	return &categoryRepository{
		db: db,
	}
}

// Create inserts a new category and returns its id
func (r *categoryRepository) Create(ctx context.Context, category *models.Category) (int64, error) {
	query := `
		INSERT INTO categories (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`

	name, description, err := marshalCategoryJSON(category)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, name, description, category.CreatedAt, category.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted category id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a category by id
func (r *categoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		WHERE id = ?
		LIMIT 1
	`

	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category with id %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by id: %w", err)
	}

	return category, nil
}

// List retrieves all categories, newest first
func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return categories, nil
}

// Update rewrites the mutable columns of a category
func (r *categoryRepository) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE categories
		SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`

	name, description, err := marshalCategoryJSON(category)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, name, description, category.UpdatedAt, category.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category with id %d: %w", category.ID, models.ErrNotFound)
	}

	return nil
}

// DeleteByID deletes a category by id
func (r *categoryRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM categories WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("category with id %d: %w", id, models.ErrNotFound)
	}

	return nil
}

func marshalCategoryJSON(category *models.Category) ([]byte, []byte, error) {
	name, err := json.Marshal(category.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal category name: %w", err)
	}

	var description []byte
	if category.Description != nil {
		description, err = json.Marshal(category.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal category description: %w", err)
		}
	}

	return name, description, nil
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var category models.Category
	var name []byte
	var description []byte

	err := row.Scan(
		&category.ID,
		&name,
		&description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(name, &category.Name); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category name: %w", err)
	}
	if len(description) > 0 {
		category.Description = &models.LocalizedText{}
		if err := json.Unmarshal(description, category.Description); err != nil {
			return nil, fmt.Errorf("failed to unmarshal category description: %w", err)
		}
	}

	return &category, nil
}
