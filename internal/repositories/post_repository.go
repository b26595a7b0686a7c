package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/khmerweb/cms-backend/internal/models"
)

// postColumns is the select list shared by every post query.
const postColumns = `id, title, description, slug, content, status, is_featured, cover_image, documents, link, category_id, published_at, expired_at, created_at, updated_at`

// postRepository implements post data access
type postRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *sql.DB) *postRepository {
	return &postRepository{
		db: db,
	}
}

// Create inserts a new post and returns its id. A unique key violation on
// the slug column surfaces as models.ErrConflict.
func (r *postRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	query := `
		INSERT INTO posts (title, description, slug, content, status, is_featured, cover_image, documents, link, category_id, published_at, expired_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	title, description, documents, err := marshalPostJSON(post)
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query,
		title,
		description,
		post.Slug,
		nullableRawJSON(post.Content),
		post.Status,
		post.IsFeatured,
		post.CoverImage,
		documents,
		post.Link,
		post.CategoryID,
		post.PublishedAt,
		post.ExpiredAt,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, fmt.Errorf("post slug: %w", models.ErrConflict)
		}
		return 0, fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted post id: %w", err)
	}

	return id, nil
}

// GetByID retrieves a post by id
func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE id = ?
		LIMIT 1
	`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post with id %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}

	return post, nil
}

// GetBySlug retrieves a post by its slug
func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE slug = ?
		LIMIT 1
	`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post with slug %q: %w", slug, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by slug: %w", err)
	}

	return post, nil
}

// ListPage retrieves one page of posts, newest first. A non-nil isFeatured
// narrows the listing to featured (or non-featured) posts.
func (r *postRepository) ListPage(ctx context.Context, isFeatured *bool, limit, offset int) ([]models.Post, int, error) {
	whereClause := ""
	var whereArgs []any
	if isFeatured != nil {
		whereClause = "WHERE is_featured = ?"
		whereArgs = append(whereArgs, *isFeatured)
	}

	countQuery := `SELECT COUNT(*) FROM posts ` + whereClause

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, whereArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	query := `
		SELECT ` + postColumns + `
		FROM posts
		` + whereClause + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	args := append(whereArgs, limit, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var items []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		items = append(items, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, total, nil
}

// Update rewrites the mutable columns of a post
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = ?, description = ?, slug = ?, content = ?, status = ?, is_featured = ?, cover_image = ?, documents = ?, link = ?, category_id = ?, published_at = ?, expired_at = ?, updated_at = ?
		WHERE id = ?
	`

	title, description, documents, err := marshalPostJSON(post)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query,
		title,
		description,
		post.Slug,
		nullableRawJSON(post.Content),
		post.Status,
		post.IsFeatured,
		post.CoverImage,
		documents,
		post.Link,
		post.CategoryID,
		post.PublishedAt,
		post.ExpiredAt,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("post slug: %w", models.ErrConflict)
		}
		return fmt.Errorf("failed to update post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post with id %d: %w", post.ID, models.ErrNotFound)
	}

	return nil
}

// DeleteByID deletes a post by id
func (r *postRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM posts WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post with id %d: %w", id, models.ErrNotFound)
	}

	return nil
}

// marshalPostJSON serializes the JSON columns of a post for writing.
func marshalPostJSON(post *models.Post) ([]byte, []byte, []byte, error) {
	title, err := json.Marshal(post.Title)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal post title: %w", err)
	}

	var description []byte
	if post.Description != nil {
		description, err = json.Marshal(post.Description)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal post description: %w", err)
		}
	}

	var documents []byte
	if post.Documents != nil {
		documents, err = json.Marshal(post.Documents)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal post documents: %w", err)
		}
	}

	return title, description, documents, nil
}

// nullableRawJSON maps an empty raw message to a SQL NULL.
func nullableRawJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var title []byte
	var description []byte
	var slug sql.NullString
	var content []byte
	var coverImage sql.NullString
	var documents []byte
	var link sql.NullString
	var categoryID sql.NullInt64
	var publishedAt sql.NullTime
	var expiredAt sql.NullTime
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&post.ID,
		&title,
		&description,
		&slug,
		&content,
		&post.Status,
		&post.IsFeatured,
		&coverImage,
		&documents,
		&link,
		&categoryID,
		&publishedAt,
		&expiredAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(title, &post.Title); err != nil {
		return nil, fmt.Errorf("failed to unmarshal post title: %w", err)
	}
	if len(description) > 0 {
		post.Description = &models.LocalizedText{}
		if err := json.Unmarshal(description, post.Description); err != nil {
			return nil, fmt.Errorf("failed to unmarshal post description: %w", err)
		}
	}
	if len(content) > 0 {
		post.Content = json.RawMessage(content)
	}
	if len(documents) > 0 {
		post.Documents = &models.PostDocuments{}
		if err := json.Unmarshal(documents, post.Documents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal post documents: %w", err)
		}
	}

	if slug.Valid {
		post.Slug = &slug.String
	}
	if coverImage.Valid {
		post.CoverImage = &coverImage.String
	}
	if link.Valid {
		post.Link = &link.String
	}
	if categoryID.Valid {
		post.CategoryID = &categoryID.Int64
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if expiredAt.Valid {
		post.ExpiredAt = &expiredAt.Time
	}
	post.CreatedAt = createdAt
	post.UpdatedAt = updatedAt

	return &post, nil
}
