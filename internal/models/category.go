package models

import "time"

// Category is a named grouping posts may reference.
type Category struct {
	ID          int64          `json:"id" db:"id"`
	Name        LocalizedText  `json:"name" db:"name"`
	Description *LocalizedText `json:"description" db:"description"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time      `json:"updatedAt" db:"updated_at"`
}

// CategoryInput is the create/update payload for a category.
type CategoryInput struct {
	Name        LocalizedTextPatch  `json:"name"`
	Description *LocalizedTextPatch `json:"description"`
}
