package services

import (
	"context"
	"fmt"

	"github.com/khmerweb/cms-backend/internal/models"
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	DeleteByID(ctx context.Context, id int64) error
}

// CategoryService handles business logic for categories
type CategoryService struct {
	categoryRepo CategoryRepository
	now          nowFunc
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo CategoryRepository) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		now:          defaultNow,
	}
}

// Create creates a category
func (s *CategoryService) Create(ctx context.Context, input *models.CategoryInput) (*models.Category, error) {
	name := applyLocalizedPatch(models.LocalizedText{}, input.Name)
	if name.IsEmpty() {
		return nil, fmt.Errorf("name requires at least one language: %w", models.ErrValidation)
	}

	now := s.now()
	category := &models.Category{
		Name:        name,
		Description: applyLocalizedPatchPtr(nil, input.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := s.categoryRepo.Create(ctx, category)
	if err != nil {
		return nil, err
	}
	category.ID = id

	return category, nil
}

// GetByID retrieves a category by id
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

// List retrieves all categories
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// Update merge-patches a category
func (s *CategoryService) Update(ctx context.Context, id int64, input *models.CategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := applyLocalizedPatch(category.Name, input.Name)
	if name.IsEmpty() {
		return nil, fmt.Errorf("name requires at least one language: %w", models.ErrValidation)
	}
	category.Name = name
	category.Description = applyLocalizedPatchPtr(category.Description, input.Description)
	category.UpdatedAt = s.now()

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// Delete removes a category
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	return s.categoryRepo.DeleteByID(ctx, id)
}
