package services

import (
	"context"
	"testing"
	"time"

	"github.com/khmerweb/cms-backend/internal/httputil"
	"github.com/khmerweb/cms-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCategoryService(repo *mockCategoryRepository) *CategoryService {
	svc := NewCategoryService(repo)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestCategoryService_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := &mockCategoryRepository{createID: 4}
		svc := newTestCategoryService(repo)

		input := &models.CategoryInput{Name: models.LocalizedTextPatch{Km: httputil.String("ព័ត៌មាន")}}
		category, err := svc.Create(context.Background(), input)

		require.NoError(t, err)
		assert.Equal(t, int64(4), category.ID)
		assert.Equal(t, "ព័ត៌មាន", category.Name.Km)
		assert.Nil(t, category.Description)
	})

	t.Run("name requires at least one language", func(t *testing.T) {
		svc := newTestCategoryService(&mockCategoryRepository{})

		_, err := svc.Create(context.Background(), &models.CategoryInput{})

		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestCategoryService_Update(t *testing.T) {
	stored := &models.Category{
		ID:   4,
		Name: models.LocalizedText{En: "News", Km: "ព័ត៌មាន"},
	}

	t.Run("merge-patch touches only supplied languages", func(t *testing.T) {
		repo := &mockCategoryRepository{getCategory: stored}
		svc := newTestCategoryService(repo)

		input := &models.CategoryInput{Name: models.LocalizedTextPatch{En: httputil.String("Updates")}}
		category, err := svc.Update(context.Background(), 4, input)

		require.NoError(t, err)
		assert.Equal(t, "Updates", category.Name.En)
		assert.Equal(t, "ព័ត៌មាន", category.Name.Km)
		assert.Equal(t, testNow, category.UpdatedAt)
	})

	t.Run("clearing every language is rejected", func(t *testing.T) {
		repo := &mockCategoryRepository{getCategory: &models.Category{ID: 4, Name: models.LocalizedText{En: "News"}}}
		svc := newTestCategoryService(repo)

		input := &models.CategoryInput{Name: models.LocalizedTextPatch{En: httputil.Null()}}
		_, err := svc.Update(context.Background(), 4, input)

		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("not found propagates", func(t *testing.T) {
		svc := newTestCategoryService(&mockCategoryRepository{})

		_, err := svc.Update(context.Background(), 999, &models.CategoryInput{Name: models.LocalizedTextPatch{En: httputil.String("x")}})

		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}
