package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/models"
)

// CategoriesService defines the interface for category operations
type CategoriesService interface {
	Create(ctx context.Context, input *models.CategoryInput) (*models.Category, error)
	GetByID(ctx context.Context, id int64) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, id int64, input *models.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, id int64) error
}

// CategoryHandler handles category-related HTTP requests
type CategoryHandler struct {
	BaseHandler
	categoryService CategoriesService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService CategoriesService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		BaseHandler:     BaseHandler{Logger: logger},
		categoryService: categoryService,
	}
}

// RegisterRoutes registers all category handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *CategoryHandler) RegisterRoutes(r chi.Router, keyAuth func(http.Handler) http.Handler) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(keyAuth)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/v1/categories
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {array} models.Category
// @Router /categories [get]
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.List(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to list categories")
		return
	}

	h.RespondJSON(w, http.StatusOK, categories)
}

// Create handles POST /api/v1/categories
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Success 201 {object} models.Category
// @Failure 400 {object} map[string]string "Validation error"
// @Router /categories [post]
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categoryService.Create(r.Context(), &input)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create category")
		return
	}

	h.RespondJSON(w, http.StatusCreated, category)
}

// Get handles GET /api/v1/categories/{id}
// @Summary Get one category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} map[string]string "Category not found"
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	category, err := h.categoryService.GetByID(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get category")
		return
	}

	h.RespondJSON(w, http.StatusOK, category)
}

// Update handles PUT /api/v1/categories/{id}
// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} models.Category
// @Failure 404 {object} map[string]string "Category not found"
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	var input models.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categoryService.Update(r.Context(), id, &input)
	if err != nil {
		h.RespondServiceError(w, err, "failed to update category")
		return
	}

	h.RespondJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/v1/categories/{id}
// @Summary Delete a category
// @Tags categories
// @Produce json
// @Param id path int true "Category ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Category not found"
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
