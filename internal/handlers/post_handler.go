package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/models"
)

// PostsService defines the interface for post operations
type PostsService interface {
	Create(ctx context.Context, input *models.CreatePostInput, uploads models.PostUploads) (*models.Post, error)
	Update(ctx context.Context, id int64, input *models.UpdatePostInput, uploads models.PostUploads) (*models.Post, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page, pageSize int, isFeatured *bool) (*models.PostPage, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
}

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	BaseHandler
	postService PostsService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService PostsService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		BaseHandler: BaseHandler{Logger: logger},
		postService: postService,
	}
}

// RegisterRoutes registers all post handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *PostHandler) RegisterRoutes(r chi.Router, keyAuth func(http.Handler) http.Handler) {
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/slug/{slug}", h.GetBySlug)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(keyAuth)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/v1/posts
// @Summary List posts
// @Tags posts
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (1-50)"
// @Param isFeatured query bool false "Only featured (or only non-featured) posts"
// @Success 200 {object} models.PostPage
// @Router /posts [get]
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	var isFeatured *bool
	if raw := r.URL.Query().Get("isFeatured"); raw != "" {
		value := raw == "true"
		isFeatured = &value
	}

	page, err := h.postService.List(r.Context(), parseIntQuery(r, "page"), parseIntQuery(r, "pageSize"), isFeatured)
	if err != nil {
		h.RespondServiceError(w, err, "failed to list posts")
		return
	}

	h.RespondJSON(w, http.StatusOK, page)
}

// Create handles POST /api/v1/posts
// @Summary Create a post
// @Description Create a post from JSON, or from multipart form data carrying coverImage/document/documentEn/documentKm files alongside the scalar fields
// @Tags posts
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Success 201 {object} models.Post
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Slug conflict"
// @Router /posts [post]
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input models.CreatePostInput
	uploads, err := h.decodePostRequest(r, &input)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postService.Create(r.Context(), &input, uploads)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create post")
		return
	}

	h.RespondJSON(w, http.StatusCreated, post)
}

// Get handles GET /api/v1/posts/{id}
// @Summary Get one post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} map[string]string "Post not found"
// @Router /posts/{id} [get]
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	post, err := h.postService.GetByID(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get post")
		return
	}

	h.RespondJSON(w, http.StatusOK, post)
}

// GetBySlug handles GET /api/v1/posts/slug/{slug}
// @Summary Get one post by slug
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.Post
// @Failure 404 {object} map[string]string "Post not found"
// @Router /posts/slug/{slug} [get]
func (h *PostHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.postService.GetBySlug(r.Context(), slug)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get post")
		return
	}

	h.RespondJSON(w, http.StatusOK, post)
}

// Update handles PUT /api/v1/posts/{id}
// @Summary Update a post
// @Description Merge-patch a post; fields absent from the request keep their stored value
// @Tags posts
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Post not found"
// @Router /posts/{id} [put]
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	var input models.UpdatePostInput
	uploads, err := h.decodePostRequest(r, &input)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postService.Update(r.Context(), id, &input, uploads)
	if err != nil {
		h.RespondServiceError(w, err, "failed to update post")
		return
	}

	h.RespondJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /api/v1/posts/{id}
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Post not found"
// @Router /posts/{id} [delete]
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	if err := h.postService.Delete(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodePostRequest fills the input struct from either a JSON body or a
// multipart form, and extracts the binary channels from the latter. Form
// scalar values are re-encoded as a JSON object first so field presence
// survives, which is what drives the merge-patch semantics.
func (h *PostHandler) decodePostRequest(r *http.Request, input any) (models.PostUploads, error) {
	var uploads models.PostUploads

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return uploads, json.NewDecoder(r.Body).Decode(input)
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return uploads, err
	}

	body, err := formValuesToJSON(r.MultipartForm.Value)
	if err != nil {
		return uploads, err
	}
	if err := json.Unmarshal(body, input); err != nil {
		return uploads, err
	}

	uploads.CoverImage, err = optionalFormFile(r, "coverImage")
	if err != nil {
		return uploads, err
	}
	uploads.Document, err = optionalFormFile(r, "document")
	if err != nil {
		return uploads, err
	}
	uploads.DocumentEn, err = optionalFormFile(r, "documentEn")
	if err != nil {
		return uploads, err
	}
	uploads.DocumentKm, err = optionalFormFile(r, "documentKm")
	if err != nil {
		return uploads, err
	}

	return uploads, nil
}

// formValuesToJSON re-encodes multipart scalar fields as one JSON object.
// Values that already are valid JSON (objects, arrays, numbers, booleans,
// null) pass through raw; everything else is treated as a string. Only fields
// present in the form end up in the object, preserving absent-vs-null.
func formValuesToJSON(form url.Values) ([]byte, error) {
	object := make(map[string]json.RawMessage, len(form))
	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		if json.Valid([]byte(value)) {
			object[key] = json.RawMessage(value)
			continue
		}
		quoted, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		object[key] = quoted
	}
	return json.Marshal(object)
}

// optionalFormFile reads a file field that may be absent.
func optionalFormFile(r *http.Request, field string) (*models.UploadFile, error) {
	file, err := singleFormFile(r, field)
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}
