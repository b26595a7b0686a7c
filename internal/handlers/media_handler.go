package handlers

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khmerweb/cms-backend/internal/models"
)

// maxUploadMemory bounds the in-memory portion of multipart parsing.
const maxUploadMemory = 32 << 20

// MediaService defines the interface for asset and folder catalog operations
type MediaService interface {
	Upload(ctx context.Context, files []models.UploadFile, folderID *int64) ([]models.Media, error)
	FindAll(ctx context.Context, page, pageSize int, folderID *int64) (*models.MediaPage, error)
	FindOne(ctx context.Context, id int64) (*models.Media, error)
	Replace(ctx context.Context, id int64, file *models.UploadFile) (*models.Media, error)
	Remove(ctx context.Context, id int64) error
	CreateFolder(ctx context.Context, name string) (*models.MediaFolder, error)
	ListFolders(ctx context.Context) ([]models.MediaFolder, error)
	FindFolderWithItems(ctx context.Context, id int64, page, pageSize int) (*models.FolderPage, error)
	DeleteFolder(ctx context.Context, id int64, force bool) (int, error)
}

// MediaHandler handles media-related HTTP requests
type MediaHandler struct {
	BaseHandler
	mediaService MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		mediaService: mediaService,
	}
}

// RegisterRoutes registers all media handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *MediaHandler) RegisterRoutes(r chi.Router, keyAuth func(http.Handler) http.Handler) {
	r.Route("/media", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/folders", h.ListFolders)
		r.Get("/folders/{id}", h.GetFolder)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(keyAuth)
			r.Post("/upload", h.Upload)
			r.Put("/{id}/replace", h.Replace)
			r.Delete("/{id}", h.Delete)
			r.Post("/folders", h.CreateFolder)
			r.Delete("/folders/{id}", h.DeleteFolder)
		})
	})
}

// List handles GET /api/v1/media
// @Summary List assets
// @Description List one page of assets. Without folderId the root is listed and the folder list is included.
// @Tags media
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (1-50)"
// @Param folderId query int false "Folder ID"
// @Success 200 {object} models.MediaPage
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /media [get]
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	folderID, ok := optionalIDQuery(r, "folderId")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "folderId must be a positive integer")
		return
	}

	page, err := h.mediaService.FindAll(r.Context(), parseIntQuery(r, "page"), parseIntQuery(r, "pageSize"), folderID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to list media")
		return
	}

	h.RespondJSON(w, http.StatusOK, page)
}

// Upload handles POST /api/v1/media/upload
// @Summary Upload assets
// @Description Upload one or more files, optionally into a folder
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to upload"
// @Param folderId formData int false "Target folder ID"
// @Success 201 {array} models.Media
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Folder not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /media/upload [post]
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var folderID *int64
	if raw := r.FormValue("folderId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			h.RespondError(w, http.StatusBadRequest, "folderId must be a positive integer")
			return
		}
		folderID = &id
	}

	var files []models.UploadFile
	for _, header := range r.MultipartForm.File["files"] {
		file, err := readUploadFile(header)
		if err != nil {
			h.Logger.Error("failed to read uploaded file", zap.String("name", header.Filename), zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to read uploaded file")
			return
		}
		files = append(files, *file)
	}

	saved, err := h.mediaService.Upload(r.Context(), files, folderID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to upload files")
		return
	}

	h.RespondJSON(w, http.StatusCreated, saved)
}

// Get handles GET /api/v1/media/{id}
// @Summary Get one asset
// @Tags media
// @Produce json
// @Param id path int true "Asset ID"
// @Success 200 {object} models.Media
// @Failure 404 {object} map[string]string "Asset not found"
// @Router /media/{id} [get]
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	media, err := h.mediaService.FindOne(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get media")
		return
	}

	h.RespondJSON(w, http.StatusOK, media)
}

// Replace handles PUT /api/v1/media/{id}/replace
// @Summary Replace an asset's stored file
// @Description Swap the stored file of an existing asset, keeping its id
// @Tags media
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Asset ID"
// @Param file formData file true "Replacement file"
// @Success 200 {object} models.Media
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Asset not found"
// @Router /media/{id}/replace [put]
func (h *MediaHandler) Replace(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, err := singleFormFile(r, "file")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "file field is required")
		return
	}

	media, err := h.mediaService.Replace(r.Context(), id, file)
	if err != nil {
		h.RespondServiceError(w, err, "failed to replace media")
		return
	}

	h.RespondJSON(w, http.StatusOK, media)
}

// Delete handles DELETE /api/v1/media/{id}
// @Summary Delete an asset
// @Tags media
// @Produce json
// @Param id path int true "Asset ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Asset not found"
// @Router /media/{id} [delete]
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	if err := h.mediaService.Remove(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "failed to delete media")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListFolders handles GET /api/v1/media/folders
// @Summary List folders
// @Tags media
// @Produce json
// @Success 200 {array} models.MediaFolder
// @Router /media/folders [get]
func (h *MediaHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.mediaService.ListFolders(r.Context())
	if err != nil {
		h.RespondServiceError(w, err, "failed to list folders")
		return
	}

	h.RespondJSON(w, http.StatusOK, folders)
}

// CreateFolder handles POST /api/v1/media/folders
// @Summary Create a folder
// @Tags media
// @Accept json
// @Produce json
// @Param body body object{name=string} true "Folder name"
// @Success 201 {object} models.MediaFolder
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 409 {object} map[string]string "Name collides with an existing folder"
// @Router /media/folders [post]
func (h *MediaHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.mediaService.CreateFolder(r.Context(), body.Name)
	if err != nil {
		h.RespondServiceError(w, err, "failed to create folder")
		return
	}

	h.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder handles GET /api/v1/media/folders/{id}
// @Summary Get a folder with one page of its assets
// @Tags media
// @Produce json
// @Param id path int true "Folder ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size (1-50)"
// @Success 200 {object} models.FolderPage
// @Failure 404 {object} map[string]string "Folder not found"
// @Router /media/folders/{id} [get]
func (h *MediaHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	page, err := h.mediaService.FindFolderWithItems(r.Context(), id, parseIntQuery(r, "page"), parseIntQuery(r, "pageSize"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to get folder")
		return
	}

	h.RespondJSON(w, http.StatusOK, page)
}

// DeleteFolder handles DELETE /api/v1/media/folders/{id}
// @Summary Delete a folder
// @Description Delete a folder. A non-empty folder requires force=true, which also deletes its assets.
// @Tags media
// @Produce json
// @Param id path int true "Folder ID"
// @Param force query bool false "Also delete contained assets"
// @Success 200 {object} map[string]int "deletedCount"
// @Failure 404 {object} map[string]string "Folder not found"
// @Failure 409 {object} map[string]string "Folder is not empty"
// @Router /media/folders/{id} [delete]
func (h *MediaHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "id"))
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}

	force := r.URL.Query().Get("force") == "true"

	count, err := h.mediaService.DeleteFolder(r.Context(), id, force)
	if err != nil {
		h.RespondServiceError(w, err, "failed to delete folder")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]int{"deletedCount": count})
}

// optionalIDQuery parses an optional positive integer query parameter. The
// second return is false when a value is present but malformed.
func optionalIDQuery(r *http.Request, name string) (*int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, false
	}
	return &id, true
}

// readUploadFile buffers one multipart file into memory.
func readUploadFile(header *multipart.FileHeader) (*models.UploadFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &models.UploadFile{
		OriginalName: header.Filename,
		MimeType:     mimeType,
		Data:         data,
	}, nil
}

// singleFormFile reads the first file of a form field, if any.
func singleFormFile(r *http.Request, field string) (*models.UploadFile, error) {
	if r.MultipartForm == nil {
		return nil, http.ErrMissingFile
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, http.ErrMissingFile
	}
	return readUploadFile(headers[0])
}
