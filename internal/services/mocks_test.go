package services

import (
	"context"
	"fmt"

	"github.com/khmerweb/cms-backend/internal/models"
)

// mockMediaRepository is a mock implementation of MediaRepository
type mockMediaRepository struct {
	createID     int64
	createErr    error
	createErrOn  int // 1-based call number that fails; 0 fails every call when createErr is set
	createCalls  int
	created      []*models.Media
	getMedia     *models.Media
	getErr       error
	getByURLArgs []string
	getByURL     *models.Media
	getByURLErr  error
	updateErr    error
	updated      *models.Media
	deleteErr    error
	deletedIDs   []int64
	listItems    []models.Media
	listTotal    int
	listErr      error
	listFolderID *int64
	listLimit    int
	listOffset   int
	byFolder     []models.Media
	byFolderErr  error
}

func (m *mockMediaRepository) Create(ctx context.Context, media *models.Media) (int64, error) {
	m.createCalls++
	if m.createErr != nil && (m.createErrOn == 0 || m.createErrOn == m.createCalls) {
		return 0, m.createErr
	}
	copied := *media
	m.created = append(m.created, &copied)
	if m.createID != 0 {
		return m.createID, nil
	}
	return int64(m.createCalls), nil
}

func (m *mockMediaRepository) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.getMedia, nil
}

func (m *mockMediaRepository) GetByURL(ctx context.Context, url string) (*models.Media, error) {
	m.getByURLArgs = append(m.getByURLArgs, url)
	if m.getByURLErr != nil {
		return nil, m.getByURLErr
	}
	return m.getByURL, nil
}

func (m *mockMediaRepository) Update(ctx context.Context, media *models.Media) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *media
	m.updated = &copied
	return nil
}

func (m *mockMediaRepository) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockMediaRepository) ListPage(ctx context.Context, folderID *int64, limit, offset int) ([]models.Media, int, error) {
	m.listFolderID = folderID
	m.listLimit = limit
	m.listOffset = offset
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listItems, m.listTotal, nil
}

func (m *mockMediaRepository) ListByFolder(ctx context.Context, folderID int64) ([]models.Media, error) {
	if m.byFolderErr != nil {
		return nil, m.byFolderErr
	}
	return m.byFolder, nil
}

// mockFolderRepository is a mock implementation of FolderRepository
type mockFolderRepository struct {
	createID   int64
	createErr  error
	created    []*models.MediaFolder
	getFolder  *models.MediaFolder
	getErr     error
	folders    []models.MediaFolder
	listErr    error
	deleteErr  error
	deletedIDs []int64
}

func (m *mockFolderRepository) Create(ctx context.Context, folder *models.MediaFolder) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	copied := *folder
	m.created = append(m.created, &copied)
	if m.createID != 0 {
		return m.createID, nil
	}
	return 1, nil
}

func (m *mockFolderRepository) GetByID(ctx context.Context, id int64) (*models.MediaFolder, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getFolder == nil {
		return nil, fmt.Errorf("folder with id %d: %w", id, models.ErrNotFound)
	}
	return m.getFolder, nil
}

func (m *mockFolderRepository) List(ctx context.Context) ([]models.MediaFolder, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.folders, nil
}

func (m *mockFolderRepository) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

// storeCall records one FileStorage.Store invocation
type storeCall struct {
	originalName  string
	folderSegment string
}

// mockFileStorage is a mock implementation of FileStorage
type mockFileStorage struct {
	storeURLs   []string // popped per call; a generated URL is used when empty
	storeErr    error
	storeCalls  []storeCall
	deleted     []string
	deleteErr   error
	createdDirs []string
	createErr   error
	removedDirs []string
	removeErr   error
}

func (m *mockFileStorage) Store(data []byte, originalName, folderSegment string) (string, error) {
	if m.storeErr != nil {
		return "", m.storeErr
	}
	m.storeCalls = append(m.storeCalls, storeCall{originalName: originalName, folderSegment: folderSegment})
	if len(m.storeURLs) > 0 {
		url := m.storeURLs[0]
		m.storeURLs = m.storeURLs[1:]
		return url, nil
	}
	return fmt.Sprintf("/uploads/stored-%d", len(m.storeCalls)), nil
}

func (m *mockFileStorage) Delete(url string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, url)
	return nil
}

func (m *mockFileStorage) CreateFolderDir(segment string) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdDirs = append(m.createdDirs, segment)
	return nil
}

func (m *mockFileStorage) RemoveFolderDir(segment string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removedDirs = append(m.removedDirs, segment)
	return nil
}

// mockThumbnailer is a mock implementation of ThumbnailDeriver
type mockThumbnailer struct {
	url   string
	err   error
	calls []string
}

func (m *mockThumbnailer) Derive(ctx context.Context, sourceURL string) (string, error) {
	m.calls = append(m.calls, sourceURL)
	if m.err != nil {
		return "", m.err
	}
	return m.url, nil
}

// mockAssetCatalog is a mock implementation of AssetCatalog
type mockAssetCatalog struct {
	savedMedia *models.Media
	saveErr    error
	saveCalls  []*models.UploadFile
	findMedia  map[string]*models.Media
	findErr    error
	findCalls  []string
}

func (m *mockAssetCatalog) SaveFile(ctx context.Context, file *models.UploadFile, folder *models.MediaFolder) (*models.Media, error) {
	m.saveCalls = append(m.saveCalls, file)
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	if m.savedMedia != nil {
		return m.savedMedia, nil
	}
	return &models.Media{
		URL: fmt.Sprintf("/uploads/saved-%d", len(m.saveCalls)),
	}, nil
}

func (m *mockAssetCatalog) FindByURL(ctx context.Context, url string) (*models.Media, error) {
	m.findCalls = append(m.findCalls, url)
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.findMedia[url], nil
}

// mockPostRepository is a mock implementation of PostRepository
type mockPostRepository struct {
	createID      int64
	createErr     error
	created       *models.Post
	getPost       *models.Post
	getErr        error
	bySlugPost    *models.Post
	bySlugErr     error
	bySlugArgs    []string
	listItems     []models.Post
	listTotal     int
	listErr       error
	listFeatured  *bool
	listLimit     int
	listOffset    int
	updateErr     error
	updated       *models.Post
	deleteErr     error
	deletedIDs    []int64
}

func (m *mockPostRepository) Create(ctx context.Context, post *models.Post) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	copied := *post
	m.created = &copied
	if m.createID != 0 {
		return m.createID, nil
	}
	return 1, nil
}

func (m *mockPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getPost == nil {
		return nil, fmt.Errorf("post with id %d: %w", id, models.ErrNotFound)
	}
	copied := *m.getPost
	return &copied, nil
}

func (m *mockPostRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	m.bySlugArgs = append(m.bySlugArgs, slug)
	if m.bySlugErr != nil {
		return nil, m.bySlugErr
	}
	if m.bySlugPost == nil {
		return nil, fmt.Errorf("post with slug %q: %w", slug, models.ErrNotFound)
	}
	return m.bySlugPost, nil
}

func (m *mockPostRepository) ListPage(ctx context.Context, isFeatured *bool, limit, offset int) ([]models.Post, int, error) {
	m.listFeatured = isFeatured
	m.listLimit = limit
	m.listOffset = offset
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listItems, m.listTotal, nil
}

func (m *mockPostRepository) Update(ctx context.Context, post *models.Post) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *post
	m.updated = &copied
	return nil
}

func (m *mockPostRepository) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

// mockCategoryRepository is a mock implementation of CategoryRepository
type mockCategoryRepository struct {
	createID    int64
	createErr   error
	created     *models.Category
	getCategory *models.Category
	getErr      error
	categories  []models.Category
	listErr     error
	updateErr   error
	updated     *models.Category
	deleteErr   error
	deletedIDs  []int64
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *models.Category) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	copied := *category
	m.created = &copied
	if m.createID != 0 {
		return m.createID, nil
	}
	return 1, nil
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getCategory == nil {
		return nil, fmt.Errorf("category with id %d: %w", id, models.ErrNotFound)
	}
	copied := *m.getCategory
	return &copied, nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.categories, nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *category
	m.updated = &copied
	return nil
}

func (m *mockCategoryRepository) DeleteByID(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

// mockDocumentMerger is a mock implementation of DocumentMerger
type mockDocumentMerger struct {
	result  *models.PostDocuments
	err     error
	current *models.PostDocuments
	fields  models.DocumentFieldInput
	uploads models.DocumentUploads
	called  bool
}

func (m *mockDocumentMerger) Resolve(ctx context.Context, current *models.PostDocuments, fields models.DocumentFieldInput, uploads models.DocumentUploads) (*models.PostDocuments, error) {
	m.called = true
	m.current = current
	m.fields = fields
	m.uploads = uploads
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}
