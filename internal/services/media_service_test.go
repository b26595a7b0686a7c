package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/khmerweb/cms-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMediaService(mediaRepo *mockMediaRepository, folderRepo *mockFolderRepository, fileStorage *mockFileStorage, thumbnailer ThumbnailDeriver) *MediaService {
	svc := NewMediaService(mediaRepo, folderRepo, fileStorage, thumbnailer, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func pdfUpload(name string) models.UploadFile {
	return models.UploadFile{OriginalName: name, MimeType: "application/pdf", Data: []byte("%PDF-1.7")}
}

func imageUpload(name string) models.UploadFile {
	return models.UploadFile{OriginalName: name, MimeType: "image/png", Data: []byte{0x89, 0x50}}
}

func TestMediaService_SaveFile(t *testing.T) {
	t.Run("image save creates row with detected kind", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{createID: 42}
		fileStorage := &mockFileStorage{storeURLs: []string{"/uploads/1-a.png"}}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		file := imageUpload("logo.png")
		media, err := svc.SaveFile(context.Background(), &file, nil)

		require.NoError(t, err)
		assert.Equal(t, int64(42), media.ID)
		assert.Equal(t, "/uploads/1-a.png", media.URL)
		assert.Equal(t, "1-a.png", media.Filename)
		assert.Equal(t, models.MediaTypeImage, media.MediaType)
		assert.Equal(t, models.StorageDriverLocal, media.StorageDriver)
		assert.Nil(t, media.ThumbnailURL)
		assert.Nil(t, media.FolderID)
	})

	t.Run("pdf save derives thumbnail", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{}
		fileStorage := &mockFileStorage{storeURLs: []string{"/uploads/1-a.pdf"}}
		thumbnailer := &mockThumbnailer{url: "/uploads/thumbnails/1-a.png"}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, thumbnailer)

		file := pdfUpload("report.pdf")
		media, err := svc.SaveFile(context.Background(), &file, nil)

		require.NoError(t, err)
		require.NotNil(t, media.ThumbnailURL)
		assert.Equal(t, "/uploads/thumbnails/1-a.png", *media.ThumbnailURL)
		assert.Equal(t, []string{"/uploads/1-a.pdf"}, thumbnailer.calls)
	})

	t.Run("pdf save without rasterization capability fails fast", func(t *testing.T) {
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(&mockMediaRepository{}, &mockFolderRepository{}, fileStorage, nil)

		file := pdfUpload("report.pdf")
		media, err := svc.SaveFile(context.Background(), &file, nil)

		assert.ErrorIs(t, err, models.ErrThumbnailerUnavailable)
		assert.Nil(t, media)
		assert.Empty(t, fileStorage.storeCalls)
	})

	t.Run("pdf thumbnail failure degrades to no thumbnail", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{}
		thumbnailer := &mockThumbnailer{err: errors.New("rasterizer crashed")}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, thumbnailer)

		file := pdfUpload("report.pdf")
		media, err := svc.SaveFile(context.Background(), &file, nil)

		require.NoError(t, err)
		assert.Nil(t, media.ThumbnailURL)
	})

	t.Run("pdf tool producing no output leaves thumbnail null", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, &mockThumbnailer{url: ""})

		file := pdfUpload("report.pdf")
		media, err := svc.SaveFile(context.Background(), &file, nil)

		require.NoError(t, err)
		assert.Nil(t, media.ThumbnailURL)
	})

	t.Run("row failure compensates with storage deletes", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{createErr: errors.New("database error")}
		fileStorage := &mockFileStorage{storeURLs: []string{"/uploads/1-a.pdf"}}
		thumbnailer := &mockThumbnailer{url: "/uploads/thumbnails/1-a.png"}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, thumbnailer)

		file := pdfUpload("report.pdf")
		media, err := svc.SaveFile(context.Background(), &file, nil)

		assert.Error(t, err)
		assert.Nil(t, media)
		assert.Equal(t, []string{"/uploads/1-a.pdf", "/uploads/thumbnails/1-a.png"}, fileStorage.deleted)
	})

	t.Run("folder save slugifies the directory segment", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		file := imageUpload("logo.png")
		folder := &models.MediaFolder{ID: 3, Name: "Team Alpha"}
		media, err := svc.SaveFile(context.Background(), &file, folder)

		require.NoError(t, err)
		require.Len(t, fileStorage.storeCalls, 1)
		assert.Equal(t, "team-alpha", fileStorage.storeCalls[0].folderSegment)
		require.NotNil(t, media.FolderID)
		assert.Equal(t, int64(3), *media.FolderID)
	})

	t.Run("empty file is a validation error", func(t *testing.T) {
		svc := newTestMediaService(&mockMediaRepository{}, &mockFolderRepository{}, &mockFileStorage{}, nil)

		_, err := svc.SaveFile(context.Background(), &models.UploadFile{OriginalName: "x"}, nil)

		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestMediaService_Upload(t *testing.T) {
	t.Run("unknown folder fails before any save", func(t *testing.T) {
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(&mockMediaRepository{}, &mockFolderRepository{}, fileStorage, nil)

		folderID := int64(99)
		files := []models.UploadFile{imageUpload("a.png")}
		_, err := svc.Upload(context.Background(), files, &folderID)

		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Empty(t, fileStorage.storeCalls)
	})

	t.Run("files are independent units of work", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{createErr: errors.New("database error"), createErrOn: 2}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		files := []models.UploadFile{imageUpload("a.png"), imageUpload("b.png"), imageUpload("c.png")}
		saved, err := svc.Upload(context.Background(), files, nil)

		assert.Error(t, err)
		// The first file's save survives the second file's failure.
		require.Len(t, saved, 1)
		assert.Equal(t, "a.png", saved[0].OriginalName)
		// Only the failed file's bytes are compensated.
		assert.Equal(t, []string{"/uploads/stored-2"}, fileStorage.deleted)
	})

	t.Run("no files is a validation error", func(t *testing.T) {
		svc := newTestMediaService(&mockMediaRepository{}, &mockFolderRepository{}, &mockFileStorage{}, nil)

		_, err := svc.Upload(context.Background(), nil, nil)

		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestMediaService_FindAll(t *testing.T) {
	tests := []struct {
		name             string
		page             int
		pageSize         int
		expectedPage     int
		expectedPageSize int
	}{
		{name: "defaults", page: 0, pageSize: 0, expectedPage: 1, expectedPageSize: 20},
		{name: "page floor", page: -5, pageSize: 10, expectedPage: 1, expectedPageSize: 10},
		{name: "page size ceiling", page: 2, pageSize: 500, expectedPage: 2, expectedPageSize: 50},
		{name: "page size floor", page: 1, pageSize: -1, expectedPage: 1, expectedPageSize: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaRepo := &mockMediaRepository{listTotal: 100}
			svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, nil)

			page, err := svc.FindAll(context.Background(), tt.page, tt.pageSize, nil)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedPage, page.Page)
			assert.Equal(t, tt.expectedPageSize, page.PageSize)
			assert.Equal(t, tt.expectedPageSize, mediaRepo.listLimit)
			assert.Equal(t, (tt.expectedPage-1)*tt.expectedPageSize, mediaRepo.listOffset)
		})
	}

	t.Run("root listing includes folders", func(t *testing.T) {
		folderRepo := &mockFolderRepository{folders: []models.MediaFolder{{ID: 1, Name: "Reports"}}}
		mediaRepo := &mockMediaRepository{}
		svc := newTestMediaService(mediaRepo, folderRepo, &mockFileStorage{}, nil)

		page, err := svc.FindAll(context.Background(), 1, 20, nil)

		require.NoError(t, err)
		assert.Len(t, page.Folders, 1)
		assert.Nil(t, mediaRepo.listFolderID)
	})

	t.Run("folder listing omits folders", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, nil)

		folderID := int64(5)
		page, err := svc.FindAll(context.Background(), 1, 20, &folderID)

		require.NoError(t, err)
		assert.Nil(t, page.Folders)
		require.NotNil(t, mediaRepo.listFolderID)
		assert.Equal(t, int64(5), *mediaRepo.listFolderID)
	})
}

func TestMediaService_FindByURL(t *testing.T) {
	t.Run("unknown url is absent, not an error", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{getByURLErr: fmt.Errorf("media with url %q: %w", "/uploads/missing.pdf", models.ErrNotFound)}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, nil)

		media, err := svc.FindByURL(context.Background(), "/uploads/missing.pdf")

		assert.NoError(t, err)
		assert.Nil(t, media)
	})

	t.Run("absolute url is reduced to its path", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{getByURL: &models.Media{ID: 4}}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, nil)

		media, err := svc.FindByURL(context.Background(), "http://example.com/uploads/a.pdf")

		require.NoError(t, err)
		assert.Equal(t, int64(4), media.ID)
		assert.Equal(t, []string{"/uploads/a.pdf"}, mediaRepo.getByURLArgs)
	})

	t.Run("database errors still surface", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{getByURLErr: errors.New("database error")}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, &mockFileStorage{}, nil)

		_, err := svc.FindByURL(context.Background(), "/uploads/a.pdf")

		assert.Error(t, err)
	})
}

func TestMediaService_Replace(t *testing.T) {
	oldThumb := "/uploads/thumbnails/old.png"
	existing := &models.Media{
		ID:            4,
		URL:           "/uploads/old.pdf",
		ThumbnailURL:  &oldThumb,
		MimeType:      "application/pdf",
		MediaType:     models.MediaTypePDF,
		StorageDriver: models.StorageDriverLocal,
	}

	t.Run("new file stored first, old files deleted last", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{getMedia: existing}
		fileStorage := &mockFileStorage{storeURLs: []string{"/uploads/new.png"}}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		file := imageUpload("new.png")
		media, err := svc.Replace(context.Background(), 4, &file)

		require.NoError(t, err)
		assert.Equal(t, int64(4), media.ID)
		assert.Equal(t, "/uploads/new.png", media.URL)
		assert.Equal(t, models.MediaTypeImage, media.MediaType)
		assert.Nil(t, media.ThumbnailURL)
		require.NotNil(t, mediaRepo.updated)
		assert.Equal(t, "/uploads/new.png", mediaRepo.updated.URL)
		assert.Equal(t, []string{"/uploads/old.pdf", oldThumb}, fileStorage.deleted)
	})

	t.Run("row failure deletes the new file and keeps the old", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{getMedia: existing, updateErr: errors.New("database error")}
		fileStorage := &mockFileStorage{storeURLs: []string{"/uploads/new.png"}}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		file := imageUpload("new.png")
		_, err := svc.Replace(context.Background(), 4, &file)

		assert.Error(t, err)
		assert.Equal(t, []string{"/uploads/new.png"}, fileStorage.deleted)
	})
}

func TestMediaService_Remove(t *testing.T) {
	t.Run("deletes row then files", func(t *testing.T) {
		thumb := "/uploads/thumbnails/t.png"
		mediaRepo := &mockMediaRepository{getMedia: &models.Media{
			ID:            4,
			URL:           "/uploads/a.pdf",
			ThumbnailURL:  &thumb,
			StorageDriver: models.StorageDriverLocal,
		}}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		err := svc.Remove(context.Background(), 4)

		require.NoError(t, err)
		assert.Equal(t, []int64{4}, mediaRepo.deletedIDs)
		assert.Equal(t, []string{"/uploads/a.pdf", thumb}, fileStorage.deleted)
	})

	t.Run("non-local driver keeps files untouched", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{getMedia: &models.Media{ID: 4, URL: "s3://bucket/a.pdf", StorageDriver: "s3"}}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(mediaRepo, &mockFolderRepository{}, fileStorage, nil)

		err := svc.Remove(context.Background(), 4)

		require.NoError(t, err)
		assert.Empty(t, fileStorage.deleted)
	})
}

func TestMediaService_CreateFolder(t *testing.T) {
	t.Run("creates row then directory", func(t *testing.T) {
		folderRepo := &mockFolderRepository{createID: 3}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(&mockMediaRepository{}, folderRepo, fileStorage, nil)

		folder, err := svc.CreateFolder(context.Background(), "Team Alpha")

		require.NoError(t, err)
		assert.Equal(t, int64(3), folder.ID)
		assert.Equal(t, "Team Alpha", folder.Name)
		assert.Equal(t, []string{"team-alpha"}, fileStorage.createdDirs)
	})

	t.Run("segment collision is a conflict even when raw names differ", func(t *testing.T) {
		folderRepo := &mockFolderRepository{folders: []models.MediaFolder{{ID: 1, Name: "Team Alpha"}}}
		svc := newTestMediaService(&mockMediaRepository{}, folderRepo, &mockFileStorage{}, nil)

		_, err := svc.CreateFolder(context.Background(), "team-alpha")

		assert.ErrorIs(t, err, models.ErrConflict)
		assert.Empty(t, folderRepo.created)
	})

	t.Run("directory failure rolls the row back", func(t *testing.T) {
		folderRepo := &mockFolderRepository{createID: 3}
		fileStorage := &mockFileStorage{createErr: errors.New("disk full")}
		svc := newTestMediaService(&mockMediaRepository{}, folderRepo, fileStorage, nil)

		_, err := svc.CreateFolder(context.Background(), "Reports")

		assert.Error(t, err)
		assert.Equal(t, []int64{3}, folderRepo.deletedIDs)
	})

	t.Run("name must survive slugification", func(t *testing.T) {
		svc := newTestMediaService(&mockMediaRepository{}, &mockFolderRepository{}, &mockFileStorage{}, nil)

		_, err := svc.CreateFolder(context.Background(), "!!!")

		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		svc := newTestMediaService(&mockMediaRepository{}, &mockFolderRepository{}, &mockFileStorage{}, nil)

		_, err := svc.CreateFolder(context.Background(), "")

		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestMediaService_DeleteFolder(t *testing.T) {
	folder := &models.MediaFolder{ID: 3, Name: "Reports"}
	thumb := "/uploads/thumbnails/t.png"
	items := []models.Media{
		{ID: 10, URL: "/uploads/reports/a.pdf", ThumbnailURL: &thumb, StorageDriver: models.StorageDriverLocal},
		{ID: 11, URL: "/uploads/reports/b.png", StorageDriver: models.StorageDriverLocal},
		{ID: 12, URL: "/uploads/reports/c.png", StorageDriver: models.StorageDriverLocal},
	}

	t.Run("non-empty folder without force is a count-bearing precondition error", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{byFolder: items}
		folderRepo := &mockFolderRepository{getFolder: folder}
		svc := newTestMediaService(mediaRepo, folderRepo, &mockFileStorage{}, nil)

		count, err := svc.DeleteFolder(context.Background(), 3, false)

		assert.ErrorIs(t, err, models.ErrFolderNotEmpty)
		assert.Contains(t, err.Error(), "3 items")
		assert.Zero(t, count)
		assert.Empty(t, folderRepo.deletedIDs)
	})

	t.Run("forced deletion cascades and reports the count", func(t *testing.T) {
		mediaRepo := &mockMediaRepository{byFolder: items}
		folderRepo := &mockFolderRepository{getFolder: folder}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(mediaRepo, folderRepo, fileStorage, nil)

		count, err := svc.DeleteFolder(context.Background(), 3, true)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, []int64{10, 11, 12}, mediaRepo.deletedIDs)
		assert.Equal(t, []int64{3}, folderRepo.deletedIDs)
		assert.Equal(t, []string{"/uploads/reports/a.pdf", thumb, "/uploads/reports/b.png", "/uploads/reports/c.png"}, fileStorage.deleted)
		assert.Equal(t, []string{"reports"}, fileStorage.removedDirs)
	})

	t.Run("empty folder deletes without force", func(t *testing.T) {
		folderRepo := &mockFolderRepository{getFolder: folder}
		fileStorage := &mockFileStorage{}
		svc := newTestMediaService(&mockMediaRepository{}, folderRepo, fileStorage, nil)

		count, err := svc.DeleteFolder(context.Background(), 3, false)

		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Equal(t, []int64{3}, folderRepo.deletedIDs)
		assert.Equal(t, []string{"reports"}, fileStorage.removedDirs)
	})
}
