// Package storage implements the local filesystem driver behind the asset
// catalog. Files live under a single configured upload root and are addressed
// by root-relative public URLs (/{uploadRoot}/{segment?}/{name}). Every
// path-accepting operation re-validates that its target stays inside the root.
package storage

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	unsafeStemChars    = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	unsafeExtChars     = regexp.MustCompile(`[^a-zA-Z0-9.]+`)
	unsafeSegmentChars = regexp.MustCompile(`[^a-z0-9_-]+`)
	dashRuns           = regexp.MustCompile(`-+`)
)

// LocalStorage writes byte streams under a namespaced root path and returns
// public-facing relative URLs.
type LocalStorage struct {
	basePath   string // absolute directory the upload root is resolved against
	uploadRoot string // public path segment, e.g. "uploads"
}

// NewLocalStorage creates a new LocalStorage instance rooted at
// basePath/uploadRoot.
func NewLocalStorage(basePath, uploadRoot string) *LocalStorage {
	return &LocalStorage{
		basePath:   basePath,
		uploadRoot: strings.Trim(uploadRoot, "/"),
	}
}

// UploadRoot returns the public upload root segment.
func (s *LocalStorage) UploadRoot() string {
	return s.uploadRoot
}

// BasePath returns the directory the upload root is resolved against.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// Store writes data to a uniquely named file under the upload root and
// returns its public URL. folderSegment, when non-empty, is re-slugified and
// becomes a subdirectory. The target directory is created if missing.
func (s *LocalStorage) Store(data []byte, originalName, folderSegment string) (string, error) {
	relativeDir := s.uploadRoot
	if segment := FolderSegment(folderSegment); segment != "" {
		relativeDir = s.uploadRoot + "/" + segment
	}

	dir := filepath.Join(s.basePath, filepath.FromSlash(relativeDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	ext := filepath.Ext(SafeFilename(originalName))
	filename := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), randomToken(), ext)

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return "/" + relativeDir + "/" + filename, nil
}

// Delete removes the file a public URL points at. A missing file is a no-op,
// and so is a URL that resolves outside the upload root.
func (s *LocalStorage) Delete(url string) error {
	if url == "" {
		return nil
	}

	absPath, ok := s.AbsolutePath(url)
	if !ok {
		return nil
	}

	if err := os.Remove(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// AbsolutePath maps a public URL back to an absolute filesystem path. The
// second return value is false when the URL escapes the upload root.
func (s *LocalStorage) AbsolutePath(url string) (string, bool) {
	// Clean with a leading slash so ".." segments cannot climb above the base.
	cleaned := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(url, "/")), "/")

	root := filepath.Join(s.basePath, s.uploadRoot)
	absPath := filepath.Join(s.basePath, filepath.FromSlash(cleaned))

	if absPath == root || !strings.HasPrefix(absPath, root+string(filepath.Separator)) {
		return "", false
	}
	return absPath, true
}

// CreateFolderDir creates the on-disk directory for a folder segment.
func (s *LocalStorage) CreateFolderDir(segment string) error {
	seg := FolderSegment(segment)
	if seg == "" {
		return fmt.Errorf("invalid folder segment %q", segment)
	}

	dir := filepath.Join(s.basePath, s.uploadRoot, seg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create folder directory: %w", err)
	}
	return nil
}

// RemoveFolderDir recursively removes a folder's directory. Removal only
// proceeds when the resolved path is strictly inside the upload root.
func (s *LocalStorage) RemoveFolderDir(segment string) error {
	seg := FolderSegment(segment)
	if seg == "" {
		return nil
	}

	root := filepath.Join(s.basePath, s.uploadRoot)
	dir := filepath.Join(root, seg)
	if dir == root || !strings.HasPrefix(dir, root+string(filepath.Separator)) {
		return nil
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove folder directory: %w", err)
	}
	return nil
}

// SafeFilename reduces a user-supplied filename to an ASCII-safe stem plus
// extension.
func SafeFilename(originalName string) string {
	base := filepath.Base(originalName)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "file"
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	safeStem := unsafeStemChars.ReplaceAllString(stem, "-")
	safeStem = dashRuns.ReplaceAllString(safeStem, "-")
	safeStem = strings.Trim(safeStem, "-")
	if safeStem == "" {
		safeStem = "file"
	}

	safeExt := unsafeExtChars.ReplaceAllString(ext, "")
	if len(safeExt) > 10 {
		safeExt = safeExt[:10]
	}

	return safeStem + safeExt
}

// FolderSegment slugifies a folder name into its on-disk directory segment.
// Two names collapsing to the same segment address the same directory, so
// segment equality is the uniqueness check for folders.
func FolderSegment(name string) string {
	segment := strings.ToLower(strings.TrimSpace(name))
	segment = unsafeSegmentChars.ReplaceAllString(segment, "-")
	segment = dashRuns.ReplaceAllString(segment, "-")
	return strings.Trim(segment, "-")
}
