package storage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// thumbnailDir is the subdirectory of the upload root all derived previews
// land in.
const thumbnailDir = "thumbnails"

// Rasterizer renders the first page of a PDF file to `{outputPrefix}.png`.
type Rasterizer interface {
	RenderFirstPage(ctx context.Context, inputPath, outputPrefix string) error
}

// PopplerRasterizer shells out to poppler's pdftocairo binary.
type PopplerRasterizer struct {
	binPath string
}

// NewPopplerRasterizer locates pdftocairo once at startup. A non-empty
// binPath overrides the PATH lookup. Callers treat a lookup failure as the
// capability being absent and wire a nil rasterizer instead.
func NewPopplerRasterizer(binPath string) (*PopplerRasterizer, error) {
	if binPath == "" {
		binPath = "pdftocairo"
	}

	resolved, err := exec.LookPath(binPath)
	if err != nil {
		return nil, fmt.Errorf("pdftocairo not available: %w", err)
	}

	return &PopplerRasterizer{binPath: resolved}, nil
}

// RenderFirstPage rasterizes page one of inputPath as a single PNG file.
func (r *PopplerRasterizer) RenderFirstPage(ctx context.Context, inputPath, outputPrefix string) error {
	cmd := exec.CommandContext(ctx, r.binPath,
		"-png", "-singlefile", "-f", "1", "-l", "1",
		inputPath, outputPrefix,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pdftocairo failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Thumbnailer derives single-page PNG previews for stored PDF files.
type Thumbnailer struct {
	storage    *LocalStorage
	rasterizer Rasterizer
}

// NewThumbnailer creates a new Thumbnailer writing into the storage driver's
// upload root.
func NewThumbnailer(storage *LocalStorage, rasterizer Rasterizer) *Thumbnailer {
	return &Thumbnailer{
		storage:    storage,
		rasterizer: rasterizer,
	}
}

// Derive produces a preview PNG for the stored file at sourceURL and returns
// its public URL. A missing source file and a rasterizer run that produced no
// output both degrade to ("", nil); a rasterizer failure is returned as an
// error for the caller to degrade on.
func (t *Thumbnailer) Derive(ctx context.Context, sourceURL string) (string, error) {
	srcPath, ok := t.storage.AbsolutePath(sourceURL)
	if !ok {
		return "", nil
	}
	if _, err := os.Stat(srcPath); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat source file: %w", err)
	}

	absDir := filepath.Join(t.storage.BasePath(), t.storage.UploadRoot(), thumbnailDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	baseName := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), randomToken())
	outputPrefix := filepath.Join(absDir, baseName)

	if err := t.rasterizer.RenderFirstPage(ctx, srcPath, outputPrefix); err != nil {
		return "", err
	}

	if _, err := os.Stat(outputPrefix + ".png"); err != nil {
		if os.IsNotExist(err) {
			// The tool ran but produced nothing to preview.
			return "", nil
		}
		return "", fmt.Errorf("failed to stat thumbnail output: %w", err)
	}

	return "/" + t.storage.UploadRoot() + "/" + thumbnailDir + "/" + baseName + ".png", nil
}
