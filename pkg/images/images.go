package images

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Bounds for the derived renditions. The full rendition fits within a
// 300x200 box, the thumbnail's longer dimension is clamped to 60.
// Neither is ever upscaled beyond the source.
const (
	fullWidth  = 300
	fullHeight = 200
	thumbSize  = 60
)

// Generator produces the two derived image files for a product. It
// keeps no state; every call overwrites whatever is at the target
// paths.
type Generator struct {
	dir string
}

// NewGenerator creates a Generator writing below dir
// (dir/<id>.jpg and dir/thumbnails/<id>.jpg).
func NewGenerator(dir string) *Generator {
	return &Generator{
		dir: dir,
	}
}

// ImagePath returns the path of the full rendition for a product id.
func (g *Generator) ImagePath(id uint) string {
	return filepath.Join(g.dir, fmt.Sprintf("%d.jpg", id))
}

// ThumbnailPath returns the path of the thumbnail for a product id.
func (g *Generator) ThumbnailPath(id uint) string {
	return filepath.Join(g.dir, "thumbnails", fmt.Sprintf("%d.jpg", id))
}

// Generate decodes the source image and writes both renditions. A
// decode or write failure is returned to the caller; generation is not
// part of any surrounding persistence transaction, so the caller is
// expected to log and continue.
func (g *Generator) Generate(src io.Reader, id uint) error {
	img, err := imaging.Decode(src)
	if err != nil {
		return fmt.Errorf("failed to decode uploaded image: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(g.dir, "thumbnails"), 0o755); err != nil {
		return fmt.Errorf("failed to create image directories: %w", err)
	}

	full := imaging.Fit(img, fullWidth, fullHeight, imaging.Lanczos)
	if err := imaging.Save(full, g.ImagePath(id)); err != nil {
		return fmt.Errorf("failed to save image for product %d: %w", id, err)
	}

	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	if err := imaging.Save(thumb, g.ThumbnailPath(id)); err != nil {
		return fmt.Errorf("failed to save thumbnail for product %d: %w", id, err)
	}

	return nil
}
