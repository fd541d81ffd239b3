package memory

import (
	"context"
	"errors"
	"io/fs"
	"path"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/repository"
)

var _ repository.ImageRepository = (*ImageDir)(nil)

// ImageDir serves product images from {id}.jpg files, for setups without Redis.
type ImageDir struct {
	fsys fs.FS
}

func NewImageDir(fsys fs.FS) *ImageDir {
	return &ImageDir{fsys: fsys}
}

func (d *ImageDir) Get(ctx context.Context, productID string) ([]byte, error) {
	name := productID + ".jpg"
	if !fs.ValidPath(name) || path.Base(name) != name {
		return nil, domain.ErrNotFound
	}
	b, err := fs.ReadFile(d.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	return b, err
}
