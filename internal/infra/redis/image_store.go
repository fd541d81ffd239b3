package redis

import (
	"context"
	"errors"

	"voice-ai-assistant/internal/domain"
	"voice-ai-assistant/internal/domain/ports/repository"
)

var _ repository.ImageRepository = (*ImageStore)(nil)

// DefaultImagePrefix namespaces product images in redis.
const DefaultImagePrefix = "image:"

// ImageStore reads raw product images stored under prefix+productID.
type ImageStore struct {
	client RedisClient
	prefix string
}

func NewImageStore(client RedisClient, prefix string) *ImageStore {
	return &ImageStore{client: client, prefix: prefix}
}

func (s *ImageStore) Get(ctx context.Context, productID string) ([]byte, error) {
	b, err := s.client.GetBytes(ctx, s.prefix+productID)
	if errors.Is(err, Nil) || (err == nil && len(b) == 0) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// Put stores an image without expiry.
func (s *ImageStore) Put(ctx context.Context, productID string, image []byte) error {
	return s.client.Set(ctx, s.prefix+productID, image, 0)
}
