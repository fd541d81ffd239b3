package repository

import (
	"context"

	"voice-ai-assistant/internal/domain/model"
)

// ProductCatalog is the searchable product list behind the assistant's tools.
type ProductCatalog interface {
	// Search returns at most limit products matching query and all filters.
	// An empty query matches every product.
	Search(ctx context.Context, query string, filters []model.ProductFilter, limit int) ([]model.Product, error)
	// GetByIDs returns the products found, in the order of ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}
