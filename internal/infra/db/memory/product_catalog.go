package memory

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/repository"
)

var _ repository.ProductCatalog = (*ProductCatalog)(nil)

// ProductCatalog is a read-only catalog loaded from a YAML list.
type ProductCatalog struct {
	products []model.Product
}

func NewProductCatalog(products []model.Product) *ProductCatalog {
	return &ProductCatalog{products: append([]model.Product(nil), products...)}
}

// LoadProducts reads a YAML list of products from fsys.
func LoadProducts(fsys fs.FS, name string) ([]model.Product, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var products []model.Product
	if err := yaml.Unmarshal(b, &products); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", name, err)
	}
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog %s: product %d has no id", name, i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog %s: duplicate id %q", name, p.ID)
		}
		seen[p.ID] = true
	}
	return products, nil
}

func (c *ProductCatalog) Search(ctx context.Context, query string, filters []model.ProductFilter, limit int) ([]model.Product, error) {
	words := strings.Fields(strings.ToLower(query))
	var out []model.Product
	for _, p := range c.products {
		if limit > 0 && len(out) >= limit {
			break
		}
		if matchesWords(p, words) && matchesFilters(p, filters) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *ProductCatalog) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		for _, p := range c.products {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func matchesWords(p model.Product, words []string) bool {
	text := strings.ToLower(p.Name + " " + p.Description + " " + p.BestFor)
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

func matchesFilters(p model.Product, filters []model.ProductFilter) bool {
	for _, f := range filters {
		if !f.Match(p) {
			return false
		}
	}
	return true
}
