//go:build !integration

package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"voice-ai-assistant/internal/domain/model"
)

type stubCatalog struct {
	products    []model.Product
	lastQuery   string
	lastFilters []model.ProductFilter
}

func (s *stubCatalog) Search(ctx context.Context, query string, filters []model.ProductFilter, limit int) ([]model.Product, error) {
	s.lastQuery, s.lastFilters = query, filters
	var out []model.Product
	for _, p := range s.products {
		ok := true
		for _, f := range filters {
			ok = ok && f.Match(p)
		}
		if ok && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalog) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		for _, p := range s.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func toolByName(t *testing.T, pt *ProductTools, name string) func(context.Context, json.RawMessage) (string, error) {
	t.Helper()
	for _, tool := range pt.Tools() {
		if tool.Name == name {
			if !json.Valid(tool.Parameters) {
				t.Fatalf("%s: invalid parameter schema", name)
			}
			return tool.Run
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func TestProductTools_Search(t *testing.T) {
	catalog := &stubCatalog{products: []model.Product{
		{ID: "1", Name: "Cleanser", Price: 30, Size: 125},
		{ID: "2", Name: "Cream", Price: 2000, Size: 50},
	}}
	search := toolByName(t, NewProductTools(catalog, ""), ToolSearchProduct)
	ctx := context.Background()

	out, err := search(ctx, json.RawMessage(`{"search_query":"skin care","filter":"price lt 1000"}`))
	if err != nil {
		t.Fatal(err)
	}
	if catalog.lastQuery != "skin care" || len(catalog.lastFilters) != 1 {
		t.Errorf("catalog called with %q %+v", catalog.lastQuery, catalog.lastFilters)
	}
	if !strings.Contains(out, `"Cleanser"`) || strings.Contains(out, "Cream") {
		t.Errorf("search output: %s", out)
	}

	if out, _ := search(ctx, json.RawMessage(`{"search_query":"x","filter":"size gt 999"}`)); out != "no products found" {
		t.Errorf("empty result: %q", out)
	}
	if _, err := search(ctx, json.RawMessage(`{"search_query":"x","filter":"colour eq red"}`)); err == nil {
		t.Error("bad filter should be reported to the model")
	}
}

func TestProductTools_Display(t *testing.T) {
	catalog := &stubCatalog{products: []model.Product{{ID: "1"}, {ID: "2"}}}
	display := toolByName(t, NewProductTools(catalog, "http://shop.local/"), ToolDisplayProduct)
	ctx := context.Background()

	out, err := display(ctx, json.RawMessage(`{"product_ids":"2, 1 ,404"}`))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "<tr>") != 2 {
		t.Errorf("want one row per known product: %s", out)
	}
	if strings.Index(out, "image_2") > strings.Index(out, "image_1") {
		t.Errorf("rows should follow the requested order: %s", out)
	}
	if !strings.Contains(out, `src="http://shop.local/images/1"`) {
		t.Errorf("image source: %s", out)
	}

	if _, err := display(ctx, json.RawMessage(`{"product_ids":" , "}`)); err == nil {
		t.Error("missing ids should fail")
	}
	if _, err := display(ctx, json.RawMessage(`{"product_ids":"999"}`)); err == nil {
		t.Error("unknown ids should fail")
	}
}
