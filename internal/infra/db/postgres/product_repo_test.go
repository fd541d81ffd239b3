//go:build !integration

package postgres

import (
	"testing"

	"voice-ai-assistant/internal/domain/model"
)

func TestBuildSearch(t *testing.T) {
	t.Run("words and filters", func(t *testing.T) {
		q, args, err := buildSearch("dry skin", []model.ProductFilter{{Field: "price", Op: model.FilterLT, Value: 1000}}, 3)
		if err != nil {
			t.Fatal(err)
		}
		want := "SELECT id, name, price, size, description, best_for FROM products WHERE " +
			"(name ILIKE $1 OR description ILIKE $1 OR best_for ILIKE $1) AND " +
			"(name ILIKE $2 OR description ILIKE $2 OR best_for ILIKE $2) AND price < $3 ORDER BY id LIMIT $4;"
		if q != want {
			t.Errorf("query:\n got %s\nwant %s", q, want)
		}
		if len(args) != 4 || args[0] != "%dry%" || args[2] != 1000.0 || args[3] != 3 {
			t.Errorf("args %v", args)
		}
	})

	t.Run("no criteria", func(t *testing.T) {
		q, args, _ := buildSearch("", nil, 5)
		if q != "SELECT id, name, price, size, description, best_for FROM products ORDER BY id LIMIT $1;" || len(args) != 1 {
			t.Errorf("got %s %v", q, args)
		}
	})

	t.Run("unknown field is refused", func(t *testing.T) {
		if _, _, err := buildSearch("", []model.ProductFilter{{Field: "name; drop", Op: model.FilterEQ}}, 1); err == nil {
			t.Error("expected error")
		}
	})
}
