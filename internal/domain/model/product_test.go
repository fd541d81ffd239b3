//go:build !integration

package model

import "testing"

func TestParseProductFilter(t *testing.T) {
	t.Run("parses clauses joined by and", func(t *testing.T) {
		got, err := ParseProductFilter("price lt 1000 and SIZE ge 30")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []ProductFilter{{Field: "price", Op: FilterLT, Value: 1000}, {Field: "size", Op: FilterGE, Value: 30}}
		if len(got) != len(want) {
			t.Fatalf("got %+v", got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("clause %d: got %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("empty expression means no filter", func(t *testing.T) {
		got, err := ParseProductFilter("  ")
		if err != nil || got != nil {
			t.Errorf("got %+v, %v", got, err)
		}
	})

	for _, bad := range []string{"price lt", "color eq 3", "price ne 5", "size gt thirty"} {
		if _, err := ParseProductFilter(bad); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
}

func TestProductFilter_Match(t *testing.T) {
	p := Product{ID: "1", Price: 500, Size: 50}
	cases := []struct {
		f    ProductFilter
		want bool
	}{
		{ProductFilter{"price", FilterLT, 1000}, true},
		{ProductFilter{"price", FilterLE, 500}, true},
		{ProductFilter{"price", FilterGT, 500}, false},
		{ProductFilter{"size", FilterGE, 50}, true},
		{ProductFilter{"size", FilterEQ, 49}, false},
	}
	for _, c := range cases {
		if got := c.f.Match(p); got != c.want {
			t.Errorf("%+v: got %v", c.f, got)
		}
	}
}
