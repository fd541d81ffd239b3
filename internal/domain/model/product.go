package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Product is one catalog entry the assistant can search and display.
type Product struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"price" yaml:"price"`
	Size        float64 `json:"size" yaml:"size"`
	Description string  `json:"description" yaml:"description"`
	BestFor     string  `json:"best_for" yaml:"best_for"`
}

type FilterOp string

const (
	FilterLT FilterOp = "lt"
	FilterLE FilterOp = "le"
	FilterGT FilterOp = "gt"
	FilterGE FilterOp = "ge"
	FilterEQ FilterOp = "eq"
)

// ProductFilter is a numeric comparison on price or size, e.g. "price lt 1000".
type ProductFilter struct {
	Field string
	Op    FilterOp
	Value float64
}

// ParseProductFilter parses clauses joined by "and", such as
// "price lt 1000 and size gt 30". An empty expression yields no filters.
func ParseProductFilter(expr string) ([]ProductFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	var out []ProductFilter
	for _, clause := range strings.Split(strings.ToLower(expr), " and ") {
		parts := strings.Fields(clause)
		if len(parts) != 3 {
			return nil, fmt.Errorf("filter clause %q: want <field> <op> <number>", clause)
		}
		field := parts[0]
		if field != "price" && field != "size" {
			return nil, fmt.Errorf("filter field %q not supported", field)
		}
		op := FilterOp(parts[1])
		switch op {
		case FilterLT, FilterLE, FilterGT, FilterGE, FilterEQ:
		default:
			return nil, fmt.Errorf("filter operator %q not supported", parts[1])
		}
		v, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("filter value %q: %w", parts[2], err)
		}
		out = append(out, ProductFilter{Field: field, Op: op, Value: v})
	}
	return out, nil
}

// Match reports whether p satisfies the filter.
func (f ProductFilter) Match(p Product) bool {
	v := p.Price
	if f.Field == "size" {
		v = p.Size
	}
	switch f.Op {
	case FilterLT:
		return v < f.Value
	case FilterLE:
		return v <= f.Value
	case FilterGT:
		return v > f.Value
	case FilterGE:
		return v >= f.Value
	case FilterEQ:
		return v == f.Value
	}
	return false
}
