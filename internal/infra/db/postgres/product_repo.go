package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/repository"
)

var _ repository.ProductCatalog = (*ProductRepo)(nil)

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const productColumns = `id, name, price, size, description, best_for`

var filterSQL = map[model.FilterOp]string{
	model.FilterLT: "<",
	model.FilterLE: "<=",
	model.FilterGT: ">",
	model.FilterGE: ">=",
	model.FilterEQ: "=",
}

// buildSearch renders the catalog query. Each query word must appear in the
// name, description or best_for text.
func buildSearch(query string, filters []model.ProductFilter, limit int) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	for _, w := range strings.Fields(query) {
		args = append(args, "%"+w+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR best_for ILIKE $%d)", n, n, n))
	}
	for _, f := range filters {
		op, ok := filterSQL[f.Op]
		if !ok || (f.Field != "price" && f.Field != "size") {
			return "", nil, fmt.Errorf("unsupported filter %+v", f)
		}
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s %s $%d", f.Field, op, len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT " + productColumns + " FROM products")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY id LIMIT $%d;", len(args))
	return b.String(), args, nil
}

func (r *ProductRepo) Search(ctx context.Context, query string, filters []model.ProductFilter, limit int) ([]model.Product, error) {
	q, args, err := buildSearch(query, filters, limit)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, q, args...)
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1);`
	found, err := r.query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]model.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Upsert inserts or replaces catalog rows.
func (r *ProductRepo) Upsert(ctx context.Context, products []model.Product) error {
	const q = `
INSERT INTO products (` + productColumns + `)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  price = EXCLUDED.price,
  size = EXCLUDED.size,
  description = EXCLUDED.description,
  best_for = EXCLUDED.best_for;`
	for _, p := range products {
		if _, err := r.pool.Exec(ctx, q, p.ID, p.Name, p.Price, p.Size, p.Description, p.BestFor); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}
	return nil
}

func (r *ProductRepo) query(ctx context.Context, q string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Size, &p.Description, &p.BestFor); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
