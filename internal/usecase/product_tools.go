package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/bytedance/sonic"

	"voice-ai-assistant/internal/domain/model"
	"voice-ai-assistant/internal/domain/ports/adapter"
	"voice-ai-assistant/internal/domain/ports/repository"
)

const (
	ToolSearchProduct  = "search_product"
	ToolDisplayProduct = "display_product_info"

	searchLimit = 3
	// displayColumns matches the number of product fields shown on screen.
	displayColumns = 6
)

var (
	searchProductSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "search_query": {"type": "string", "description": "The search query to use to search the product catalog"},
    "filter": {"type": "string", "description": "Only price and size filters are supported. Use quantities without unit. Example: price lt 1000 and size gt 30"}
  },
  "required": ["search_query"]
}`)
	displayProductSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "product_ids": {"type": "string", "description": "comma separated list of valid product ids to display information about"}
  },
  "required": ["product_ids"]
}`)
)

// ProductTools exposes the catalog to the completion model.
type ProductTools struct {
	catalog   repository.ProductCatalog
	imageBase string
}

// NewProductTools builds the tool set. imageBase prefixes /images/{id} in
// rendered image sources and may be empty for same-origin paths.
func NewProductTools(catalog repository.ProductCatalog, imageBase string) *ProductTools {
	return &ProductTools{catalog: catalog, imageBase: strings.TrimRight(imageBase, "/")}
}

func (p *ProductTools) Tools() []adapter.Tool {
	return []adapter.Tool{
		{
			Name:        ToolDisplayProduct,
			Description: "Display information about products on the screen for the user to see.",
			Parameters:  displayProductSchema,
			Run:         p.display,
		},
		{
			Name:        ToolSearchProduct,
			Description: "Searches the product catalog. It's an internal tool, the customer can't see the results. Use display_product_info to show products to the customer if needed.",
			Parameters:  searchProductSchema,
			Run:         p.search,
		},
	}
}

func (p *ProductTools) search(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		SearchQuery string `json:"search_query"`
		Filter      string `json:"filter"`
	}
	if err := sonic.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("search_product args: %w", err)
	}
	filters, err := model.ParseProductFilter(args.Filter)
	if err != nil {
		return "", err
	}
	found, err := p.catalog.Search(ctx, args.SearchQuery, filters, searchLimit)
	if err != nil {
		return "", fmt.Errorf("search catalog: %w", err)
	}
	if len(found) == 0 {
		return "no products found", nil
	}
	return sonic.MarshalString(found)
}

func (p *ProductTools) display(ctx context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		ProductIDs string `json:"product_ids"`
	}
	if err := sonic.Unmarshal(raw, &args); err != nil {
		return "", fmt.Errorf("display_product_info args: %w", err)
	}
	var ids []string
	for _, id := range strings.Split(args.ProductIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", errors.New("display_product_info: no product ids")
	}
	products, err := p.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("load products: %w", err)
	}
	if len(products) == 0 {
		return "", fmt.Errorf("display_product_info: unknown product ids %q", args.ProductIDs)
	}

	var b strings.Builder
	b.WriteString("<table border='1'>")
	for _, pr := range products {
		id := html.EscapeString(pr.ID)
		fmt.Fprintf(&b, `<tr><td colspan="%d"><img id="image_%s" src="%s/images/%s" alt="Loading image..." /></td></tr>`,
			displayColumns, id, p.imageBase, id)
	}
	b.WriteString("</table>")
	return b.String(), nil
}
