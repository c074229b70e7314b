// Package remote loads the per-user cart owned by the backend.
package remote

import (
	"context"
	"log/slog"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	"github.com/go-playground/validator/v10"
)

// LoadResult reports a server cart fetch. Error is set only when Success is false.
type LoadResult struct {
	Success bool            `json:"success"`
	Items   []cart.LineItem `json:"items,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CartLoader fetches the server cart of the authenticated user.
// Implementations never fail: problems are reported through Success=false.
type CartLoader interface {
	LoadUserCart(ctx context.Context) LoadResult
}

// Failure builds an unsuccessful LoadResult.
func Failure(err error) LoadResult {
	return LoadResult{Success: false, Error: err.Error()}
}

// validItems drops rows that don't satisfy the line item rules.
func validItems(ctx context.Context, validate *validator.Validate, logger *slog.Logger, items []cart.LineItem) []cart.LineItem {
	out := make([]cart.LineItem, 0, len(items))
	for _, item := range items {
		if err := validate.Struct(item); err != nil {
			logger.WarnContext(ctx, "Dropping invalid server cart row", "product_id", item.ProductID, "error", err)
			continue
		}
		out = append(out, item)
	}
	return out
}
