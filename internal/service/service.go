// Package service provides the stock-guarded cart mutation contract.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/abgdnv/gocommerce/cart_service/internal/stock"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CartService defines the operations UI surfaces use on the cart.
type CartService interface {
	// View returns items, per-vendor groups, totals and lifecycle flags.
	View(ctx context.Context) CartView

	// Totals returns the item count and price sum.
	Totals(ctx context.Context) TotalsDto

	// ItemQuantity returns the current quantity of a product, 0 if absent.
	ItemQuantity(ctx context.Context, productID string) int

	// Availability runs the stock guard for a proposed increase without mutating the cart.
	Availability(ctx context.Context, productID string, quantity, maxStock int) AvailabilityDto

	// AddItem adds quantity units of a product after the stock guard admits it.
	// Returns ErrInsufficientStock if the result would exceed max stock.
	AddItem(ctx context.Context, item AddItemDto) (*CartView, error)

	// UpdateItem sets the absolute quantity of a product already in the cart.
	// Increases go through the stock guard. Quantity <= 0 removes the row.
	// Returns ErrItemNotFound if the product is not in the cart.
	UpdateItem(ctx context.Context, productID string, update UpdateItemDto) (*CartView, error)

	// RemoveItem deletes a product from the cart. Absent products are a no-op.
	RemoveItem(ctx context.Context, productID string) (*CartView, error)

	// Clear empties the cart.
	Clear(ctx context.Context) error
}

// Store is the part of the cart store the service writes through.
type Store interface {
	stock.QuantityReader
	AddItem(ctx context.Context, candidate cart.LineItem, quantity int) error
	UpdateQuantity(ctx context.Context, productID string, quantity int) error
	RemoveItem(ctx context.Context, productID string) error
	ClearCart(ctx context.Context) error
	Items() []cart.LineItem
	Snapshot() store.Snapshot
}

// AddItemDto represents a product to add to the cart.
type AddItemDto struct {
	ItemID    string  `json:"item_id"`
	ProductID string  `json:"product_id" validate:"required"`
	Name      string  `json:"name" validate:"max=200"`
	UnitPrice int64   `json:"unit_price" validate:"min=0"`
	ImageURL  *string `json:"image_url" validate:"omitempty,url"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
	VendorID  string  `json:"vendor_id"`
	Weight    float64 `json:"weight" validate:"min=0"`
	MaxStock  int     `json:"max_stock" validate:"min=0"`
}

// UpdateItemDto sets an absolute quantity. The row's own MaxStock is the ceiling.
type UpdateItemDto struct {
	Quantity int `json:"quantity"`
}

// TotalsDto represents the cart aggregates.
type TotalsDto struct {
	TotalItems int   `json:"total_items"`
	TotalPrice int64 `json:"total_price"`
}

// AvailabilityDto is the result of a stock guard check.
type AvailabilityDto struct {
	ProductID string `json:"product_id"`
	Current   int    `json:"current"`
	Requested int    `json:"requested"`
	MaxStock  int    `json:"max_stock"`
	CanAdd    bool   `json:"can_add"`
}

// CartView is the full cart as served to UI surfaces.
type CartView struct {
	Items      []cart.LineItem    `json:"items"`
	Vendors    []cart.VendorGroup `json:"vendors"`
	TotalItems int                `json:"total_items"`
	TotalPrice int64              `json:"total_price"`
	IsHydrated bool               `json:"is_hydrated"`
	IsLoading  bool               `json:"is_loading"`
	Phase      string             `json:"phase"`
	Revision   uint64             `json:"revision"`
}

// Service implements CartService.
// Guard check and write run under one mutex, so no other service call can
// slip between them.
type Service struct {
	mu         sync.Mutex
	store      Store
	guard      *stock.Guard
	logger     *slog.Logger
	mutations  metric.Int64Counter
	rejections metric.Int64Counter
}

// NewService creates a new instance of CartService over the given store.
func NewService(s Store, logger *slog.Logger) *Service {
	meter := otel.Meter("cart-service")
	mutations, err := meter.Int64Counter("cart_mutations", metric.WithDescription("Total number of applied cart mutations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_mutations counter: %v", err))
	}
	rejections, err := meter.Int64Counter("cart_capacity_rejections", metric.WithDescription("Total number of mutations rejected by the stock guard"))
	if err != nil {
		panic(fmt.Sprintf("failed to create cart_capacity_rejections counter: %v", err))
	}
	return &Service{
		store:      s,
		guard:      stock.NewGuard(s),
		logger:     logger.With("component", "cart_service"),
		mutations:  mutations,
		rejections: rejections,
	}
}

func (s *Service) View(_ context.Context) CartView {
	return toView(s.store.Snapshot())
}

func (s *Service) Totals(_ context.Context) TotalsDto {
	items := s.store.Items()
	return TotalsDto{TotalItems: cart.TotalItems(items), TotalPrice: cart.TotalPrice(items)}
}

func (s *Service) ItemQuantity(_ context.Context, productID string) int {
	return s.store.GetItemQuantity(productID)
}

func (s *Service) Availability(_ context.Context, productID string, quantity, maxStock int) AvailabilityDto {
	return AvailabilityDto{
		ProductID: productID,
		Current:   s.store.GetItemQuantity(productID),
		Requested: quantity,
		MaxStock:  maxStock,
		CanAdd:    s.guard.CanAddItem(productID, quantity, maxStock),
	}
}

func (s *Service) AddItem(ctx context.Context, item AddItemDto) (*CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.Quantity < 1 {
		return nil, carterrors.ErrInvalidQuantity
	}
	if err := s.admit(ctx, "add", item.ProductID, item.Quantity, item.MaxStock); err != nil {
		return nil, err
	}
	if err := s.store.AddItem(ctx, toLineItem(item), item.Quantity); err != nil {
		return nil, err
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "add")))
	s.logger.DebugContext(ctx, "Item added", "product_id", item.ProductID, "quantity", item.Quantity)
	return s.view(), nil
}

func (s *Service) UpdateItem(ctx context.Context, productID string, update UpdateItemDto) (*CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.store.Items()
	idx := cart.Find(items, productID)
	if idx < 0 {
		return nil, fmt.Errorf("product %s: %w", productID, carterrors.ErrItemNotFound)
	}
	current := items[idx]
	if delta := update.Quantity - current.Quantity; delta > 0 {
		if err := s.admit(ctx, "update", productID, delta, current.MaxStock); err != nil {
			return nil, err
		}
	}
	if err := s.store.UpdateQuantity(ctx, productID, update.Quantity); err != nil {
		return nil, err
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))
	s.logger.DebugContext(ctx, "Item quantity updated", "product_id", productID, "quantity", update.Quantity)
	return s.view(), nil
}

func (s *Service) RemoveItem(ctx context.Context, productID string) (*CartView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.RemoveItem(ctx, productID); err != nil {
		return nil, err
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "remove")))
	return s.view(), nil
}

func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ClearCart(ctx); err != nil {
		return err
	}
	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "clear")))
	return nil
}

// admit runs the stock guard. A rejection is a capacity error and is never clamped.
func (s *Service) admit(ctx context.Context, op, productID string, quantity, maxStock int) error {
	if s.guard.CanAddItem(productID, quantity, maxStock) {
		return nil
	}
	s.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	message := fmt.Sprintf("product %s. Available: %d, Requested: %d", productID, s.guard.Available(productID, maxStock), quantity)
	s.logger.WarnContext(ctx, fmt.Sprintf("Insufficient stock for %s", message))
	return fmt.Errorf("%s: %w", message, carterrors.ErrInsufficientStock)
}

func (s *Service) view() *CartView {
	v := toView(s.store.Snapshot())
	return &v
}

func toView(snap store.Snapshot) CartView {
	return CartView{
		Items:      snap.Items,
		Vendors:    cart.GroupByVendor(snap.Items),
		TotalItems: cart.TotalItems(snap.Items),
		TotalPrice: cart.TotalPrice(snap.Items),
		IsHydrated: snap.IsHydrated,
		IsLoading:  snap.IsLoading,
		Phase:      snap.Phase.String(),
		Revision:   snap.Revision,
	}
}

func toLineItem(dto AddItemDto) cart.LineItem {
	return cart.LineItem{
		ItemID:    dto.ItemID,
		ProductID: dto.ProductID,
		Name:      dto.Name,
		UnitPrice: dto.UnitPrice,
		ImageURL:  dto.ImageURL,
		VendorID:  dto.VendorID,
		Weight:    dto.Weight,
		MaxStock:  dto.MaxStock,
	}
}
