// Package stock decides whether a quantity increase fits under a product's stock ceiling.
package stock

// QuantityReader reads the live quantity of a product in the cart.
type QuantityReader interface {
	GetItemQuantity(productID string) int
}

// CanAddItem reports whether adding quantityToAdd keeps the product at or under maxStock.
// It reads live state on every call.
func CanAddItem(reader QuantityReader, productID string, quantityToAdd, maxStock int) bool {
	return reader.GetItemQuantity(productID)+quantityToAdd <= maxStock
}

// Guard binds CanAddItem to one reader.
type Guard struct {
	reader QuantityReader
}

func NewGuard(reader QuantityReader) *Guard {
	return &Guard{reader: reader}
}

func (g *Guard) CanAddItem(productID string, quantityToAdd, maxStock int) bool {
	return CanAddItem(g.reader, productID, quantityToAdd, maxStock)
}

// Available returns how many more units of productID fit under maxStock.
func (g *Guard) Available(productID string, maxStock int) int {
	left := maxStock - g.reader.GetItemQuantity(productID)
	if left < 0 {
		return 0
	}
	return left
}
