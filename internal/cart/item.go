// Package cart holds the line item model and pure functions over item lists.
package cart

import (
	"sort"
)

// LineItem is one product row in the cart. UnitPrice is in minor units (cents).
type LineItem struct {
	ItemID    string  `json:"item_id"`
	ProductID string  `json:"product_id" validate:"required"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unit_price" validate:"min=0"`
	ImageURL  *string `json:"image_url"`
	Quantity  int     `json:"quantity" validate:"min=1"`
	VendorID  string  `json:"vendor_id"`
	Weight    float64 `json:"weight" validate:"min=0"`
	MaxStock  int     `json:"max_stock" validate:"min=0"`
}

// Subtotal returns UnitPrice * Quantity.
func (i LineItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// TotalItems returns the sum of quantities.
func TotalItems(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalPrice returns the sum of UnitPrice * Quantity over all items.
func TotalPrice(items []LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// Clone returns a deep copy of items. A nil slice stays nil.
func Clone(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		if item.ImageURL != nil {
			url := *item.ImageURL
			item.ImageURL = &url
		}
		out[i] = item
	}
	return out
}

// Find returns the index of the item with productID, or -1.
func Find(items []LineItem, productID string) int {
	for i, item := range items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Normalize drops rows with a non-positive quantity and collapses duplicate
// product ids. The first occurrence keeps its position and the last one wins.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range Clone(items) {
		if item.Quantity <= 0 {
			continue
		}
		if idx := Find(out, item.ProductID); idx >= 0 {
			out[idx] = item
			continue
		}
		out = append(out, item)
	}
	return out
}

// VendorGroup is the set of items sold by one vendor.
type VendorGroup struct {
	VendorID   string     `json:"vendor_id"`
	Items      []LineItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice int64      `json:"total_price"`
	Weight     float64    `json:"weight"`
}

// GroupByVendor splits items per vendor, sorted by vendor id.
// Item order inside a group follows the cart order.
func GroupByVendor(items []LineItem) []VendorGroup {
	byVendor := make(map[string]*VendorGroup)
	for _, item := range items {
		g, ok := byVendor[item.VendorID]
		if !ok {
			g = &VendorGroup{VendorID: item.VendorID}
			byVendor[item.VendorID] = g
		}
		g.Items = append(g.Items, item)
		g.TotalItems += item.Quantity
		g.TotalPrice += item.Subtotal()
		g.Weight += item.Weight * float64(item.Quantity)
	}
	groups := make([]VendorGroup, 0, len(byVendor))
	for _, g := range byVendor {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].VendorID < groups[j].VendorID
	})
	return groups
}
