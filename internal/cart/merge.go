package cart

// Merge combines a server cart with the local one.
// Server rows win for products present on both sides. Local-only rows are
// appended after the server rows. Quantities are clamped to MaxStock when it is set.
func Merge(server, local []LineItem) []LineItem {
	merged := Normalize(server)
	for _, item := range Normalize(local) {
		if Find(merged, item.ProductID) >= 0 {
			continue
		}
		merged = append(merged, item)
	}
	for i := range merged {
		if merged[i].MaxStock > 0 && merged[i].Quantity > merged[i].MaxStock {
			merged[i].Quantity = merged[i].MaxStock
		}
	}
	return merged
}
