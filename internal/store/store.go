// Package store holds the cart state and the durable record backends it persists to.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
)

// RecordName is the name of the durable record holding the cart.
const RecordName = "cart-storage"

const recordVersion = 1

// RecordStore is an interface for durable named-record storage.
// It abstracts the underlying storage, allowing for different implementations (e.g., in-memory, sqlite, postgres).
type RecordStore interface {
	// Load returns the record data.
	// Returns ErrRecordNotFound if no record exists with the given name.
	Load(ctx context.Context, name string) ([]byte, error)

	// Save creates or replaces the record.
	Save(ctx context.Context, name string, data []byte) error
}

type record struct {
	Version int             `json:"version"`
	Items   []cart.LineItem `json:"items"`
}

// EncodeRecord serializes items into the persisted record layout.
func EncodeRecord(items []cart.LineItem) ([]byte, error) {
	if items == nil {
		items = []cart.LineItem{}
	}
	return json.Marshal(record{Version: recordVersion, Items: items})
}

// DecodeRecord parses a persisted record.
func DecodeRecord(data []byte) ([]cart.LineItem, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode cart record: %w", err)
	}
	if r.Version != recordVersion {
		return nil, fmt.Errorf("unsupported cart record version %d", r.Version)
	}
	return cart.Normalize(r.Items), nil
}
