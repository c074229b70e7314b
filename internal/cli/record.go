package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/abgdnv/gocommerce/cart_service/internal/app"
	"github.com/abgdnv/gocommerce/cart_service/internal/cart"
	"github.com/abgdnv/gocommerce/cart_service/internal/config"
	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/abgdnv/gocommerce/cart_service/internal/store"
)

// withRecords loads the configuration and opens the configured record store for fn.
func withRecords(ctx context.Context, opts *RootOptions, fn func(store.RecordStore) error) error {
	cfg, err := config.Load(opts.ConfigFile, opts.EnvFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	if cfg.Storage.Driver == config.StorageMemory {
		return fmt.Errorf("storage driver %q keeps no record to inspect", cfg.Storage.Driver)
	}
	records, closeRecords, err := app.OpenRecordStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open cart storage: %w", err)
	}
	defer closeRecords()
	return fn(records)
}

// readItems returns the persisted items. A missing record is an empty cart.
func readItems(ctx context.Context, records store.RecordStore) ([]cart.LineItem, error) {
	data, err := records.Load(ctx, store.RecordName)
	if err != nil {
		if errors.Is(err, carterrors.ErrRecordNotFound) {
			return []cart.LineItem{}, nil
		}
		return nil, err
	}
	return store.DecodeRecord(data)
}
