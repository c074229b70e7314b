package store

import (
	"context"
	"embed"
	"errors"
	"fmt"

	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PgRecordStore implements RecordStore on PostgreSQL.
type PgRecordStore struct {
	db *pgxpool.Pool
}

// NewPgRecordStore creates a new instance of PgRecordStore using a PostgreSQL connection pool.
func NewPgRecordStore(dbp *pgxpool.Pool) *PgRecordStore {
	return &PgRecordStore{db: dbp}
}

// Migrate applies the embedded schema migrations to the database at url.
func Migrate(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (p *PgRecordStore) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := p.db.QueryRow(ctx, `SELECT data FROM cart_records WHERE name = $1`, name).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, carterrors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load record %s: %w", name, err)
	}
	return data, nil
}

// Save upserts the record and bumps its version inside one transaction.
func (p *PgRecordStore) Save(ctx context.Context, name string, data []byte) error {
	return p.withTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO cart_records (name, data) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE
			SET data = EXCLUDED.data, version = cart_records.version + 1, updated_at = now()`,
			name, data)
		if err != nil {
			return fmt.Errorf("failed to save record %s: %w", name, err)
		}
		return nil
	})
}

func (p *PgRecordStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return carterrors.ErrTransactionBegin
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return carterrors.ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return carterrors.ErrTransactionCommit
	}

	return nil
}
