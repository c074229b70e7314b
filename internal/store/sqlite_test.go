package store

import (
	"context"
	"path/filepath"
	"testing"

	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) (*SQLiteRecordStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cart.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSQLiteRecordStore_LoadMissing(t *testing.T) {
	// given
	s, _ := openTestSQLite(t)

	// when
	_, err := s.Load(context.Background(), RecordName)

	// then
	assert.ErrorIs(t, err, carterrors.ErrRecordNotFound)
}

func TestSQLiteRecordStore_SaveOverwrites(t *testing.T) {
	// given
	ctx := context.Background()
	s, _ := openTestSQLite(t)

	// when
	require.NoError(t, s.Save(ctx, RecordName, []byte(`{"version":1,"items":[]}`)))
	require.NoError(t, s.Save(ctx, RecordName, []byte(`{"version":1,"items":[{"product_id":"p1","quantity":1}]}`)))
	data, err := s.Load(ctx, RecordName)

	// then
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"items":[{"product_id":"p1","quantity":1}]}`, string(data))
}

func TestSQLiteRecordStore_SurvivesReopen(t *testing.T) {
	// given
	ctx := context.Background()
	s, path := openTestSQLite(t)
	cartStore, err := NewCartStore(ctx, s, discardLogger)
	require.NoError(t, err)
	require.NoError(t, cartStore.AddItem(ctx, lineItem("p1", 1999, 5), 2))
	require.NoError(t, s.Close())

	// when
	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	restored, err := NewCartStore(ctx, reopened, discardLogger)

	// then
	require.NoError(t, err)
	assert.Equal(t, 2, restored.GetItemQuantity("p1"))
	assert.Equal(t, int64(3998), restored.GetTotalPrice())
}

func TestSQLiteRecordStore_Pragmas(t *testing.T) {
	// given
	s, _ := openTestSQLite(t)

	// when
	var journal string
	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))

	// then
	assert.Equal(t, "wal", journal)
	assert.Equal(t, currentSchemaVersion, version)
}
