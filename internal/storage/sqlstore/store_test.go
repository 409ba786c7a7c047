package sqlstore

import (
	"context"
	"database/sql"
	"testing"

	"carsync/internal/domain"
	"carsync/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// SQLite accepts backtick identifiers and ? placeholders, so it can run the
// MySQL dialect's UPDATE statements.
func TestUpdateFieldMissingVehicleMySQLDialect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.ExecContext(ctx, `CREATE TABLE cars_v2 (id INTEGER PRIMARY KEY, brand_id INTEGER)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO cars_v2 (id) VALUES (1)`)
	require.NoError(t, err)

	s, err := New(db, MySQL, "cars_v2")
	require.NoError(t, err)
	brand := domain.ByKind(domain.Brand)

	require.NoError(t, s.UpdateField(ctx, 1, brand, 5))
	// Same value again still matches the row.
	require.NoError(t, s.UpdateField(ctx, 1, brand, 5))

	err = s.UpdateField(ctx, 404, brand, 5)
	assert.ErrorIs(t, err, storage.ErrVehicleNotFound)
}
