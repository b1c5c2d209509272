package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bucketlist/internal/platform/database/migrations"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "00001_init.sql")

	body, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ON DELETE CASCADE")
	assert.Contains(t, string(body), "UNIQUE (bucketlist_id, name)")
}

func TestMigrateUsesEmbeddedDir(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", gotDir)

	gooseUp = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("lock timeout")
	}
	require.ErrorContains(t, Migrate(context.Background(), nil), "apply migrations")
}

func TestUniqueConstraint(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "bucketlists_name_key"})
	name, ok := UniqueConstraint(err)
	assert.True(t, ok)
	assert.Equal(t, "bucketlists_name_key", name)

	_, ok = UniqueConstraint(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)
	_, ok = UniqueConstraint(errors.New("plain"))
	assert.False(t, ok)
}

func TestForeignKeyViolation(t *testing.T) {
	assert.True(t, ForeignKeyViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})))
	assert.False(t, ForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, ForeignKeyViolation(errors.New("plain")))
}
