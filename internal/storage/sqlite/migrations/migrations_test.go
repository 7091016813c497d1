package migrations_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/slok/execgate/internal/storage/sqlite/migrations"
)

func TestApply(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(err)
	defer db.Close()

	version, err := migrations.Apply(db)
	require.NoError(err)
	assert.Equal(uint(2), version)

	// Applying again is a no-op.
	version, err = migrations.Apply(db)
	require.NoError(err)
	assert.Equal(uint(2), version)

	for _, table := range []string{"instances", "kv"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(err)
		assert.Equal(table, name)
	}
}

func TestApplyNilDB(t *testing.T) {
	_, err := migrations.Apply(nil)
	assert.Error(t, err)
}
