package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "standup.db"))
	require.NoError(t, err)
	defer db.Close()

	var foreignKeys int
	require.NoError(t, db.DB().QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys, "foreign keys are enforced")

	var busyTimeout int
	require.NoError(t, db.DB().QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout, "concurrent writers wait for the lock")
}
