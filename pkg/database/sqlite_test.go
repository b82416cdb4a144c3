package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfig_DSN(t *testing.T) {
	dsn := Config{Path: "data/travel.db"}.DSN()
	assert.Equal(t, "file:data/travel.db?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", dsn)

	dsn = Config{Path: "x.db", BusyTimeout: 250 * time.Millisecond}.DSN()
	assert.Contains(t, dsn, "_busy_timeout=250")
}

func TestNew_EnforcesForeignKeys(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "fk.db"), MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	var on int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}
