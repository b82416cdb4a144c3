package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/entity"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/domain/workflow"
	"github.com/coconsulting2/TC3005B.501-Backend/internal/infrastructure/persistence/sqlite"
	"github.com/coconsulting2/TC3005B.501-Backend/migrations"
	"github.com/coconsulting2/TC3005B.501-Backend/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := zap.NewNop()

	raw, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "repo.db"),
		MaxOpenConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })

	_, err = database.NewMigrator(raw, logger).Run(migrations.FS)
	require.NoError(t, err)

	return sqlite.NewDB(raw.DB, logger)
}

func seedUser(t *testing.T, db *sqlite.DB, role workflow.Role) *entity.User {
	t.Helper()
	user := &entity.User{Role: role, NameCipher: "n", EmailCipher: "e", Active: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, NewUserRepository(db, zap.NewNop()).Create(context.Background(), user))
	return user
}

func seedRequest(t *testing.T, db *sqlite.DB, ownerID int64, status workflow.Status) *entity.Request {
	t.Helper()
	now := time.Now().UTC()
	req := &entity.Request{OwnerID: ownerID, Status: status, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewRequestRepository(db, zap.NewNop()).Create(context.Background(), req))
	return req
}

func countRows(t *testing.T, db *sqlite.DB, query string, args ...interface{}) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}
