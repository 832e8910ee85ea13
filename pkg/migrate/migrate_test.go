package migrate

import (
	"context"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/db"
	"github.com/aogosto/order-triage/pkg/logger"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Migrations, Dir))
}

func TestValidateFSRejectsBadFiles(t *testing.T) {
	bad := fstest.MapFS{
		"migrations/20250101000000_ok.sql":  {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"migrations/20250101000000_dup.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	assert.ErrorContains(t, ValidateFS(bad, "migrations"), "duplicate migration version")

	noDown := fstest.MapFS{"migrations/20250101000000_up.sql": {Data: []byte("-- +goose Up\n")}}
	assert.ErrorContains(t, ValidateFS(noDown, "migrations"), "missing")

	badName := fstest.MapFS{"migrations/init.sql": {Data: []byte("")}}
	assert.ErrorContains(t, ValidateFS(badName, "migrations"), "invalid migration filename")
}

func TestUpIsRepeatable(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver:       db.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
	}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, Up(ctx, client))
	require.NoError(t, Up(ctx, client))

	version, err := Version(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, int64(20250310000100), version)
	assert.True(t, client.DB().Migrator().HasTable("processed_orders"))
}

func TestUpRequiresClient(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil))
}
