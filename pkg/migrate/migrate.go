// Package migrate applies the embedded goose migrations of the SQL ledger.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/aogosto/order-triage/pkg/db"
)

// Dir is the migrations directory inside Migrations.
const Dir = "migrations"

//go:embed migrations/*.sql
var Migrations embed.FS

// goose keeps its dialect and filesystem in package state.
var gooseMu sync.Mutex

// Up applies every pending migration on the client's database.
func Up(ctx context.Context, client *db.Client) error {
	sqlDB, dialect, err := open(client)
	if err != nil {
		return err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := setup(dialect); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, Dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func Version(ctx context.Context, client *db.Client) (int64, error) {
	sqlDB, dialect, err := open(client)
	if err != nil {
		return 0, err
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()
	if err := setup(dialect); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("get db version: %w", err)
	}
	return version, nil
}

func open(client *db.Client) (*sql.DB, string, error) {
	if client == nil {
		return nil, "", fmt.Errorf("db client is required")
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return nil, "", fmt.Errorf("extracting sql.DB: %w", err)
	}
	dialect, err := dialectFor(client.DB().Dialector.Name())
	if err != nil {
		return nil, "", err
	}
	return sqlDB, dialect, nil
}

func setup(dialect string) error {
	goose.SetBaseFS(Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case db.DriverPostgres:
		return "postgres", nil
	case db.DriverSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported migration driver %q", driver)
}
