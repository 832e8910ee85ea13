package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/aogosto/order-triage/internal/ledger"
	"github.com/aogosto/order-triage/internal/orders"
	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/db"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|version|validate|import")
	flag.Parse()

	if *cmd == "validate" {
		if err := migrate.ValidateFS(migrate.Migrations, migrate.Dir); err != nil {
			fmt.Fprintf(os.Stderr, "migration validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	switch *cmd {
	case "up":
		requireResource(ctx, logg, "migrations", migrate.Up(ctx, dbClient))
		logg.Info(ctx, "migrations applied")
	case "version":
		version, err := migrate.Version(ctx, dbClient)
		requireResource(ctx, logg, "version", err)
		fmt.Println(version)
	case "import":
		requireResource(ctx, logg, "import", importLedgers(ctx, cfg, dbClient, logg))
	default:
		fmt.Fprintf(os.Stderr, "unknown -cmd %q\n", *cmd)
		os.Exit(2)
	}
}

// importLedgers copies the file ledgers of both sources into the database.
func importLedgers(ctx context.Context, cfg *config.Config, client *db.Client, logg *logger.Logger) error {
	files := map[orders.Source]string{
		orders.SourceSite: cfg.Site.LedgerFile,
		orders.SourceApp:  cfg.AppPanel.LedgerFile,
	}
	for source, file := range files {
		path := filepath.Join(cfg.Ledger.Dir, file)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		from, err := ledger.NewFileStore(path, logg)
		if err != nil {
			return err
		}
		set, err := from.Load(ctx)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		to, err := ledger.NewSQLStore(ctx, client, string(source))
		if err != nil {
			return err
		}
		if err := to.Save(ctx, set); err != nil {
			return err
		}
		logg.Info(logg.WithFields(ctx, map[string]any{"source": string(source), "ids": len(set)}), "ledger imported")
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("failed to initialize %s", name), err)
	os.Exit(1)
}
