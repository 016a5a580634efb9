package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/mandisense/api"
	"github.com/seenimoa/mandisense/internal/scheduler"
	"github.com/seenimoa/mandisense/internal/store"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		digestNow, _ := cmd.Flags().GetBool("digest-now")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if cfg.Digest.Enabled || digestNow {
			digest, err := scheduler.New(app.advisor, cfg.Digest)
			if err != nil {
				return err
			}
			if digestNow {
				if _, err := digest.RunNow(ctx); err != nil {
					slog.Error("digest run failed", "component", "cmd", "error", err)
				}
			}
			if cfg.Digest.Enabled {
				digest.Start()
				defer digest.Stop()
			}
		}

		fmt.Printf("🌐 Starting MandiSense API server on %s (%s)\n", cfg.Addr(), app.source)
		return api.NewServer(cfg, app.advisor).ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().Bool("digest-now", false, "run the market digest once at startup")
}

// --- Seed Command ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import the YAML reference catalog into SQLite",
	Example: `  mandisense seed
  mandisense seed --file ./config/catalog.yaml --db ./data/mandisense.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dbPath, _ := cmd.Flags().GetString("db")
		if file == "" {
			file = cfg.Catalog.SeedFile
		}
		if dbPath == "" {
			dbPath = cfg.Catalog.SQLitePath
		}
		if dbPath == "" {
			return fmt.Errorf("no database: set catalog.sqlite_path or pass --db")
		}

		seed, err := store.LoadSeed(file)
		if err != nil {
			return err
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Import(cmd.Context(), seed); err != nil {
			return err
		}
		fmt.Printf("✅ Imported %d commodities, %d markets, %d quotes, %d history series, %d index series into %s\n",
			len(seed.Commodities), len(seed.Markets), len(seed.Quotes),
			len(seed.PriceHistory), len(seed.IndexSeries), dbPath)
		return nil
	},
}

func init() {
	seedCmd.Flags().String("file", "", "seed YAML file (default: catalog.seed_file)")
	seedCmd.Flags().String("db", "", "SQLite path (default: catalog.sqlite_path)")
}
