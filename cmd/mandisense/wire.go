package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seenimoa/mandisense/internal/advisor"
	"github.com/seenimoa/mandisense/internal/datasource"
	"github.com/seenimoa/mandisense/internal/store"
	"github.com/seenimoa/mandisense/pkg/models"
)

// app holds the wired components a command runs against.
type app struct {
	advisor *advisor.Advisor
	source  string // "sqlite:<path>" or "seed:<path>"
	closers []func() error
}

// Close releases the store.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// newApp builds the catalog, collaborators and advisor from cfg. With a
// SQLite path the database is the catalog and the recorder; otherwise the
// seed file is loaded into memory and nothing is recorded.
func newApp(ctx context.Context) (*app, error) {
	a := &app{}

	var (
		catalog advisor.Catalog
		index   advisor.IndexSource
		rec     advisor.Recorder
	)

	if path := cfg.Catalog.SQLitePath; path != "" {
		db, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := seedIfEmpty(ctx, db); err != nil {
			a.Close()
			return nil, err
		}
		catalog, index, rec = db, db, db
		a.source = "sqlite:" + path
	} else {
		seed, err := store.LoadSeed(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, err
		}
		mem, err := store.NewMemory(seed)
		if err != nil {
			return nil, err
		}
		catalog, index, rec = mem, mem, store.NewNoopRecorder()
		a.source = "seed:" + cfg.Catalog.SeedFile
	}

	// A configured index service replaces the stored series.
	if cfg.Index.BaseURL != "" {
		client, err := datasource.NewIndexClient(datasource.IndexOptions{
			BaseURL:        cfg.Index.BaseURL,
			APIKey:         cfg.Index.APIKey,
			Timeout:        time.Duration(cfg.Index.TimeoutSec) * time.Second,
			RequestsPerSec: cfg.Index.RequestsPerSec,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		index = client
	}

	weather, err := weatherSource()
	if err != nil {
		a.Close()
		return nil, err
	}

	adv, err := advisor.New(advisor.Settings{
		TransportRatePerKm:        cfg.Engine.TransportRatePerKm,
		StorageRatePerUnitPerWeek: cfg.Engine.StorageRatePerUnitPerWeek,
		DistanceModel:             cfg.Engine.DistanceModel,
		LookbackDays:              cfg.Index.LookbackDays,
	}, catalog, index, weather, rec)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.advisor = adv

	slog.Debug("app wired", "component", "cmd", "catalog", a.source,
		"index_service", cfg.Index.BaseURL != "", "weather_service", cfg.Weather.BaseURL != "")
	return a, nil
}

// seedIfEmpty imports the configured seed file into a fresh database.
func seedIfEmpty(ctx context.Context, db *store.SQLite) error {
	existing, err := db.Commodities(ctx)
	if err != nil || len(existing) > 0 || cfg.Catalog.SeedFile == "" {
		return err
	}
	seed, err := store.LoadSeed(cfg.Catalog.SeedFile)
	if err != nil {
		return fmt.Errorf("seed empty catalog: %w", err)
	}
	slog.Info("catalog empty, importing seed", "component", "cmd", "file", cfg.Catalog.SeedFile)
	return db.Import(ctx, seed)
}

// weatherSource returns nil when neither a service nor a default level is
// configured; plan requests must then carry weather_risk.
func weatherSource() (advisor.WeatherSource, error) {
	def := models.RiskLevel(strings.ToUpper(cfg.Weather.DefaultLevel))

	if cfg.Weather.BaseURL == "" {
		if def == "" {
			return nil, nil
		}
		return datasource.StaticWeather{Level: def}, nil
	}

	client, err := datasource.NewWeatherClient(datasource.WeatherOptions{
		BaseURL:        cfg.Weather.BaseURL,
		APIKey:         cfg.Weather.APIKey,
		Timeout:        time.Duration(cfg.Weather.TimeoutSec) * time.Second,
		RequestsPerSec: cfg.Weather.RequestsPerSec,
		CacheTTL:       time.Duration(cfg.Weather.CacheTTL) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("weather client: %w", err)
	}
	if def == "" {
		return client, nil
	}
	return datasource.FallbackWeather{Primary: client, Default: datasource.StaticWeather{Level: def}}, nil
}
