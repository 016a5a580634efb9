package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// SQLite is a catalog and plan recorder backed by a SQLite file.
// Listing queries return rows in insertion order.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex // serializes writers
}

// Open opens (or creates) the database and runs migrations.
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite catalog opened", "component", "store", "path", path)
	return s, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS commodities (
			name          TEXT PRIMARY KEY,
			support_price REAL NOT NULL,
			unit          TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS markets (
			id        TEXT PRIMARY KEY,
			name      TEXT NOT NULL,
			district  TEXT NOT NULL DEFAULT '',
			state     TEXT NOT NULL DEFAULT '',
			latitude  REAL NOT NULL,
			longitude REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			market_id     TEXT NOT NULL,
			commodity     TEXT NOT NULL,
			current_price REAL NOT NULL,
			PRIMARY KEY (market_id, commodity)
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			market_id  TEXT NOT NULL,
			commodity  TEXT NOT NULL,
			day_offset INTEGER NOT NULL,
			price      REAL NOT NULL,
			PRIMARY KEY (market_id, commodity, day_offset)
		)`,
		`CREATE TABLE IF NOT EXISTS index_points (
			commodity TEXT NOT NULL,
			day       TEXT NOT NULL,
			value     REAL NOT NULL,
			PRIMARY KEY (commodity, day)
		)`,
		`CREATE TABLE IF NOT EXISTS plans (
			id            TEXT PRIMARY KEY,
			commodity     TEXT NOT NULL,
			quantity      REAL NOT NULL,
			current_price REAL NOT NULL,
			action        TEXT NOT NULL,
			net_profit    REAL NOT NULL,
			confidence    TEXT NOT NULL,
			weather_level TEXT NOT NULL DEFAULT '',
			as_of         INTEGER NOT NULL,
			created_at    INTEGER NOT NULL,
			payload       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_plans_created ON plans(created_at)`,
		`CREATE TABLE IF NOT EXISTS digests (
			id             TEXT PRIMARY KEY,
			run_id         TEXT NOT NULL,
			commodity      TEXT NOT NULL,
			best_market_id TEXT NOT NULL DEFAULT '',
			best_market    TEXT NOT NULL DEFAULT '',
			net_price      REAL NOT NULL DEFAULT 0,
			below_support  INTEGER NOT NULL DEFAULT 0,
			market_count   INTEGER NOT NULL DEFAULT 0,
			error          TEXT NOT NULL DEFAULT '',
			as_of          INTEGER NOT NULL,
			created_at     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_digests_run ON digests(run_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Import upserts every row of the seed in one transaction. Re-importing the
// same seed is a no-op; changed prices are updated in place.
func (s *SQLite) Import(ctx context.Context, seed *Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, c := range seed.Commodities {
		if _, err := tx.ExecContext(ctx, `INSERT INTO commodities (name, support_price, unit) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET support_price = excluded.support_price, unit = excluded.unit`,
			c.Name, c.SupportPrice, c.Unit); err != nil {
			return fmt.Errorf("import commodity %s: %w", c.Name, err)
		}
	}
	for _, m := range seed.Markets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO markets (id, name, district, state, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, district = excluded.district, state = excluded.state,
				latitude = excluded.latitude, longitude = excluded.longitude`,
			m.ID, m.Name, m.District, m.State, m.Latitude, m.Longitude); err != nil {
			return fmt.Errorf("import market %s: %w", m.ID, err)
		}
	}
	for _, q := range seed.Quotes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quotes (market_id, commodity, current_price) VALUES (?, ?, ?)
			ON CONFLICT(market_id, commodity) DO UPDATE SET current_price = excluded.current_price`,
			q.MarketID, q.Commodity, q.CurrentPrice); err != nil {
			return fmt.Errorf("import quote %s/%s: %w", q.MarketID, q.Commodity, err)
		}
	}
	for _, p := range seed.HistoryPoints() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO price_history (market_id, commodity, day_offset, price) VALUES (?, ?, ?, ?)
			ON CONFLICT(market_id, commodity, day_offset) DO UPDATE SET price = excluded.price`,
			p.MarketID, p.Commodity, p.DayOffset, p.Price); err != nil {
			return fmt.Errorf("import history %s/%s: %w", p.MarketID, p.Commodity, err)
		}
	}
	for commodity, points := range seed.IndexPoints() {
		for _, p := range points {
			if _, err := tx.ExecContext(ctx, `INSERT INTO index_points (commodity, day, value) VALUES (?, ?, ?)
				ON CONFLICT(commodity, day) DO UPDATE SET value = excluded.value`,
				commodity, utils.FormatDateIST(p.Date), p.Value); err != nil {
				return fmt.Errorf("import index %s: %w", commodity, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.Info("seed imported", "component", "store",
		"commodities", len(seed.Commodities), "markets", len(seed.Markets), "quotes", len(seed.Quotes))
	return nil
}

func (s *SQLite) Commodities(ctx context.Context) ([]models.Commodity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, support_price, unit FROM commodities ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query commodities: %w", err)
	}
	defer rows.Close()

	var out []models.Commodity
	for rows.Next() {
		var c models.Commodity
		if err := rows.Scan(&c.Name, &c.SupportPrice, &c.Unit); err != nil {
			return nil, fmt.Errorf("scan commodity: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) Commodity(ctx context.Context, name string) (models.Commodity, error) {
	c := models.Commodity{}
	err := s.db.QueryRowContext(ctx, `SELECT name, support_price, unit FROM commodities WHERE name = ?`,
		utils.NormalizeCommodity(name)).Scan(&c.Name, &c.SupportPrice, &c.Unit)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: commodity %q", models.ErrNotFound, name)
	}
	if err != nil {
		return c, fmt.Errorf("query commodity %s: %w", name, err)
	}
	return c, nil
}

func (s *SQLite) Markets(ctx context.Context) ([]models.MarketLocation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, district, state, latitude, longitude FROM markets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	var out []models.MarketLocation
	for rows.Next() {
		var m models.MarketLocation
		if err := rows.Scan(&m.ID, &m.Name, &m.District, &m.State, &m.Latitude, &m.Longitude); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLite) Quotes(ctx context.Context, commodity string) ([]models.MarketQuote, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT market_id, commodity, current_price FROM quotes WHERE commodity = ? ORDER BY rowid`,
		utils.NormalizeCommodity(commodity))
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	var out []models.MarketQuote
	for rows.Next() {
		var q models.MarketQuote
		if err := rows.Scan(&q.MarketID, &q.Commodity, &q.CurrentPrice); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLite) PriceHistory(ctx context.Context, marketID, commodity string) ([]models.PriceHistoryPoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT market_id, commodity, day_offset, price FROM price_history
		WHERE market_id = ? AND commodity = ? ORDER BY day_offset`, marketID, utils.NormalizeCommodity(commodity))
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var out []models.PriceHistoryPoint
	for rows.Next() {
		var p models.PriceHistoryPoint
		if err := rows.Scan(&p.MarketID, &p.Commodity, &p.DayOffset, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Series returns up to days index points on or before to, ascending.
func (s *SQLite) Series(ctx context.Context, commodity string, to time.Time, days int) ([]models.IndexDataPoint, error) {
	query := `SELECT day, value FROM index_points WHERE commodity = ?`
	args := []any{utils.NormalizeCommodity(commodity)}
	if !to.IsZero() {
		query += ` AND day <= ?`
		args = append(args, utils.FormatDateIST(to))
	}
	query += ` ORDER BY day DESC`
	if days > 0 {
		query += ` LIMIT ?`
		args = append(args, days)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query index series: %w", err)
	}
	defer rows.Close()

	var out []models.IndexDataPoint
	for rows.Next() {
		var day string
		var p models.IndexDataPoint
		if err := rows.Scan(&day, &p.Value); err != nil {
			return nil, fmt.Errorf("scan index point: %w", err)
		}
		if p.Date, err = utils.ParseDateIST(day); err != nil {
			return nil, fmt.Errorf("index point date %q: %w", day, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// RecordPlan stores a plan summary plus its full JSON and returns the new id.
func (s *SQLite) RecordPlan(ctx context.Context, plan *models.PlanResult) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO plans
		(id, commodity, quantity, current_price, action, net_profit, confidence, weather_level, as_of, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, plan.Commodity, plan.Quantity, plan.CurrentPrice,
		string(plan.Recommendation.Action), plan.Recommendation.NetProfit, string(plan.Recommendation.Confidence),
		string(plan.Weather.Level), plan.AsOf.Unix(), time.Now().Unix(), string(payload))
	if err != nil {
		return "", fmt.Errorf("insert plan: %w", err)
	}
	return id, nil
}

// RecordDigest stores one digest run; entries share a run id.
func (s *SQLite) RecordDigest(ctx context.Context, entries []models.DigestEntry) error {
	if len(entries) == 0 {
		return nil
	}
	runID := uuid.NewString()
	now := time.Now().Unix()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin digest: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		id := e.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO digests
			(id, run_id, commodity, best_market_id, best_market, net_price, below_support, market_count, error, as_of, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, runID, e.Commodity, e.BestMarketID, e.BestMarket, e.NetPrice, e.BelowSupport, e.MarketCount,
			e.Error, e.AsOf.Unix(), now); err != nil {
			return fmt.Errorf("insert digest %s: %w", e.Commodity, err)
		}
	}
	return tx.Commit()
}

// RecentPlans returns the latest recorded plans, newest first.
func (s *SQLite) RecentPlans(ctx context.Context, limit int) ([]models.PlanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, commodity, quantity, current_price, action, net_profit,
		confidence, weather_level, as_of, created_at FROM plans ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var out []models.PlanRecord
	for rows.Next() {
		var (
			r              models.PlanRecord
			action, conf   string
			weather        string
			asOf, recorded int64
		)
		if err := rows.Scan(&r.ID, &r.Commodity, &r.Quantity, &r.CurrentPrice, &action, &r.NetProfit,
			&conf, &weather, &asOf, &recorded); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		r.Action = models.ScenarioAction(action)
		r.Confidence = models.Confidence(conf)
		r.WeatherLevel = models.RiskLevel(weather)
		r.AsOf = time.Unix(asOf, 0).In(utils.IST)
		r.CreatedAt = time.Unix(recorded, 0).In(utils.IST)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DigestCount returns how many digest rows have been recorded.
func (s *SQLite) DigestCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM digests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count digests: %w", err)
	}
	return n, nil
}
