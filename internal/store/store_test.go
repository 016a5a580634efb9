package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// catalog is the read surface both stores share.
type catalog interface {
	Commodities(ctx context.Context) ([]models.Commodity, error)
	Commodity(ctx context.Context, name string) (models.Commodity, error)
	Markets(ctx context.Context) ([]models.MarketLocation, error)
	Quotes(ctx context.Context, commodity string) ([]models.MarketQuote, error)
	PriceHistory(ctx context.Context, marketID, commodity string) ([]models.PriceHistoryPoint, error)
	Series(ctx context.Context, commodity string, to time.Time, days int) ([]models.IndexDataPoint, error)
}

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "mandisense.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func catalogs(t *testing.T) map[string]catalog {
	seed := loadTestSeed(t)

	mem, err := NewMemory(seed)
	require.NoError(t, err)

	db := openTestSQLite(t)
	require.NoError(t, db.Import(context.Background(), seed))

	return map[string]catalog{"memory": mem, "sqlite": db}
}

func TestCatalogReads(t *testing.T) {
	ctx := context.Background()
	for name, c := range catalogs(t) {
		t.Run(name, func(t *testing.T) {
			commodities, err := c.Commodities(ctx)
			require.NoError(t, err)
			require.Len(t, commodities, 2)
			assert.Equal(t, "wheat", commodities[0].Name)

			gram, err := c.Commodity(ctx, "chana")
			require.NoError(t, err)
			assert.Equal(t, 5440.0, gram.SupportPrice)

			_, err = c.Commodity(ctx, "saffron")
			assert.True(t, errors.Is(err, models.ErrNotFound))

			markets, err := c.Markets(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"KNL", "PNP", "KKR"}, []string{markets[0].ID, markets[1].ID, markets[2].ID})

			quotes, err := c.Quotes(ctx, "Wheat")
			require.NoError(t, err)
			require.Len(t, quotes, 2)
			assert.Equal(t, "PNP", quotes[0].MarketID, "quotes keep insertion order")
			assert.Equal(t, 2420.0, quotes[1].CurrentPrice)

			history, err := c.PriceHistory(ctx, "KNL", "wheat")
			require.NoError(t, err)
			require.Len(t, history, models.TrendWindow)
			assert.Equal(t, 2300.0, history[0].Price)

			none, err := c.PriceHistory(ctx, "PNP", "wheat")
			require.NoError(t, err)
			assert.Empty(t, none)

			to := time.Date(2026, 9, 8, 12, 0, 0, 0, utils.IST)
			series, err := c.Series(ctx, "wheat", to, 5)
			require.NoError(t, err)
			require.Len(t, series, 5)
			assert.Equal(t, "2026-09-04", utils.FormatDateIST(series[0].Date))
			assert.Equal(t, 127.0, series[4].Value)

			all, err := c.Series(ctx, "gehun", time.Time{}, 0)
			require.NoError(t, err)
			assert.Len(t, all, 10)
		})
	}
}

func TestSQLiteImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	seed := loadTestSeed(t)
	db := openTestSQLite(t)

	require.NoError(t, db.Import(ctx, seed))
	seed.Quotes[0].CurrentPrice = 2401
	require.NoError(t, db.Import(ctx, seed))

	quotes, err := db.Quotes(ctx, "wheat")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "PNP", quotes[0].MarketID, "upsert keeps the original row position")
	assert.Equal(t, 2401.0, quotes[0].CurrentPrice)
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Import(ctx, loadTestSeed(t)))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	markets, err := db.Markets(ctx)
	require.NoError(t, err)
	assert.Len(t, markets, 3)
}

func TestSQLiteRecordPlan(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	asOf := time.Date(2026, 10, 14, 9, 0, 0, 0, utils.IST)
	for i, qty := range []float64{10, 25} {
		id, err := db.RecordPlan(ctx, &models.PlanResult{
			Commodity:    "wheat",
			Quantity:     qty,
			CurrentPrice: 3200,
			Recommendation: models.PlanRecommendation{
				Action:     models.ActionWait7,
				NetProfit:  33100 + float64(i),
				Confidence: models.ConfidenceHigh,
			},
			Weather: models.WeatherRisk{Level: models.RiskLow},
			AsOf:    asOf,
		})
		require.NoError(t, err)
		assert.Len(t, id, 36, "plan ids are UUIDs")
	}

	plans, err := db.RecentPlans(ctx, 10)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, 25.0, plans[0].Quantity, "newest plan first")
	assert.Equal(t, models.ActionWait7, plans[0].Action)
	assert.Equal(t, models.RiskLow, plans[0].WeatherLevel)
	assert.True(t, plans[0].AsOf.Equal(asOf))

	limited, err := db.RecentPlans(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteRecordDigest(t *testing.T) {
	ctx := context.Background()
	db := openTestSQLite(t)

	require.NoError(t, db.RecordDigest(ctx, nil))
	require.NoError(t, db.RecordDigest(ctx, []models.DigestEntry{
		{Commodity: "wheat", BestMarketID: "KNL", BestMarket: "Karnal Mandi", NetPrice: 2420, MarketCount: 2},
		{Commodity: "gram", Error: "NOT_FOUND"},
	}))

	n, err := db.DigestCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemorySetQuote(t *testing.T) {
	ctx := context.Background()
	mem, err := NewMemory(loadTestSeed(t))
	require.NoError(t, err)

	mem.SetQuote(models.MarketQuote{MarketID: "PNP", Commodity: "gehun", CurrentPrice: 2450})
	mem.SetQuote(models.MarketQuote{MarketID: "KKR", Commodity: "wheat", CurrentPrice: 2380})

	quotes, err := mem.Quotes(ctx, "wheat")
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, 2450.0, quotes[0].CurrentPrice)
	assert.Equal(t, "KKR", quotes[2].MarketID)
}

func TestNewMemoryNilSeed(t *testing.T) {
	mem, err := NewMemory(nil)
	require.NoError(t, err)
	commodities, err := mem.Commodities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, commodities)
}

func TestNoopRecorder(t *testing.T) {
	ctx := context.Background()
	rec := NewNoopRecorder()

	id, err := rec.RecordPlan(ctx, &models.PlanResult{})
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, rec.RecordDigest(ctx, []models.DigestEntry{{Commodity: "wheat"}}))
	plans, err := rec.RecentPlans(ctx, 5)
	assert.NoError(t, err)
	assert.Empty(t, plans)
}
