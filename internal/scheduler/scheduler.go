// Package scheduler runs the daily market digest on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/mandisense/internal/advisor"
	"github.com/seenimoa/mandisense/internal/config"
	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// maxParallel bounds concurrent comparisons in one digest run.
const maxParallel = 4

// Comparer is the slice of the advisor a digest needs.
type Comparer interface {
	CompareMarkets(ctx context.Context, req advisor.CompareRequest) (*models.MarketComparison, error)
	RecordDigest(ctx context.Context, entries []models.DigestEntry) error
}

// Digest compares every configured commodity at the home location and
// records the best market for each.
type Digest struct {
	cron *cron.Cron
	adv  Comparer
	cfg  config.DigestConfig
	log  *slog.Logger
	now  func() time.Time

	mu      sync.Mutex // serialises runs
	ctx     context.Context
	stopCtx context.CancelFunc
}

// New creates a Digest and registers its job. The schedule is read in IST.
func New(adv Comparer, cfg config.DigestConfig) (*Digest, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Digest{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(utils.IST)),
		adv:     adv,
		cfg:     cfg,
		log:     slog.Default().With("component", "digest"),
		now:     utils.NowIST,
		ctx:     ctx,
		stopCtx: cancel,
	}
	if _, err := d.cron.AddFunc(cfg.Cron, d.run); err != nil {
		cancel()
		return nil, fmt.Errorf("register digest %q: %w", cfg.Cron, err)
	}
	return d, nil
}

// Start begins the cron loop.
func (d *Digest) Start() {
	d.cron.Start()
	d.log.Info("digest scheduler started", "cron", d.cfg.Cron, "commodities", d.cfg.Commodities)
}

// Stop halts the cron loop and waits for a running job to finish.
func (d *Digest) Stop() {
	d.stopCtx()
	<-d.cron.Stop().Done()
	d.log.Info("digest scheduler stopped")
}

// RunNow executes one digest synchronously and returns its entries.
func (d *Digest) RunNow(ctx context.Context) ([]models.DigestEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	asOf := d.now()
	entries := make([]models.DigestEntry, len(d.cfg.Commodities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, name := range d.cfg.Commodities {
		g.Go(func() error {
			entries[i] = d.compare(gctx, name, asOf)
			return nil
		})
	}
	_ = g.Wait()

	for _, e := range entries {
		if e.Error != "" {
			d.log.Warn("digest entry failed", "commodity", e.Commodity, "error", e.Error)
			continue
		}
		d.log.Info("digest entry",
			"commodity", e.Commodity,
			"best_market", e.BestMarket,
			"net_price", utils.FormatINR(e.NetPrice),
			"below_support", e.BelowSupport,
			"markets", e.MarketCount)
	}

	if err := d.adv.RecordDigest(ctx, entries); err != nil {
		return entries, fmt.Errorf("record digest: %w", err)
	}
	return entries, nil
}

// compare never fails; failures are carried on the entry.
func (d *Digest) compare(ctx context.Context, commodity string, asOf time.Time) models.DigestEntry {
	entry := models.DigestEntry{Commodity: utils.NormalizeCommodity(commodity), AsOf: asOf}

	res, err := d.adv.CompareMarkets(ctx, advisor.CompareRequest{
		Commodity: commodity,
		Latitude:  d.cfg.Latitude,
		Longitude: d.cfg.Longitude,
		RadiusKm:  d.cfg.RadiusKm,
		AsOf:      asOf,
	})
	if err != nil {
		entry.Error = err.Error()
		return entry
	}

	entry.Commodity = res.Commodity
	entry.BestMarketID = res.BestMarket.MarketID
	entry.BestMarket = res.BestMarket.Name
	entry.NetPrice = res.BestMarket.NetPrice
	entry.BelowSupport = res.BelowSupport
	entry.MarketCount = len(res.Markets)
	return entry
}

func (d *Digest) run() {
	if _, err := d.RunNow(d.ctx); err != nil {
		d.log.Error("digest run failed", "error", err)
	}
}
