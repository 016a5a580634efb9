package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// IndexOptions configures an IndexClient.
type IndexOptions struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec float64
	CacheTTL       time.Duration
	HTTPClient     *http.Client
}

// IndexClient fetches daily wholesale index series.
type IndexClient struct {
	endpoint
	cache *Cache
}

// NewIndexClient builds a client. An empty base URL is ErrNotConfigured.
func NewIndexClient(opts IndexOptions) (*IndexClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("index: %w", ErrNotConfigured)
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &IndexClient{
		endpoint: newEndpoint(opts.BaseURL, opts.APIKey, opts.Timeout, opts.RequestsPerSec, opts.HTTPClient),
		cache:    NewCache(ttl),
	}, nil
}

// Series returns up to days points ending at to, ascending by date.
func (c *IndexClient) Series(ctx context.Context, commodity string, to time.Time, days int) ([]models.IndexDataPoint, error) {
	key := utils.NormalizeCommodity(commodity)
	q := url.Values{}
	if !to.IsZero() {
		q.Set("to", utils.FormatDateIST(to))
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	u := c.baseURL + "/v1/index/" + url.PathEscape(key)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	if v, ok := c.cache.Get(u); ok {
		return append([]models.IndexDataPoint(nil), v.([]models.IndexDataPoint)...), nil
	}

	data, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("index series %s: %w", key, err)
	}
	points, err := parseIndexSeries(data)
	if err != nil {
		return nil, fmt.Errorf("index series %s: %w", key, err)
	}
	if days > 0 && len(points) > days {
		points = points[len(points)-days:]
	}

	c.cache.Set(u, points)
	slog.Debug("index series fetched", "component", "datasource", "commodity", key, "points", len(points))
	return append([]models.IndexDataPoint(nil), points...), nil
}

// parseIndexSeries reads data[].date and data[].value, sorts ascending and
// keeps the first point of any repeated date.
func parseIndexSeries(data []byte) ([]models.IndexDataPoint, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: index response is not JSON", ErrBadPayload)
	}
	arr := gjson.GetBytes(data, "data")
	if !arr.IsArray() {
		return nil, fmt.Errorf("%w: index response has no data array", ErrBadPayload)
	}

	var points []models.IndexDataPoint
	var parseErr error
	arr.ForEach(func(_, item gjson.Result) bool {
		date, err := parseDate(item.Get("date").String())
		if err != nil {
			parseErr = err
			return false
		}
		value := firstOf(item, "value", "index_value")
		if value.Type != gjson.Number {
			parseErr = fmt.Errorf("%w: index value on %s is not a number", ErrBadPayload, item.Get("date").String())
			return false
		}
		points = append(points, models.IndexDataPoint{Date: date, Value: value.Float()})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := utils.ParseDateIST(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return utils.StartOfDayIST(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: index date %q", ErrBadPayload, s)
}
