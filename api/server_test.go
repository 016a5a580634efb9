package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/seenimoa/mandisense/internal/advisor"
	"github.com/seenimoa/mandisense/internal/config"
	"github.com/seenimoa/mandisense/internal/store"
	"github.com/seenimoa/mandisense/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

const testSeed = `
commodities:
  - name: wheat
    support_price: 2275
    unit: quintal
  - name: gram
    support_price: 5440
    unit: quintal
markets:
  - id: KNL
    name: Karnal Mandi
    district: Karnal
    state: Haryana
    latitude: 29.6857
    longitude: 76.9905
  - id: PNP
    name: Panipat Mandi
    district: Panipat
    state: Haryana
    latitude: 29.3909
    longitude: 76.9635
quotes:
  - market_id: PNP
    commodity: wheat
    current_price: 2390
  - market_id: KNL
    commodity: wheat
    current_price: 2420
price_history:
  - market_id: KNL
    commodity: wheat
    prices: [2300, 2320, 2340, 2360, 2380, 2400, 2420]
index_series:
  - commodity: wheat
    start: "2026-09-01"
    values: [120, 121, 122, 123, 124, 125, 126, 127, 128, 129]
`

var fixedNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *Server {
	t.Helper()

	seed, err := store.ParseSeed([]byte(testSeed))
	if err != nil {
		t.Fatalf("parse seed: %v", err)
	}
	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Import(context.Background(), seed); err != nil {
		t.Fatalf("import seed: %v", err)
	}

	adv, err := advisor.New(advisor.Settings{
		TransportRatePerKm:        12,
		StorageRatePerUnitPerWeek: 50,
		LookbackDays:              90,
	}, db, db, nil, db)
	if err != nil {
		t.Fatalf("advisor: %v", err)
	}

	srv := NewServer(&config.Config{}, adv)
	srv.now = func() time.Time { return fixedNow }
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// decodeData re-decodes the envelope's data field into v.
func decodeData(t *testing.T, resp APIResponse, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Health and reference data
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		t.Run(path, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodGet, path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
			resp := decodeResponse(t, rec)
			if !resp.Success {
				t.Fatal("expected success")
			}
			data := resp.Data.(map[string]any)
			if data["status"] != "ok" {
				t.Errorf("status: got %v", data["status"])
			}
			if data["mandi_status"] == "" {
				t.Error("mandi_status should be set")
			}
		})
	}
}

func TestReferenceListings(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/commodities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("commodities status: %d", rec.Code)
	}
	var commodities []models.Commodity
	decodeData(t, decodeResponse(t, rec), &commodities)
	if len(commodities) != 2 || commodities[0].Name != "wheat" {
		t.Errorf("commodities: got %+v", commodities)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/markets", "")
	var markets []models.MarketLocation
	decodeData(t, decodeResponse(t, rec), &markets)
	if len(markets) != 2 || markets[0].ID != "KNL" {
		t.Errorf("markets: got %+v", markets)
	}
}

// ════════════════════════════════════════════════════════════════════
// Analysis endpoints
// ════════════════════════════════════════════════════════════════════

func TestCompare(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/compare",
		`{"commodity":"Wheat","latitude":29.6857,"longitude":76.9905,"as_of":"2026-10-14"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.MarketComparison
	decodeData(t, decodeResponse(t, rec), &res)

	if res.BestMarket.MarketID != "KNL" {
		t.Errorf("best market: got %s, want KNL", res.BestMarket.MarketID)
	}
	if res.BestMarket.NetPrice != 2420 {
		t.Errorf("net price: got %v, want 2420", res.BestMarket.NetPrice)
	}
	if len(res.Markets) != 2 {
		t.Errorf("ranked markets: got %d, want 2", len(res.Markets))
	}
	if res.AsOf.IsZero() {
		t.Error("as_of should be set")
	}
}

func TestCompareDefaultsAsOf(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/compare",
		`{"commodity":"wheat","latitude":29.6857,"longitude":76.9905}`)
	var res models.MarketComparison
	decodeData(t, decodeResponse(t, rec), &res)
	if !res.AsOf.Equal(fixedNow) {
		t.Errorf("as_of: got %v, want %v", res.AsOf, fixedNow)
	}
}

func TestTrend(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/trend", `{"market_id":"KNL","commodity":"wheat"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.TrendResult
	decodeData(t, decodeResponse(t, rec), &res)
	if res.Direction != models.DirectionRising {
		t.Errorf("direction: got %s, want RISING", res.Direction)
	}
	if res.MarketName != "Karnal Mandi" {
		t.Errorf("market name: got %q", res.MarketName)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/trend",
		`{"market_name":"Test Mandi","commodity":"wheat","history":[2600,2580,2560,2540,2520,2500,2400]}`)
	decodeData(t, decodeResponse(t, rec), &res)
	if res.Direction != models.DirectionFalling || res.PercentChange != -7.69 {
		t.Errorf("got %s %v, want FALLING -7.69", res.Direction, res.PercentChange)
	}
}

func TestForecast(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/forecast", `{"commodity":"wheat","days_ahead":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.ForecastResult
	decodeData(t, decodeResponse(t, rec), &res)
	if res.PredictedValue != 136 {
		t.Errorf("predicted: got %v, want 136", res.PredictedValue)
	}

	body := `{"days_ahead":14,"series":[
		{"date":"2026-10-01","value":125},{"date":"2026-10-02","value":125},
		{"date":"2026-10-03","value":125},{"date":"2026-10-04","value":125},
		{"date":"2026-10-05","value":125},{"date":"2026-10-06","value":125},
		{"date":"2026-10-07","value":125}]}`
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/forecast", body)
	decodeData(t, decodeResponse(t, rec), &res)
	if res.PredictedValue != 125 || res.Direction != models.DirectionStable {
		t.Errorf("flat series: got %v %s", res.PredictedValue, res.Direction)
	}
}

func TestPlanAndHistory(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/plan",
		`{"commodity":"wheat","quantity":10,"current_price":2420,"weather_risk":{"level":"LOW"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var plan models.PlanResult
	decodeData(t, decodeResponse(t, rec), &plan)
	if plan.ID == "" {
		t.Error("recorded plan should carry an id")
	}
	if len(plan.Scenarios) != 3 {
		t.Fatalf("scenarios: got %d, want 3", len(plan.Scenarios))
	}
	if plan.Recommendation.Action != models.ActionWait14 {
		t.Errorf("action: got %s, want WAIT_14_DAYS", plan.Recommendation.Action)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/plans?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("plans status: %d", rec.Code)
	}
	var plans []models.PlanRecord
	decodeData(t, decodeResponse(t, rec), &plans)
	if len(plans) != 1 || plans[0].ID != plan.ID {
		t.Errorf("plans: got %+v", plans)
	}
}

// ════════════════════════════════════════════════════════════════════
// Error mapping
// ════════════════════════════════════════════════════════════════════

func TestErrorMapping(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "/api/v1/compare", `{`, http.StatusBadRequest, models.CodeInvalidInput},
		{"missing commodity", http.MethodPost, "/api/v1/compare", `{"latitude":1}`, http.StatusBadRequest, models.CodeInvalidInput},
		{"unknown commodity", http.MethodPost, "/api/v1/compare", `{"commodity":"cotton","latitude":29,"longitude":76}`, http.StatusNotFound, models.CodeNotFound},
		{"no quotes", http.MethodPost, "/api/v1/compare", `{"commodity":"gram","latitude":29,"longitude":76}`, http.StatusNotFound, models.CodeNotFound},
		{"bad as_of", http.MethodPost, "/api/v1/compare", `{"commodity":"wheat","as_of":"yesterday"}`, http.StatusBadRequest, models.CodeInvalidInput},
		{"empty history", http.MethodPost, "/api/v1/trend", `{"market_id":"PNP","commodity":"wheat"}`, http.StatusNotFound, models.CodeNotFound},
		{"bad horizon", http.MethodPost, "/api/v1/forecast", `{"commodity":"wheat","days_ahead":9}`, http.StatusBadRequest, models.CodeInvalidInput},
		{"short series", http.MethodPost, "/api/v1/forecast", `{"days_ahead":7,"series":[{"value":1},{"value":2}]}`, http.StatusUnprocessableEntity, models.CodeInsufficientData},
		{"bad series date", http.MethodPost, "/api/v1/forecast", `{"days_ahead":7,"series":[{"date":"01/10/2026","value":1}]}`, http.StatusBadRequest, models.CodeInvalidInput},
		{"zero quantity", http.MethodPost, "/api/v1/plan", `{"commodity":"wheat","quantity":0,"current_price":2400,"weather_risk":{"level":"LOW"}}`, http.StatusBadRequest, models.CodeInvalidInput},
		{"no weather source", http.MethodPost, "/api/v1/plan", `{"commodity":"wheat","quantity":1,"current_price":2400,"latitude":29,"longitude":76}`, http.StatusBadRequest, models.CodeInvalidInput},
		{"bad limit", http.MethodGet, "/api/v1/plans?limit=abc", "", http.StatusBadRequest, models.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			resp := decodeResponse(t, rec)
			if resp.Success {
				t.Error("expected failure")
			}
			if resp.Code != tt.code {
				t.Errorf("code: got %q, want %q", resp.Code, tt.code)
			}
			if resp.Error == "" {
				t.Error("error message should be set")
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.CodeNotFound, http.StatusNotFound},
		{models.CodeInsufficientData, http.StatusUnprocessableEntity},
		{models.CodeInvalidInput, http.StatusBadRequest},
		{models.CodeInternal, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/compare", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}
