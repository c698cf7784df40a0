package venue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/navid-fn/compass/configs"
)

func testClient(baseURL string) *BybitClient {
	return NewBybitClient(configs.VenueConfig{
		BaseURL:           baseURL,
		APIKey:            "test-key",
		APISecret:         "test-secret",
		RequestsPerSecond: 100,
		RequestTimeout:    5 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func envelope(result any) map[string]any {
	return map[string]any{"retCode": 0, "retMsg": "OK", "result": result}
}

func TestGetKlinesNormalizesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/kline" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "linear" {
			t.Errorf("category = %s, want linear", got)
		}
		// Newest first, as the venue sends it.
		json.NewEncoder(w).Encode(envelope(map[string]any{
			"list": [][]string{
				{"1670623200000", "17030", "17100", "17000", "17050", "120", "2.1"},
				{"1670608800000", "17071", "17073", "16922", "17027", "268", "4.5"},
			},
		}))
	}))
	defer server.Close()

	candles, err := testClient(server.URL).GetKlines(context.Background(), "BTCUSDT", "240", 2, 0)
	if err != nil {
		t.Fatalf("GetKlines returned error: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(candles))
	}
	if candles[0].OpenTime != 1670608800000 {
		t.Errorf("Expected oldest candle first, got open_time %d", candles[0].OpenTime)
	}
	if candles[0].Close != 17027 {
		t.Errorf("Close = %v, want 17027", candles[0].Close)
	}
	wantClose := int64(1670608800000) + IntervalMillis("240") - 1
	if candles[0].CloseTime != wantClose {
		t.Errorf("CloseTime = %d, want %d", candles[0].CloseTime, wantClose)
	}
}

func TestGetKlinesRejectsMalformedRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{
			"list": [][]string{
				{"1670608800000", "17071", "17073", "16922", "17027", "268", "4.5"},
				{"1670623200000", "not-a-number", "17100", "17000", "17050", "120", "2.1"},
				{"1670637600000", "17030", "16000", "17000", "17050", "120", "2.1"}, // high < low
				{"1670652000000"}, // short row
			},
		}))
	}))
	defer server.Close()

	candles, err := testClient(server.URL).GetKlines(context.Background(), "BTCUSDT", "240", 10, 0)
	if err != nil {
		t.Fatalf("GetKlines returned error: %v", err)
	}
	if len(candles) != 1 {
		t.Errorf("Expected only the valid row kept, got %d candles", len(candles))
	}
}

func TestGetKlinesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"retCode": 10001, "retMsg": "params error"})
	}))
	defer server.Close()

	client := testClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if _, err := client.GetKlines(ctx, "BTCUSDT", "240", 10, 0); err == nil {
		t.Error("Expected an error on non-zero retCode")
	}
}

func TestGetOpenPositionSkipsZeroSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-BAPI-API-KEY") != "test-key" {
			t.Error("Expected signed request headers")
		}
		if r.Header.Get("X-BAPI-SIGN") == "" {
			t.Error("Expected a signature header")
		}
		json.NewEncoder(w).Encode(envelope(map[string]any{
			"list": []map[string]any{
				{"symbol": "BTCUSDT", "side": "", "size": "0"},
				{"symbol": "BTCUSDT", "side": "Buy", "size": "0.5", "avgPrice": "48000", "unrealisedPnl": "120.5", "leverage": "10"},
			},
		}))
	}))
	defer server.Close()

	position, err := testClient(server.URL).GetOpenPosition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetOpenPosition returned error: %v", err)
	}
	if position == nil {
		t.Fatal("Expected the non-zero position returned")
	}
	if position.Size != 0.5 || position.Side != "Buy" {
		t.Errorf("Position = %+v, want size 0.5 side Buy", position)
	}
}

func TestGetOpenPositionNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{
			"list": []map[string]any{{"symbol": "BTCUSDT", "size": "0"}},
		}))
	}))
	defer server.Close()

	position, err := testClient(server.URL).GetOpenPosition(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetOpenPosition returned error: %v", err)
	}
	if position != nil {
		t.Errorf("Expected nil position for zero size, got %+v", position)
	}
}

func TestGetAvailableBalanceParsesUSDT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("accountType"); got != "UNIFIED" {
			t.Errorf("accountType = %s, want UNIFIED", got)
		}
		json.NewEncoder(w).Encode(envelope(map[string]any{
			"list": []map[string]any{{
				"coin": []map[string]any{{
					"coin":                  "USDT",
					"walletBalance":         "1500.25",
					"availableToWithdraw":   "", // venue sends empty for unified accounts
					"totalAvailableBalance": "1400",
					"equity":                "1510.1",
				}},
			}},
		}))
	}))
	defer server.Close()

	balance, err := testClient(server.URL).GetAvailableBalance(context.Background())
	if err != nil {
		t.Fatalf("GetAvailableBalance returned error: %v", err)
	}
	if balance.WalletBalance != 1500.25 {
		t.Errorf("WalletBalance = %v, want 1500.25", balance.WalletBalance)
	}
	if balance.AvailableToWithdraw != 0 {
		t.Errorf("Empty string should parse to 0, got %v", balance.AvailableToWithdraw)
	}
}

func TestGetAvailableBalanceMissingUSDT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{"list": []map[string]any{}}))
	}))
	defer server.Close()

	balance, err := testClient(server.URL).GetAvailableBalance(context.Background())
	if err != nil {
		t.Fatalf("GetAvailableBalance returned error: %v", err)
	}
	if balance == nil || balance.Coin != "USDT" || balance.WalletBalance != 0 {
		t.Errorf("Missing USDT entry should yield a zero balance, got %+v", balance)
	}
}

func TestGetPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{
			"list": []map[string]any{{"lastPrice": "50123.5"}},
		}))
	}))
	defer server.Close()

	price, err := testClient(server.URL).GetPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("GetPrice returned error: %v", err)
	}
	if price != 50123.5 {
		t.Errorf("Price = %v, want 50123.5", price)
	}
}

func TestGetPriceNoTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string]any{"list": []map[string]any{}}))
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetPrice(context.Background(), "NOPEUSDT")
	if !errors.Is(err, ErrAPIError) {
		t.Errorf("Expected ErrAPIError, got %v", err)
	}
}

func TestIntervalMillis(t *testing.T) {
	if got := IntervalMillis("240"); got != 4*60*60*1000 {
		t.Errorf("IntervalMillis(240) = %d", got)
	}
	if got := IntervalMillis("60"); got != 60*60*1000 {
		t.Errorf("IntervalMillis(60) = %d", got)
	}
	// Unknown codes fall back to 4h.
	if got := IntervalMillis("weird"); got != 4*60*60*1000 {
		t.Errorf("IntervalMillis(weird) = %d", got)
	}
}
