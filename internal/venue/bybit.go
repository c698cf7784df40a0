// Package venue provides the Bybit v5 REST client.
// This file implements the HTTP transport.
// API Doc: https://bybit-exchange.github.io/docs/v5/intro
//
// Kline response format (newest candle first):
//
//	{
//	  "retCode": 0,
//	  "result": {
//	    "list": [
//	      ["1670608800000","17071","17073","16922","17027","268611","4.5"]
//	    ]
//	  }
//	}
package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/navid-fn/compass/configs"
	"github.com/navid-fn/compass/internal/models"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"
)

const recvWindow = "5000"

// BybitClient talks to the Bybit v5 REST API.
// Safe for concurrent use; all requests share one rate limiter.
type BybitClient struct {
	baseURL     string
	apiKey      string
	apiSecret   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewBybitClient creates a Bybit client from venue configuration.
func NewBybitClient(cfg configs.VenueConfig, logger *slog.Logger) *BybitClient {
	return &BybitClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 10),
		logger:      logger.With("client", "bybit"),
	}
}

// apiResponse is the envelope every v5 endpoint answers with.
type apiResponse struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

// get performs one rate-limited GET and decodes the result envelope.
// signed requests carry the v5 HMAC headers for private endpoints.
func (c *BybitClient) get(ctx context.Context, path string, params url.Values, signed bool) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	if signed {
		timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
		req.Header.Set("X-BAPI-API-KEY", c.apiKey)
		req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
		req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
		req.Header.Set("X-BAPI-SIGN", c.sign(timestamp+c.apiKey+recvWindow+params.Encode()))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	if envelope.RetCode != 0 {
		return nil, fmt.Errorf("%w: retCode=%d msg=%s", ErrAPIError, envelope.RetCode, envelope.RetMsg)
	}
	return envelope.Result, nil
}

func (c *BybitClient) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// klineResult is the /v5/market/kline result payload.
// Each entry is [startTime, open, high, low, close, volume, turnover],
// all fields as strings, newest candle first.
type klineResult struct {
	List [][]string `json:"list"`
}

// GetKlines fetches candles for symbol/interval and normalizes them to
// ascending open_time order. Retries transient failures with capped backoff.
func (c *BybitClient) GetKlines(ctx context.Context, symbol, interval string, limit int, startMs int64) ([]models.Candle, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))
	if startMs > 0 {
		params.Set("start", strconv.FormatInt(startMs, 10))
	}

	var result json.RawMessage
	backoff := retry.WithMaxRetries(3, retry.NewConstant(2*time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		raw, err := c.get(ctx, "/v5/market/kline", params, false)
		if err != nil {
			c.logger.Warn("kline fetch failed", "symbol", symbol, "error", err)
			return retry.RetryableError(err)
		}
		result = raw
		return nil
	})
	if err != nil {
		return nil, err
	}

	var payload klineResult
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(payload.List))
	for _, row := range payload.List {
		candle, err := parseKlineRow(symbol, interval, row)
		if err != nil {
			c.logger.Warn("kline row rejected", "symbol", symbol, "error", err)
			continue
		}
		candles = append(candles, candle)
	}

	// Venue sends newest first; the window wants oldest first.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})

	return candles, nil
}

// parseKlineRow converts one raw kline entry into a Candle.
func parseKlineRow(symbol, interval string, row []string) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("short kline row: %d fields", len(row))
	}

	openTime, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("bad open time %q", row[0])
	}

	values := make([]float64, 0, 6)
	for _, s := range row[1:] {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("bad numeric field %q", s)
		}
		values = append(values, v)
	}

	turnover := 0.0
	if len(values) > 5 {
		turnover = values[5]
	}

	candle := models.Candle{
		Symbol:    symbol,
		Interval:  interval,
		OpenTime:  openTime,
		CloseTime: openTime + IntervalMillis(interval) - 1,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
		Turnover:  turnover,
	}

	if candle.High < candle.Low {
		return models.Candle{}, fmt.Errorf("invalid candle: high < low")
	}
	return candle, nil
}

// positionResult is the /v5/position/list result payload.
type positionResult struct {
	List []struct {
		Symbol        string `json:"symbol"`
		Side          string `json:"side"`
		Size          string `json:"size"`
		AvgPrice      string `json:"avgPrice"`
		MarkPrice     string `json:"markPrice"`
		UnrealisedPnl string `json:"unrealisedPnl"`
		Leverage      string `json:"leverage"`
		PositionValue string `json:"positionValue"`
	} `json:"list"`
}

// GetOpenPosition returns the first position with non-zero size, or nil.
func (c *BybitClient) GetOpenPosition(ctx context.Context, symbol string) (*models.Position, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)

	raw, err := c.get(ctx, "/v5/position/list", params, true)
	if err != nil {
		return nil, err
	}

	var payload positionResult
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	for _, p := range payload.List {
		size := safeFloat(p.Size)
		if size == 0 {
			continue
		}
		return &models.Position{
			Symbol:        p.Symbol,
			Side:          p.Side,
			Size:          size,
			AvgPrice:      safeFloat(p.AvgPrice),
			MarkPrice:     safeFloat(p.MarkPrice),
			UnrealisedPnl: safeFloat(p.UnrealisedPnl),
			Leverage:      p.Leverage,
			PositionValue: safeFloat(p.PositionValue),
		}, nil
	}
	return nil, nil
}

// balanceResult is the /v5/account/wallet-balance result payload.
type balanceResult struct {
	List []struct {
		Coin []struct {
			Coin                  string `json:"coin"`
			WalletBalance         string `json:"walletBalance"`
			AvailableToWithdraw   string `json:"availableToWithdraw"`
			TotalAvailableBalance string `json:"totalAvailableBalance"`
			Equity                string `json:"equity"`
		} `json:"coin"`
	} `json:"list"`
}

// GetAvailableBalance returns the unified account USDT balance.
// A missing USDT entry yields a zero balance, not an error.
func (c *BybitClient) GetAvailableBalance(ctx context.Context) (*models.Balance, error) {
	params := url.Values{}
	params.Set("accountType", "UNIFIED")
	params.Set("coin", "USDT")

	raw, err := c.get(ctx, "/v5/account/wallet-balance", params, true)
	if err != nil {
		return nil, err
	}

	var payload balanceResult
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	for _, account := range payload.List {
		for _, coin := range account.Coin {
			if coin.Coin != "USDT" {
				continue
			}
			return &models.Balance{
				Coin:                coin.Coin,
				WalletBalance:       safeFloat(coin.WalletBalance),
				AvailableToWithdraw: safeFloat(coin.AvailableToWithdraw),
				TransferBalance:     safeFloat(coin.TotalAvailableBalance),
				Equity:              safeFloat(coin.Equity),
			}, nil
		}
	}

	c.logger.Warn("no USDT balance entry found, returning zero balance")
	return &models.Balance{Coin: "USDT"}, nil
}

// tickerResult is the /v5/market/tickers result payload.
type tickerResult struct {
	List []struct {
		LastPrice string `json:"lastPrice"`
	} `json:"list"`
}

// GetPrice returns the last traded price for symbol.
func (c *BybitClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)

	raw, err := c.get(ctx, "/v5/market/tickers", params, false)
	if err != nil {
		return 0, err
	}

	var payload tickerResult
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, err
	}

	if len(payload.List) == 0 || payload.List[0].LastPrice == "" {
		return 0, fmt.Errorf("%w: no ticker for %s", ErrAPIError, symbol)
	}
	return strconv.ParseFloat(payload.List[0].LastPrice, 64)
}

// safeFloat parses a numeric string, treating empty and malformed values as 0.
// The venue sends empty strings for fields that do not apply.
func safeFloat(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
