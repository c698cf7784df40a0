// Package venue provides the Bybit v5 REST client consumed by the core.
// All calls are blocking from the caller's perspective; offloading and
// deadline-bounding them is the caller's job (see internal/position).
package venue

import (
	"context"
	"errors"

	"github.com/navid-fn/compass/internal/models"
)

// ErrAPIError indicates the venue answered with a non-zero return code.
var ErrAPIError = errors.New("venue API error")

// Client is the venue capability consumed by the core components.
type Client interface {
	// GetKlines fetches up to limit candles for symbol/interval, oldest
	// first. startMs of 0 means "most recent window".
	GetKlines(ctx context.Context, symbol, interval string, limit int, startMs int64) ([]models.Candle, error)

	// GetOpenPosition returns the open position for symbol, or nil when
	// there is none (size == 0 counts as none).
	GetOpenPosition(ctx context.Context, symbol string) (*models.Position, error)

	// GetAvailableBalance returns the unified-account USDT balance.
	GetAvailableBalance(ctx context.Context) (*models.Balance, error)

	// GetPrice returns the last traded price for symbol.
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// intervalMillis maps venue interval codes to their duration in milliseconds.
var intervalMillis = map[string]int64{
	"1":   60 * 1000,
	"3":   3 * 60 * 1000,
	"5":   5 * 60 * 1000,
	"15":  15 * 60 * 1000,
	"30":  30 * 60 * 1000,
	"60":  60 * 60 * 1000,
	"120": 2 * 60 * 60 * 1000,
	"240": 4 * 60 * 60 * 1000,
	"360": 6 * 60 * 60 * 1000,
	"720": 12 * 60 * 60 * 1000,
	"D":   24 * 60 * 60 * 1000,
	"W":   7 * 24 * 60 * 60 * 1000,
}

// IntervalMillis returns the duration of one interval in milliseconds.
// Unknown codes fall back to 4h, the system default.
func IntervalMillis(interval string) int64 {
	if ms, ok := intervalMillis[interval]; ok {
		return ms
	}
	return intervalMillis["240"]
}
