// Package candle owns the canonical sliding window of OHLCV candles per
// (symbol, interval). It synchronizes the window against the venue and
// evicts the oldest rows once the window size is exceeded.
package candle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/navid-fn/compass/internal/models"
	"github.com/navid-fn/compass/internal/venue"
)

// ErrSyncFailed indicates a venue or storage error during synchronization.
// The partial batch inserted before the failure stays committed; a retry
// resumes from the new latest open_time.
var ErrSyncFailed = errors.New("candle sync failed")

// Store is the persistence surface the window needs.
// Implementations must skip rows that conflict on (symbol, interval,
// open_time) instead of erroring, so replays stay idempotent.
type Store interface {
	// InsertCandles inserts candles, silently skipping conflicts.
	// Returns the number of rows actually inserted.
	InsertCandles(ctx context.Context, candles []models.Candle) (int, error)

	// LatestOpenTime returns the newest stored open_time for the key,
	// or 0 when no candles exist.
	LatestOpenTime(ctx context.Context, symbol, interval string) (int64, error)

	// EvictOldest deletes rows beyond keep, oldest open_time first.
	// Returns the number of rows deleted.
	EvictOldest(ctx context.Context, symbol, interval string, keep int) (int, error)

	// Candles returns up to limit rows ordered by open_time ascending.
	// excludeCurrent drops any row whose close_time has not passed yet,
	// so computations only ever see closed candles.
	Candles(ctx context.Context, symbol, interval string, limit int, excludeCurrent bool) ([]models.Candle, error)
}

// Config holds window sizing.
type Config struct {
	// WindowSize is the maximum candles retained per (symbol, interval).
	WindowSize int

	// InitialFetchLimit is the candle count fetched when the window is empty.
	InitialFetchLimit int

	// IncrementalFetchLimit caps one incremental fetch.
	IncrementalFetchLimit int
}

// DefaultConfig returns the sizing the original deployment ran with.
func DefaultConfig() Config {
	return Config{
		WindowSize:            1000,
		InitialFetchLimit:     1000,
		IncrementalFetchLimit: 500,
	}
}

// Window synchronizes and retains the candle sliding window.
// Concurrent syncs of the same (symbol, interval) are serialized via a
// per-key mutex; the storage uniqueness constraint remains the authoritative
// safety net should serialization ever be imperfect.
type Window struct {
	client venue.Client
	store  Store
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string]*sync.Mutex

	now func() time.Time
}

// NewWindow creates a candle window.
func NewWindow(client venue.Client, store Store, cfg Config, logger *slog.Logger) *Window {
	if cfg.WindowSize <= 0 {
		cfg = DefaultConfig()
	}
	return &Window{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "candle-window"),
		keys:   make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

// closedOnly drops trailing candles that have not closed yet. Storing a
// forming candle would freeze its mid-candle values, because the next
// incremental sync starts after the latest stored open_time.
func (w *Window) closedOnly(candles []models.Candle) []models.Candle {
	nowMs := w.now().UnixMilli()
	for len(candles) > 0 && candles[len(candles)-1].CloseTime >= nowMs {
		candles = candles[:len(candles)-1]
	}
	return candles
}

// keyLock returns the mutex serializing syncs of one (symbol, interval).
func (w *Window) keyLock(symbol, interval string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := symbol + ":" + interval
	if _, ok := w.keys[key]; !ok {
		w.keys[key] = &sync.Mutex{}
	}
	return w.keys[key]
}

// Sync brings the window up to date and returns the number of candles
// inserted. An empty window triggers an initial bulk fetch; otherwise only
// candles newer than the latest stored open_time are fetched. Replaying the
// same fetch window inserts nothing and does not error.
func (w *Window) Sync(ctx context.Context, symbol, interval string) (int, error) {
	lock := w.keyLock(symbol, interval)
	lock.Lock()
	defer lock.Unlock()

	latest, err := w.store.LatestOpenTime(ctx, symbol, interval)
	if err != nil {
		return 0, fmt.Errorf("%w: reading latest open_time: %v", ErrSyncFailed, err)
	}

	if latest == 0 {
		return w.initialSync(ctx, symbol, interval)
	}
	return w.incrementalSync(ctx, symbol, interval, latest)
}

// initialSync bulk-loads the most recent InitialFetchLimit candles.
func (w *Window) initialSync(ctx context.Context, symbol, interval string) (int, error) {
	w.logger.Info("starting initial sync", "symbol", symbol, "interval", interval)

	candles, err := w.client.GetKlines(ctx, symbol, interval, w.cfg.InitialFetchLimit, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	inserted, err := w.store.InsertCandles(ctx, w.closedOnly(candles))
	if err != nil {
		return inserted, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	w.logger.Info("initial sync completed", "symbol", symbol, "inserted", inserted)
	return inserted, nil
}

// incrementalSync fetches candles newer than latest and evicts overflow.
func (w *Window) incrementalSync(ctx context.Context, symbol, interval string, latest int64) (int, error) {
	start := latest + venue.IntervalMillis(interval)

	candles, err := w.client.GetKlines(ctx, symbol, interval, w.cfg.IncrementalFetchLimit, start)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	inserted, err := w.store.InsertCandles(ctx, w.closedOnly(candles))
	if err != nil {
		return inserted, fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}

	evicted, err := w.store.EvictOldest(ctx, symbol, interval, w.cfg.WindowSize)
	if err != nil {
		return inserted, fmt.Errorf("%w: evicting: %v", ErrSyncFailed, err)
	}

	if inserted > 0 || evicted > 0 {
		w.logger.Info("incremental sync completed",
			"symbol", symbol, "inserted", inserted, "evicted", evicted)
	}
	return inserted, nil
}

// Candles returns the window contents ordered by open_time ascending.
func (w *Window) Candles(ctx context.Context, symbol, interval string, limit int, excludeCurrent bool) ([]models.Candle, error) {
	return w.store.Candles(ctx, symbol, interval, limit, excludeCurrent)
}
