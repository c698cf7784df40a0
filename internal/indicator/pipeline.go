package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/navid-fn/compass/internal/advisory"
	"github.com/navid-fn/compass/internal/models"
)

// MinHistory is the minimum number of closed candles required before any
// indicator is computed. SMA(200) is the slowest consumer.
const MinHistory = 200

var ErrInsufficientHistory = errors.New("insufficient candle history")

// CandleSource supplies the ordered closed-candle series for a key.
type CandleSource interface {
	Candles(ctx context.Context, symbol, interval string, limit int, excludeCurrent bool) ([]models.Candle, error)
}

// SnapshotStore persists computed snapshots. Inserts only.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snapshot *models.IndicatorSnapshot) error
}

// Proposer turns an actionable advisory decision into a tracked strategy.
type Proposer interface {
	Propose(ctx context.Context, symbol string, decision *advisory.Decision, conditions json.RawMessage) (*models.Strategy, error)
}

// Pipeline computes one indicator snapshot per (symbol, interval) tick,
// consults the advisory and hands actionable decisions to the proposer.
type Pipeline struct {
	source   CandleSource
	store    SnapshotStore
	advisor  advisory.Advisor
	proposer Proposer
	logger   *slog.Logger

	historyLimit int
}

func NewPipeline(source CandleSource, store SnapshotStore, advisor advisory.Advisor, proposer Proposer, historyLimit int, logger *slog.Logger) *Pipeline {
	if historyLimit < MinHistory {
		historyLimit = MinHistory
	}
	return &Pipeline{
		source:       source,
		store:        store,
		advisor:      advisor,
		proposer:     proposer,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Compute runs one full tick for the key: load candles, derive every
// indicator, consult the advisory, persist the snapshot and propose a
// strategy when the decision is actionable.
//
// The persisted snapshot is append-only; a failed advisory consultation
// still produces a snapshot with signal=false.
func (p *Pipeline) Compute(ctx context.Context, symbol, interval string) (*models.IndicatorSnapshot, error) {
	candles, err := p.source.Candles(ctx, symbol, interval, p.historyLimit, true)
	if err != nil {
		return nil, fmt.Errorf("load candles for %s/%s: %w", symbol, interval, err)
	}
	if len(candles) < MinHistory {
		return nil, fmt.Errorf("%w: %s/%s has %d candles, need %d",
			ErrInsufficientHistory, symbol, interval, len(candles), MinHistory)
	}

	snapshot := buildSnapshot(symbol, interval, candles)

	conditions := marketConditions(snapshot, candles)

	decision, err := p.advisor.Advise(ctx, snapshot, conditions)
	if err != nil {
		// Advisory failure never blocks the snapshot: record the tick
		// with signal=false and move on.
		p.logger.Error("advisory consultation failed",
			"symbol", symbol, "interval", interval, "error", err)
	} else if decision.Actionable() {
		snapshot.Signal = true
	}

	if err := p.store.InsertSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("persist snapshot for %s/%s: %w", symbol, interval, err)
	}

	if snapshot.Signal && p.proposer != nil {
		if _, err := p.proposer.Propose(ctx, symbol, decision, conditions); err != nil {
			p.logger.Error("strategy proposal failed",
				"symbol", symbol, "action", decision.Action, "error", err)
		}
	}

	p.logger.Info("indicator snapshot computed",
		"symbol", symbol,
		"interval", interval,
		"price", snapshot.Price,
		"signal", snapshot.Signal)
	return snapshot, nil
}

func buildSnapshot(symbol, interval string, candles []models.Candle) *models.IndicatorSnapshot {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	last := candles[len(candles)-1]
	snapshot := &models.IndicatorSnapshot{
		Timestamp: time.UnixMilli(last.OpenTime).UTC(),
		Symbol:    symbol,
		Interval:  interval,
		Price:     last.Close,
		Volume:    last.Volume,
	}

	if v, ok := SMA(closes, 20); ok {
		snapshot.SMA20 = &v
	}
	if v, ok := SMA(closes, 50); ok {
		snapshot.SMA50 = &v
	}
	if v, ok := SMA(closes, 200); ok {
		snapshot.SMA200 = &v
	}
	if v, ok := EMA(closes, 20); ok {
		snapshot.EMA20 = &v
	}
	if v, ok := EMA(closes, 200); ok {
		snapshot.EMA200 = &v
	}
	if v, ok := RSI(closes, 14); ok {
		snapshot.RSI = &v
	}
	if macd, signal, hist, ok := MACD(closes); ok {
		snapshot.MACD = &macd
		snapshot.MACDSignal = &signal
		snapshot.MACDHist = &hist
	}
	if upper, middle, lower, _, _, ok := Bollinger(closes, 20, 2); ok {
		snapshot.BBUpper = &upper
		snapshot.BBMiddle = &middle
		snapshot.BBLower = &lower
	}
	if v, ok := ATR(highs, lows, closes, 14); ok {
		snapshot.ATR = &v
	}
	if v, ok := OBV(closes, volumes); ok {
		snapshot.OBV = &v
	}
	if adx, _, _, ok := ADX(highs, lows, closes, 14); ok {
		snapshot.ADX = &adx
	}

	snapshot.Raw = rawPayload(snapshot, closes, highs, lows)
	return snapshot
}

// rawPayload serializes everything the columns hold plus the derived trend
// summary, so downstream consumers get one self-contained document.
func rawPayload(s *models.IndicatorSnapshot, closes, highs, lows []float64) json.RawMessage {
	payload := map[string]any{
		"price":       s.Price,
		"volume":      s.Volume,
		"rsi":         s.RSI,
		"sma20":       s.SMA20,
		"sma50":       s.SMA50,
		"sma200":      s.SMA200,
		"ema20":       s.EMA20,
		"ema200":      s.EMA200,
		"macd":        s.MACD,
		"macd_signal": s.MACDSignal,
		"macd_hist":   s.MACDHist,
		"bb_upper":    s.BBUpper,
		"bb_middle":   s.BBMiddle,
		"bb_lower":    s.BBLower,
		"atr":         s.ATR,
		"obv":         s.OBV,
		"adx":         s.ADX,
	}

	if _, _, _, width, percentB, ok := Bollinger(closes, 20, 2); ok {
		payload["bb_width"] = width
		payload["bb_percent_b"] = percentB
	}
	if adx, plusDI, minusDI, ok := ADX(highs, lows, closes, 14); ok {
		payload["adx"] = adx
		payload["plus_di"] = plusDI
		payload["minus_di"] = minusDI
	}
	payload["trend"] = trendSummary(s)

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}

// trendSummary classifies the current market regime from the computed
// indicators. Purely descriptive; the advisory makes the actual call.
func trendSummary(s *models.IndicatorSnapshot) map[string]string {
	summary := map[string]string{}

	switch {
	case s.SMA20 != nil && s.SMA50 != nil && s.Price > *s.SMA20 && *s.SMA20 > *s.SMA50:
		summary["direction"] = "uptrend"
	case s.SMA20 != nil && s.SMA50 != nil && s.Price < *s.SMA20 && *s.SMA20 < *s.SMA50:
		summary["direction"] = "downtrend"
	default:
		summary["direction"] = "sideways"
	}

	if s.RSI != nil {
		switch {
		case *s.RSI >= 70:
			summary["momentum"] = "overbought"
		case *s.RSI <= 30:
			summary["momentum"] = "oversold"
		default:
			summary["momentum"] = "neutral"
		}
	}

	if s.ADX != nil {
		if *s.ADX >= 25 {
			summary["strength"] = "trending"
		} else {
			summary["strength"] = "ranging"
		}
	}

	if s.MACDHist != nil {
		if *s.MACDHist > 0 {
			summary["macd_bias"] = "bullish"
		} else {
			summary["macd_bias"] = "bearish"
		}
	}

	return summary
}

func marketConditions(s *models.IndicatorSnapshot, candles []models.Candle) json.RawMessage {
	first := candles[0]
	last := candles[len(candles)-1]

	change := 0.0
	if first.Close != 0 {
		change = (last.Close - first.Close) / first.Close * 100
	}

	raw, err := json.Marshal(map[string]any{
		"window_candles": len(candles),
		"window_from":    time.UnixMilli(first.OpenTime).UTC(),
		"window_to":      time.UnixMilli(last.OpenTime).UTC(),
		"change_percent": change,
		"trend":          trendSummary(s),
	})
	if err != nil {
		return nil
	}
	return raw
}
