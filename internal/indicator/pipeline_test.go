package indicator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/navid-fn/compass/internal/advisory"
	"github.com/navid-fn/compass/internal/models"
)

type fakeSource struct {
	candles []models.Candle
	err     error
}

func (s *fakeSource) Candles(context.Context, string, string, int, bool) ([]models.Candle, error) {
	return s.candles, s.err
}

type fakeSnapshots struct {
	inserted []*models.IndicatorSnapshot
	err      error
}

func (s *fakeSnapshots) InsertSnapshot(_ context.Context, snapshot *models.IndicatorSnapshot) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, snapshot)
	return nil
}

type fakeAdvisor struct {
	decision *advisory.Decision
	err      error
}

func (a *fakeAdvisor) Advise(context.Context, *models.IndicatorSnapshot, json.RawMessage) (*advisory.Decision, error) {
	return a.decision, a.err
}

type fakeProposer struct {
	proposed []string
	err      error
}

func (p *fakeProposer) Propose(_ context.Context, symbol string, _ *advisory.Decision, _ json.RawMessage) (*models.Strategy, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.proposed = append(p.proposed, symbol)
	return &models.Strategy{Symbol: symbol}, nil
}

func makeCandles(n int) []models.Candle {
	base := time.Now().Add(-time.Duration(n+1) * 4 * time.Hour).UnixMilli()
	const interval = 4 * 60 * 60 * 1000
	out := make([]models.Candle, n)
	for i := range out {
		price := 100 + math.Sin(float64(i)/10)*20 + float64(i)/5
		open := base + int64(i)*interval
		out[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "240",
			OpenTime:  open,
			CloseTime: open + interval - 1,
			Open:      price - 1,
			High:      price + 2,
			Low:       price - 2,
			Close:     price,
			Volume:    50 + float64(i%7),
		}
	}
	return out
}

func waitDecision() *advisory.Decision {
	return &advisory.Decision{Action: models.ActionWait, Confidence: 50}
}

func longDecision() *advisory.Decision {
	sl, tp := 95.0, 130.0
	return &advisory.Decision{
		Action:     models.ActionLong,
		Confidence: 80,
		EntryPrice: 110,
		StopLoss:   &sl,
		TakeProfit: &tp,
		RiskLevel:  models.RiskMedium,
	}
}

func testPipeline(source CandleSource, store SnapshotStore, advisor advisory.Advisor, proposer Proposer) *Pipeline {
	return NewPipeline(source, store, advisor, proposer, 1000, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestComputeRequiresMinimumHistory(t *testing.T) {
	p := testPipeline(&fakeSource{candles: makeCandles(MinHistory - 1)}, &fakeSnapshots{}, &fakeAdvisor{decision: waitDecision()}, &fakeProposer{})

	_, err := p.Compute(context.Background(), "BTCUSDT", "240")
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Errorf("Expected ErrInsufficientHistory, got %v", err)
	}
}

func TestComputePersistsSnapshot(t *testing.T) {
	store := &fakeSnapshots{}
	p := testPipeline(&fakeSource{candles: makeCandles(250)}, store, &fakeAdvisor{decision: waitDecision()}, &fakeProposer{})

	snapshot, err := p.Compute(context.Background(), "BTCUSDT", "240")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("Expected 1 persisted snapshot, got %d", len(store.inserted))
	}
	if snapshot.SMA200 == nil || snapshot.RSI == nil || snapshot.MACD == nil || snapshot.ATR == nil {
		t.Error("Expected all indicators populated with 250 candles")
	}
	if snapshot.Signal {
		t.Error("WAIT decision must not set the signal flag")
	}
	if snapshot.Raw == nil {
		t.Error("Expected raw payload on the snapshot")
	}
}

func TestComputeSetsSignalAndProposes(t *testing.T) {
	proposer := &fakeProposer{}
	p := testPipeline(&fakeSource{candles: makeCandles(250)}, &fakeSnapshots{}, &fakeAdvisor{decision: longDecision()}, proposer)

	snapshot, err := p.Compute(context.Background(), "BTCUSDT", "240")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if !snapshot.Signal {
		t.Error("LONG decision should set the signal flag")
	}
	if len(proposer.proposed) != 1 || proposer.proposed[0] != "BTCUSDT" {
		t.Errorf("Expected one proposal for BTCUSDT, got %v", proposer.proposed)
	}
}

func TestComputeSurvivesAdvisoryFailure(t *testing.T) {
	store := &fakeSnapshots{}
	proposer := &fakeProposer{}
	p := testPipeline(&fakeSource{candles: makeCandles(250)}, store, &fakeAdvisor{err: errors.New("advisory down")}, proposer)

	snapshot, err := p.Compute(context.Background(), "BTCUSDT", "240")
	if err != nil {
		t.Fatalf("Advisory failure should not fail the tick: %v", err)
	}
	if snapshot.Signal {
		t.Error("Failed advisory must leave signal false")
	}
	if len(store.inserted) != 1 {
		t.Error("Snapshot must still be persisted when the advisory fails")
	}
	if len(proposer.proposed) != 0 {
		t.Error("Nothing should be proposed when the advisory fails")
	}
}

func TestComputeDeterministicSnapshots(t *testing.T) {
	candles := makeCandles(250)
	store := &fakeSnapshots{}
	p := testPipeline(&fakeSource{candles: candles}, store, &fakeAdvisor{decision: waitDecision()}, &fakeProposer{})

	first, err := p.Compute(context.Background(), "BTCUSDT", "240")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	second, err := p.Compute(context.Background(), "BTCUSDT", "240")
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if *first.RSI != *second.RSI || *first.SMA200 != *second.SMA200 || *first.OBV != *second.OBV {
		t.Error("Same candle series must produce identical snapshots")
	}
	if len(store.inserted) != 2 {
		t.Errorf("Snapshots are append-only; expected 2 rows, got %d", len(store.inserted))
	}
}

func TestComputePropagatesStoreFailure(t *testing.T) {
	store := &fakeSnapshots{err: errors.New("db down")}
	p := testPipeline(&fakeSource{candles: makeCandles(250)}, store, &fakeAdvisor{decision: waitDecision()}, &fakeProposer{})

	if _, err := p.Compute(context.Background(), "BTCUSDT", "240"); err == nil {
		t.Error("Expected store failure to surface")
	}
}
