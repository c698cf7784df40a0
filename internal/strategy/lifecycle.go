// Package strategy tracks time-bound trading recommendations through their
// lifecycle: PENDING -> OPEN -> CLOSED, with CANCELLED and EXPIRED terminals.
package strategy

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

var (
	ErrNotFound          = errors.New("strategy not found")
	ErrInvalidTransition = errors.New("invalid strategy transition")
	ErrActiveExists      = errors.New("symbol already has an active strategy")
)

// Store is the persistence surface the lifecycle needs. The transition
// method is compare-and-swap: it only applies when the stored status still
// matches the expected one, so two concurrent callers cannot both win.
type Store interface {
	Insert(ctx context.Context, s *models.Strategy) error
	GetByID(ctx context.Context, id int64) (*models.Strategy, error)

	// ActiveBySymbol returns the single PENDING or OPEN strategy for the
	// symbol, or ErrNotFound.
	ActiveBySymbol(ctx context.Context, symbol string) (*models.Strategy, error)

	// CompareAndTransition moves id from one status to another while
	// applying updates. Returns false (no error) when the stored status no
	// longer matches from.
	CompareAndTransition(ctx context.Context, id int64, from, to models.Status, updates map[string]any) (bool, error)

	// ExpireDue marks every PENDING/OPEN strategy whose deadline passed as
	// EXPIRED and returns how many rows changed.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Lifecycle owns every state change of a strategy. Expiry is lazy: reads
// and transitions check the deadline before trusting the stored status, and
// a periodic sweep catches the rest.
type Lifecycle struct {
	store    Store
	validity time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewLifecycle(store Store, validity time.Duration, logger *slog.Logger) *Lifecycle {
	if validity <= 0 {
		validity = time.Hour
	}
	return &Lifecycle{
		store:    store,
		validity: validity,
		logger:   logger,
		now:      time.Now,
	}
}

// Propose creates a PENDING strategy from an actionable advisory decision.
// At most one active strategy may exist per symbol; a stale active one is
// expired on the way in, a live one rejects the proposal.
func (l *Lifecycle) Propose(ctx context.Context, symbol string, decision *advisory.Decision, conditions json.RawMessage) (*models.Strategy, error) {
	if decision == nil || !decision.Actionable() {
		return nil, fmt.Errorf("%w: decision is not actionable", advisory.ErrInvalidAdvisory)
	}
	if err := decision.Validate(); err != nil {
		return nil, err
	}

	now := l.now()

	active, err := l.store.ActiveBySymbol(ctx, symbol)
	switch {
	case err == nil:
		if active.ExpiresAt.After(now) {
			return nil, fmt.Errorf("%w: %s strategy %d expires in %.1f minutes",
				ErrActiveExists, symbol, active.ID, active.MinutesUntilExpiry(now))
		}
		if _, err := l.expire(ctx, active); err != nil {
			return nil, err
		}
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("lookup active strategy for %s: %w", symbol, err)
	}

	s := &models.Strategy{
		Symbol:           symbol,
		Action:           decision.Action,
		Confidence:       decision.Confidence,
		EntryPrice:       decision.EntryPrice,
		StopLoss:         decision.StopLoss,
		TakeProfit:       decision.TakeProfit,
		RiskRewardRatio:  decision.RiskRewardRatio,
		Justification:    decision.Justification,
		RiskLevel:        decision.RiskLevel,
		Status:           models.StatusPending,
		ExpiresAt:        now.Add(l.validity),
		AdvisoryResponse: decision.Raw,
		MarketConditions: conditions,
	}
	if err := l.store.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("insert strategy for %s: %w", symbol, err)
	}

	l.logger.Info("strategy proposed",
		"id", s.ID,
		"symbol", symbol,
		"action", s.Action,
		"confidence", s.Confidence,
		"expires_at", s.ExpiresAt)
	return s, nil
}

// MarkExecuted moves a PENDING strategy to OPEN and records the venue
// transaction that filled it.
func (l *Lifecycle) MarkExecuted(ctx context.Context, id int64, transactionID string) (*models.Strategy, error) {
	s, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != models.StatusPending {
		return nil, l.transitionError(s, models.StatusOpen)
	}

	now := l.now()
	ok, err := l.store.CompareAndTransition(ctx, id, models.StatusPending, models.StatusOpen, map[string]any{
		"executed":       true,
		"transaction_id": transactionID,
		"executed_at":    now,
	})
	if err != nil {
		return nil, fmt.Errorf("execute strategy %d: %w", id, err)
	}
	if !ok {
		// Lost the race: someone else transitioned it first.
		return nil, l.raceError(ctx, id, models.StatusOpen)
	}

	s.Status = models.StatusOpen
	s.Executed = true
	s.TransactionID = &transactionID
	s.ExecutedAt = &now

	l.logger.Info("strategy executed", "id", id, "symbol", s.Symbol, "transaction_id", transactionID)
	return s, nil
}

// Close moves an OPEN strategy to CLOSED.
func (l *Lifecycle) Close(ctx context.Context, id int64) (*models.Strategy, error) {
	s, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != models.StatusOpen {
		return nil, l.transitionError(s, models.StatusClosed)
	}

	now := l.now()
	ok, err := l.store.CompareAndTransition(ctx, id, models.StatusOpen, models.StatusClosed, map[string]any{
		"closed_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("close strategy %d: %w", id, err)
	}
	if !ok {
		return nil, l.raceError(ctx, id, models.StatusClosed)
	}

	s.Status = models.StatusClosed
	s.ClosedAt = &now

	l.logger.Info("strategy closed", "id", id, "symbol", s.Symbol)
	return s, nil
}

// Cancel moves a PENDING or OPEN strategy to CANCELLED.
func (l *Lifecycle) Cancel(ctx context.Context, id int64) (*models.Strategy, error) {
	s, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.Status.Active() {
		return nil, l.transitionError(s, models.StatusCancelled)
	}

	now := l.now()
	ok, err := l.store.CompareAndTransition(ctx, id, s.Status, models.StatusCancelled, map[string]any{
		"closed_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel strategy %d: %w", id, err)
	}
	if !ok {
		return nil, l.raceError(ctx, id, models.StatusCancelled)
	}

	s.Status = models.StatusCancelled
	s.ClosedAt = &now

	l.logger.Info("strategy cancelled", "id", id, "symbol", s.Symbol)
	return s, nil
}

// ExpireDue sweeps every active strategy past its deadline. Safe to run
// concurrently with lazy expiry; already-expired rows are simply skipped.
func (l *Lifecycle) ExpireDue(ctx context.Context) (int64, error) {
	count, err := l.store.ExpireDue(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("expire due strategies: %w", err)
	}
	if count > 0 {
		l.logger.Info("expired overdue strategies", "count", count)
	}
	return count, nil
}

// GetActive returns the live strategy for a symbol. A stored active row
// whose deadline has passed is expired on the way out and reported as
// not found.
func (l *Lifecycle) GetActive(ctx context.Context, symbol string) (*models.Strategy, error) {
	s, err := l.store.ActiveBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !s.ExpiresAt.After(l.now()) {
		if _, err := l.expire(ctx, s); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return s, nil
}

// Get returns a strategy by id, lazily expiring it first when due.
func (l *Lifecycle) Get(ctx context.Context, id int64) (*models.Strategy, error) {
	return l.load(ctx, id)
}

// load fetches the strategy and applies lazy expiry before returning it.
func (l *Lifecycle) load(ctx context.Context, id int64) (*models.Strategy, error) {
	s, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status.Active() && !s.ExpiresAt.After(l.now()) {
		return l.expire(ctx, s)
	}
	return s, nil
}

// expire transitions one overdue strategy to EXPIRED. Losing the CAS means
// another path expired it first, which is the same outcome.
func (l *Lifecycle) expire(ctx context.Context, s *models.Strategy) (*models.Strategy, error) {
	ok, err := l.store.CompareAndTransition(ctx, s.ID, s.Status, models.StatusExpired, nil)
	if err != nil {
		return nil, fmt.Errorf("expire strategy %d: %w", s.ID, err)
	}
	if ok {
		l.logger.Info("strategy expired", "id", s.ID, "symbol", s.Symbol, "expired_at", s.ExpiresAt)
	}
	s.Status = models.StatusExpired
	return s, nil
}

func (l *Lifecycle) transitionError(s *models.Strategy, to models.Status) error {
	return fmt.Errorf("%w: strategy %d is %s, cannot move to %s",
		ErrInvalidTransition, s.ID, s.Status, to)
}

// raceError re-reads the row to report the status that actually won.
func (l *Lifecycle) raceError(ctx context.Context, id int64, to models.Status) error {
	s, err := l.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: strategy %d changed concurrently", ErrInvalidTransition, id)
	}
	return l.transitionError(s, to)
}
