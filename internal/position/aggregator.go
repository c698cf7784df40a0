// Package position assembles the live account view (open position, balance,
// last price) from three parallel venue calls under a single deadline.
package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/navid-fn/compass/internal/models"
	"github.com/navid-fn/compass/internal/venue"
)

var ErrAggregateTimeout = errors.New("position aggregate timed out")

// DefaultTimeout bounds one full aggregate round.
const DefaultTimeout = 10 * time.Second

// Aggregator fans out the three venue reads and merges whatever came back
// in time. A failed sub-call degrades its field to nil with an annotation;
// only the overall deadline fails the aggregate.
type Aggregator struct {
	client  venue.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

func NewAggregator(client venue.Client, timeout time.Duration, logger *slog.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{
		client:  client,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

type positionResult struct {
	position *models.Position
	err      error
}

type balanceResult struct {
	balance *models.Balance
	err     error
}

type priceResult struct {
	price float64
	err   error
}

// Fetch runs the three venue calls in parallel and merges the results.
// Each goroutine writes to its own buffered channel so a straggler that
// finishes after the deadline never blocks.
func (a *Aggregator) Fetch(ctx context.Context, symbol string) (*models.PositionView, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	posCh := make(chan positionResult, 1)
	balCh := make(chan balanceResult, 1)
	priceCh := make(chan priceResult, 1)

	go func() {
		p, err := a.client.GetOpenPosition(ctx, symbol)
		posCh <- positionResult{position: p, err: err}
	}()
	go func() {
		b, err := a.client.GetAvailableBalance(ctx)
		balCh <- balanceResult{balance: b, err: err}
	}()
	go func() {
		p, err := a.client.GetPrice(ctx, symbol)
		priceCh <- priceResult{price: p, err: err}
	}()

	view := &models.PositionView{
		RequestID: uuid.NewString(),
		Symbol:    symbol,
		Timestamp: a.now().UTC(),
		Errors:    map[string]string{},
	}

	for pending := 3; pending > 0; pending-- {
		select {
		case res := <-posCh:
			if res.err != nil {
				view.Errors["position"] = res.err.Error()
			} else {
				view.Position = res.position
				view.HasPosition = res.position != nil
			}
		case res := <-balCh:
			if res.err != nil {
				view.Errors["balance"] = res.err.Error()
			} else {
				view.AvailableBalance = res.balance
			}
		case res := <-priceCh:
			if res.err != nil {
				view.Errors["price"] = res.err.Error()
			} else {
				view.CurrentPrice = &res.price
			}
		case <-ctx.Done():
			a.logger.Warn("position aggregate deadline exceeded",
				"request_id", view.RequestID,
				"symbol", symbol,
				"pending", pending)
			return nil, fmt.Errorf("%w: %s after %s", ErrAggregateTimeout, symbol, a.timeout)
		}
	}

	view.Success = true
	if len(view.Errors) == 0 {
		view.Errors = nil
	} else {
		a.logger.Warn("position aggregate degraded",
			"request_id", view.RequestID,
			"symbol", symbol,
			"errors", view.Errors)
	}
	return view, nil
}
