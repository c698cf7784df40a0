// Package advisory defines the decision contract between the indicator
// pipeline and an external advisory service, and a HTTP client for it.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/navid-fn/compass/internal/models"
)

var ErrInvalidAdvisory = errors.New("invalid advisory decision")

// Decision is the advisory verdict for a single symbol at a single tick.
type Decision struct {
	Action          models.Action    `json:"action"`
	Confidence      float64          `json:"confidence"`
	EntryPrice      float64          `json:"entry_price"`
	StopLoss        *float64         `json:"stop_loss,omitempty"`
	TakeProfit      *float64         `json:"take_profit,omitempty"`
	RiskRewardRatio *float64         `json:"risk_reward_ratio,omitempty"`
	RiskLevel       models.RiskLevel `json:"risk_level"`
	Justification   string           `json:"justification"`
	Raw             json.RawMessage  `json:"-"`
}

// Actionable reports whether the decision asks for a position change.
func (d *Decision) Actionable() bool {
	return d.Action == models.ActionLong || d.Action == models.ActionShort
}

// Validate checks internal consistency of an actionable decision.
func (d *Decision) Validate() error {
	switch d.Action {
	case models.ActionLong, models.ActionShort, models.ActionWait:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidAdvisory, d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 100 {
		return fmt.Errorf("%w: confidence %.2f out of range", ErrInvalidAdvisory, d.Confidence)
	}
	if !d.Actionable() {
		return nil
	}
	if d.EntryPrice <= 0 {
		return fmt.Errorf("%w: entry price %.8f", ErrInvalidAdvisory, d.EntryPrice)
	}
	if d.StopLoss != nil && d.TakeProfit != nil {
		switch d.Action {
		case models.ActionLong:
			if *d.StopLoss >= d.EntryPrice || *d.TakeProfit <= d.EntryPrice {
				return fmt.Errorf("%w: long levels inverted (sl=%.8f entry=%.8f tp=%.8f)",
					ErrInvalidAdvisory, *d.StopLoss, d.EntryPrice, *d.TakeProfit)
			}
		case models.ActionShort:
			if *d.StopLoss <= d.EntryPrice || *d.TakeProfit >= d.EntryPrice {
				return fmt.Errorf("%w: short levels inverted (sl=%.8f entry=%.8f tp=%.8f)",
					ErrInvalidAdvisory, *d.StopLoss, d.EntryPrice, *d.TakeProfit)
			}
		}
	}
	return nil
}

// Advisor produces a decision from an indicator snapshot and its market
// condition summary.
type Advisor interface {
	Advise(ctx context.Context, snapshot *models.IndicatorSnapshot, conditions json.RawMessage) (*Decision, error)
}

// HTTPAdvisor posts snapshots to an external advisory endpoint.
type HTTPAdvisor struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPAdvisor(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPAdvisor {
	return &HTTPAdvisor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type adviseRequest struct {
	Symbol     string                    `json:"symbol"`
	Snapshot   *models.IndicatorSnapshot `json:"snapshot"`
	Conditions json.RawMessage           `json:"market_conditions,omitempty"`
}

func (a *HTTPAdvisor) Advise(ctx context.Context, snapshot *models.IndicatorSnapshot, conditions json.RawMessage) (*Decision, error) {
	body, err := json.Marshal(adviseRequest{
		Symbol:     snapshot.Symbol,
		Snapshot:   snapshot,
		Conditions: conditions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal advise request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/advise", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build advise request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("advisory request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read advisory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisory returned status %d", resp.StatusCode)
	}

	var decision Decision
	if err := json.Unmarshal(raw, &decision); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAdvisory, err)
	}
	decision.Raw = raw

	if err := decision.Validate(); err != nil {
		return nil, err
	}

	a.logger.Debug("advisory decision received",
		"symbol", snapshot.Symbol,
		"action", decision.Action,
		"confidence", decision.Confidence)
	return &decision, nil
}
