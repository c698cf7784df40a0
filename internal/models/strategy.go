package models

import (
	"encoding/json"
	"time"
)

// Action is the advisory trade direction.
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"

	// ActionWait is the "no action" baseline. It never creates a strategy.
	ActionWait Action = "WAIT"
)

// Status tracks the strategy lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
	StatusExpired   Status = "EXPIRED"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusClosed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Active reports whether the strategy still counts as the current
// recommendation for its symbol, expiry deadline aside.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusOpen
}

// RiskLevel classifies an advisory decision.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Strategy is one time-bound trading recommendation.
// ExpiresAt is fixed at creation and never changes afterwards.
type Strategy struct {
	ID     int64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Symbol string `gorm:"column:symbol;index" json:"symbol"`

	Action          Action    `gorm:"column:action" json:"action"`
	Confidence      float64   `gorm:"column:confidence" json:"confidence"`
	EntryPrice      float64   `gorm:"column:entry_price" json:"entry_price"`
	StopLoss        *float64  `gorm:"column:stop_loss" json:"stop_loss"`
	TakeProfit      *float64  `gorm:"column:take_profit" json:"take_profit"`
	RiskRewardRatio *float64  `gorm:"column:risk_reward_ratio" json:"risk_reward_ratio"`
	Justification   string    `gorm:"column:justification" json:"justification"`
	RiskLevel       RiskLevel `gorm:"column:risk_level" json:"risk_level"`

	Executed      bool    `gorm:"column:executed" json:"executed"`
	Status        Status  `gorm:"column:status;index" json:"status"`
	TransactionID *string `gorm:"column:transaction_id" json:"transaction_id"`

	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ExpiresAt  time.Time  `gorm:"column:expires_at" json:"expires_at"`
	ExecutedAt *time.Time `gorm:"column:executed_at" json:"executed_at"`
	ClosedAt   *time.Time `gorm:"column:closed_at" json:"closed_at"`

	AdvisoryResponse json.RawMessage `gorm:"column:advisory_response;type:jsonb" json:"advisory_response,omitempty"`
	MarketConditions json.RawMessage `gorm:"column:market_conditions;type:jsonb" json:"market_conditions,omitempty"`

	// RemainingMinutes is derived at read time for active strategies.
	// Never persisted.
	RemainingMinutes *float64 `gorm:"-" json:"minutes_until_expiry,omitempty"`
}

func (Strategy) TableName() string {
	return "trading_strategies"
}

// MinutesUntilExpiry is the remaining validity in minutes at the given
// instant. Negative values mean the deadline has already passed.
func (s *Strategy) MinutesUntilExpiry(now time.Time) float64 {
	return s.ExpiresAt.Sub(now).Minutes()
}

// DeriveRemaining fills RemainingMinutes for active strategies.
func (s *Strategy) DeriveRemaining(now time.Time) {
	if s.Status.Active() {
		remaining := s.MinutesUntilExpiry(now)
		s.RemainingMinutes = &remaining
	}
}
