package models

import "time"

// Position is an open venue position for one symbol.
type Position struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	AvgPrice      float64 `json:"avg_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealisedPnl float64 `json:"unrealised_pnl"`
	Leverage      string  `json:"leverage"`
	PositionValue float64 `json:"position_value"`
}

// Balance is the available venue wallet balance.
type Balance struct {
	Coin                string  `json:"coin"`
	WalletBalance       float64 `json:"wallet_balance"`
	AvailableToWithdraw float64 `json:"available_to_withdraw"`
	TransferBalance     float64 `json:"transfer_balance"`
	Equity              float64 `json:"equity"`
}

// PositionView is the per-request aggregate served to streaming consumers.
// It is never persisted. Each field is independently nil on sub-call failure;
// Success means the aggregate completed within its deadline, not that every
// field is present.
type PositionView struct {
	RequestID string    `json:"request_id"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`

	Position         *Position `json:"position"`
	AvailableBalance *Balance  `json:"balance"`
	CurrentPrice     *float64  `json:"current_price"`
	HasPosition      bool      `json:"has_position"`

	// Errors annotates failed sub-calls by field name
	// ("position", "balance", "price").
	Errors map[string]string `json:"errors,omitempty"`
}
