// Package models defines the persisted data model and the ephemeral view
// types shared across components.
package models

import "time"

// Candle represents a single kline record.
// Rows are immutable once persisted; uniqueness is (symbol, interval, open_time).
type Candle struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`

	// Symbol is the trading pair (e.g., "BTCUSDT").
	Symbol string `gorm:"column:symbol;uniqueIndex:idx_klines_key" json:"symbol"`

	// Interval is the venue interval code: "240"=4h, "60"=1h, "15"=15m, "D"=1d.
	Interval string `gorm:"column:interval_type;uniqueIndex:idx_klines_key" json:"interval"`

	// OpenTime is the candle open in milliseconds since epoch.
	OpenTime int64 `gorm:"column:open_time;uniqueIndex:idx_klines_key" json:"open_time"`

	// CloseTime is open_time + interval duration - 1ms.
	CloseTime int64 `gorm:"column:close_time" json:"close_time"`

	Open     float64 `gorm:"column:open_price" json:"open"`
	High     float64 `gorm:"column:high_price" json:"high"`
	Low      float64 `gorm:"column:low_price" json:"low"`
	Close    float64 `gorm:"column:close_price" json:"close"`
	Volume   float64 `gorm:"column:volume" json:"volume"`
	Turnover float64 `gorm:"column:turnover" json:"turnover"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Candle) TableName() string {
	return "klines"
}
