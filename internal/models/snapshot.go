package models

import (
	"encoding/json"
	"time"
)

// IndicatorSnapshot is one computed indicator row per (symbol, interval) tick.
// Snapshots are append-only; nothing updates a row after insert.
type IndicatorSnapshot struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`

	// Timestamp is the open time of the last closed candle the computation saw.
	Timestamp time.Time `gorm:"column:timestamp;index" json:"timestamp"`

	Symbol   string  `gorm:"column:symbol;index" json:"symbol"`
	Interval string  `gorm:"column:interval_type" json:"interval"`
	Price    float64 `gorm:"column:price" json:"price"`

	RSI    *float64 `gorm:"column:rsi" json:"rsi"`
	SMA20  *float64 `gorm:"column:sma20" json:"sma20"`
	SMA50  *float64 `gorm:"column:sma50" json:"sma50"`
	SMA200 *float64 `gorm:"column:sma200" json:"sma200"`
	EMA20  *float64 `gorm:"column:ema20" json:"ema20"`
	EMA200 *float64 `gorm:"column:ema200" json:"ema200"`
	ADX    *float64 `gorm:"column:adx" json:"adx"`

	MACD       *float64 `gorm:"column:macd" json:"macd"`
	MACDSignal *float64 `gorm:"column:macd_signal" json:"macd_signal"`
	MACDHist   *float64 `gorm:"column:macd_hist" json:"macd_hist"`

	BBUpper  *float64 `gorm:"column:bb_upper" json:"bb_upper"`
	BBMiddle *float64 `gorm:"column:bb_middle" json:"bb_middle"`
	BBLower  *float64 `gorm:"column:bb_lower" json:"bb_lower"`

	ATR    *float64 `gorm:"column:atr" json:"atr"`
	OBV    *float64 `gorm:"column:obv" json:"obv"`
	Volume float64  `gorm:"column:volume" json:"volume"`

	// Signal is true when the advisory produced an actionable decision
	// (LONG or SHORT) for this tick.
	Signal bool `gorm:"column:signal" json:"signal"`

	// Raw carries the full computation payload (all indicator values plus
	// the trend summary) for consumers that want more than the columns.
	Raw json.RawMessage `gorm:"column:raw;type:jsonb" json:"raw,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (IndicatorSnapshot) TableName() string {
	return "indicator_snapshots"
}
