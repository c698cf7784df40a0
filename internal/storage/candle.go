package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/navid-fn/compass/internal/models"
)

// CandleStore is the Postgres-backed candle window storage.
type CandleStore struct {
	db *gorm.DB
}

func NewCandleStore(db *gorm.DB) *CandleStore {
	return &CandleStore{db: db}
}

// InsertCandles batch-inserts candles, skipping rows that conflict on
// (symbol, interval, open_time). Returns the number of rows inserted.
func (s *CandleStore) InsertCandles(ctx context.Context, candles []models.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"}, {Name: "interval_type"}, {Name: "open_time"},
		},
		DoNothing: true,
	}).Create(&candles)
	if res.Error != nil {
		return 0, fmt.Errorf("insert candles: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// LatestOpenTime returns the newest stored open_time, or 0 when the window
// is empty.
func (s *CandleStore) LatestOpenTime(ctx context.Context, symbol, interval string) (int64, error) {
	var latest *int64
	err := s.db.WithContext(ctx).Model(&models.Candle{}).
		Where("symbol = ? AND interval_type = ?", symbol, interval).
		Select("MAX(open_time)").
		Scan(&latest).Error
	if err != nil {
		return 0, fmt.Errorf("latest open_time: %w", err)
	}
	if latest == nil {
		return 0, nil
	}
	return *latest, nil
}

// EvictOldest deletes rows beyond keep, oldest first.
func (s *CandleStore) EvictOldest(ctx context.Context, symbol, interval string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Exec(`
		DELETE FROM klines
		WHERE symbol = ? AND interval_type = ? AND open_time < (
			SELECT MIN(open_time) FROM (
				SELECT open_time FROM klines
				WHERE symbol = ? AND interval_type = ?
				ORDER BY open_time DESC
				LIMIT ?
			) keepers
		)`, symbol, interval, symbol, interval, keep)
	if res.Error != nil {
		return 0, fmt.Errorf("evict candles: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// Candles returns up to limit rows ordered by open_time ascending.
// excludeCurrent filters out rows whose close_time has not passed yet.
func (s *CandleStore) Candles(ctx context.Context, symbol, interval string, limit int, excludeCurrent bool) ([]models.Candle, error) {
	q := s.db.WithContext(ctx).
		Where("symbol = ? AND interval_type = ?", symbol, interval)
	if excludeCurrent {
		q = q.Where("close_time < ?", time.Now().UnixMilli())
	}

	// Take the newest limit rows, then flip to ascending for consumers.
	var candles []models.Candle
	err := q.Order("open_time DESC").Limit(limit).Find(&candles).Error
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}
