// Package repository holds the read-side query layer behind the HTTP API.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/navid-fn/compass/internal/models"
)

// SnapshotStats summarizes the snapshot table for the stats endpoint.
type SnapshotStats struct {
	Total       int64            `json:"total"`
	Signals     int64            `json:"signals"`
	PerSymbol   map[string]int64 `json:"per_symbol"`
	LatestTick  *time.Time       `json:"latest_tick"`
	OldestTick  *time.Time       `json:"oldest_tick"`
	SymbolCount int              `json:"symbol_count"`
}

// SnapshotFilter narrows a snapshot list query. Zero values mean "no
// constraint".
type SnapshotFilter struct {
	Symbol   string
	Interval string
	Search   string
	From     time.Time
	To       time.Time
}

type SnapshotRepository interface {
	List(ctx context.Context, page, limit int, filter SnapshotFilter) ([]models.IndicatorSnapshot, int64, error)
	LatestBySymbol(ctx context.Context, symbol, interval string) (*models.IndicatorSnapshot, error)
	Symbols(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*SnapshotStats, error)
}

type gormSnapshotRepository struct {
	db *gorm.DB
}

func NewGormSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &gormSnapshotRepository{db: db}
}

func (r *gormSnapshotRepository) List(ctx context.Context, page, limit int, filter SnapshotFilter) ([]models.IndicatorSnapshot, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.IndicatorSnapshot{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Interval != "" {
		q = q.Where("interval_type = ?", filter.Interval)
	}
	if filter.Search != "" {
		q = q.Where("symbol ILIKE ?", "%"+filter.Search+"%")
	}
	if !filter.From.IsZero() {
		q = q.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("timestamp <= ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var snapshots []models.IndicatorSnapshot
	err := q.Order("timestamp DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&snapshots).Error
	if err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

func (r *gormSnapshotRepository) LatestBySymbol(ctx context.Context, symbol, interval string) (*models.IndicatorSnapshot, error) {
	var snapshot models.IndicatorSnapshot
	q := r.db.WithContext(ctx).Where("symbol = ?", symbol)
	if interval != "" {
		q = q.Where("interval_type = ?", interval)
	}
	if err := q.Order("timestamp DESC").First(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *gormSnapshotRepository) Symbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := r.db.WithContext(ctx).Model(&models.IndicatorSnapshot{}).
		Distinct("symbol").
		Order("symbol").
		Pluck("symbol", &symbols).Error
	return symbols, err
}

func (r *gormSnapshotRepository) Stats(ctx context.Context) (*SnapshotStats, error) {
	stats := &SnapshotStats{PerSymbol: map[string]int64{}}

	base := r.db.WithContext(ctx).Model(&models.IndicatorSnapshot{})
	if err := base.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.IndicatorSnapshot{}).
		Where("signal = ?", true).Count(&stats.Signals).Error; err != nil {
		return nil, err
	}

	type symbolCount struct {
		Symbol string
		Count  int64
	}
	var rows []symbolCount
	err := r.db.WithContext(ctx).Model(&models.IndicatorSnapshot{}).
		Select("symbol, count(*) as count").
		Group("symbol").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.PerSymbol[row.Symbol] = row.Count
	}
	stats.SymbolCount = len(rows)

	type tickRange struct {
		Latest *time.Time
		Oldest *time.Time
	}
	var tr tickRange
	err = r.db.WithContext(ctx).Model(&models.IndicatorSnapshot{}).
		Select("MAX(timestamp) as latest, MIN(timestamp) as oldest").
		Scan(&tr).Error
	if err != nil {
		return nil, err
	}
	stats.LatestTick = tr.Latest
	stats.OldestTick = tr.Oldest
	return stats, nil
}
