package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/navid-fn/compass/internal/models"
)

// StrategyStats summarizes the strategy table for the stats endpoint.
type StrategyStats struct {
	Total         int64            `json:"total"`
	PerStatus     map[string]int64 `json:"per_status"`
	PerAction     map[string]int64 `json:"per_action"`
	Executed      int64            `json:"executed"`
	AvgConfidence float64          `json:"avg_confidence"`
}

type StrategyRepository interface {
	List(ctx context.Context, page, limit int, status, symbol string) ([]models.Strategy, int64, error)
	ListActive(ctx context.Context) ([]models.Strategy, error)
	Stats(ctx context.Context) (*StrategyStats, error)
}

type gormStrategyRepository struct {
	db *gorm.DB
}

func NewGormStrategyRepository(db *gorm.DB) StrategyRepository {
	return &gormStrategyRepository{db: db}
}

func (r *gormStrategyRepository) List(ctx context.Context, page, limit int, status, symbol string) ([]models.Strategy, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Strategy{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var strategies []models.Strategy
	err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&strategies).Error
	if err != nil {
		return nil, 0, err
	}
	return strategies, total, nil
}

func (r *gormStrategyRepository) ListActive(ctx context.Context) ([]models.Strategy, error) {
	var strategies []models.Strategy
	err := r.db.WithContext(ctx).
		Where("status IN ?", []models.Status{models.StatusPending, models.StatusOpen}).
		Order("created_at DESC").
		Find(&strategies).Error
	return strategies, err
}

func (r *gormStrategyRepository) Stats(ctx context.Context) (*StrategyStats, error) {
	stats := &StrategyStats{
		PerStatus: map[string]int64{},
		PerAction: map[string]int64{},
	}

	if err := r.db.WithContext(ctx).Model(&models.Strategy{}).
		Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Strategy{}).
		Where("executed = ?", true).Count(&stats.Executed).Error; err != nil {
		return nil, err
	}

	type bucket struct {
		Key   string
		Count int64
	}
	var statusRows []bucket
	err := r.db.WithContext(ctx).Model(&models.Strategy{}).
		Select("status as key, count(*) as count").
		Group("status").
		Scan(&statusRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range statusRows {
		stats.PerStatus[row.Key] = row.Count
	}

	var actionRows []bucket
	err = r.db.WithContext(ctx).Model(&models.Strategy{}).
		Select("action as key, count(*) as count").
		Group("action").
		Scan(&actionRows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range actionRows {
		stats.PerAction[row.Key] = row.Count
	}

	var avg *float64
	err = r.db.WithContext(ctx).Model(&models.Strategy{}).
		Select("AVG(confidence)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AvgConfidence = *avg
	}
	return stats, nil
}
