package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/navid-fn/compass/internal/models"
	"github.com/navid-fn/compass/internal/strategy"
)

// StrategyStore implements the lifecycle persistence on Postgres. The
// partial unique index on (symbol) WHERE status IN ('PENDING','OPEN')
// backs the one-active-strategy-per-symbol rule at the storage level.
type StrategyStore struct {
	db *gorm.DB
}

func NewStrategyStore(db *gorm.DB) *StrategyStore {
	return &StrategyStore{db: db}
}

func (s *StrategyStore) Insert(ctx context.Context, st *models.Strategy) error {
	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return fmt.Errorf("insert strategy: %w", err)
	}
	return nil
}

func (s *StrategyStore) GetByID(ctx context.Context, id int64) (*models.Strategy, error) {
	var st models.Strategy
	err := s.db.WithContext(ctx).First(&st, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, strategy.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy %d: %w", id, err)
	}
	return &st, nil
}

func (s *StrategyStore) ActiveBySymbol(ctx context.Context, symbol string) (*models.Strategy, error) {
	var st models.Strategy
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND status IN ?", symbol,
			[]models.Status{models.StatusPending, models.StatusOpen}).
		Order("created_at DESC").
		First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, strategy.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active strategy for %s: %w", symbol, err)
	}
	return &st, nil
}

// CompareAndTransition applies the status change only when the stored
// status still matches from. RowsAffected tells the caller who won.
func (s *StrategyStore) CompareAndTransition(ctx context.Context, id int64, from, to models.Status, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := s.db.WithContext(ctx).Model(&models.Strategy{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("transition strategy %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *StrategyStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Strategy{}).
		Where("status IN ? AND expires_at <= ?",
			[]models.Status{models.StatusPending, models.StatusOpen}, now).
		Update("status", models.StatusExpired)
	if res.Error != nil {
		return 0, fmt.Errorf("expire due strategies: %w", res.Error)
	}
	return res.RowsAffected, nil
}
