package service

import (
	"context"
	"time"

	"github.com/navid-fn/compass/internal/models"
	"github.com/navid-fn/compass/internal/repository"
	"github.com/navid-fn/compass/internal/strategy"
)

// StrategyService serves strategy reads and forwards lifecycle commands.
type StrategyService struct {
	repo      repository.StrategyRepository
	lifecycle *strategy.Lifecycle
}

func NewStrategyService(repo repository.StrategyRepository, lifecycle *strategy.Lifecycle) *StrategyService {
	return &StrategyService{repo: repo, lifecycle: lifecycle}
}

// PagedStrategies is one page of strategies plus paging metadata.
type PagedStrategies struct {
	Items []models.Strategy `json:"items"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
	Total int64             `json:"total"`
}

func (s *StrategyService) List(ctx context.Context, page, limit int, status, symbol string) (*PagedStrategies, error) {
	page, limit = clampPaging(page, limit)
	items, total, err := s.repo.List(ctx, page, limit, status, symbol)
	if err != nil {
		return nil, err
	}
	deriveRemaining(items)
	return &PagedStrategies{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (s *StrategyService) ListActive(ctx context.Context) ([]models.Strategy, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	deriveRemaining(items)
	return items, nil
}

// GetActive serves the live strategy for one symbol, expiring a stale one
// on the way out.
func (s *StrategyService) GetActive(ctx context.Context, symbol string) (*models.Strategy, error) {
	active, err := s.lifecycle.GetActive(ctx, symbol)
	if err != nil {
		return nil, err
	}
	active.DeriveRemaining(time.Now())
	return active, nil
}

func deriveRemaining(items []models.Strategy) {
	now := time.Now()
	for i := range items {
		items[i].DeriveRemaining(now)
	}
}

func (s *StrategyService) Stats(ctx context.Context) (*repository.StrategyStats, error) {
	return s.repo.Stats(ctx)
}

func (s *StrategyService) Get(ctx context.Context, id int64) (*models.Strategy, error) {
	st, err := s.lifecycle.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st.DeriveRemaining(time.Now())
	return st, nil
}

func (s *StrategyService) Execute(ctx context.Context, id int64, transactionID string) (*models.Strategy, error) {
	return s.lifecycle.MarkExecuted(ctx, id, transactionID)
}

func (s *StrategyService) Close(ctx context.Context, id int64) (*models.Strategy, error) {
	return s.lifecycle.Close(ctx, id)
}

func (s *StrategyService) Cancel(ctx context.Context, id int64) (*models.Strategy, error) {
	return s.lifecycle.Cancel(ctx, id)
}
