// Package service sits between the HTTP handlers and the query/domain
// layers.
package service

import (
	"context"

	"github.com/navid-fn/compass/internal/models"
	"github.com/navid-fn/compass/internal/repository"
)

// Page bounds for list endpoints.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MarketService serves indicator snapshot reads.
type MarketService struct {
	snapshots repository.SnapshotRepository
}

func NewMarketService(snapshots repository.SnapshotRepository) *MarketService {
	return &MarketService{snapshots: snapshots}
}

// PagedSnapshots is one page of snapshots plus paging metadata.
type PagedSnapshots struct {
	Items []models.IndicatorSnapshot `json:"items"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
	Total int64                      `json:"total"`
}

func clampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *MarketService) ListSnapshots(ctx context.Context, page, limit int, filter repository.SnapshotFilter) (*PagedSnapshots, error) {
	page, limit = clampPaging(page, limit)
	items, total, err := s.snapshots.List(ctx, page, limit, filter)
	if err != nil {
		return nil, err
	}
	return &PagedSnapshots{Items: items, Page: page, Limit: limit, Total: total}, nil
}

func (s *MarketService) LatestSnapshot(ctx context.Context, symbol, interval string) (*models.IndicatorSnapshot, error) {
	return s.snapshots.LatestBySymbol(ctx, symbol, interval)
}

func (s *MarketService) Symbols(ctx context.Context) ([]string, error) {
	return s.snapshots.Symbols(ctx)
}

func (s *MarketService) Stats(ctx context.Context) (*repository.SnapshotStats, error) {
	return s.snapshots.Stats(ctx)
}
