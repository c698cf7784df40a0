package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/navid-fn/compass/internal/models"
)

// SnapshotStore persists indicator snapshots. Rows are append-only.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) InsertSnapshot(ctx context.Context, snapshot *models.IndicatorSnapshot) error {
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
