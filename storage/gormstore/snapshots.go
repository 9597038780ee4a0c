package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mengeric/batchgen-go/batchgen"
)

// snapshotModel 快照整体以 JSON 存储，仅保留最新一条有意义，
// 历史行保留用于事后排查。
type snapshotModel struct {
	ID      uint      `gorm:"primaryKey"`
	Payload []byte    `gorm:"type:blob"`
	SavedAt time.Time `gorm:"index"`
}

// SnapshotStore 基于 GORM 的 batchgen.Persistence 实现。
type SnapshotStore struct{ db *gorm.DB }

// NewSnapshotStore 创建 SnapshotStore。
func NewSnapshotStore(db *gorm.DB) *SnapshotStore { return &SnapshotStore{db: db} }

// Save 实现 Persistence.Save。
func (s *SnapshotStore) Save(ctx context.Context, snap *batchgen.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m := snapshotModel{Payload: b, SavedAt: snap.SavedAt}
	return s.db.WithContext(ctx).Create(&m).Error
}

// Load 实现 Persistence.Load：返回最近一次快照，无则 (nil, nil)。
func (s *SnapshotStore) Load(ctx context.Context) (*batchgen.Snapshot, error) {
	var m snapshotModel
	err := s.db.WithContext(ctx).Order("saved_at DESC").First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var snap batchgen.Snapshot
	if err := json.Unmarshal(m.Payload, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
