package memstore

import (
	"context"
	"sync"

	"github.com/mengeric/batchgen-go/batchgen"
)

// SnapshotStore 线程安全的内存快照存储，仅用于开发/轻量场景。
// 行存储的内存实现见 rowstore.Memory。
type SnapshotStore struct {
	mu   sync.RWMutex
	last *batchgen.Snapshot
}

// New 创建内存快照存储。
func New() *SnapshotStore { return &SnapshotStore{} }

// Save 覆盖保存最近一次快照。
func (s *SnapshotStore) Save(ctx context.Context, snap *batchgen.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.last = &cp
	return nil
}

// Load 返回最近一次快照，无则 (nil, nil)。
func (s *SnapshotStore) Load(ctx context.Context) (*batchgen.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, nil
	}
	cp := *s.last
	return &cp, nil
}
