package batchgen

import (
	"context"
	"sync"
)

// snapMemStore 包内置的内存快照存储，仅用于默认与测试场景。
// 设计：为了避免 import cycle，不依赖 storage 子包，实现最小的 Persistence 接口。
type snapMemStore struct {
	mu   sync.RWMutex
	last *Snapshot
}

// newDefaultSnapStore 创建内置内存快照存储。
func newDefaultSnapStore() Persistence { return &snapMemStore{} }

// Save 覆盖保存最近一次快照。
func (s *snapMemStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.last = &cp
	return nil
}

// Load 返回最近一次快照，无则 (nil, nil)。
func (s *snapMemStore) Load(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, nil
	}
	cp := *s.last
	return &cp, nil
}
