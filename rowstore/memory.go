package rowstore

import (
	"context"
	"sync"
	"time"
)

// Memory 线程安全的内存实现，默认与测试场景使用。
type Memory struct {
	mu sync.RWMutex
	m  map[string]*Record
}

// NewMemory 创建内存行存储。
func NewMemory() *Memory { return &Memory{m: map[string]*Record{}} }

// Put 插入或整体覆盖一行。
func (s *Memory) Put(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := rec.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	s.m[cp.Key] = &cp
	return nil
}

// Get 按稳定键读取一行。
func (s *Memory) Get(ctx context.Context, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.m[key]; ok {
		cp := r.Clone()
		return &cp, nil
	}
	return nil, ErrNotFound
}

// Select 按谓词筛选行。
func (s *Memory) Select(ctx context.Context, pred func(Record) bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0)
	for _, r := range s.m {
		if pred == nil || pred(*r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// UpsertStatus 应用单个状态变更。
func (s *Memory) UpsertStatus(ctx context.Context, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.m[p.Key]
	if !ok {
		return ErrNotFound
	}
	Apply(r, p)
	return nil
}

// BulkApply 在同一把锁内应用一批变更，观察者不会看到半合并的中间态。
func (s *Memory) BulkApply(ctx context.Context, patches []Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patches {
		if r, ok := s.m[p.Key]; ok {
			Apply(r, p)
		}
	}
	return nil
}

// List 返回全部行。
func (s *Memory) List(ctx context.Context) ([]Record, error) {
	return s.Select(ctx, nil)
}
