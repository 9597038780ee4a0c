package tracker

import (
	"context"
	"sync"
)

// Active 一个活动批次运行的执行句柄：持有其上下文与取消函数。
type Active struct {
	RunID  string
	Ctx    context.Context
	Cancel context.CancelFunc
}

// Manager 活动运行跟踪器。
// 约束：同一目标集合同一时刻至多一个活动运行（running 或 paused）。
type Manager struct {
	mu     sync.RWMutex
	active map[string]*Active // 按集合名索引
}

// NewManager 构造。
func NewManager() *Manager { return &Manager{active: map[string]*Active{}} }

// Acquire 为集合注册活动运行。
// 返回：执行句柄；若该集合已有活动运行则返回 false，调用方应拒绝本次启动。
func (m *Manager) Acquire(collection, runID string) (*Active, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[collection]; ok {
		return nil, false
	}
	ctx, cancel := context.WithCancel(context.Background())
	act := &Active{RunID: runID, Ctx: ctx, Cancel: cancel}
	m.active[collection] = act
	return act, true
}

// Release 注销集合的活动运行并取消其上下文。
// 参数：runID 防止释放到后继运行（幂等，双重释放安全）。
func (m *Manager) Release(collection, runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if act, ok := m.active[collection]; ok && act.RunID == runID {
		act.Cancel()
		delete(m.active, collection)
		return true
	}
	return false
}

// Get 查询集合当前的活动运行。
func (m *Manager) Get(collection string) (*Active, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	act, ok := m.active[collection]
	return act, ok
}

// Collections 返回当前有活动运行的集合名。
func (m *Manager) Collections() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.active))
	for c := range m.active {
		out = append(out, c)
	}
	return out
}
