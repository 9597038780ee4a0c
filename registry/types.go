package registry

import "time"

// 统一状态词表：两个来源各自的原生词表通过确定性映射表投影到这里。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Progress 任务进度。
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// UnifiedJob 跨系统任务投影，对调用方只读。
// 状态永远由来源系统的原生表示经映射表推导，不可独立变更。
type UnifiedJob struct {
	ID          string     `json:"id"` // 带来源前缀，如 local:xxx / remote:yyy
	Origin      string     `json:"origin_system"`
	Type        string     `json:"type"`
	Status      Status     `json:"status"`
	Progress    Progress   `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Filters 列表过滤条件。
type Filters struct {
	Status Status // 留空不过滤
	Type   string // 留空不过滤
	Limit  int    // <=0 不限制
}

// Match 判断任务是否命中过滤条件。
func (f Filters) Match(j UnifiedJob) bool {
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Type != "" && j.Type != f.Type {
		return false
	}
	return true
}
