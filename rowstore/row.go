package rowstore

import (
	"context"
	"time"
)

// 行状态常量。
const (
	StatusPending    = 1
	StatusProcessing = 2
	StatusCompleted  = 3
	StatusFailed     = 4
)

// StatusString 返回状态的字符串形式。
func StatusString(s int) string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Record 一行工作项（如一条商品记录）。
// 约束：Output 仅在 completed 时存在；Error 仅在 failed 时存在；
// 离开终态回到 processing 只能通过显式重试（Patch.Retry）。
type Record struct {
	Key        string // 稳定键，整个批次运行期间不变
	Collection string // 所属目标集合（如一次导入的表格）
	Status     int
	Input      map[string]string // 构造提交所需的输入字段（至少含一个内容引用，如 image_url）
	Output     map[string]string // 成功后回写的结果字段
	Error      string            // 最近一次失败原因
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Clone 深拷贝一条记录。
func (r Record) Clone() Record {
	cp := r
	cp.Input = cloneFields(r.Input)
	cp.Output = cloneFields(r.Output)
	return cp
}

// Terminal 判断行是否处于终态。
func (r Record) Terminal() bool { return r.Status == StatusCompleted || r.Status == StatusFailed }

// Patch 一次状态变更。Retry 为 true 时允许从终态回到 processing。
type Patch struct {
	Key    string
	Status int
	Output map[string]string
	Error  string
	Retry  bool
}

// Apply 将变更写入记录并维护状态约束。
// 返回：是否发生了实际写入；被约束拒绝或内容无变化时返回 false。
// 说明：对同一变更重复调用不产生二次写入（幂等合并依赖此性质）。
func Apply(r *Record, p Patch) bool {
	if r.Terminal() && p.Status != r.Status && !p.Retry {
		if p.Status == StatusProcessing || p.Status == StatusPending {
			// 例行轮询不得让终态行回退。
			return false
		}
	}
	next := *r
	next.Status = p.Status
	switch p.Status {
	case StatusCompleted:
		next.Output = cloneFields(p.Output)
		next.Error = ""
	case StatusFailed:
		next.Output = nil
		if p.Error != "" {
			next.Error = p.Error
		} else {
			next.Error = "processing failed"
		}
	default:
		next.Output = nil
		next.Error = ""
	}
	if next.Status == r.Status && next.Error == r.Error && equalFields(next.Output, r.Output) {
		return false
	}
	next.UpdatedAt = time.Now()
	*r = next
	return true
}

func cloneFields(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func equalFields(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Store 行集合的读写契约。
// 变更为同步、同字段 last-write-wins，且必须维护上述状态约束；
// 不做任何网络 I/O。
type Store interface {
	// Put 插入或整体覆盖一行。
	Put(ctx context.Context, rec *Record) error
	// Get 按稳定键读取一行。
	Get(ctx context.Context, key string) (*Record, error)
	// Select 按谓词筛选行，返回拷贝。
	Select(ctx context.Context, pred func(Record) bool) ([]Record, error)
	// UpsertStatus 应用单个状态变更。
	UpsertStatus(ctx context.Context, p Patch) error
	// BulkApply 原子地应用一批状态变更（一个轮询周期一批）。
	BulkApply(ctx context.Context, patches []Patch) error
	// List 返回全部行的拷贝。
	List(ctx context.Context) ([]Record, error)
}

// ErrNotFound 行不存在。
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "row not found" }
