package reconciler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/mengeric/batchgen-go/client"
	"github.com/mengeric/batchgen-go/logging"
	"github.com/mengeric/batchgen-go/rowstore"
)

// Store 对账所需的最小行存储视图，避免与具体实现强耦合。
type Store interface {
	Get(ctx context.Context, key string) (*rowstore.Record, error)
	BulkApply(ctx context.Context, patches []rowstore.Patch) error
}

// Progress 单个轮询周期后的聚合进度。
type Progress struct {
	Total        int
	Completed    int
	Failed       int
	Processed    int // completed + failed
	RemoteStatus string
	Done         bool
}

// Reconciler 轮询对账引擎：驱动固定周期的轮询循环，
// 把远端逐条状态合并回本地行存储。
// 每个批次运行只持有一个在途 FetchStatus 调用。
type Reconciler struct {
	api      client.RemoteAPI
	store    Store
	jobID    string
	keys     []string // 冻结的目标稳定键，运行期间不变
	interval time.Duration
	paused   *atomic.Bool
	notify   func(Progress)
}

// Option 可选参数。
type Option func(*Reconciler)

// WithInterval 设置轮询周期（默认 1.5s，成功与否均不退避）。
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithPause 注入暂停标记：置位期间不发远端请求、不写行存储。
func WithPause(flag *atomic.Bool) Option {
	return func(r *Reconciler) { r.paused = flag }
}

// WithNotify 注入观察者回调，每个周期结束后无条件触发。
func WithNotify(fn func(Progress)) Option {
	return func(r *Reconciler) { r.notify = fn }
}

// New 构造 Reconciler。keys 为本次运行的目标行稳定键集合。
func New(api client.RemoteAPI, store Store, jobID string, keys []string, opts ...Option) *Reconciler {
	r := &Reconciler{api: api, store: store, jobID: jobID, keys: keys, interval: 1500 * time.Millisecond}
	for _, fn := range opts {
		fn(r)
	}
	if r.paused == nil {
		r.paused = &atomic.Bool{}
	}
	return r
}

// Run 阻塞驱动轮询循环直到运行完成或 ctx 取消。
// 行为：创建后立即执行首个周期，之后按固定周期推进；
// 暂停标记在每个周期开始处检查，生效时本周期整体跳过；
// 查询的瞬时失败只记录并等待下一周期，从不向外抛出。
// 返回：最后一次观测到的进度。
func (r *Reconciler) Run(ctx context.Context) Progress {
	var last Progress
	cycle := func() bool {
		if r.paused.Load() {
			return false
		}
		p, err := r.Cycle(ctx)
		if err != nil {
			// 瞬时失败在本层吞掉，沿用上一次进度保持展示存活。
			logging.L().Warn(ctx, "poll cycle failed", "job_id", r.jobID, "err", err)
			r.emit(last)
			return false
		}
		last = p
		r.emit(last)
		return p.Done
	}
	if cycle() {
		return last
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return last
		case <-ticker.C:
			if cycle() {
				return last
			}
		}
	}
}

// Cycle 执行一个轮询周期：取远端快照、合并、计算进度。
// 合并是幂等的：同一快照重复应用不改变行存储状态。
func (r *Reconciler) Cycle(ctx context.Context) (Progress, error) {
	job, err := r.api.FetchStatus(ctx, r.jobID)
	if err != nil {
		return Progress{}, err
	}
	patches := Merge(job, r.keys)
	if err := r.store.BulkApply(ctx, patches); err != nil {
		return Progress{}, err
	}
	return r.progress(ctx, job), nil
}

// Merge 把远端快照映射为一批行变更。
// 规则：success→completed（回写 output）、failed→failed（回写 error，
// 缺失时用通用文案）、processing→processing、pending→pending；
// 远端尚未出现的行不生成变更（不回退本地状态）。
// 终态行的回退由行存储的约束兜底拒绝。
func Merge(job *client.RemoteJob, keys []string) []rowstore.Patch {
	byID := make(map[string]client.RemoteItem, len(job.Items))
	for _, it := range job.Items {
		byID[it.ID] = it
	}
	patches := make([]rowstore.Patch, 0, len(keys))
	for _, key := range keys {
		it, ok := byID[key]
		if !ok {
			continue
		}
		switch it.Status {
		case client.ItemStatusSuccess:
			patches = append(patches, rowstore.Patch{Key: key, Status: rowstore.StatusCompleted, Output: it.Output})
		case client.ItemStatusFailed:
			patches = append(patches, rowstore.Patch{Key: key, Status: rowstore.StatusFailed, Error: it.Error})
		case client.ItemStatusProcessing:
			patches = append(patches, rowstore.Patch{Key: key, Status: rowstore.StatusProcessing})
		case client.ItemStatusPending:
			patches = append(patches, rowstore.Patch{Key: key, Status: rowstore.StatusPending})
		}
	}
	return patches
}

// progress 合并后按本地行状态计算聚合进度。
// 完成条件是一个 OR：远端顶层状态 completed，或已处理数达到目标总数；
// 两个信号各自最多滞后一个轮询周期，先到者生效。
// 结果一律以逐条状态为准：顶层先行宣告 completed 时，
// 未达终态的行保持最后已知状态，不会被顶层信号强推成功或失败。
func (r *Reconciler) progress(ctx context.Context, job *client.RemoteJob) Progress {
	p := Progress{Total: len(r.keys), RemoteStatus: job.Status}
	for _, key := range r.keys {
		rec, err := r.store.Get(ctx, key)
		if err != nil {
			continue
		}
		switch rec.Status {
		case rowstore.StatusCompleted:
			p.Completed++
		case rowstore.StatusFailed:
			p.Failed++
		}
	}
	p.Processed = p.Completed + p.Failed
	p.Done = job.Status == client.JobStatusCompleted || p.Processed >= p.Total
	return p
}

func (r *Reconciler) emit(p Progress) {
	if r.notify != nil {
		r.notify(p)
	}
}
