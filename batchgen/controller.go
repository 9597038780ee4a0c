package batchgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mengeric/batchgen-go/client"
	"github.com/mengeric/batchgen-go/config"
	"github.com/mengeric/batchgen-go/logging"
	"github.com/mengeric/batchgen-go/metrics"
	"github.com/mengeric/batchgen-go/reconciler"
	"github.com/mengeric/batchgen-go/rowstore"
	"github.com/mengeric/batchgen-go/submission"
	"github.com/mengeric/batchgen-go/tracker"
)

var (
	// ErrRunActive 同一集合已有活动运行（running 或 paused）。
	ErrRunActive = errors.New("a batch run is already active for this collection")
	// ErrRunNotFound 运行不存在。
	ErrRunNotFound = errors.New("batch run not found")
	// ErrNoFailedRows 没有可重试的失败行。
	ErrNoFailedRows = errors.New("no failed rows to retry")
)

// Controller 批次编排主对象：驱动完整的批次生命周期
// （启动、暂停、恢复、取消、重试失败子集），并把对账进度经去抖落入快照。
// 并发模型：每个运行一条协作式轮询协程，行级并行完全发生在远端；
// 多个集合的运行可并存，彼此只共享行存储（稳定键在实践中不相交）。
type Controller struct {
	opt     Options
	api     client.RemoteAPI
	rows    rowstore.Store
	persist Persistence
	imp     Importer
	exp     Exporter
	builder *submission.Builder
	trk     *tracker.Manager
	deb     *debouncer

	mu    sync.RWMutex
	runs  map[string]*runState
	order []string                       // 创建顺序，用于找集合最近一次运行
	book  map[string]client.CreateJobReq // 远端任务ID → 创建参数（重建式重试用）
}

// runState 运行的内部状态：对外视图加轮询暂停标记。
type runState struct {
	BatchRun
	paused atomic.Bool
}

// New 创建 Controller。
// 功能：按照 With... 可选项组合出一个可用的编排器；未显式注入时，
// 行存储与快照持久化均使用内置内存实现。
// 返回：已初始化的 Controller；构造阶段不返回错误。
func New(opts ...Option) *Controller {
	cfg := &controllerConfig{}
	for _, fn := range opts {
		fn(cfg)
	}
	cfg.opt.withDefaults()
	c := &Controller{
		opt:  cfg.opt,
		api:  cfg.api,
		imp:  cfg.imp,
		exp:  cfg.exp,
		trk:  tracker.NewManager(),
		runs: map[string]*runState{},
		book: map[string]client.CreateJobReq{},
	}
	if cfg.rows != nil {
		c.rows = cfg.rows
	} else {
		c.rows = rowstore.NewMemory()
	}
	if cfg.persist != nil {
		c.persist = cfg.persist
	} else {
		c.persist = newDefaultSnapStore()
	}
	c.builder = submission.NewBuilder(c.rows, c.opt.RequiredFields...)
	c.deb = newDebouncer(c.opt.SnapshotQuiet, func() { c.persistNow(context.Background()) })
	// 运行上下文里的日志自动进入对应运行的日志簿。
	// 钩子位是进程全局的：进程内存在多个 Controller 时，最后构造者接管截获。
	logging.SetHook(c.journalHook)
	return c
}

// NewFromConfig 按配置文件构造 Controller（HTTP 客户端 + 周期参数）。
func NewFromConfig(cfg config.Config, opts ...Option) *Controller {
	base := []Option{
		WithRemoteAPI(client.NewHTTPRemoteAPI(cfg.Remote.BaseURL, time.Duration(cfg.Remote.TimeoutSeconds)*time.Second)),
		WithPollInterval(time.Duration(cfg.Poll.IntervalMS) * time.Millisecond),
		WithSnapshotQuiet(time.Duration(cfg.Snapshot.DebounceMS) * time.Millisecond),
	}
	if len(cfg.RequiredFields) > 0 {
		base = append(base, WithRequiredFields(cfg.RequiredFields...))
	}
	return New(append(base, opts...)...)
}

// Start 启动一次批次运行。
// 功能：
// 1) 同集合活动运行守卫：已有 running/paused 运行时拒绝；
// 2) 构建提交（校验失败的行就地标记 failed 并排除）；
// 3) 过滤后无可提交条目时不发远端请求，直接转入 completed；
// 4) 创建远端任务失败转入 failed_to_start 并上抛错误，除校验落败行外
//    不触碰任何行状态；
// 5) 创建成功后冻结目标键、标记行 processing，并启动轮询对账循环
//    （创建后立即执行首个周期）。
// 参数：keys 为空表示选择整个集合；settings 整体拷入运行。
// 返回：运行视图副本；启动失败时附带错误。
func (c *Controller) Start(ctx context.Context, collection string, keys []string, settings client.Settings) (*BatchRun, error) {
	return c.start(ctx, collection, keys, settings, false)
}

func (c *Controller) start(ctx context.Context, collection string, keys []string, settings client.Settings, retry bool) (*BatchRun, error) {
	runID := uuid.NewString()
	act, ok := c.trk.Acquire(collection, runID)
	if !ok {
		return nil, ErrRunActive
	}
	rs := &runState{BatchRun: BatchRun{
		ID:         runID,
		Collection: collection,
		Explicit:   len(keys) > 0,
		Phase:      PhaseIdle,
		Settings:   cloneSettings(settings),
		StartedAt:  time.Now(),
	}}
	c.mu.Lock()
	c.runs[runID] = rs
	c.order = append(c.order, runID)
	c.mu.Unlock()

	rows, err := c.selectRows(ctx, collection, keys)
	if err != nil {
		c.finish(rs, PhaseFailedToStart, err.Error())
		return c.view(rs), err
	}
	res, err := c.builder.Build(ctx, rows, retry)
	if err != nil {
		c.finish(rs, PhaseFailedToStart, err.Error())
		return c.view(rs), err
	}
	if len(res.Units) == 0 {
		// 无可提交内容：不创建远端任务，短路完成。
		c.finish(rs, PhaseCompleted, "")
		return c.view(rs), nil
	}

	req := client.CreateJobReq{Items: toItems(res.Units), Settings: cloneSettings(settings), AutoStart: true}
	jobID, err := c.api.CreateJob(ctx, req)
	if err != nil {
		c.finish(rs, PhaseFailedToStart, err.Error())
		return c.view(rs), err
	}

	frozen := make([]string, 0, len(res.Units))
	patches := make([]rowstore.Patch, 0, len(res.Units))
	for _, u := range res.Units {
		frozen = append(frozen, u.ID)
		// 重试运行的目标行尚处终态，携带显式重试标记离开 failed。
		patches = append(patches, rowstore.Patch{Key: u.ID, Status: rowstore.StatusProcessing, Retry: retry})
	}
	c.mu.Lock()
	rs.RemoteJobID = jobID
	rs.TargetKeys = frozen
	rs.Phase = PhaseRunning
	c.book[jobID] = req
	c.mu.Unlock()
	if err := c.rows.BulkApply(ctx, patches); err != nil {
		logging.L().Warn(ctx, "mark processing failed", "run_id", runID, "err", err)
	}

	runCtx := WithRunID(act.Ctx, runID)
	logging.L().Info(runCtx, "batch run started", "run_id", runID, "job_id", jobID, "targets", len(frozen), "rejected", len(res.Rejected))
	go c.drive(runCtx, rs)
	return c.view(rs), nil
}

// drive 驱动单个运行的轮询对账循环直至完成或被取消。
func (c *Controller) drive(ctx context.Context, rs *runState) {
	rec := reconciler.New(c.api, c.rows, rs.RemoteJobID, rs.TargetKeys,
		reconciler.WithInterval(c.opt.PollInterval),
		reconciler.WithPause(&rs.paused),
		reconciler.WithNotify(func(p reconciler.Progress) {
			c.mu.Lock()
			rs.Progress = p
			c.mu.Unlock()
			c.deb.Trigger()
		}))
	final := rec.Run(ctx)

	c.mu.Lock()
	done := rs.Phase == PhaseRunning || rs.Phase == PhasePaused
	if done {
		rs.Phase = PhaseCompleted
		rs.Progress = final
		rs.FinishedAt = time.Now()
	}
	c.mu.Unlock()
	if done {
		c.trk.Release(rs.Collection, rs.ID)
		logging.L().Info(ctx, "batch run completed", "run_id", rs.ID, "completed", final.Completed, "failed", final.Failed)
		c.persistNow(context.Background())
	}
}

// Pause 暂停运行：标记在下一个轮询周期开始处生效，
// 在途的状态查询允许完成且其结果照常应用。
func (c *Controller) Pause(runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	if rs.Phase != PhaseRunning {
		return fmt.Errorf("run is %s, cannot pause", PhaseString(rs.Phase))
	}
	rs.paused.Store(true)
	rs.Phase = PhasePaused
	return nil
}

// Resume 恢复被暂停的运行：轮询从暂停处继续，不重新提交。
func (c *Controller) Resume(runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.runs[runID]
	if !ok {
		return ErrRunNotFound
	}
	if rs.Phase != PhasePaused {
		return fmt.Errorf("run is %s, cannot resume", PhaseString(rs.Phase))
	}
	rs.paused.Store(false)
	rs.Phase = PhaseRunning
	return nil
}

// Cancel 取消运行。
// 本地先行：调用返回时运行已是 cancelled，轮询立即停止，
// 处理中的行保持最后已知状态；远端取消为尽力而为的后台调用，
// 其成败不影响已取消的本地状态。取消不是错误，不会如此上报。
func (c *Controller) Cancel(runID string) error {
	c.mu.Lock()
	rs, ok := c.runs[runID]
	if !ok {
		c.mu.Unlock()
		return ErrRunNotFound
	}
	if rs.Terminal() {
		c.mu.Unlock()
		return fmt.Errorf("run already %s", PhaseString(rs.Phase))
	}
	rs.Phase = PhaseCancelled
	rs.FinishedAt = time.Now()
	jobID := rs.RemoteJobID
	collection := rs.Collection
	c.mu.Unlock()

	c.trk.Release(collection, runID)
	if jobID != "" {
		go func() {
			if err := c.api.CancelJob(context.Background(), jobID); err != nil {
				logging.L().Warn(context.Background(), "remote cancel failed", "job_id", jobID, "err", err)
			}
		}()
	}
	c.persistNow(context.Background())
	return nil
}

// RetryFailed 重试失败子集。
// 功能：收集调用时刻状态为 failed 的行（上次运行有显式选择时限于其
// 目标键，否则取整个集合），发起一次新的运行；产生新的远端任务，
// 绝不续用原任务。行在远端任务创建成功后才被显式重置为 processing：
// 守卫拒绝或创建失败都不触碰失败行，它们保持可重试。
// 参数：settings 为 nil 时复用上次运行拷入的参数。
func (c *Controller) RetryFailed(ctx context.Context, collection string, settings client.Settings) (*BatchRun, error) {
	prev := c.lastRun(collection)
	var scope []string
	if prev != nil && prev.Explicit {
		scope = prev.TargetKeys
	}
	rows, err := c.selectRows(ctx, collection, scope)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0)
	for _, r := range rows {
		if r.Status == rowstore.StatusFailed {
			keys = append(keys, r.Key)
		}
	}
	if len(keys) == 0 {
		return nil, ErrNoFailedRows
	}
	if settings == nil && prev != nil {
		settings = prev.Settings
	}
	return c.start(ctx, collection, keys, settings, true)
}

// RunInfo 返回运行视图副本。
func (c *Controller) RunInfo(runID string) (BatchRun, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rs, ok := c.runs[runID]
	if !ok {
		return BatchRun{}, false
	}
	return rs.BatchRun.clone(), true
}

// RunList 返回全部运行的视图副本（创建顺序）。
func (c *Controller) RunList() []BatchRun {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]BatchRun, 0, len(c.order))
	for _, id := range c.order {
		if rs, ok := c.runs[id]; ok {
			out = append(out, rs.BatchRun.clone())
		}
	}
	return out
}

// ImportFrom 经导入协作方载入初始行集合；键缺失时按稳定键推导链补齐。
func (c *Controller) ImportFrom(ctx context.Context, source string) (int, error) {
	if c.imp == nil {
		return 0, errors.New("no importer configured")
	}
	rows, err := c.imp.Import(ctx, source)
	if err != nil {
		return 0, err
	}
	for i := range rows {
		if rows[i].Key == "" {
			rows[i].Key = submission.DeriveKey(rows[i], i)
		}
		if rows[i].Status == 0 {
			rows[i].Status = rowstore.StatusPending
		}
		if err := c.rows.Put(ctx, &rows[i]); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

// ExportTo 经导出协作方产出输出工件，返回工件引用。
func (c *Controller) ExportTo(ctx context.Context, profile string) (string, error) {
	if c.exp == nil {
		return "", errors.New("no exporter configured")
	}
	rows, err := c.rows.List(ctx)
	if err != nil {
		return "", err
	}
	return c.exp.Export(ctx, rows, profile)
}

// Restore 从最近一次快照恢复行集合与历史运行。
// 中断时仍在推进的运行按本地先行的取消语义恢复为 cancelled：
// 快照不接管在途远端任务，只服务查询与重试。
func (c *Controller) Restore(ctx context.Context) error {
	snap, err := c.persist.Load(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	for i := range snap.Rows {
		if err := c.rows.Put(ctx, &snap.Rows[i]); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range snap.Runs {
		if _, ok := c.runs[r.ID]; ok {
			continue
		}
		cp := r.clone()
		if !cp.Terminal() {
			cp.Phase = PhaseCancelled
			if cp.FinishedAt.IsZero() {
				cp.FinishedAt = time.Now()
			}
		}
		c.runs[cp.ID] = &runState{BatchRun: cp}
		c.order = append(c.order, cp.ID)
	}
	return nil
}

// Close 冲刷尚未落盘的快照写入。
func (c *Controller) Close() { c.deb.Flush() }

// ---- 内部工具 ----

// finish 将运行置入终态、释放集合守卫并立即落一次快照。
func (c *Controller) finish(rs *runState, phase int, errMsg string) {
	c.mu.Lock()
	if rs.Phase != PhaseCancelled {
		rs.Phase = phase
		rs.LastErr = errMsg
	}
	if rs.FinishedAt.IsZero() {
		rs.FinishedAt = time.Now()
	}
	c.mu.Unlock()
	c.trk.Release(rs.Collection, rs.ID)
	c.persistNow(context.Background())
}

// selectRows 取选中的行；keys 为空时取集合内全部行。
// 显式键不存在时跳过该键，其余读取错误原样上抛。
func (c *Controller) selectRows(ctx context.Context, collection string, keys []string) ([]rowstore.Record, error) {
	if len(keys) == 0 {
		return c.rows.Select(ctx, func(r rowstore.Record) bool { return r.Collection == collection })
	}
	out := make([]rowstore.Record, 0, len(keys))
	for _, k := range keys {
		rec, err := c.rows.Get(ctx, k)
		if err != nil {
			if errors.Is(err, rowstore.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// lastRun 返回集合最近一次创建的运行视图。
func (c *Controller) lastRun(collection string) *BatchRun {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.order) - 1; i >= 0; i-- {
		if rs, ok := c.runs[c.order[i]]; ok && rs.Collection == collection {
			cp := rs.BatchRun.clone()
			return &cp
		}
	}
	return nil
}

// view 返回运行视图副本。
func (c *Controller) view(rs *runState) *BatchRun {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := rs.BatchRun.clone()
	return &cp
}

// persistNow 立即落一次快照（含系统指标采样）。
func (c *Controller) persistNow(ctx context.Context) {
	rows, err := c.rows.List(ctx)
	if err != nil {
		logging.L().Warn(ctx, "snapshot list rows failed", "err", err)
		return
	}
	snap := &Snapshot{Runs: c.RunList(), Rows: rows, Metrics: metrics.Collect(ctx), SavedAt: time.Now()}
	if err := c.persist.Save(ctx, snap); err != nil {
		logging.L().Warn(ctx, "snapshot save failed", "err", err)
	}
}

func toItems(units []submission.Unit) []client.SubmissionItem {
	out := make([]client.SubmissionItem, 0, len(units))
	for _, u := range units {
		out = append(out, client.SubmissionItem{ID: u.ID, Fields: u.Fields})
	}
	return out
}
