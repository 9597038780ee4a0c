package registry

import (
	"context"
	"time"
)

// OriginLocal 本地批次编排器来源名。
const OriginLocal = "local"

// RunView 本地批次运行的精简视图，由编排器提供。
type RunView struct {
	ID         string
	Collection string
	Phase      string // idle|running|paused|completed|cancelled|failed_to_start
	Total      int
	Completed  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time // 零值表示未结束
}

// RunSource 本地来源依赖的最小编排器能力面。
type RunSource interface {
	Runs(ctx context.Context) ([]RunView, error)
	Run(ctx context.Context, id string) (*RunView, error)
	CancelRun(ctx context.Context, id string) error
	// RetryRun 重试失败子集，返回新运行 ID。
	RetryRun(ctx context.Context, id string) (string, error)
}

// localStatus 本地运行阶段 → 统一状态的确定性映射表。
// paused 对外仍视作 running：运行未结束，只是暂不推进。
var localStatus = map[string]Status{
	"idle":            StatusPending,
	"running":         StatusRunning,
	"paused":          StatusRunning,
	"completed":       StatusCompleted,
	"cancelled":       StatusCancelled,
	"failed_to_start": StatusFailed,
}

// LocalOrigin 把本地批次运行投影为统一视图。
type LocalOrigin struct {
	src RunSource
}

// NewLocalOrigin 构造本地来源。
func NewLocalOrigin(src RunSource) *LocalOrigin { return &LocalOrigin{src: src} }

func (o *LocalOrigin) Name() string { return OriginLocal }

// List 列出全部本地批次运行并逐个投影。
func (o *LocalOrigin) List(ctx context.Context, _ Filters) ([]UnifiedJob, error) {
	runs, err := o.src.Runs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UnifiedJob, 0, len(runs))
	for _, r := range runs {
		out = append(out, project(r))
	}
	return out, nil
}

// Get 取单个本地运行并投影。
func (o *LocalOrigin) Get(ctx context.Context, nativeID string) (*UnifiedJob, error) {
	r, err := o.src.Run(ctx, nativeID)
	if err != nil {
		return nil, err
	}
	j := project(*r)
	return &j, nil
}

// Cancel 转发编排器的取消。
func (o *LocalOrigin) Cancel(ctx context.Context, nativeID string) error {
	return o.src.CancelRun(ctx, nativeID)
}

// Retry 本地有原生重试：对失败子集发起新运行，返回新运行的统一 ID。
func (o *LocalOrigin) Retry(ctx context.Context, nativeID string) (string, error) {
	newID, err := o.src.RetryRun(ctx, nativeID)
	if err != nil {
		return "", err
	}
	return QualifyID(OriginLocal, newID), nil
}

// project 本地运行 → 统一投影。
func project(r RunView) UnifiedJob {
	u := UnifiedJob{
		ID:        QualifyID(OriginLocal, r.ID),
		Origin:    OriginLocal,
		Type:      "batch",
		Status:    localStatus[r.Phase],
		Progress:  Progress{Total: r.Total, Completed: r.Completed, Failed: r.Failed},
		CreatedAt: r.StartedAt,
	}
	if !r.FinishedAt.IsZero() {
		t := r.FinishedAt
		u.CompletedAt = &t
	}
	return u
}
