package batchgen

import (
	"context"

	"github.com/mengeric/batchgen-go/client"
	"github.com/mengeric/batchgen-go/registry"
)

// Controller 同时充当统一任务视图的本地来源（registry.RunSource）
// 与远端重建式重试的参数来源（registry.ParamsSource）。

// Runs 实现 registry.RunSource。
func (c *Controller) Runs(ctx context.Context) ([]registry.RunView, error) {
	list := c.RunList()
	out := make([]registry.RunView, 0, len(list))
	for _, r := range list {
		out = append(out, toRunView(r))
	}
	return out, nil
}

// Run 实现 registry.RunSource。
func (c *Controller) Run(ctx context.Context, id string) (*registry.RunView, error) {
	r, ok := c.RunInfo(id)
	if !ok {
		return nil, ErrRunNotFound
	}
	v := toRunView(r)
	return &v, nil
}

// CancelRun 实现 registry.RunSource。
func (c *Controller) CancelRun(ctx context.Context, id string) error {
	return c.Cancel(id)
}

// RetryRun 实现 registry.RunSource：对该运行所在集合重试失败子集。
func (c *Controller) RetryRun(ctx context.Context, id string) (string, error) {
	r, ok := c.RunInfo(id)
	if !ok {
		return "", ErrRunNotFound
	}
	run, err := c.RetryFailed(ctx, r.Collection, nil)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// ParamsFor 实现 registry.ParamsSource：返回创建远端任务时记录的参数。
func (c *Controller) ParamsFor(jobID string) (client.CreateJobReq, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req, ok := c.book[jobID]
	return req, ok
}

// UnifiedRegistry 组装跨系统统一任务视图：本地运行 + 远端原生列表。
func (c *Controller) UnifiedRegistry() *registry.Registry {
	return registry.New(registry.NewLocalOrigin(c), registry.NewRemoteOrigin(c.api, c))
}

func toRunView(r BatchRun) registry.RunView {
	return registry.RunView{
		ID:         r.ID,
		Collection: r.Collection,
		Phase:      PhaseString(r.Phase),
		Total:      r.Progress.Total,
		Completed:  r.Progress.Completed,
		Failed:     r.Progress.Failed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
