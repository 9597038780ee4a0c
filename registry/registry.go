package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mengeric/batchgen-go/logging"
)

// Origin 单个来源系统的任务能力面：列表/详情/取消/重试。
// 实现必须把原生状态词表经确定性映射投影为统一词表，
// 且保持读穿透：不缓存投影结果，按需重算。
type Origin interface {
	Name() string
	List(ctx context.Context, f Filters) ([]UnifiedJob, error)
	Get(ctx context.Context, nativeID string) (*UnifiedJob, error)
	Cancel(ctx context.Context, nativeID string) error
	// Retry 重试任务并返回新任务的统一 ID。
	// 来源没有原生重试概念时，定义为按记录参数重建任务；
	// 调用方不得假设重试保留原任务身份。
	Retry(ctx context.Context, nativeID string) (string, error)
}

// Registry 聚合两个独立来源的任务记录，对外提供统一视图。
type Registry struct {
	origins []Origin
}

// New 构造 Registry。
func New(origins ...Origin) *Registry { return &Registry{origins: origins} }

// List 并行拉取所有来源的任务并按创建时间倒序合并。
// 单个来源失败只记录并降级为其余来源的结果；全部失败才返回错误。
func (g *Registry) List(ctx context.Context, f Filters) ([]UnifiedJob, error) {
	type part struct {
		jobs []UnifiedJob
		err  error
	}
	parts := make([]part, len(g.origins))
	var wg sync.WaitGroup
	for i, o := range g.origins {
		wg.Add(1)
		go func(i int, o Origin) {
			defer wg.Done()
			jobs, err := o.List(ctx, f)
			parts[i] = part{jobs: jobs, err: err}
		}(i, o)
	}
	wg.Wait()

	merged := make([]UnifiedJob, 0)
	failures := 0
	for i, p := range parts {
		if p.err != nil {
			failures++
			logging.L().Warn(ctx, "origin list failed", "origin", g.origins[i].Name(), "err", p.err)
			continue
		}
		for _, j := range p.jobs {
			if f.Match(j) {
				merged = append(merged, j)
			}
		}
	}
	if failures == len(g.origins) && len(g.origins) > 0 {
		return nil, fmt.Errorf("all origins failed")
	}
	sort.Slice(merged, func(a, b int) bool { return merged[a].CreatedAt.After(merged[b].CreatedAt) })
	if f.Limit > 0 && len(merged) > f.Limit {
		merged = merged[:f.Limit]
	}
	return merged, nil
}

// Get 按统一 ID 解析来源并转发原生详情查询。
func (g *Registry) Get(ctx context.Context, id string) (*UnifiedJob, error) {
	o, native, err := g.resolve(id)
	if err != nil {
		return nil, err
	}
	return o.Get(ctx, native)
}

// Sync 强制从来源取一次最新状态并重建投影。
// 投影本身无缓存，语义上等价于一次新鲜的 Get；保留独立入口供调用方表达意图。
func (g *Registry) Sync(ctx context.Context, id string) (*UnifiedJob, error) {
	return g.Get(ctx, id)
}

// Cancel 转发来源的取消操作。
func (g *Registry) Cancel(ctx context.Context, id string) error {
	o, native, err := g.resolve(id)
	if err != nil {
		return err
	}
	return o.Cancel(ctx, native)
}

// Retry 转发来源的重试操作，返回新任务的统一 ID。
func (g *Registry) Retry(ctx context.Context, id string) (string, error) {
	o, native, err := g.resolve(id)
	if err != nil {
		return "", err
	}
	return o.Retry(ctx, native)
}

// resolve 按 ID 前缀定位来源。
func (g *Registry) resolve(id string) (Origin, string, error) {
	name, native, ok := strings.Cut(id, ":")
	if !ok || native == "" {
		return nil, "", fmt.Errorf("malformed job id: %q", id)
	}
	for _, o := range g.origins {
		if o.Name() == name {
			return o, native, nil
		}
	}
	return nil, "", fmt.Errorf("unknown origin: %q", name)
}

// QualifyID 生成带来源前缀的统一 ID。
func QualifyID(origin, nativeID string) string { return origin + ":" + nativeID }
