package batchgen

import (
	"context"
	"time"

	"github.com/mengeric/batchgen-go/metrics"
	"github.com/mengeric/batchgen-go/rowstore"
)

// Snapshot 运行与行集合的持久化快照，附带一次系统指标采样供事后诊断。
type Snapshot struct {
	Runs    []BatchRun        `json:"runs"`
	Rows    []rowstore.Record `json:"rows"`
	Metrics metrics.Sample    `json:"metrics"`
	SavedAt time.Time         `json:"saved_at"`
}

// Persistence 快照持久化协作方（可由宿主实现或使用内置 gormstore）。
// 写入由编排器按去抖节流：轮询推进中的密集变更合并为静默期后的一次写。
type Persistence interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Load 返回最近一次快照；从未保存过时返回 (nil, nil)。
	Load(ctx context.Context) (*Snapshot, error)
}

// Importer 行导入协作方：从外部文件/表格产出初始行集合。
type Importer interface {
	Import(ctx context.Context, source string) ([]rowstore.Record, error)
}

// Exporter 行导出协作方：读取最终行集合并产出输出工件，返回工件引用。
type Exporter interface {
	Export(ctx context.Context, rows []rowstore.Record, profile string) (string, error)
}
