package batchgen

import (
	"time"

	"github.com/mengeric/batchgen-go/client"
	"github.com/mengeric/batchgen-go/rowstore"
)

// Options 编排器运行参数。
type Options struct {
	PollInterval   time.Duration // 轮询周期
	SnapshotQuiet  time.Duration // 快照去抖静默期
	RequiredFields []string      // 提交校验的必填输入字段（命中其一即可）
	JournalLimit   int           // 单运行日志簿条数上限
}

// withDefaults 填充默认值。
func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 1500 * time.Millisecond
	}
	if o.SnapshotQuiet <= 0 {
		o.SnapshotQuiet = 500 * time.Millisecond
	}
	if len(o.RequiredFields) == 0 {
		o.RequiredFields = []string{"image_url"}
	}
	if o.JournalLimit <= 0 {
		o.JournalLimit = 200
	}
}

// controllerConfig 组合构造参数。
type controllerConfig struct {
	opt     Options
	api     client.RemoteAPI
	rows    rowstore.Store
	persist Persistence
	imp     Importer
	exp     Exporter
}

// Option 构造可选项。
type Option func(*controllerConfig)

// WithRemoteAPI 注入远端服务客户端（测试时注入 mock）。
func WithRemoteAPI(api client.RemoteAPI) Option {
	return func(c *controllerConfig) { c.api = api }
}

// WithRowStore 注入行存储实现；缺省使用内置内存存储。
func WithRowStore(s rowstore.Store) Option {
	return func(c *controllerConfig) { c.rows = s }
}

// WithPersistence 注入快照持久化实现；缺省使用内置内存实现。
func WithPersistence(p Persistence) Option {
	return func(c *controllerConfig) { c.persist = p }
}

// WithImporter 注入行导入协作方。
func WithImporter(i Importer) Option {
	return func(c *controllerConfig) { c.imp = i }
}

// WithExporter 注入行导出协作方。
func WithExporter(e Exporter) Option {
	return func(c *controllerConfig) { c.exp = e }
}

// WithPollInterval 设置轮询周期。
func WithPollInterval(d time.Duration) Option {
	return func(c *controllerConfig) { c.opt.PollInterval = d }
}

// WithSnapshotQuiet 设置快照去抖静默期。
func WithSnapshotQuiet(d time.Duration) Option {
	return func(c *controllerConfig) { c.opt.SnapshotQuiet = d }
}

// WithRequiredFields 设置提交校验的必填输入字段。
func WithRequiredFields(fields ...string) Option {
	return func(c *controllerConfig) { c.opt.RequiredFields = fields }
}

// WithJournalLimit 设置单运行日志簿条数上限。
func WithJournalLimit(n int) Option {
	return func(c *controllerConfig) { c.opt.JournalLimit = n }
}
