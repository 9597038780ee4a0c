package submission

import (
	"context"
	"strings"

	"github.com/mengeric/batchgen-go/rowstore"
)

// 校验失败的行统一携带的错误文案。
const ErrMissingInput = "missing required input"

// Unit 一个可提交的远端条目。
type Unit struct {
	ID     string
	Fields map[string]string
}

// Result 构建产物：可提交条目与被拒绝的行。
// Units 为空是常规结果（无可提交内容），由调用方短路处理，不是错误。
type Result struct {
	Units    []Unit
	Rejected []rowstore.Record
}

// Builder 把选中的行转换为经过校验的提交条目列表。
type Builder struct {
	store    rowstore.Store
	required []string
}

// NewBuilder 构造 Builder。
// 参数：required 为必填输入字段名列表，行只需命中其中任意一个；
// 留空默认要求 image_url。
func NewBuilder(store rowstore.Store, required ...string) *Builder {
	if len(required) == 0 {
		required = []string{"image_url"}
	}
	return &Builder{store: store, required: required}
}

// Build 校验并转换选中行。
// 功能：
// 1) 逐行校验必填输入字段，缺失的行立即在行存储中标记 failed 并排除出提交；
// 2) 通过校验的行按稳定键推导链确定条目 ID，字段经归一化后进入提交；
// 校验失败只隔离单行，从不中断整批。
// 参数：retry 表示重试模式（行可能正处于 processing）。
// 返回：Result；仅当行存储写入失败时返回 error。
func (b *Builder) Build(ctx context.Context, rows []rowstore.Record, retry bool) (Result, error) {
	res := Result{Units: make([]Unit, 0, len(rows))}
	for i, r := range rows {
		if !b.valid(r) {
			res.Rejected = append(res.Rejected, r)
			p := rowstore.Patch{Key: r.Key, Status: rowstore.StatusFailed, Error: ErrMissingInput, Retry: retry}
			if err := b.store.UpsertStatus(ctx, p); err != nil {
				return res, err
			}
			continue
		}
		id := r.Key
		if id == "" {
			id = DeriveKey(r, i)
		}
		res.Units = append(res.Units, Unit{ID: id, Fields: b.normalize(r.Input)})
	}
	return res, nil
}

// valid 至少一个必填字段存在且非空。
func (b *Builder) valid(r rowstore.Record) bool {
	for _, f := range b.required {
		if strings.TrimSpace(r.Input[f]) != "" {
			return true
		}
	}
	return false
}

// normalize 拷贝并归一化输入字段。
func (b *Builder) normalize(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		v = strings.TrimSpace(v)
		if n, ok := Get(k); ok {
			v = n(v)
		}
		out[k] = v
	}
	return out
}
