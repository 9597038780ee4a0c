package batchgen

import (
	"context"
	"fmt"
	"time"
)

// ---- 运行日志钩子与上下文工具 ----

// ctxKey 用于在 Context 中存放运行ID，避免与外部键冲突。
type ctxKey string

var ctxKeyRunID ctxKey = "batchgen_run_id"

// WithRunID 将批次运行ID写入 Context。
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, id)
}

// RunIDFromContext 尝试从上下文中提取运行ID。
func RunIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKeyRunID)
	if v == nil {
		return "", false
	}
	if id, ok := v.(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// journalHook 把携带运行上下文的日志截获进对应运行的日志簿。
// 注意：Hook 不得再次调用 logging.L()，以避免递归。
func (c *Controller) journalHook(ctx context.Context, level int, msg string, args ...any) {
	id, ok := RunIDFromContext(ctx)
	if !ok {
		return
	}
	line := flatten(msg, args...)
	c.mu.Lock()
	defer c.mu.Unlock()
	rs, ok := c.runs[id]
	if !ok {
		return
	}
	rs.Journal = append(rs.Journal, JournalEntry{At: time.Now(), Level: level, Line: line})
	if n := len(rs.Journal); n > c.opt.JournalLimit {
		rs.Journal = rs.Journal[n-c.opt.JournalLimit:]
	}
}

// flatten 组装内容：msg | k=v ...
func flatten(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}
	out := msg + " |"
	for i := 0; i < len(args); i++ {
		if i%2 == 0 {
			if k, ok := args[i].(string); ok {
				out += " " + k + "="
			} else {
				out += " arg="
			}
		} else {
			out += toString(args[i])
		}
	}
	return out
}

// toString 将任意值转为字符串。
func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
