package batchgen

import (
	"sync"
	"time"
)

// debouncer 把快速连续的触发合并为静默期之后的一次执行，
// 避免轮询推进期间的高频快照写入。
type debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
	fn    func()
}

func newDebouncer(quiet time.Duration, fn func()) *debouncer {
	return &debouncer{quiet: quiet, fn: fn}
}

// Trigger 记录一次变更：重置静默期计时，到期后执行一次。
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fn)
}

// Flush 若有待执行的触发则立即执行并清空计时器。
func (d *debouncer) Flush() {
	d.mu.Lock()
	pending := d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()
	if pending {
		d.fn()
	}
}
