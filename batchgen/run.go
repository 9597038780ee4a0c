package batchgen

import (
	"time"

	"github.com/mengeric/batchgen-go/client"
	"github.com/mengeric/batchgen-go/reconciler"
)

// 批次运行阶段常量。
const (
	PhaseIdle          = 1
	PhaseRunning       = 2
	PhasePaused        = 3
	PhaseCompleted     = 4
	PhaseCancelled     = 5
	PhaseFailedToStart = 6
)

// PhaseString 返回阶段的字符串形式。
func PhaseString(p int) string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseFailedToStart:
		return "failed_to_start"
	default:
		return "unknown"
	}
}

// JournalEntry 运行日志条目，经日志钩子截获，随快照持久化。
type JournalEntry struct {
	At    time.Time `json:"at"`
	Level int       `json:"level"`
	Line  string    `json:"line"`
}

// BatchRun 一次本地批次编排的状态。
// Settings 在启动时整体拷入，重试复用该副本，不读可变的全局配置；
// TargetKeys 在提交构建时冻结，之后对无关行的编辑不影响在途运行。
// 终态（completed/cancelled/failed_to_start）不可恢复，需发起新的运行。
type BatchRun struct {
	ID          string              `json:"id"`
	Collection  string              `json:"collection"`
	TargetKeys  []string            `json:"target_keys"`
	Explicit    bool                `json:"explicit"` // 启动时是否给出了显式选择
	RemoteJobID string              `json:"remote_job_id"`
	Phase       int                 `json:"phase"`
	Settings    client.Settings     `json:"settings"`
	StartedAt   time.Time           `json:"started_at"`
	FinishedAt  time.Time           `json:"finished_at"`
	LastErr     string              `json:"last_err"`
	Progress    reconciler.Progress `json:"progress"`
	Journal     []JournalEntry      `json:"journal,omitempty"`
}

// Terminal 判断运行是否处于终态。
func (b BatchRun) Terminal() bool {
	return b.Phase == PhaseCompleted || b.Phase == PhaseCancelled || b.Phase == PhaseFailedToStart
}

// clone 深拷贝（对外返回副本用）。
func (b BatchRun) clone() BatchRun {
	cp := b
	cp.TargetKeys = append([]string(nil), b.TargetKeys...)
	cp.Journal = append([]JournalEntry(nil), b.Journal...)
	cp.Settings = cloneSettings(b.Settings)
	return cp
}

func cloneSettings(s client.Settings) client.Settings {
	if s == nil {
		return nil
	}
	cp := make(client.Settings, len(s))
	for k, v := range s {
		cp[k] = v
	}
	return cp
}
