package logging

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// 日志级别常量，供 Hook 使用。
const (
	LevelDebug = 1
	LevelInfo  = 2
	LevelWarn  = 3
	LevelError = 4
)

// Logger 日志门面接口。
// 说明：为了最小侵入，提供 Info/Warn/Error/Debug 与 With 方法。
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	Debug(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// Hook 旁路钩子：每条日志连同其 Context 一并回调，便于按运行上下文截获日志。
// 注意：Hook 内不得再调用 L()，避免递归。
type Hook func(ctx context.Context, level int, msg string, args ...any)

var hook atomic.Pointer[Hook]

// SetHook 安装全局日志钩子（传 nil 卸载）。
// 进程内只有一个钩子位：后安装者替换先安装者。
// 安装与触发可来自不同协程，读写经原子指针同步。
func SetHook(h Hook) {
	if h == nil {
		hook.Store(nil)
		return
	}
	hook.Store(&h)
}

// SlogLogger 基于标准库 slog 的默认实现。
type SlogLogger struct{ l *slog.Logger }

// NewSlogLogger 创建默认 slog 日志器（文本输出）。
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// SetLevel 设置日志级别。
func (s *SlogLogger) SetLevel(level slog.Level) {
	s.l = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
	fire(ctx, LevelInfo, msg, args...)
}
func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
	fire(ctx, LevelWarn, msg, args...)
}
func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
	fire(ctx, LevelError, msg, args...)
}
func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
	fire(ctx, LevelDebug, msg, args...)
}
func (s *SlogLogger) With(args ...any) Logger { return &SlogLogger{l: s.l.With(args...)} }

func fire(ctx context.Context, level int, msg string, args ...any) {
	if h := hook.Load(); h != nil {
		(*h)(ctx, level, msg, args...)
	}
}

// 全局默认日志器，便于简化调用。
var defaultLogger Logger = NewSlogLogger()

// L 获取全局日志器。
func L() Logger { return defaultLogger }

// SetGlobal 替换全局日志器（如业务侧注入第三方实现）。
func SetGlobal(l Logger) {
	if l != nil {
		defaultLogger = l
	}
}
