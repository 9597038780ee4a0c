package client

import (
	"errors"
	"fmt"
)

// 错误分级：创建失败对整批致命；查询失败可重试；取消失败仅记录。

// CreateError 创建远端任务失败（非 2xx、响应缺少 job_id、或请求超时）。
// 此时远端不存在可对账的任务，调用方应将批次置为启动失败。
type CreateError struct {
	Reason string
	Err    error
}

func (e *CreateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create job failed: %s: %v", e.Reason, e.Err)
	}
	return "create job failed: " + e.Reason
}
func (e *CreateError) Unwrap() error { return e.Err }

// TransientError 状态查询失败（网络错误、超时、非 2xx）。
// 调用方必须按可重试处理：记录后等待下一个轮询周期，不得终止运行。
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch status failed: %s: %v", e.Reason, e.Err)
	}
	return "fetch status failed: " + e.Reason
}
func (e *TransientError) Unwrap() error { return e.Err }

// CancelError 取消远端任务失败。尽力而为：仅记录，不阻塞本地取消。
type CancelError struct {
	Reason string
	Err    error
}

func (e *CancelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cancel job failed: %s: %v", e.Reason, e.Err)
	}
	return "cancel job failed: " + e.Reason
}
func (e *CancelError) Unwrap() error { return e.Err }

// IsTransient 判断错误是否为可重试的查询失败。
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
