package client

import (
	"encoding/json"
	"time"
)

// 以下类型对应远端生成服务的 HTTP 契约，字段命名与服务文档一致。

// 远端任务顶层状态。
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
)

// 远端条目状态（逐行）。
const (
	ItemStatusPending    = "pending"
	ItemStatusProcessing = "processing"
	ItemStatusSuccess    = "success"
	ItemStatusFailed     = "failed"
)

// Settings 生成参数，按原样透传给远端。
type Settings map[string]any

// SubmissionItem 单个提交条目。
// 线上格式为 {id, ...fields}：字段与 id 平铺在同一层，故自定义编解码。
type SubmissionItem struct {
	ID     string
	Fields map[string]string
}

// MarshalJSON 将 id 与业务字段平铺为一个 JSON 对象。
func (it SubmissionItem) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(it.Fields)+1)
	for k, v := range it.Fields {
		if k == "id" {
			continue
		}
		m[k] = v
	}
	m["id"] = it.ID
	return json.Marshal(m)
}

// UnmarshalJSON 从平铺对象还原 id 与业务字段。
func (it *SubmissionItem) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	it.ID = m["id"]
	delete(m, "id")
	it.Fields = m
	return nil
}

// CreateJobReq 创建任务请求体。
type CreateJobReq struct {
	Items     []SubmissionItem `json:"items"`
	Settings  Settings         `json:"settings"`
	AutoStart bool             `json:"auto_start"`
}

// createJobResp 创建任务响应体。
type createJobResp struct {
	JobID string `json:"job_id"`
}

// RemoteItem 远端任务中的单个条目，id 与本地行的稳定键一一对应。
type RemoteItem struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Output map[string]string `json:"output,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// RemoteJob 远端任务完整视图。
type RemoteJob struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Items     []RemoteItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// cancelResp 取消任务响应体，ack 缺失视为未确认但不报错。
type cancelResp struct {
	Ack bool `json:"ack"`
}

// listJobsResp 任务列表响应体。
type listJobsResp struct {
	Jobs []RemoteJob `json:"jobs"`
}
