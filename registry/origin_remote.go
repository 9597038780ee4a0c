package registry

import (
	"context"
	"fmt"

	"github.com/mengeric/batchgen-go/client"
)

// OriginRemote 远端生成服务来源名。
const OriginRemote = "remote"

// remoteStatus 远端顶层状态 → 统一状态的确定性映射表。
var remoteStatus = map[string]Status{
	client.JobStatusPending:    StatusPending,
	client.JobStatusProcessing: StatusRunning,
	client.JobStatusCompleted:  StatusCompleted,
}

// ParamsSource 提供远端任务创建时记录的参数，供无原生重试概念的重建式重试使用。
type ParamsSource interface {
	ParamsFor(jobID string) (client.CreateJobReq, bool)
}

// RemoteOrigin 把远端生成服务的原生任务列表投影为统一视图。
type RemoteOrigin struct {
	api    client.RemoteAPI
	params ParamsSource
}

// NewRemoteOrigin 构造远端来源。params 可为 nil（此时重试不可用）。
func NewRemoteOrigin(api client.RemoteAPI, params ParamsSource) *RemoteOrigin {
	return &RemoteOrigin{api: api, params: params}
}

func (o *RemoteOrigin) Name() string { return OriginRemote }

// List 拉取远端原生任务列表并逐个投影。
func (o *RemoteOrigin) List(ctx context.Context, _ Filters) ([]UnifiedJob, error) {
	jobs, err := o.api.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UnifiedJob, 0, len(jobs))
	for i := range jobs {
		out = append(out, o.project(&jobs[i]))
	}
	return out, nil
}

// Get 取单个远端任务的新鲜状态并投影。
func (o *RemoteOrigin) Get(ctx context.Context, nativeID string) (*UnifiedJob, error) {
	job, err := o.api.FetchStatus(ctx, nativeID)
	if err != nil {
		return nil, err
	}
	j := o.project(job)
	return &j, nil
}

// Cancel 转发远端取消。
func (o *RemoteOrigin) Cancel(ctx context.Context, nativeID string) error {
	return o.api.CancelJob(ctx, nativeID)
}

// Retry 远端无原生重试：按创建时记录的参数重建任务，返回新任务的统一 ID。
func (o *RemoteOrigin) Retry(ctx context.Context, nativeID string) (string, error) {
	if o.params == nil {
		return "", fmt.Errorf("retry unavailable: no params source")
	}
	req, ok := o.params.ParamsFor(nativeID)
	if !ok {
		return "", fmt.Errorf("retry unavailable: parameters not recorded for job %q", nativeID)
	}
	newID, err := o.api.CreateJob(ctx, req)
	if err != nil {
		return "", err
	}
	return QualifyID(OriginRemote, newID), nil
}

// project 原生远端任务 → 统一投影（纯函数，按需重算）。
func (o *RemoteOrigin) project(job *client.RemoteJob) UnifiedJob {
	u := UnifiedJob{
		ID:        QualifyID(OriginRemote, job.ID),
		Origin:    OriginRemote,
		Type:      "generation",
		Status:    remoteStatus[job.Status],
		Progress:  Progress{Total: len(job.Items)},
		CreatedAt: job.CreatedAt,
	}
	for _, it := range job.Items {
		switch it.Status {
		case client.ItemStatusSuccess:
			u.Progress.Completed++
		case client.ItemStatusFailed:
			u.Progress.Failed++
		}
	}
	if job.Status == client.JobStatusCompleted {
		t := job.UpdatedAt
		u.CompletedAt = &t
	}
	return u
}
