package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteAPI 定义与远端生成服务的交互接口，便于 gomock 打桩。
// 功能：封装任务创建、状态查询、取消与列表四个操作。
type RemoteAPI interface {
	CreateJob(ctx context.Context, req CreateJobReq) (jobID string, err error)
	FetchStatus(ctx context.Context, jobID string) (*RemoteJob, error)
	CancelJob(ctx context.Context, jobID string) error
	ListJobs(ctx context.Context) ([]RemoteJob, error)
}

// httpRemoteAPI 实现 RemoteAPI。
type httpRemoteAPI struct {
	base string
	hc   *http.Client
}

// NewHTTPRemoteAPI 构造 HTTP 实现。
// 参数：base 形如 http://127.0.0.1:8700；timeout 为单次请求上限，
// 传 0 使用默认 5s。超时会被归入对应操作的错误类别。
func NewHTTPRemoteAPI(base string, timeout time.Duration) RemoteAPI {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpRemoteAPI{base: base, hc: &http.Client{Timeout: timeout}}
}

// CreateJob 提交批量任务。
// 返回：远端任务 ID；非 2xx、超时或响应缺少 job_id 时返回 *CreateError。
func (h *httpRemoteAPI) CreateJob(ctx context.Context, req CreateJobReq) (string, error) {
	var resp createJobResp
	if err := h.post(ctx, h.base+"/jobs", req, &resp); err != nil {
		return "", &CreateError{Reason: "request", Err: err}
	}
	if resp.JobID == "" {
		return "", &CreateError{Reason: "malformed response: missing job_id"}
	}
	return resp.JobID, nil
}

// FetchStatus 查询任务状态。失败返回 *TransientError，调用方按可重试处理。
func (h *httpRemoteAPI) FetchStatus(ctx context.Context, jobID string) (*RemoteJob, error) {
	var job RemoteJob
	if err := h.get(ctx, h.base+"/jobs/"+jobID, &job); err != nil {
		return nil, &TransientError{Reason: "request", Err: err}
	}
	return &job, nil
}

// CancelJob 取消任务。尽力而为：失败返回 *CancelError，由调用方记录。
func (h *httpRemoteAPI) CancelJob(ctx context.Context, jobID string) error {
	var resp cancelResp
	if err := h.post(ctx, h.base+"/jobs/"+jobID+"/cancel", struct{}{}, &resp); err != nil {
		return &CancelError{Reason: "request", Err: err}
	}
	// ack 缺失或为 false 均容忍：本地取消不依赖远端确认。
	return nil
}

// ListJobs 获取远端原生任务列表（供统一任务视图聚合）。
func (h *httpRemoteAPI) ListJobs(ctx context.Context) ([]RemoteJob, error) {
	var resp listJobsResp
	if err := h.get(ctx, h.base+"/jobs", &resp); err != nil {
		return nil, &TransientError{Reason: "request", Err: err}
	}
	return resp.Jobs, nil
}

// get 执行 GET 请求并解码 JSON。
func (h *httpRemoteAPI) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := h.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		b, _ := io.ReadAll(res.Body)
		return fmt.Errorf("GET %s => %d: %s", url, res.StatusCode, string(b))
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// post 执行 POST 请求并可选解码响应。
func (h *httpRemoteAPI) post(ctx context.Context, u string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := h.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		rb, _ := io.ReadAll(res.Body)
		return fmt.Errorf("POST %s => %d: %s", u, res.StatusCode, string(rb))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
