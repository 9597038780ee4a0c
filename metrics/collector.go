package metrics

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Sample 一次系统/进程指标采样，随运行快照持久化，用于批次事后诊断。
type Sample struct {
	CPULoad        float64 `json:"cpu_load"`
	CPUProcessors  int     `json:"cpu_processors"`
	DiskTotalGB    float64 `json:"disk_total"`
	DiskUsedGB     float64 `json:"disk_used"`
	DiskUsageRatio float64 `json:"disk_usage"`
	MemTotalGB     float64 `json:"mem_total"`
	ProcUsedGB     float64 `json:"proc_used"`
	ProcMemUsage   float64 `json:"proc_mem_usage"`
	Score          float64 `json:"score"`
}

// Collect 采集当前系统与进程指标。
func Collect(ctx context.Context) Sample {
	var out Sample
	if avg, err := load.AvgWithContext(ctx); err == nil {
		out.CPULoad = avg.Load1
	}
	out.CPUProcessors = runtime.NumCPU()
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil && du.Total > 0 {
		out.DiskTotalGB = float64(du.Total) / (1024 * 1024 * 1024)
		out.DiskUsedGB = float64(du.Used) / (1024 * 1024 * 1024)
		out.DiskUsageRatio = du.UsedPercent / 100.0
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil && vm.Total > 0 {
		out.MemTotalGB = float64(vm.Total) / (1024 * 1024 * 1024)
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if pm, err := p.MemoryInfoWithContext(ctx); err == nil && pm != nil {
			usedGB := float64(pm.RSS) / (1024 * 1024 * 1024)
			out.ProcUsedGB = usedGB
			if out.MemTotalGB > 0 {
				out.ProcMemUsage = usedGB / out.MemTotalGB
			}
		}
	}
	score := 100.0
	if out.CPULoad > 0 {
		score -= out.CPULoad * 5
	}
	if out.DiskUsageRatio > 0 {
		score -= out.DiskUsageRatio * 20
	}
	if out.ProcMemUsage > 0 {
		score -= out.ProcMemUsage * 30
	}
	if score < 0 {
		score = 0
	}
	out.Score = score
	return out
}
