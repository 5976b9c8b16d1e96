package monitoring

import (
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// SystemSample is a point-in-time view of this process's resource use,
// reported by the health endpoint.
type SystemSample struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   float64 `json:"memory_mb"`
}

// SampleSystem reads CPU and memory usage for the current process. A
// failed read returns zeros; health reporting never fails the endpoint.
func SampleSystem() SystemSample {
	var sample SystemSample

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return sample
	}
	if cpu, err := proc.CPUPercent(); err == nil {
		sample.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		sample.MemoryMB = float64(mem.RSS) / (1024 * 1024)
	}
	return sample
}
