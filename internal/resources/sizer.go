package resources

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// WorkerCount decides the correlation pool size. A configured maxWorkers wins
// outright; otherwise the pool takes a quarter of the physical cores so a
// batch run never starves the host, with a floor of one.
func WorkerCount(maxWorkers int) int {
	if maxWorkers > 0 {
		return maxWorkers
	}

	cores, err := cpu.Counts(false)
	if err != nil || cores <= 0 {
		cores = runtime.NumCPU()
	}

	workers := cores / 4
	if workers < 1 {
		workers = 1
	}
	return workers
}
