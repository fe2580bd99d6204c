package ferry

import (
	"os"

	"github.com/ferry-web/ferry/config"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// UsageFunc reports the worker's current memory usage in bytes.
type UsageFunc func() (uint64, error)

// Watchdog watches the worker's memory against a limit. It is strictly
// passive: it only ever answers ShouldRecycle, and the decision to stop
// taking requests belongs to the host loop.
type Watchdog struct {
	usage     UsageFunc
	limit     uint64
	threshold float64
}

// NewWatchdog resolves the memory limit from the config, taking the total
// memory of the machine when the config leaves it at zero. A nil usage
// falls back to ProcessMemory.
func NewWatchdog(cfg *config.Config, usage UsageFunc) *Watchdog {
	if usage == nil {
		usage = ProcessMemory
	}

	limit := cfg.Worker.MemoryLimit
	if limit == 0 {
		if vmem, err := mem.VirtualMemory(); err == nil {
			limit = vmem.Total
		}
	}

	return &Watchdog{
		usage:     usage,
		limit:     limit,
		threshold: cfg.Worker.MemoryThreshold,
	}
}

// Usage reads the current memory usage in bytes.
func (w *Watchdog) Usage() (uint64, error) {
	return w.usage()
}

// ShouldRecycle reports whether usage reached the threshold share of the
// limit. Usage exactly at the boundary counts as reached. An unreadable
// usage or an unknown limit never signals.
func (w *Watchdog) ShouldRecycle() bool {
	if w.limit == 0 {
		return false
	}

	used, err := w.usage()
	if err != nil {
		return false
	}

	return float64(used) >= w.threshold*float64(w.limit)
}

// ProcessMemory reports the resident set size of the current process. A
// process that cannot be inspected degrades to system-wide used memory.
func ProcessMemory() (uint64, error) {
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil {
			return info.RSS, nil
		}
	}

	vmem, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}

	return vmem.Used, nil
}
