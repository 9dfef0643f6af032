package proc

import (
	"os"
	"strconv"
	"time"

	"github.com/ja7ad/procstat/pkg/types"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. Every mainstream architecture reports 100
// to userspace regardless of the kernel's HZ.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// PageSize returns the system memory page size in bytes.
// Like ClockTicks, it first checks an env override (PAGE_SIZE)
// to ease testing, then falls back to os.Getpagesize().
func PageSize() int {
	if ps := os.Getenv("PAGE_SIZE"); ps != "" {
		if v, _ := strconv.Atoi(ps); v > 0 {
			return v
		}
	}
	return os.Getpagesize()
}

func ticks(n uint64, clk int) time.Duration {
	if clk <= 0 {
		clk = 100
	}
	sec := n / uint64(clk)
	rem := n % uint64(clk)
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/time.Duration(clk)
}

// CPUTime returns user plus system time of the process itself.
func (s ProcessStat) CPUTime(clk int) time.Duration {
	return ticks(s.UTime+s.STime, clk)
}

// ChildrenCPUTime returns user plus system time of waited-for children.
// The kernel reports these as signed; negative values count as zero.
func (s ProcessStat) ChildrenCPUTime(clk int) time.Duration {
	var n uint64
	if s.CUTime > 0 {
		n += uint64(s.CUTime)
	}
	if s.CSTime > 0 {
		n += uint64(s.CSTime)
	}
	return ticks(n, clk)
}

// StartedAfterBoot returns how long after boot the process started.
func (s ProcessStat) StartedAfterBoot(clk int) time.Duration {
	return ticks(s.StartTime, clk)
}

// RSSBytes converts the resident page count to bytes.
func (s ProcessStat) RSSBytes(pageSize int) types.Bytes {
	return types.FromPages(s.RSS, pageSize)
}

// VSizeBytes returns the virtual memory size.
func (s ProcessStat) VSizeBytes() types.Bytes {
	return types.ToBytes(s.VSize)
}
