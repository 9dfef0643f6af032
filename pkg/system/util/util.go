package util

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// MaxRange caps how many pids a single "A..B" argument may expand to.
const MaxRange = 1 << 16

var (
	ErrBadPID   = errors.New("util: invalid pid")
	ErrBadRange = errors.New("util: invalid pid range")
)

// ParsePIDs expands command line arguments into pids. Each argument is a
// decimal pid, an inclusive range "A..B", or "self" for the calling process.
// Duplicates are dropped; the first occurrence keeps its position.
func ParsePIDs(args []string) ([]int, error) {
	var out []int
	seen := make(map[int]struct{})
	add := func(pid int) {
		if _, ok := seen[pid]; ok {
			return
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}

	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "self" {
			add(os.Getpid())
			continue
		}
		lo, hi, isRange := strings.Cut(arg, "..")
		if !isRange {
			pid, err := parsePID(arg)
			if err != nil {
				return nil, err
			}
			add(pid)
			continue
		}

		from, err := parsePID(lo)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrBadRange, arg, err)
		}
		to, err := parsePID(hi)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrBadRange, arg, err)
		}
		if to < from {
			return nil, fmt.Errorf("%w %q: end before start", ErrBadRange, arg)
		}
		if to-from >= MaxRange {
			return nil, fmt.Errorf("%w %q: more than %d pids", ErrBadRange, arg, MaxRange)
		}
		for pid := from; pid <= to; pid++ {
			add(pid)
		}
	}
	return out, nil
}

func parsePID(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadPID, s)
	}
	return int(v), nil
}
