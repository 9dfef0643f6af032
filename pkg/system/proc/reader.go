//go:build linux

package proc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// StatReader reads and parses stat files under a procfs root. It holds no
// mutable state and is safe for concurrent use.
type StatReader struct {
	cfg Config
}

// NewStatReader returns a reader for cfg. Zero fields take their defaults.
func NewStatReader(cfg Config) *StatReader {
	return &StatReader{cfg: cfg.normalized()}
}

// Config returns the effective configuration.
func (r *StatReader) Config() Config { return r.cfg }

// ReadStat reads <root>/<pid>/stat.
func (r *StatReader) ReadStat(pid int) (ProcessStat, error) {
	return r.read(filepath.Join(r.cfg.Root, strconv.Itoa(pid), "stat"), pid)
}

// ReadTaskStat reads the stat file of one thread, <root>/<pid>/task/<tid>/stat.
// The pid field of a thread's stat line is its tid.
func (r *StatReader) ReadTaskStat(pid, tid int) (ProcessStat, error) {
	return r.read(filepath.Join(r.cfg.Root, strconv.Itoa(pid), "task", strconv.Itoa(tid), "stat"), tid)
}

// ReadSelf reads the calling process's own stat file.
func (r *StatReader) ReadSelf() (ProcessStat, error) {
	return r.ReadStat(os.Getpid())
}

// ReadProcStat parses /proc/<pid>/stat with the default configuration.
func ReadProcStat(pid int) (ProcessStat, error) {
	return NewStatReader(DefaultConfig()).ReadStat(pid)
}

func (r *StatReader) read(path string, pid int) (ProcessStat, error) {
	line, err := r.readLine(path)
	if err != nil {
		return ProcessStat{}, err
	}
	s, err := ParseStat(pid, line)
	if err != nil {
		return ProcessStat{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// readLine returns the content of path without its final newline. comm is
// printed unescaped, so a newline inside it is part of the line. The buffer
// starts at 1 KiB and grows up to MaxLineBytes; longer lines are rejected,
// never truncated.
func (r *StatReader) readLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", classify(path, err)
	}
	defer f.Close()

	// one byte for the newline, one more to notice anything past it
	buf := bytes.NewBuffer(make([]byte, 0, initialLineBytes))
	if _, err := buf.ReadFrom(io.LimitReader(f, int64(r.cfg.MaxLineBytes)+2)); err != nil {
		return "", classify(path, err)
	}
	line := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	if len(line) > r.cfg.MaxLineBytes {
		return "", fmt.Errorf("%w: %s: limit %d bytes", ErrStatTooLong, path, r.cfg.MaxLineBytes)
	}
	if len(line) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoStat, path)
	}
	return string(line), nil
}

// classify maps I/O errors onto the read sentinels. ESRCH shows up when the
// process exits between open and read.
func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %s: %w", ErrNoProcess, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermission, path, err)
	default:
		return fmt.Errorf("proc: read %s: %w", path, err)
	}
}
