// Package proc parses Linux /proc/<pid>/stat lines into typed records and
// reads them from procfs. The parser is a pure function of its input; all I/O
// lives in StatReader.
//
// Overview
//
//   - Parser:
//     ParseStat(expectedPID int, line string) (ProcessStat, error)
//
//     ParseStat consumes one stat line and returns either a fully populated
//     ProcessStat or a *ParseError naming the field it failed on. It never
//     returns a record with a zero value standing in for a missing field.
//
//   - Reader:
//     NewStatReader(cfg Config) *StatReader
//     (*StatReader).ReadStat(pid int) (ProcessStat, error)
//     (*StatReader).ReadTaskStat(pid, tid int) (ProcessStat, error)
//
//     The reader opens <root>/<pid>/stat, reads one bounded line, closes the
//     file and hands the line to ParseStat with the requested pid as the
//     expected one.
//
//   - Formatter:
//     (ProcessStat).AppendLine(dst []byte) []byte
//     (ProcessStat).String() string
//
//     The inverse of ParseStat: ParseStat(0, s.String()) == s.
//
// # Line format
//
//	pid (comm) state ppid pgrp session tty_nr tpgid flags minflt cminflt
//	majflt cmajflt utime stime cutime cstime priority nice num_threads
//	itrealvalue starttime vsize rss rsslim startcode endcode startstack
//	kstkesp kstkeip signal blocked sigignore sigcatch wchan nswap cnswap
//	exit_signal processor rt_priority policy delayacct_blkio_ticks
//	guest_time cguest_time start_data end_data start_brk arg_start arg_end
//	env_start env_end exit_code
//
// comm is whatever the process named itself (prctl PR_SET_NAME), so it may
// hold spaces and parentheses: "123 (weird) proc) S ...". No later field can
// contain ')', so the last ')' on the line always closes comm, and the '('
// must follow the pid after a single space. Splitting on whitespace instead
// would shift every following field.
//
// Fields 4 through 52 are declared once, in order, in statSchema. Each entry
// derives its width and signedness from the ProcessStat field it writes, so
// "-1" in an unsigned field is rejected and a value that does not fit its
// width is a range error rather than a wrapped number.
//
// Errors (errs.go)
//
//	Parse category, always a *ParseError:
//	  ErrMissingField     : line ended before the field (truncated read)
//	  ErrMalformedInteger : token is not a decimal of the field's signedness
//	  ErrRange            : decimal does not fit the field's width
//	  ErrInvalidState     : state token absent or longer than one character
//	  ErrPIDMismatch      : line is for another pid than requested
//
//	Read category, never a *ParseError:
//	  ErrNoProcess   : ENOENT or ESRCH, the process is gone
//	  ErrPermission  : EACCES or EPERM
//	  ErrNoStat      : file was empty
//	  ErrStatTooLong : line longer than Config.MaxLineBytes
//
// Use IsParseError to tell the two apart. Neither category retries; a process
// that exits mid-read simply surfaces as ErrNoProcess or ErrMissingField.
//
// # Line buffer policy
//
// The reader starts with a 1 KiB buffer (a real line is a few hundred bytes)
// and grows it up to Config.MaxLineBytes, 4096 by default. A longer line is
// rejected with ErrStatTooLong instead of being truncated, so ErrMissingField
// always means the kernel's own output was short.
//
// The whole file is taken as the line and only its final newline is dropped:
// a comm set through prctl(PR_SET_NAME) may contain "\n" itself.
//
// Example: one-shot read
//
//	/*
//	s, err := proc.ReadProcStat(pid)
//	switch {
//	case errors.Is(err, proc.ErrNoProcess):
//	    return nil // exited
//	case proc.IsParseError(err):
//	    var pe *proc.ParseError
//	    errors.As(err, &pe)
//	    log.Printf("bad field %s", pe.Field)
//	case err != nil:
//	    return err
//	}
//	fmt.Println(s.Comm, s.State, s.CPUTime(proc.ClockTicks()))
//	*/
//
// Concurrency
//
// ParseStat shares nothing between calls and a StatReader only holds its
// immutable Config, so both may be used from any number of goroutines.
//
// Package import path: github.com/ja7ad/procstat/pkg/system/proc
package proc
