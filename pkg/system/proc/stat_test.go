package proc

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// init(1) on a 64-bit host, one line, 52 fields.
const systemdLine = "1 (systemd) S 0 1 1 0 -1 4194560 53530 1263219 108 1104 123 456 4127 1389 20 0 1 0 5 172056576 3232 18446744073709551615 94355123445760 94355124488789 140732900489616 0 0 0 671173123 4096 1260 0 0 0 17 3 0 0 9 0 0 94355124843696 94355124909056 94355150757888 140732900495214 140732900495233 140732900495233 140732900495341 0\n"

// sampleStat sets every field to a distinct value so a shifted mapping shows up.
func sampleStat() ProcessStat {
	return ProcessStat{
		PID: 4242, Comm: "cat", State: StateSleeping,
		PPID: 4, PGRP: 5, Session: 6, TTYNr: 34817, TPGID: -1,
		Flags:  4194304,
		MinFlt: 10, CMinFlt: 11, MajFlt: 12, CMajFlt: 13,
		UTime: 14, STime: 15, CUTime: 16, CSTime: 17,
		Priority: 20, Nice: -5, NumThreads: 21, ItRealValue: 22,
		StartTime: 23, VSize: 24, RSS: 25, RSSLim: 26,
		StartCode: 27, EndCode: 28, StartStack: 29, KStkESP: 30, KStkEIP: 31,
		Signal: 32, Blocked: 33, SigIgnore: 34, SigCatch: 35,
		WChan: 36, NSwap: 37, CNSwap: 38,
		ExitSignal: 17, Processor: 39, RTPriority: 40, Policy: 41,
		DelayAcctBlkIOTicks: 42, GuestTime: 43, CGuestTime: 44,
		StartData: 45, EndData: 46, StartBrk: 47, ArgStart: 48, ArgEnd: 49, EnvStart: 50, EnvEnd: 51,
		ExitCode: 52,
	}
}

// withToken replaces the named field of the sample line.
func withToken(t *testing.T, name, tok string) string {
	t.Helper()
	toks := strings.Fields(sampleStat().String())
	i := slices.Index(Fields(), name)
	require.GreaterOrEqual(t, i, 0, "unknown field %q", name)
	toks[i] = tok
	return strings.Join(toks, " ")
}

func requireParseError(t *testing.T, err error, field string, kind error) {
	t.Helper()
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "want *ParseError, got %T: %v", err, err)
	assert.Equal(t, field, pe.Field)
	assert.ErrorIs(t, err, kind)
	assert.Contains(t, err.Error(), field)
}

func TestParseStat_RealLine(t *testing.T) {
	s, err := ParseStat(1, systemdLine)
	require.NoError(t, err)

	assert.Equal(t, int32(1), s.PID)
	assert.Equal(t, "systemd", s.Comm)
	assert.Equal(t, StateSleeping, s.State)
	assert.Equal(t, int32(-1), s.TPGID)
	assert.Equal(t, uint32(4194560), s.Flags)
	assert.Equal(t, uint64(53530), s.MinFlt)
	assert.Equal(t, uint64(1263219), s.CMinFlt)
	assert.Equal(t, uint64(123), s.UTime)
	assert.Equal(t, uint64(456), s.STime)
	assert.Equal(t, int64(20), s.Priority)
	assert.Equal(t, int64(1), s.NumThreads)
	assert.Equal(t, uint64(5), s.StartTime)
	assert.Equal(t, uint64(172056576), s.VSize)
	assert.Equal(t, uint64(3232), s.RSS)
	assert.Equal(t, uint64(math.MaxUint64), s.RSSLim)
	assert.Equal(t, uint64(140732900489616), s.StartStack)
	assert.Equal(t, int32(17), s.ExitSignal)
	assert.Equal(t, int32(3), s.Processor)
	assert.Equal(t, uint64(9), s.DelayAcctBlkIOTicks)
	assert.Equal(t, uint64(94355124843696), s.StartData)
	assert.Equal(t, uint64(94355124909056), s.EndData)
	assert.Equal(t, uint64(94355150757888), s.StartBrk)
	assert.Equal(t, uint64(140732900495341), s.EnvEnd)
	assert.Equal(t, int32(0), s.ExitCode)

	assert.Equal(t, strings.TrimSuffix(systemdLine, "\n"), s.String())
}

func TestParseStat_RoundTrip(t *testing.T) {
	t.Run("distinct_values", func(t *testing.T) {
		want := sampleStat()
		got, err := ParseStat(int(want.PID), want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("every_state", func(t *testing.T) {
		for _, st := range []State{
			StateRunning, StateSleeping, StateDiskSleep, StateZombie,
			StateTracedOrStopped, StatePaging, StateDead, StateIdle, StateUnknown,
		} {
			want := sampleStat()
			want.State = st
			got, err := ParseStat(0, want.String())
			require.NoError(t, err, "state %s", st)
			assert.Equal(t, want, got)
		}
	})

	t.Run("width_extremes", func(t *testing.T) {
		for _, extreme := range []string{"min", "max"} {
			toks := []string{strconv.Itoa(math.MaxInt32), "(x)", "R"}
			if extreme == "min" {
				toks[0] = "0"
			}
			var zeroStat ProcessStat
			for _, f := range statSchema {
				toks = append(toks, extremeToken(t, f.value(&zeroStat), extreme))
			}
			line := strings.Join(toks, " ")

			s, err := ParseStat(0, line)
			require.NoError(t, err, extreme)
			assert.Equal(t, line, s.String(), extreme)

			again, err := ParseStat(0, s.String())
			require.NoError(t, err)
			assert.Equal(t, s, again)
		}
	})

	t.Run("comm_with_spaces_and_parens", func(t *testing.T) {
		for _, comm := range []string{"", "a b", "(sd-pam)", "a (b) c", "x))", "((", "kworker/0:1-events"} {
			want := sampleStat()
			want.Comm = comm
			got, err := ParseStat(0, want.String())
			require.NoError(t, err, "comm %q", comm)
			assert.Equal(t, want, got)
		}
	})
}

func extremeToken(t *testing.T, zero any, extreme string) string {
	t.Helper()
	isMax := extreme == "max"
	switch zero.(type) {
	case int32:
		if isMax {
			return strconv.FormatInt(math.MaxInt32, 10)
		}
		return strconv.FormatInt(math.MinInt32, 10)
	case int64:
		if isMax {
			return strconv.FormatInt(math.MaxInt64, 10)
		}
		return strconv.FormatInt(math.MinInt64, 10)
	case uint32:
		if isMax {
			return strconv.FormatUint(math.MaxUint32, 10)
		}
		return "0"
	case uint64:
		if isMax {
			return strconv.FormatUint(math.MaxUint64, 10)
		}
		return "0"
	}
	t.Fatalf("unexpected field type %T", zero)
	return ""
}

func TestParseStat_AdversarialComm(t *testing.T) {
	want := sampleStat()
	want.PID = 123
	want.Comm = "weird) proc"
	line := want.String()
	require.True(t, strings.HasPrefix(line, "123 (weird) proc) S "), line)

	got, err := ParseStat(123, line)
	require.NoError(t, err)
	assert.Equal(t, "weird) proc", got.Comm)
	assert.Equal(t, want, got)
}

func TestParseStat_CommWithNewline(t *testing.T) {
	want := sampleStat()
	want.Comm = "a\nb)\n("

	got, err := ParseStat(4242, want.String()+"\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseStat_StartBrkIsNotEndData(t *testing.T) {
	line := withToken(t, "end_data", "111")
	line = strings.Replace(line, " 47 ", " 222 ", 1)

	s, err := ParseStat(0, line)
	require.NoError(t, err)
	assert.Equal(t, uint64(45), s.StartData)
	assert.Equal(t, uint64(111), s.EndData)
	assert.Equal(t, uint64(222), s.StartBrk)
	assert.Equal(t, uint64(48), s.ArgStart)
	assert.NotEqual(t, s.EndData, s.StartBrk)

	v, ok := s.Value("start_brk")
	require.True(t, ok)
	assert.Equal(t, uint64(222), v)
}

func TestParseStat_Truncation(t *testing.T) {
	toks := strings.Fields(sampleStat().String())
	names := Fields()
	require.Len(t, toks, 52)
	require.Len(t, names, 52)

	t.Run("empty_line", func(t *testing.T) {
		_, err := ParseStat(0, "")
		requireParseError(t, err, "pid", ErrMissingField)
		_, err = ParseStat(0, "   \n")
		requireParseError(t, err, "pid", ErrMissingField)
	})

	t.Run("missing_comm", func(t *testing.T) {
		for _, line := range []string{"4242", "4242 ", "4242 (cat", "4242 cat) S",
			"4242 junk (cat) S", "4242  (cat) S", "4242\t(cat) S", "4242(cat) S"} {
			_, err := ParseStat(0, line)
			requireParseError(t, err, "comm", ErrMissingField)
		}
	})

	t.Run("missing_state", func(t *testing.T) {
		for _, line := range []string{"4242 (cat)", "4242 (cat)\n", "4242 (cat) "} {
			_, err := ParseStat(0, line)
			requireParseError(t, err, "state", ErrInvalidState)
		}
	})

	t.Run("every_numeric_field", func(t *testing.T) {
		for k := 3; k < len(toks); k++ {
			line := strings.Join(toks[:k], " ")
			_, err := ParseStat(0, line)
			requireParseError(t, err, names[k], ErrMissingField)
			_, err = ParseStat(0, line+"\n")
			requireParseError(t, err, names[k], ErrMissingField)
		}
	})

	t.Run("missing_exit_code", func(t *testing.T) {
		line := strings.Join(toks[:len(toks)-1], " ") + "\n"
		s, err := ParseStat(0, line)
		requireParseError(t, err, "exit_code", ErrMissingField)
		assert.Equal(t, ProcessStat{}, s)
	})
}

func TestParseStat_Integers(t *testing.T) {
	cases := []struct {
		name  string
		field string
		tok   string
		kind  error
	}{
		{"negative_unsigned_minflt", "minflt", "-1", ErrMalformedInteger},
		{"negative_unsigned_flags", "flags", "-4194304", ErrMalformedInteger},
		{"negative_unsigned_starttime", "starttime", "-5", ErrMalformedInteger},
		{"flags_over_32_bits", "flags", "4294967296", ErrRange},
		{"rt_priority_over_32_bits", "rt_priority", "4294967296", ErrRange},
		{"ppid_over_int32", "ppid", "2147483648", ErrRange},
		{"exit_code_under_int32", "exit_code", "-2147483649", ErrRange},
		{"nice_over_int64", "nice", "9223372036854775808", ErrRange},
		{"vsize_over_uint64", "vsize", "18446744073709551616", ErrRange},
		{"hex_literal", "wchan", "0x10", ErrMalformedInteger},
		{"letters", "utime", "abc", ErrMalformedInteger},
		{"trailing_garbage", "stime", "12ms", ErrMalformedInteger},
		{"underscore", "majflt", "1_000", ErrMalformedInteger},
		{"float", "priority", "2.5", ErrMalformedInteger},
		{"plus_sign_signed", "nice", "+1", ErrMalformedInteger},
		{"plus_sign_unsigned", "utime", "+1", ErrMalformedInteger},
		{"plus_sign_int32", "exit_code", "+0", ErrMalformedInteger},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := ParseStat(0, withToken(t, tc.field, tc.tok))
			requireParseError(t, err, tc.field, tc.kind)
			assert.ErrorIs(t, err, tc.kind)
			assert.Equal(t, ProcessStat{}, s)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tc.tok, pe.Token)
		})
	}

	t.Run("pid_malformed", func(t *testing.T) {
		_, err := ParseStat(0, withToken(t, "pid", "x42"))
		requireParseError(t, err, "pid", ErrMalformedInteger)
	})
	t.Run("pid_plus_sign", func(t *testing.T) {
		_, err := ParseStat(0, withToken(t, "pid", "+4242"))
		requireParseError(t, err, "pid", ErrMalformedInteger)
		assert.ErrorIs(t, err, strconv.ErrSyntax)
	})
	t.Run("pid_out_of_range", func(t *testing.T) {
		_, err := ParseStat(0, withToken(t, "pid", "2147483648"))
		requireParseError(t, err, "pid", ErrRange)
	})
	t.Run("strconv_cause_is_kept", func(t *testing.T) {
		_, err := ParseStat(0, withToken(t, "minflt", "-1"))
		assert.ErrorIs(t, err, strconv.ErrSyntax)
		_, err = ParseStat(0, withToken(t, "flags", "4294967296"))
		assert.ErrorIs(t, err, strconv.ErrRange)
	})
}

func TestParseStat_State(t *testing.T) {
	t.Run("two_characters", func(t *testing.T) {
		_, err := ParseStat(0, withToken(t, "state", "RR"))
		requireParseError(t, err, "state", ErrInvalidState)
	})
	t.Run("two_spaces_before_state", func(t *testing.T) {
		line := strings.Replace(sampleStat().String(), ") S", ")  S", 1)
		_, err := ParseStat(0, line)
		requireParseError(t, err, "state", ErrInvalidState)
	})
	t.Run("no_space_before_state", func(t *testing.T) {
		line := strings.Replace(sampleStat().String(), ") S", ")S", 1)
		_, err := ParseStat(0, line)
		requireParseError(t, err, "state", ErrInvalidState)
	})
	t.Run("letters", func(t *testing.T) {
		cases := map[string]State{
			"R": StateRunning, "S": StateSleeping, "D": StateDiskSleep, "Z": StateZombie,
			"T": StateTracedOrStopped, "t": StateTracedOrStopped, "W": StatePaging,
			"X": StateDead, "x": StateDead, "I": StateIdle,
			"K": StateUnknown, "P": StateUnknown, "?": StateUnknown, "9": StateUnknown,
		}
		for tok, want := range cases {
			s, err := ParseStat(0, withToken(t, "state", tok))
			require.NoError(t, err, tok)
			assert.Equal(t, want, s.State, tok)
		}
	})
	t.Run("one_non_ascii_character", func(t *testing.T) {
		s, err := ParseStat(0, withToken(t, "state", "é"))
		require.NoError(t, err)
		assert.Equal(t, StateUnknown, s.State)
		assert.Equal(t, int32(52), s.ExitCode)
	})
	t.Run("two_non_ascii_characters", func(t *testing.T) {
		_, err := ParseStat(0, withToken(t, "state", "éé"))
		requireParseError(t, err, "state", ErrInvalidState)
	})
	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "running", StateRunning.String())
		assert.Equal(t, "stopped", StateTracedOrStopped.String())
		assert.Equal(t, "unknown", State('K').String())
		assert.Equal(t, "?", State(0).Letter())
		b, err := StateZombie.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "Z", string(b))
	})
}

func TestParseStat_ExpectedPID(t *testing.T) {
	line := sampleStat().String()

	_, err := ParseStat(4242, line)
	require.NoError(t, err)
	_, err = ParseStat(0, line)
	require.NoError(t, err)
	_, err = ParseStat(-1, line)
	require.NoError(t, err)

	s, err := ParseStat(4243, line)
	requireParseError(t, err, "pid", ErrPIDMismatch)
	assert.Equal(t, ProcessStat{}, s)
}

func TestParseStat_TrailingTokensIgnored(t *testing.T) {
	want := sampleStat()
	got, err := ParseStat(0, want.String()+" 53 54 55\n")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseStat_DoesNotRetainLine(t *testing.T) {
	buf := []byte(sampleStat().String())
	s, err := ParseStat(0, string(buf))
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 'z'
	}
	assert.Equal(t, "cat", s.Comm)
}

func TestParseStat_Allocations(t *testing.T) {
	line := systemdLine
	allocs := testing.AllocsPerRun(100, func() {
		if _, err := ParseStat(1, line); err != nil {
			panic(err)
		}
	})
	// only the comm copy; the record stays on the stack
	assert.Equal(t, 1.0, allocs)
}

func TestParseStat_Concurrent(t *testing.T) {
	const n = 64
	lines := make([]string, n)
	for i := range lines {
		s := sampleStat()
		s.PID = int32(1000 + i)
		s.Comm = fmt.Sprintf("worker %d", i)
		s.UTime = uint64(i * 7)
		s.StartBrk = uint64(i) << 40
		lines[i] = s.String()
	}

	got := make([]ProcessStat, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range lines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 50; n++ {
				got[i], errs[i] = ParseStat(1000+i, lines[i])
				if errs[i] != nil {
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := range got {
		require.NoError(t, errs[i])
		assert.Equal(t, int32(1000+i), got[i].PID)
		assert.Equal(t, fmt.Sprintf("worker %d", i), got[i].Comm)
		assert.Equal(t, uint64(i*7), got[i].UTime)
		assert.Equal(t, uint64(i)<<40, got[i].StartBrk)
	}
}

func TestFieldsAndValues(t *testing.T) {
	names := Fields()
	require.Len(t, names, 52)
	assert.Equal(t, []string{"pid", "comm", "state", "ppid"}, names[:4])
	assert.Equal(t, "start_brk", names[46])
	assert.Equal(t, "exit_code", names[51])

	// callers get a copy
	names[0] = "mutated"
	assert.Equal(t, "pid", Fields()[0])

	s := sampleStat()
	vals := s.Values()
	assert.Len(t, vals, 52)
	assert.Equal(t, int32(4242), vals["pid"])
	assert.Equal(t, "cat", vals["comm"])
	assert.Equal(t, "S", vals["state"])
	assert.Equal(t, uint32(4194304), vals["flags"])
	assert.Equal(t, int64(-5), vals["nice"])
	assert.Equal(t, int32(52), vals["exit_code"])

	_, ok := s.Value("nope")
	assert.False(t, ok)
}
