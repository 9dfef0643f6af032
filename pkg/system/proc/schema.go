package proc

import (
	"errors"
	"strconv"
	"strings"
	"unsafe"
)

// ProcessStat is one parsed line of /proc/<pid>/stat. Field widths and
// signedness follow the kernel's formatting in fs/proc/array.c; see proc(5)
// for the meaning of each field.
type ProcessStat struct {
	PID   int32  `json:"pid"`
	Comm  string `json:"comm"`
	State State  `json:"state"`

	PPID    int32 `json:"ppid"`
	PGRP    int32 `json:"pgrp"`
	Session int32 `json:"session"`
	TTYNr   int32 `json:"tty_nr"`
	TPGID   int32 `json:"tpgid"`

	Flags uint32 `json:"flags"`

	MinFlt  uint64 `json:"minflt"`
	CMinFlt uint64 `json:"cminflt"`
	MajFlt  uint64 `json:"majflt"`
	CMajFlt uint64 `json:"cmajflt"`

	// Clock ticks, see ClockTicks.
	UTime  uint64 `json:"utime"`
	STime  uint64 `json:"stime"`
	CUTime int64  `json:"cutime"`
	CSTime int64  `json:"cstime"`

	Priority    int64 `json:"priority"`
	Nice        int64 `json:"nice"`
	NumThreads  int64 `json:"num_threads"`
	ItRealValue int64 `json:"itrealvalue"`

	StartTime uint64 `json:"starttime"` // ticks since boot
	VSize     uint64 `json:"vsize"`     // bytes
	RSS       uint64 `json:"rss"`       // pages
	RSSLim    uint64 `json:"rsslim"`    // bytes

	StartCode  uint64 `json:"startcode"`
	EndCode    uint64 `json:"endcode"`
	StartStack uint64 `json:"startstack"`
	KStkESP    uint64 `json:"kstkesp"`
	KStkEIP    uint64 `json:"kstkeip"`

	Signal    uint64 `json:"signal"`
	Blocked   uint64 `json:"blocked"`
	SigIgnore uint64 `json:"sigignore"`
	SigCatch  uint64 `json:"sigcatch"`

	WChan  uint64 `json:"wchan"`
	NSwap  uint64 `json:"nswap"`
	CNSwap uint64 `json:"cnswap"`

	ExitSignal int32  `json:"exit_signal"`
	Processor  int32  `json:"processor"`
	RTPriority uint32 `json:"rt_priority"`
	Policy     uint32 `json:"policy"`

	DelayAcctBlkIOTicks uint64 `json:"delayacct_blkio_ticks"`
	GuestTime           uint64 `json:"guest_time"`
	CGuestTime          int64  `json:"cguest_time"`

	StartData uint64 `json:"start_data"`
	EndData   uint64 `json:"end_data"`
	StartBrk  uint64 `json:"start_brk"`
	ArgStart  uint64 `json:"arg_start"`
	ArgEnd    uint64 `json:"arg_end"`
	EnvStart  uint64 `json:"env_start"`
	EnvEnd    uint64 `json:"env_end"`

	ExitCode int32 `json:"exit_code"`
}

type integer interface {
	~int32 | ~int64 | ~uint32 | ~uint64
}

type fieldKind uint8

const (
	kindInt32 fieldKind = iota
	kindInt64
	kindUint32
	kindUint64
)

// statField binds one positional integer field to its slot in ProcessStat,
// as a kind and a byte offset. Parsing stores through the offset so the
// record never leaves the caller's stack.
type statField struct {
	name string
	kind fieldKind
	off  uintptr
}

// field derives the kind and offset from the slot accessor, so a schema
// entry cannot disagree with the struct.
func field[T integer](name string, slot func(*ProcessStat) *T) statField {
	var (
		s    ProcessStat
		zero T
	)
	f := statField{
		name: name,
		off:  uintptr(unsafe.Pointer(slot(&s))) - uintptr(unsafe.Pointer(&s)),
	}
	signed := ^zero < 0
	switch {
	case signed && unsafe.Sizeof(zero) == 4:
		f.kind = kindInt32
	case signed:
		f.kind = kindInt64
	case unsafe.Sizeof(zero) == 4:
		f.kind = kindUint32
	default:
		f.kind = kindUint64
	}
	return f
}

func (f *statField) ptr(s *ProcessStat) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(s), f.off)
}

func (f *statField) parse(s *ProcessStat, tok string) error {
	p := f.ptr(s)
	switch f.kind {
	case kindInt32, kindInt64:
		bits := 64
		if f.kind == kindInt32 {
			bits = 32
		}
		v, err := parseInt(tok, bits)
		if err != nil {
			return numError(f.name, tok, err)
		}
		if f.kind == kindInt32 {
			*(*int32)(p) = int32(v)
		} else {
			*(*int64)(p) = v
		}
	default:
		bits := 64
		if f.kind == kindUint32 {
			bits = 32
		}
		v, err := strconv.ParseUint(tok, 10, bits)
		if err != nil {
			return numError(f.name, tok, err)
		}
		if f.kind == kindUint32 {
			*(*uint32)(p) = uint32(v)
		} else {
			*(*uint64)(p) = v
		}
	}
	return nil
}

func (f *statField) append(dst []byte, s *ProcessStat) []byte {
	p := f.ptr(s)
	switch f.kind {
	case kindInt32:
		return strconv.AppendInt(dst, int64(*(*int32)(p)), 10)
	case kindInt64:
		return strconv.AppendInt(dst, *(*int64)(p), 10)
	case kindUint32:
		return strconv.AppendUint(dst, uint64(*(*uint32)(p)), 10)
	default:
		return strconv.AppendUint(dst, *(*uint64)(p), 10)
	}
}

func (f *statField) value(s *ProcessStat) any {
	p := f.ptr(s)
	switch f.kind {
	case kindInt32:
		return *(*int32)(p)
	case kindInt64:
		return *(*int64)(p)
	case kindUint32:
		return *(*uint32)(p)
	default:
		return *(*uint64)(p)
	}
}

// parseInt is strconv.ParseInt without the leading '+', so signed and
// unsigned fields accept the same digits.
func parseInt(tok string, bits int) (int64, error) {
	if tok != "" && tok[0] == '+' {
		return 0, &strconv.NumError{Func: "ParseInt", Num: strings.Clone(tok), Err: strconv.ErrSyntax}
	}
	return strconv.ParseInt(tok, 10, bits)
}

func numError(name, tok string, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return badToken(name, ErrRange, tok, err)
	}
	return badToken(name, ErrMalformedInteger, tok, err)
}

var pidField = field("pid", func(s *ProcessStat) *int32 { return &s.PID })

// statSchema lists fields 4 through 52 in kernel order.
var statSchema = [...]statField{
	field("ppid", func(s *ProcessStat) *int32 { return &s.PPID }),
	field("pgrp", func(s *ProcessStat) *int32 { return &s.PGRP }),
	field("session", func(s *ProcessStat) *int32 { return &s.Session }),
	field("tty_nr", func(s *ProcessStat) *int32 { return &s.TTYNr }),
	field("tpgid", func(s *ProcessStat) *int32 { return &s.TPGID }),
	field("flags", func(s *ProcessStat) *uint32 { return &s.Flags }),
	field("minflt", func(s *ProcessStat) *uint64 { return &s.MinFlt }),
	field("cminflt", func(s *ProcessStat) *uint64 { return &s.CMinFlt }),
	field("majflt", func(s *ProcessStat) *uint64 { return &s.MajFlt }),
	field("cmajflt", func(s *ProcessStat) *uint64 { return &s.CMajFlt }),
	field("utime", func(s *ProcessStat) *uint64 { return &s.UTime }),
	field("stime", func(s *ProcessStat) *uint64 { return &s.STime }),
	field("cutime", func(s *ProcessStat) *int64 { return &s.CUTime }),
	field("cstime", func(s *ProcessStat) *int64 { return &s.CSTime }),
	field("priority", func(s *ProcessStat) *int64 { return &s.Priority }),
	field("nice", func(s *ProcessStat) *int64 { return &s.Nice }),
	field("num_threads", func(s *ProcessStat) *int64 { return &s.NumThreads }),
	field("itrealvalue", func(s *ProcessStat) *int64 { return &s.ItRealValue }),
	field("starttime", func(s *ProcessStat) *uint64 { return &s.StartTime }),
	field("vsize", func(s *ProcessStat) *uint64 { return &s.VSize }),
	field("rss", func(s *ProcessStat) *uint64 { return &s.RSS }),
	field("rsslim", func(s *ProcessStat) *uint64 { return &s.RSSLim }),
	field("startcode", func(s *ProcessStat) *uint64 { return &s.StartCode }),
	field("endcode", func(s *ProcessStat) *uint64 { return &s.EndCode }),
	field("startstack", func(s *ProcessStat) *uint64 { return &s.StartStack }),
	field("kstkesp", func(s *ProcessStat) *uint64 { return &s.KStkESP }),
	field("kstkeip", func(s *ProcessStat) *uint64 { return &s.KStkEIP }),
	field("signal", func(s *ProcessStat) *uint64 { return &s.Signal }),
	field("blocked", func(s *ProcessStat) *uint64 { return &s.Blocked }),
	field("sigignore", func(s *ProcessStat) *uint64 { return &s.SigIgnore }),
	field("sigcatch", func(s *ProcessStat) *uint64 { return &s.SigCatch }),
	field("wchan", func(s *ProcessStat) *uint64 { return &s.WChan }),
	field("nswap", func(s *ProcessStat) *uint64 { return &s.NSwap }),
	field("cnswap", func(s *ProcessStat) *uint64 { return &s.CNSwap }),
	field("exit_signal", func(s *ProcessStat) *int32 { return &s.ExitSignal }),
	field("processor", func(s *ProcessStat) *int32 { return &s.Processor }),
	field("rt_priority", func(s *ProcessStat) *uint32 { return &s.RTPriority }),
	field("policy", func(s *ProcessStat) *uint32 { return &s.Policy }),
	field("delayacct_blkio_ticks", func(s *ProcessStat) *uint64 { return &s.DelayAcctBlkIOTicks }),
	field("guest_time", func(s *ProcessStat) *uint64 { return &s.GuestTime }),
	field("cguest_time", func(s *ProcessStat) *int64 { return &s.CGuestTime }),
	field("start_data", func(s *ProcessStat) *uint64 { return &s.StartData }),
	field("end_data", func(s *ProcessStat) *uint64 { return &s.EndData }),
	field("start_brk", func(s *ProcessStat) *uint64 { return &s.StartBrk }),
	field("arg_start", func(s *ProcessStat) *uint64 { return &s.ArgStart }),
	field("arg_end", func(s *ProcessStat) *uint64 { return &s.ArgEnd }),
	field("env_start", func(s *ProcessStat) *uint64 { return &s.EnvStart }),
	field("env_end", func(s *ProcessStat) *uint64 { return &s.EnvEnd }),
	field("exit_code", func(s *ProcessStat) *int32 { return &s.ExitCode }),
}

var fieldNames, fieldIndex = func() ([]string, map[string]int) {
	names := []string{"pid", "comm", "state"}
	index := map[string]int{}
	for i, f := range statSchema {
		index[f.name] = i
		names = append(names, f.name)
	}
	return names, index
}()

// Fields returns the names of all stat fields in line order.
func Fields() []string {
	return append([]string(nil), fieldNames...)
}

// Value returns the field with the given schema name. Numeric fields keep
// their Go type; state is returned as its letter.
func (s ProcessStat) Value(name string) (any, bool) {
	switch name {
	case "pid":
		return s.PID, true
	case "comm":
		return s.Comm, true
	case "state":
		return s.State.Letter(), true
	}
	i, ok := fieldIndex[name]
	if !ok {
		return nil, false
	}
	return statSchema[i].value(&s), true
}

// Values returns every field keyed by schema name.
func (s ProcessStat) Values() map[string]any {
	m := make(map[string]any, len(fieldNames))
	for _, name := range fieldNames {
		m[name], _ = s.Value(name)
	}
	return m
}

// AppendLine appends s to dst in /proc/<pid>/stat format, without a newline.
func (s ProcessStat) AppendLine(dst []byte) []byte {
	dst = pidField.append(dst, &s)
	dst = append(dst, " ("...)
	dst = append(dst, s.Comm...)
	dst = append(dst, ") "...)
	dst = append(dst, s.State.Letter()...)
	for i := range statSchema {
		dst = append(dst, ' ')
		dst = statSchema[i].append(dst, &s)
	}
	return dst
}

func (s ProcessStat) String() string {
	return string(s.AppendLine(make([]byte, 0, 512)))
}
