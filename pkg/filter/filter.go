// Package filter selects process records with expr-lang expressions such as
//
//	state == "R" && num_threads > 4
//	comm startsWith "kworker" || cpu_seconds > 60
//
// Every stat field is available under its schema name (see proc.Fields),
// state as its one-letter code. Three derived values are added:
// cpu_seconds (utime+stime), rss_bytes and state_name.
package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ja7ad/procstat/pkg/system/proc"
)

// Filter is a compiled expression. A nil *Filter matches everything.
type Filter struct {
	src      string
	program  *vm.Program
	clk      int
	pageSize int
}

// Compile type-checks src against the record fields once; the expression
// must evaluate to a boolean.
func Compile(src string) (*Filter, error) {
	f := &Filter{src: src, clk: proc.ClockTicks(), pageSize: proc.PageSize()}
	program, err := expr.Compile(src, expr.Env(f.env(proc.ProcessStat{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("filter: compile %q: %w", src, err)
	}
	f.program = program
	return f, nil
}

// Match reports whether s satisfies the expression.
func (f *Filter) Match(s proc.ProcessStat) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, f.env(s))
	if err != nil {
		return false, fmt.Errorf("filter: pid %d: %w", s.PID, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}

func (f *Filter) env(s proc.ProcessStat) map[string]any {
	env := s.Values()
	env["cpu_seconds"] = s.CPUTime(f.clk).Seconds()
	env["rss_bytes"] = s.RSSBytes(f.pageSize).Uint64()
	env["state_name"] = s.State.String()
	return env
}
