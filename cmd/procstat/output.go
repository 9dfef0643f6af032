//go:build linux

package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/ja7ad/procstat/pkg/system/proc"
	"github.com/ja7ad/procstat/pkg/types"
)

var defaultFields = []string{"pid", "comm", "state", "ppid", "num_threads", "utime", "stime", "vsize", "rss"}

type renderer func(w io.Writer, rows []proc.ProcessStat) error

func newRenderer(format string, fields []string, human bool) (renderer, error) {
	fields, err := resolveFields(fields)
	if err != nil {
		return nil, err
	}

	switch format {
	case "table":
		return func(w io.Writer, rows []proc.ProcessStat) error {
			return writeTable(w, rows, fields, human)
		}, nil
	case "csv":
		return func(w io.Writer, rows []proc.ProcessStat) error {
			return writeCSV(w, rows, fields)
		}, nil
	case "json":
		return writeJSON, nil
	case "raw":
		return writeRaw, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, csv, json or raw)", format)
	}
}

func resolveFields(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return defaultFields, nil
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.TrimSpace(strings.ToLower(f)))
	}
	if len(out) == 1 && out[0] == "all" {
		return proc.Fields(), nil
	}
	known := proc.Fields()
	for _, f := range out {
		if !slices.Contains(known, f) {
			return nil, fmt.Errorf("unknown field %q", f)
		}
	}
	return out, nil
}

func writeTable(w io.Writer, rows []proc.ProcessStat, fields []string, human bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := make([]string, len(fields))
	rule := make([]string, len(fields))
	for i, f := range fields {
		header[i] = strings.ToUpper(f)
		rule[i] = strings.Repeat("-", len(f))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	clk, pageSize := proc.ClockTicks(), proc.PageSize()
	cells := make([]string, len(fields))
	for _, s := range rows {
		for i, f := range fields {
			cells[i] = cell(s, f, human, clk, pageSize)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, rows []proc.ProcessStat, fields []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return err
	}
	rec := make([]string, len(fields))
	for _, s := range rows {
		for i, f := range fields {
			rec[i] = cell(s, f, false, 0, 0)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, rows []proc.ProcessStat) error {
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func writeRaw(w io.Writer, rows []proc.ProcessStat) error {
	buf := make([]byte, 0, 512)
	for _, s := range rows {
		buf = s.AppendLine(buf[:0])
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// cell renders one field; human turns sizes into units and ticks into durations.
func cell(s proc.ProcessStat, field string, human bool, clk, pageSize int) string {
	if human {
		switch field {
		case "vsize":
			return s.VSizeBytes().Humanized()
		case "rss":
			return s.RSSBytes(pageSize).Humanized()
		case "rsslim":
			if s.RSSLim == math.MaxUint64 {
				return "unlimited"
			}
			return types.ToBytes(s.RSSLim).Humanized()
		case "utime":
			return proc.ProcessStat{UTime: s.UTime}.CPUTime(clk).String()
		case "stime":
			return proc.ProcessStat{STime: s.STime}.CPUTime(clk).String()
		case "starttime":
			return s.StartedAfterBoot(clk).String()
		}
	}
	v, _ := s.Value(field)
	return fmt.Sprint(v)
}
