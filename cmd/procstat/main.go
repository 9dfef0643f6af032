//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ja7ad/procstat/pkg/filter"
	"github.com/ja7ad/procstat/pkg/system/proc"
	"github.com/ja7ad/procstat/pkg/system/util"
)

type opts struct {
	// input
	root    string
	maxLine int
	tasks   []int
	jobs    int

	// selection
	filter string

	// output
	output  string
	fields  []string
	human   bool
	verbose bool
}

// target is one stat file to read; tid 0 means the process itself.
type target struct {
	pid int
	tid int
}

type result struct {
	target
	stat proc.ProcessStat
	err  error
}

func main() {
	var o opts

	cfg, err := proc.ConfigFromEnv()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "procstat [PID|PID..PID|self]...",
		Short: "Parse /proc/<pid>/stat into typed process records",
		Long: `procstat reads /proc/<pid>/stat for each PID, parses every field of the
line (including process names that contain spaces or parentheses) and prints
the records as a table, CSV, JSON or re-rendered stat lines.

A line that cannot be parsed is reported with the name of the field that
failed; processes that exited or cannot be read are reported separately.

Examples:
  procstat self
  procstat -o json 1 $(pidof sshd)
  procstat --fields pid,comm,state,num_threads,rss --human 30000..30032
  procstat --filter 'state == "R" || cpu_seconds > 60' 1..4096
  procstat --task 4312 --task 4313 4300`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), o, args)
		},
	}

	root.Flags().StringVar(&o.root, "root", cfg.Root, "procfs mount point (env PROCSTAT_ROOT)")
	root.Flags().IntVar(&o.maxLine, "max-line", cfg.MaxLineBytes, "longest stat line accepted, in bytes (env PROCSTAT_MAX_LINE)")
	root.Flags().IntSliceVar(&o.tasks, "task", nil, "read these thread ids of the single PID argument instead of the process")
	root.Flags().IntVarP(&o.jobs, "jobs", "j", 4, "number of stat files read concurrently")
	root.Flags().StringVar(&o.filter, "filter", "", `keep records matching this expression, e.g. 'state == "R" && num_threads > 4'`)
	root.Flags().StringVarP(&o.output, "output", "o", "table", "output format: table, csv, json or raw")
	root.Flags().StringSliceVar(&o.fields, "fields", defaultFields, `fields shown by table and csv output, or "all"`)
	root.Flags().BoolVar(&o.human, "human", false, "humanize sizes and tick counts in table output")
	root.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "log debug messages")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, o opts, args []string) error {
	if o.verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	pids, err := util.ParsePIDs(args)
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		return fmt.Errorf("no PIDs provided")
	}
	if len(o.tasks) > 0 && len(pids) != 1 {
		return fmt.Errorf("--task needs exactly one PID, got %d", len(pids))
	}
	if o.jobs <= 0 {
		return fmt.Errorf("jobs must be > 0")
	}

	render, err := newRenderer(o.output, o.fields, o.human)
	if err != nil {
		return err
	}

	var flt *filter.Filter
	if o.filter != "" {
		if flt, err = filter.Compile(o.filter); err != nil {
			return err
		}
	}

	reader := proc.NewStatReader(proc.Config{Root: o.root, MaxLineBytes: o.maxLine})
	slog.Debug("reading stat", "root", reader.Config().Root, "max_line", reader.Config().MaxLineBytes,
		"pids", len(pids), "tasks", len(o.tasks))

	targets := make([]target, 0, len(pids)+len(o.tasks))
	if len(o.tasks) > 0 {
		for _, tid := range o.tasks {
			targets = append(targets, target{pid: pids[0], tid: tid})
		}
	} else {
		for _, pid := range pids {
			targets = append(targets, target{pid: pid})
		}
	}

	// Ctrl-C handling
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := collect(ctx, reader, targets, o.jobs)
	if err != nil {
		return err
	}

	var (
		rows      = make([]proc.ProcessStat, 0, len(results))
		parseErrs int
		readErrs  int
	)
	for _, r := range results {
		switch {
		case r.err == nil:
		case proc.IsParseError(r.err):
			slog.Error("parse stat", "pid", r.pid, "tid", r.tid, "err", r.err)
			parseErrs++
			continue
		case errors.Is(r.err, proc.ErrNoProcess):
			slog.Warn("process gone", "pid", r.pid, "tid", r.tid)
			readErrs++
			continue
		default:
			slog.Warn("read stat", "pid", r.pid, "tid", r.tid, "err", r.err)
			readErrs++
			continue
		}

		ok, err := flt.Match(r.stat)
		if err != nil {
			slog.Warn("filter", "pid", r.pid, "err", err)
			continue
		}
		if !ok {
			slog.Debug("filtered out", "pid", r.pid, "tid", r.tid)
			continue
		}
		rows = append(rows, r.stat)
	}

	if err := render(w, rows); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if parseErrs > 0 {
		return fmt.Errorf("%d of %d stat lines failed to parse", parseErrs, len(results))
	}
	if len(rows) == 0 && readErrs > 0 {
		return fmt.Errorf("none of %d stat files could be read", len(results))
	}
	return nil
}

// collect reads every target with at most jobs concurrent reads. Each
// goroutine writes only its own slot, so results keep argument order.
func collect(ctx context.Context, r *proc.StatReader, targets []target, jobs int) ([]result, error) {
	results := make([]result, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, tg := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i].target = tg
			if tg.tid > 0 {
				results[i].stat, results[i].err = r.ReadTaskStat(tg.pid, tg.tid)
			} else {
				results[i].stat, results[i].err = r.ReadStat(tg.pid)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
