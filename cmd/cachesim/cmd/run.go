package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/xid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/sarchlab/avdcache/datarecording"
	"github.com/sarchlab/avdcache/mem/cache"
	"github.com/sarchlab/avdcache/mem/cache/hierarchy"
	"github.com/sarchlab/avdcache/mem/trace"
	"github.com/sarchlab/avdcache/monitoring"
	"github.com/sarchlab/avdcache/sim/hooking"
)

const stdinTrace = "-"

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [trace files...]",
		Short: "Replay memory traces through a two-level cache hierarchy.",
		Long: `Replay memory traces through a two-level cache hierarchy. ` +
			`Each line of a trace is "R <address>" or "W <address>". ` +
			`Without trace files, or with "-", the trace is read from ` +
			`standard input. Each trace gets its own hierarchy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				args = []string{stdinTrace}
			}

			r := &runner{
				config: c,
				stdin:  cmd.InOrStdin(),
				stdout: cmd.OutOrStdout(),
				logger: slog.Default(),
			}

			return r.run(cmd.Context(), args)
		},
	}

	addGeometryFlags(cmd)
	addRunFlags(cmd)

	return cmd
}

// A replay is one trace and the hierarchy it runs on.
type replay struct {
	runID  string
	path   string
	h      *hierarchy.TwoLevel
	agg    *hierarchy.Aggregator
	events *hooking.CountHook
	lock   sync.Locker
	bar    *monitoring.ProgressBar
}

// destroy releases the hierarchy. It holds the replay lock so that the
// monitor never reads a cache while it is torn down.
func (rp *replay) destroy() {
	rp.lock.Lock()
	defer rp.lock.Unlock()

	rp.h.Destroy()
}

type runner struct {
	config   Config
	stdin    io.Reader
	stdout   io.Writer
	logger   *slog.Logger
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
}

func (r *runner) run(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if r.config.Record != "" {
		r.recorder = datarecording.New(r.config.Record)
		defer r.recorder.Close()
	}

	var monitorLock sync.Locker
	if r.config.Monitor {
		monitorLock = &sync.Mutex{}
		r.monitor = monitoring.NewMonitor().
			WithPortNumber(r.config.MonitorPort).
			WithLocker(monitorLock)

		if r.config.MonitorOpen {
			r.monitor.WithOpenBrowser()
		}
	}

	replays := make([]*replay, 0, len(paths))
	defer func() {
		for _, rp := range replays {
			rp.destroy()
		}
	}()

	names := uniqueNames(paths)
	for i, path := range paths {
		rp, err := r.newReplay(names[i], path, monitorLock)
		if err != nil {
			return err
		}

		replays = append(replays, rp)
	}

	if r.monitor != nil {
		r.monitor.StartServer()
	}

	if err := r.replayAll(ctx, replays); err != nil {
		return err
	}

	if err := r.writeReport(replays); err != nil {
		return err
	}

	r.recordStatistics(replays)
	r.printSummary(replays)

	return nil
}

func uniqueNames(paths []string) []string {
	names := make([]string, len(paths))
	seen := make(map[string]int)

	for i, path := range paths {
		name := filepath.Base(path)
		if path == stdinTrace {
			name = "stdin"
		}

		seen[name]++
		if seen[name] > 1 {
			name = fmt.Sprintf("%s-%d", name, seen[name])
		}

		names[i] = name
	}

	return names
}

func (r *runner) newReplay(
	name, path string,
	lock sync.Locker,
) (*replay, error) {
	h, err := hierarchy.MakeBuilder().
		WithL1(r.config.L1Builder()).
		WithL2(r.config.L2Builder()).
		Build(name)
	if err != nil {
		return nil, err
	}

	if lock == nil {
		lock = &sync.Mutex{}
	}

	rp := &replay{
		runID:  xid.New().String(),
		path:   path,
		h:      h,
		agg:    hierarchy.NewAggregator(),
		events: hooking.NewCountHook(),
		lock:   lock,
	}

	h.AcceptHook(rp.agg)
	r.attachCacheHooks(rp, h.L1())
	r.attachCacheHooks(rp, h.L2())

	if r.monitor != nil {
		r.monitor.RegisterHierarchy(h, rp.agg)
		rp.bar = r.monitor.CreateProgressBar(name, traceSize(path))
	}

	r.logger.Info("hierarchy created",
		"trace", path,
		"run", rp.runID,
		"l1", h.L1().Geometry(),
		"l2", h.L2().Geometry(),
		"policy", h.L1().Policy())

	return rp, nil
}

// traceSize returns the size of a trace file in bytes, or 0 when it is not
// known up front.
func traceSize(path string) uint64 {
	if path == stdinTrace {
		return 0
	}

	info, err := appFs.Stat(path)
	if err != nil || info.Size() < 0 {
		return 0
	}

	return uint64(info.Size())
}

func (r *runner) attachCacheHooks(rp *replay, c *cache.Cache) {
	c.AcceptHook(rp.events)
	c.AcceptHook(hooking.NewLogHook(r.logger).
		WithLevel(cache.HookPosLifecycle, slog.LevelInfo))

	if r.config.LogAccesses {
		c.AcceptHook(trace.NewTracer(
			slog.NewLogLogger(r.logger.Handler(), slog.LevelInfo)))
	}

	if r.config.RecordAccesses {
		c.AcceptHook(trace.NewDBTracer(r.recorder))
	}
}

func (r *runner) replayAll(ctx context.Context, replays []*replay) error {
	jobs := r.config.Jobs
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(jobs)
	for _, rp := range replays {
		p.Go(func(ctx context.Context) error {
			return r.replayOne(ctx, rp)
		})
	}

	return p.Wait()
}

func (r *runner) openTrace(path string) (*trace.Reader, io.Closer, error) {
	if path == stdinTrace {
		return trace.NewReader(r.stdin), io.NopCloser(nil), nil
	}

	return trace.Open(appFs, path)
}

func (r *runner) replayOne(ctx context.Context, rp *replay) error {
	reader, closer, err := r.openTrace(rp.path)
	if err != nil {
		return err
	}
	defer closer.Close()

	var reported uint64
	err = reader.ForEach(func(ref trace.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		rp.lock.Lock()
		rp.h.Access(ref.Address, ref.Type)
		rp.lock.Unlock()

		if rp.bar != nil {
			offset := reader.Offset()
			rp.bar.IncrementFinished(offset - reported)
			reported = offset
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("replaying %s: %w", rp.path, err)
	}

	if rp.bar != nil {
		rp.bar.IncrementFinished(reader.Offset() - reported)
		r.monitor.CompleteProgressBar(rp.bar)
	}

	args := []any{"trace", rp.path}
	for _, name := range rp.events.PosNames() {
		args = append(args, name, rp.events.Count(name))
	}

	r.logger.Info("trace replayed", args...)

	return nil
}

func (r *runner) writeReport(replays []*replay) (err error) {
	f, err := appFs.Create(r.config.Output)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}

	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	for _, rp := range replays {
		if len(replays) > 1 {
			if _, err := fmt.Fprintf(f, "Trace %s:\n", rp.path); err != nil {
				return err
			}
		}

		if err := writeLevels(f, rp); err != nil {
			return err
		}
	}

	return nil
}

func writeLevels(w io.Writer, rp *replay) error {
	levels := []struct {
		title string
		stats cache.Statistics
	}{
		{"L1 Cache", rp.h.L1().Stats()},
		{"L2 Cache", rp.h.L2().Stats()},
		{"2 Level Cache", rp.agg.Stats()},
	}

	for _, l := range levels {
		if err := cache.WriteReport(w, l.title, l.stats); err != nil {
			return err
		}
	}

	return nil
}

func (r *runner) recordStatistics(replays []*replay) {
	if r.recorder == nil {
		return
	}

	for _, rp := range replays {
		datarecording.RecordStatistics(r.recorder, rp.runID, "L1",
			rp.h.L1().Stats())
		datarecording.RecordStatistics(r.recorder, rp.runID, "L2",
			rp.h.L2().Stats())
		datarecording.RecordStatistics(r.recorder, rp.runID, "2 Level",
			rp.agg.Stats())
	}

	r.recorder.Flush()
}

func (r *runner) printSummary(replays []*replay) {
	header := color.New(color.FgCyan, color.Bold)

	for _, rp := range replays {
		header.Fprintf(r.stdout, "%s\n", rp.path)

		for _, l := range []struct {
			title string
			stats cache.Statistics
		}{
			{"L1", rp.h.L1().Stats()},
			{"L2", rp.h.L2().Stats()},
			{"2 Level", rp.agg.Stats()},
		} {
			fmt.Fprintf(r.stdout, "  %-8s %s\n", l.title, missRatio(l.stats))
		}
	}

	fmt.Fprintf(r.stdout, "Report written to %s\n", r.config.Output)
}

func missRatio(s cache.Statistics) string {
	ratio, ok := s.MissRatio()
	if !ok {
		return "no accesses"
	}

	return fmt.Sprintf("%.6g%% of %d accesses missed", ratio, s.Accesses())
}
