package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"sync"

	"github.com/KaramelBytes/segmenta-cli/internal/parser"
	"github.com/KaramelBytes/segmenta-cli/internal/pipeline"
	"github.com/KaramelBytes/segmenta-cli/internal/runstore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	cbTable    tableFlags
	cbMaxK     int
	cbSeed     int64
	cbMinRows  int
	cbJobs     int
	cbFailFast bool
	cbCharts   bool
	cbNoSave   bool
	cbQuiet    bool
)

type batchOutcome struct {
	path string
	res  *pipeline.Result
	run  *runstore.Run
	err  error
}

var clusterBatchCmd = &cobra.Command{
	Use:   "cluster-batch <files...>",
	Short: "Segment multiple CSV/TSV/XLSX files concurrently and store each run",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := clusterOptions(cmd, &cbTable, cbMaxK, cbSeed, cbMinRows)
		if err != nil {
			return err
		}
		var store *runstore.Store
		if !cbNoSave {
			if store, err = runStore(); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		charts := cbCharts || (cfg != nil && cfg.Charts)

		tracker := runstore.NewTracker()
		for _, f := range files {
			tracker.Queue(f)
		}
		var stopPrinter func()
		if !cbQuiet {
			updates, stop := tracker.Subscribe(256)
			var printer sync.WaitGroup
			printer.Add(1)
			go func() {
				defer printer.Done()
				printStatuses(cmd.ErrOrStderr(), updates, len(files), tracker.Snapshot)
			}()
			stopPrinter = func() {
				stop()
				printer.Wait()
			}
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		var g *errgroup.Group
		if cbFailFast {
			g, ctx = errgroup.WithContext(ctx)
		} else {
			g = &errgroup.Group{}
		}
		jobs := cbJobs
		if jobs < 1 {
			jobs = 1
		}
		g.SetLimit(jobs)

		outcomes := make([]batchOutcome, len(files))
		for i, path := range files {
			g.Go(func() error {
				jobOpt := opt
				jobOpt.Progress = tracker.Callback(path)
				job := clusterJob{path: path, table: &cbTable, opt: jobOpt, store: store, charts: charts}
				res, run, err := job.run(ctx)
				tracker.Finish(path, err)
				outcomes[i] = batchOutcome{path: path, res: res, run: run, err: err}
				if err != nil {
					logger.Warn("batch file failed", zap.String("file", path), zap.Error(err))
					if cbFailFast {
						return err
					}
				}
				return nil
			})
		}
		waitErr := g.Wait()
		if stopPrinter != nil {
			stopPrinter()
		}

		failed := 0
		for _, o := range outcomes {
			switch {
			case o.err != nil:
				failed++
				fmt.Fprintf(out, "✗ %s: %v\n", o.path, o.err)
			case o.run != nil:
				fmt.Fprintf(out, "✓ %s: k=%d silhouette=%.3f run %s\n", o.path, o.res.K, o.res.Metrics.Silhouette, o.run.ShortID())
			default:
				fmt.Fprintf(out, "✓ %s: k=%d silhouette=%.3f\n", o.path, o.res.K, o.res.Metrics.Silhouette)
			}
		}
		if waitErr != nil {
			return waitErr
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterBatchCmd)
	f := clusterBatchCmd.Flags()
	addTableFlags(clusterBatchCmd, &cbTable)
	f.IntVar(&cbMaxK, "max-k", 0, "upper bound for k before row caps apply (default from config, 10)")
	f.Int64Var(&cbSeed, "seed", 0, "random seed for k-means++ (default from config, 42)")
	f.IntVar(&cbMinRows, "min-rows", 0, "minimum rows required after cleaning (default from config, 10)")
	f.IntVarP(&cbJobs, "jobs", "j", 4, "number of files processed concurrently")
	f.BoolVar(&cbFailFast, "fail-fast", false, "stop scheduling files after the first failure")
	f.BoolVar(&cbCharts, "charts", false, "write elbow and scatter HTML charts for each run")
	f.BoolVar(&cbNoSave, "no-save", false, "do not store runs under the runs directory")
	f.BoolVarP(&cbQuiet, "quiet", "q", false, "suppress per-file status lines")
}

// expandInputs resolves globs, keeps literal paths that exist, drops
// duplicates and unsupported extensions, and sorts the result.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 && fileExists(arg) {
			// treat as literal path if exists
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok || !parser.CanParse(m) {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// printStatuses prints a line whenever a file changes stage or state. The
// tracker drops updates for a full buffer, so once updates closes any final
// state missing from the stream is printed from final.
func printStatuses(w io.Writer, updates <-chan runstore.Status, total int, final func() []runstore.Status) {
	last := map[string]string{}
	done := 0
	emit := func(st runstore.Status) {
		key := string(st.State) + "/" + st.Stage
		if last[st.Key] == key {
			return
		}
		last[st.Key] = key
		switch st.State {
		case runstore.StateRunning:
			fmt.Fprintf(w, "[%d/%d] %s: %s (%d%%)\n", done, total, filepath.Base(st.Key), st.Stage, st.Percent)
		case runstore.StateDone, runstore.StateFailed:
			done++
			fmt.Fprintf(w, "[%d/%d] %s: %s\n", done, total, filepath.Base(st.Key), st.State)
		}
	}
	for st := range updates {
		emit(st)
	}
	for _, st := range final() {
		if st.State == runstore.StateDone || st.State == runstore.StateFailed {
			emit(st)
		}
	}
}
