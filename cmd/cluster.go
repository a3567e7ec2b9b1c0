package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/chart"
	"github.com/KaramelBytes/segmenta-cli/internal/pipeline"
	"github.com/KaramelBytes/segmenta-cli/internal/progress"
	"github.com/KaramelBytes/segmenta-cli/internal/report"
	"github.com/KaramelBytes/segmenta-cli/internal/runstore"
	"github.com/KaramelBytes/segmenta-cli/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	clTable   tableFlags
	clMaxK    int
	clSeed    int64
	clMinRows int
	clOutput  string
	clCharts  bool
	clNoSave  bool
	clFormat  string
	clQuiet   bool
)

var clusterCmd = &cobra.Command{
	Use:   "cluster <file>",
	Short: "Segment a CSV/TSV/XLSX table with K-Means and explain the clusters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		opt, err := clusterOptions(cmd, &clTable, clMaxK, clSeed, clMinRows)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var finish func()
		if !clQuiet {
			opt.Progress, finish = newProgressBar(cmd.ErrOrStderr(), filepath.Base(path))
		}
		job := clusterJob{
			path:   path,
			table:  &clTable,
			opt:    opt,
			charts: clCharts || (cfg != nil && cfg.Charts),
		}
		if !clNoSave {
			store, err := runStore()
			if err != nil {
				return err
			}
			job.store = store
		}
		res, run, err := job.run(cmd.Context())
		if finish != nil {
			finish()
		}
		if err != nil {
			return err
		}

		if clOutput != "" {
			if err := utils.SafeWriteFile(clOutput, []byte(report.Markdown(res))); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if !clQuiet {
				fmt.Fprintf(out, "✓ Wrote report to %s\n", clOutput)
			}
		}
		if err := report.Write(out, res, clFormat); err != nil {
			return err
		}
		if clQuiet {
			return nil
		}
		for _, c := range job.chartPaths {
			fmt.Fprintf(out, "✓ Wrote chart %s\n", c)
		}
		if run != nil {
			fmt.Fprintf(out, "✓ Saved run %s (%s)\n", run.ShortID(), run.Dir())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	f := clusterCmd.Flags()
	addTableFlags(clusterCmd, &clTable)
	f.IntVar(&clMaxK, "max-k", 0, "upper bound for k before row caps apply (default from config, 10)")
	f.Int64Var(&clSeed, "seed", 0, "random seed for k-means++ (default from config, 42)")
	f.IntVar(&clMinRows, "min-rows", 0, "minimum rows required after cleaning (default from config, 10)")
	f.StringVarP(&clOutput, "output", "o", "", "optional path to write the Markdown report")
	f.BoolVar(&clCharts, "charts", false, "write elbow and scatter HTML charts")
	f.BoolVar(&clNoSave, "no-save", false, "do not store the run under the runs directory")
	f.StringVar(&clFormat, "format", report.FormatText, "stdout format: "+strings.Join(report.Formats(), "|"))
	f.BoolVarP(&clQuiet, "quiet", "q", false, "suppress progress and status lines")
}

func addTableFlags(c *cobra.Command, tf *tableFlags) {
	f := c.Flags()
	f.StringVar(&tf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (sniffed if omitted)")
	f.StringVar(&tf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&tf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.StringVar(&tf.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	f.IntVar(&tf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.IntVar(&tf.maxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
}

// clusterOptions merges config and command flags into pipeline options.
func clusterOptions(cmd *cobra.Command, tf *tableFlags, maxK int, seed int64, minRows int) (pipeline.Options, error) {
	opt := pipelineOptions()
	nf, err := tf.numberFormat()
	if err != nil {
		return opt, err
	}
	opt.Preprocess.Number = nf
	f := cmd.Flags()
	if f.Changed("max-k") {
		if maxK < 2 {
			return opt, fmt.Errorf("--max-k must be at least 2, got %d", maxK)
		}
		opt.Selection.MaxK = maxK
	}
	if f.Changed("seed") {
		opt = withSeed(opt, seed)
	}
	if f.Changed("min-rows") {
		if minRows < 1 {
			return opt, fmt.Errorf("--min-rows must be positive, got %d", minRows)
		}
		opt.MinRows = minRows
	}
	return opt, nil
}

// clusterJob runs one file through the pipeline and optionally stores it.
// Each job loads its own table, so jobs can run concurrently.
type clusterJob struct {
	path   string
	table  *tableFlags
	opt    pipeline.Options
	store  *runstore.Store
	charts bool

	chartPaths []string
}

func (j *clusterJob) run(ctx context.Context) (*pipeline.Result, *runstore.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	raw, err := j.table.load(j.path)
	if err != nil {
		return nil, nil, err
	}
	if j.opt.Progress == nil {
		j.opt.Progress = progress.Nop
	}
	res, err := pipeline.Run(ctx, raw, j.opt)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(j.path), err)
	}

	var run *runstore.Run
	chartDir, prefix := ".", utils.Slug(strings.TrimSuffix(filepath.Base(j.path), filepath.Ext(j.path)), "table")+"_"
	if j.store != nil {
		run = runstore.NewRun(j.path, res)
		run.Sheet = j.table.sheetName
		chartDir, prefix = filepath.Join(j.store.Dir(), run.ID), ""
	}
	if j.charts {
		paths, err := writeCharts(chartDir, prefix, res, run == nil)
		if err != nil {
			return nil, nil, err
		}
		j.chartPaths = paths
		if run != nil {
			run.Charts = paths
		}
	}
	if run != nil {
		if err := j.store.Save(run); err != nil {
			return nil, nil, fmt.Errorf("save run: %w", err)
		}
		j.opt.Logger.Debug("run saved", zap.String("id", run.ID), zap.String("dir", run.Dir()))
	}
	return res, run, nil
}

func writeCharts(dir, prefix string, res *pipeline.Result, unique bool) ([]string, error) {
	target := func(name string) string {
		p := filepath.Join(dir, prefix+name)
		if unique {
			p = utils.UniquePath(p)
		}
		return p
	}
	elbow, err := chart.WriteElbow(target("elbow.html"), res.Selection)
	if err != nil {
		return nil, fmt.Errorf("elbow chart: %w", err)
	}
	scatter, err := chart.WriteScatter(target("clusters.html"), res.Scaled.Data, res.Labels, res.Centroids, res.Scaled.Columns)
	if err != nil {
		return nil, fmt.Errorf("scatter chart: %w", err)
	}
	return []string{elbow, scatter}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
