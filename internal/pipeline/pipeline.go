package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/segmenta-cli/internal/insights"
	"github.com/KaramelBytes/segmenta-cli/internal/kmeans"
	"github.com/KaramelBytes/segmenta-cli/internal/metrics"
	"github.com/KaramelBytes/segmenta-cli/internal/preprocess"
	"github.com/KaramelBytes/segmenta-cli/internal/progress"
	"github.com/KaramelBytes/segmenta-cli/internal/selection"
	"github.com/KaramelBytes/segmenta-cli/internal/table"
	"go.uber.org/zap"
)

// Stage names reported through the progress callback.
const (
	StagePreprocessing = "preprocessing"
	StageClustering    = "clustering"
	StageFitting       = "fitting"
	StageEvaluation    = "evaluation"
	StageInsights      = "insights"
	StageComplete      = "complete"
)

// ClusterColumn is appended to the clustered rows.
const ClusterColumn = "Cluster"

// Options configures a run. The zero value of each nested option falls back
// to its package default.
type Options struct {
	MinRows      int
	Preprocess   preprocess.Options
	Selection    selection.Options
	Fit          kmeans.Config
	RefitInertia bool
	Concepts     insights.Concepts
	Progress     progress.Func
	Logger       *zap.Logger
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		MinRows:    10,
		Preprocess: preprocess.DefaultOptions(),
		Selection:  selection.DefaultOptions(),
		Fit:        kmeans.DefaultConfig(),
		Concepts:   insights.DefaultConcepts(),
	}
}

// Result is everything a run produces.
type Result struct {
	K          int                     `json:"k" yaml:"k"`
	Clustered  *table.Raw              `json:"-" yaml:"-"`
	Labels     []int                   `json:"labels" yaml:"labels"`
	Centroids  [][]float64             `json:"centroids" yaml:"centroids"`
	Metrics    metrics.Evaluation      `json:"metrics" yaml:"metrics"`
	Selection  *selection.Result       `json:"selection" yaml:"selection"`
	Insights   *insights.Insights      `json:"insights" yaml:"insights"`
	Scaler     preprocess.ScalerParams `json:"scaler" yaml:"scaler"`
	Stats      preprocess.Stats        `json:"preprocessing" yaml:"preprocessing"`
	Converged  bool                    `json:"converged" yaml:"converged"`
	Iterations int                     `json:"iterations" yaml:"iterations"`
	Duration   time.Duration           `json:"duration" yaml:"duration"`

	// Cleaned and Scaled are kept for charting and profiling.
	Cleaned *preprocess.Cleaned `json:"-" yaml:"-"`
	Scaled  *preprocess.Scaled  `json:"-" yaml:"-"`
}

// Run executes clean, validate, scale, select, fit, evaluate and insights on
// raw. ctx is only checked between stages.
func Run(ctx context.Context, raw *table.Raw, opt Options) (*Result, error) {
	start := time.Now()
	opt = withDefaults(opt)
	log := opt.Logger
	report := progress.Monotonic(opt.Progress)

	report(StagePreprocessing, 0, "Cleaning data")
	ppOpt := opt.Preprocess
	ppOpt.Logger = log
	cleaned, stats, err := preprocess.ClassifyAndClean(raw, ppOpt)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	if err := preprocess.Validate(cleaned, opt.MinRows); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	report(StagePreprocessing, 20, fmt.Sprintf("Cleaned data: %d rows, %d columns", cleaned.Len(), cleaned.Dim()))
	scaled, params, err := preprocess.FitScale(cleaned)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	report(StagePreprocessing, 30, "Standardized features")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selOpt := opt.Selection
	selOpt.Logger = log
	selOpt.Progress = progress.Band(report, 30, 75)
	sel, err := selection.SelectK(scaled.Data, selOpt)
	if err != nil {
		return nil, fmt.Errorf("select k: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(StageFitting, 75, fmt.Sprintf("Fitting k-means with k=%d", sel.OptimalK))
	fit, err := kmeans.Fit(scaled.Data, sel.OptimalK, opt.Fit)
	if err != nil {
		return nil, fmt.Errorf("fit k=%d: %w", sel.OptimalK, err)
	}
	if !fit.Converged {
		log.Debug("k-means hit the iteration limit", zap.Int("iterations", fit.Iterations))
	}
	report(StageFitting, 85, "Fitted final model")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ev := metrics.Evaluate(scaled.Data, fit.Labels, metrics.Options{
		RefitInertia: opt.RefitInertia,
		K:            sel.OptimalK,
		Fit:          opt.Fit,
		Logger:       log,
	})
	report(StageEvaluation, 90, "Evaluated clustering")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ins, err := insights.Generate(cleaned, fit.Labels, sel.OptimalK, ev, opt.Concepts)
	if err != nil {
		return nil, fmt.Errorf("insights: %w", err)
	}
	report(StageInsights, 98, "Generated insights")

	res := &Result{
		K:          sel.OptimalK,
		Clustered:  clusteredRows(raw, cleaned.RowIndex, fit.Labels),
		Labels:     fit.Labels,
		Centroids:  fit.Centroids,
		Metrics:    ev,
		Selection:  sel,
		Insights:   ins,
		Scaler:     params,
		Stats:      stats,
		Converged:  fit.Converged,
		Iterations: fit.Iterations,
		Cleaned:    cleaned,
		Scaled:     scaled,
	}
	res.Duration = time.Since(start)
	report(StageComplete, 100, "Analysis complete")
	log.Info("pipeline finished",
		zap.String("table", raw.Name),
		zap.Int("rows", cleaned.Len()),
		zap.Int("k", res.K),
		zap.Float64("silhouette", ev.Silhouette),
		zap.Duration("took", res.Duration))
	return res, nil
}

func withDefaults(opt Options) Options {
	def := DefaultOptions()
	if opt.MinRows <= 0 {
		opt.MinRows = def.MinRows
	}
	if opt.Selection.MaxK <= 0 {
		opt.Selection.MaxK = def.Selection.MaxK
	}
	if opt.Selection.InertiaFit.NInit <= 0 {
		opt.Selection.InertiaFit = def.Selection.InertiaFit
	}
	if opt.Selection.SilhouetteFit.NInit <= 0 {
		opt.Selection.SilhouetteFit = def.Selection.SilhouetteFit
	}
	if opt.Fit.NInit <= 0 {
		opt.Fit = def.Fit
	}
	if opt.Concepts.Price == nil && opt.Concepts.Sold == nil && opt.Concepts.Rating == nil {
		opt.Concepts = def.Concepts
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return opt
}

// clusteredRows returns the raw rows that survived cleaning, in order, with
// their cluster appended.
func clusteredRows(raw *table.Raw, rowIndex []int, labels []int) *table.Raw {
	out := &table.Raw{Name: raw.Name, Columns: make([]table.Column, 0, len(raw.Columns)+1)}
	for _, c := range raw.Columns {
		vals := make([]any, len(rowIndex))
		for i, r := range rowIndex {
			vals[i] = c.Values[r]
		}
		out.Columns = append(out.Columns, table.Column{Name: c.Name, Values: vals})
	}
	cl := make([]any, len(labels))
	for i, l := range labels {
		cl[i] = l
	}
	name := ClusterColumn
	for out.Index(name) >= 0 {
		name = "_" + name
	}
	out.Columns = append(out.Columns, table.Column{Name: name, Values: cl})
	return out
}
