// Package runstore persists clustering runs on disk and tracks the status of
// runs in flight.
package runstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/KaramelBytes/segmenta-cli/internal/insights"
	"github.com/KaramelBytes/segmenta-cli/internal/metrics"
	"github.com/KaramelBytes/segmenta-cli/internal/pipeline"
	"github.com/KaramelBytes/segmenta-cli/internal/preprocess"
	"github.com/KaramelBytes/segmenta-cli/internal/selection"
	"github.com/KaramelBytes/segmenta-cli/internal/table"
	"github.com/google/uuid"
)

const (
	runFileName       = "run.json"
	clusteredFileName = "clustered.csv"
)

// Run is one stored clustering result.
type Run struct {
	ID         string                  `json:"id"`
	Source     string                  `json:"source"`
	Name       string                  `json:"name"`
	Sheet      string                  `json:"sheet,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
	Duration   time.Duration           `json:"duration"`
	K          int                     `json:"k"`
	Metrics    metrics.Evaluation      `json:"metrics"`
	Selection  *selection.Result       `json:"selection"`
	Insights   *insights.Insights      `json:"insights"`
	Stats      preprocess.Stats        `json:"preprocessing"`
	Scaler     preprocess.ScalerParams `json:"scaler"`
	Centroids  [][]float64             `json:"centroids"`
	Converged  bool                    `json:"converged"`
	Iterations int                     `json:"iterations"`
	Charts     []string                `json:"charts,omitempty"`

	rows *table.Raw
	dir  string
}

// NewRun captures a pipeline result for storage under a fresh id.
func NewRun(source string, res *pipeline.Result) *Run {
	return &Run{
		ID:         uuid.NewString(),
		Source:     source,
		Name:       filepath.Base(source),
		CreatedAt:  time.Now(),
		Duration:   res.Duration,
		K:          res.K,
		Metrics:    res.Metrics,
		Selection:  res.Selection,
		Insights:   res.Insights,
		Stats:      res.Stats,
		Scaler:     res.Scaler,
		Centroids:  res.Centroids,
		Converged:  res.Converged,
		Iterations: res.Iterations,
		rows:       res.Clustered,
	}
}

// Result rebuilds the parts of a pipeline result the reports need. Labels
// and the cleaned/scaled matrices are not stored.
func (r *Run) Result() *pipeline.Result {
	res := &pipeline.Result{
		K:          r.K,
		Clustered:  r.rows,
		Centroids:  r.Centroids,
		Metrics:    r.Metrics,
		Selection:  r.Selection,
		Insights:   r.Insights,
		Scaler:     r.Scaler,
		Stats:      r.Stats,
		Converged:  r.Converged,
		Iterations: r.Iterations,
		Duration:   r.Duration,
	}
	if res.Clustered == nil {
		res.Clustered = &table.Raw{Name: r.Name}
	}
	return res
}

// ShortID is the first block of the id, enough to address a run in practice.
func (r *Run) ShortID() string {
	if len(r.ID) >= 8 {
		return r.ID[:8]
	}
	return r.ID
}

// Dir returns the on-disk run directory, empty until saved or loaded.
func (r *Run) Dir() string { return r.dir }

// Rows returns the clustered rows, or nil if they were never attached.
func (r *Run) Rows() *table.Raw { return r.rows }

// ExportCSV writes the clustered rows as CSV. When cluster is non-nil only
// rows of that cluster are written.
func (r *Run) ExportCSV(w io.Writer, cluster *int) error {
	if r.rows == nil {
		return fmt.Errorf("run %s has no clustered rows", r.ShortID())
	}
	ci := r.rows.Index(pipeline.ClusterColumn)
	if cluster != nil {
		if ci < 0 {
			return fmt.Errorf("run %s has no %s column", r.ShortID(), pipeline.ClusterColumn)
		}
		if *cluster < 0 || *cluster >= r.K {
			return fmt.Errorf("cluster %d outside [0,%d)", *cluster, r.K)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(r.rows.Names()); err != nil {
		return err
	}
	want := ""
	if cluster != nil {
		want = strconv.Itoa(*cluster)
	}
	rec := make([]string, len(r.rows.Columns))
	for i := 0; i < r.rows.Len(); i++ {
		if cluster != nil && table.String(r.rows.Columns[ci].Values[i]) != want {
			continue
		}
		for j, c := range r.rows.Columns {
			rec[j] = table.String(c.Values[i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
