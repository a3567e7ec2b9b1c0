package preprocess

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// ScalerParams are the fitted per-column mean and population standard
// deviation.
type ScalerParams struct {
	Columns []string  `json:"columns" yaml:"columns"`
	Means   []float64 `json:"means" yaml:"means"`
	Stds    []float64 `json:"stds" yaml:"stds"`
}

// Scaled is a standardized copy of a Cleaned table.
type Scaled struct {
	Columns []string
	Data    [][]float64
}

// Len returns the row count.
func (s *Scaled) Len() int { return len(s.Data) }

// Dim returns the column count.
func (s *Scaled) Dim() int { return len(s.Columns) }

// FitScale standardizes every column of c to zero mean and unit population
// variance. A zero-variance column is a precondition violation.
func FitScale(c *Cleaned) (*Scaled, ScalerParams, error) {
	p := ScalerParams{
		Columns: append([]string(nil), c.Columns...),
		Means:   make([]float64, c.Dim()),
		Stds:    make([]float64, c.Dim()),
	}
	for j := range c.Columns {
		p.Means[j], p.Stds[j] = stat.PopMeanStdDev(c.Column(j), nil)
	}
	s, err := ApplyScale(c, p)
	if err != nil {
		return nil, ScalerParams{}, err
	}
	return s, p, nil
}

// ApplyScale standardizes c with previously fitted parameters.
func ApplyScale(c *Cleaned, p ScalerParams) (*Scaled, error) {
	if len(p.Means) != c.Dim() || len(p.Stds) != c.Dim() {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, table has %d", ErrInvalidData, len(p.Means), c.Dim())
	}
	for j, sd := range p.Stds {
		if sd == 0 {
			return nil, fmt.Errorf("%w: column %q has zero standard deviation", ErrInvalidData, c.Columns[j])
		}
	}
	out := &Scaled{Columns: append([]string(nil), c.Columns...), Data: make([][]float64, c.Len())}
	for i, row := range c.Data {
		sr := make([]float64, len(row))
		for j, v := range row {
			sr[j] = (v - p.Means[j]) / p.Stds[j]
		}
		out.Data[i] = sr
	}
	return out, nil
}
