package chart

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Projection maps points onto their first two principal components.
type Projection struct {
	mean []float64
	axes *mat.Dense // d×2
	// Explained is the share of variance carried by each of the two axes.
	Explained [2]float64
}

// NewProjection fits a 2-D principal component projection of points. Each
// axis is sign-normalized so its largest coefficient is positive.
func NewProjection(points [][]float64) (*Projection, error) {
	n := len(points)
	if n < 2 {
		return nil, errors.New("projection: need at least 2 points")
	}
	d := len(points[0])
	if d < 2 {
		return nil, fmt.Errorf("projection: need at least 2 features, have %d", d)
	}
	x := mat.NewDense(n, d, nil)
	for i, p := range points {
		if len(p) != d {
			return nil, fmt.Errorf("projection: point %d has %d features, want %d", i, len(p), d)
		}
		x.SetRow(i, p)
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		return nil, errors.New("projection: principal component analysis failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	p := &Projection{mean: make([]float64, d), axes: mat.NewDense(d, 2, nil)}
	for j := 0; j < d; j++ {
		p.mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	_, cols := vecs.Dims()
	var total float64
	for _, v := range vars {
		total += v
	}
	for a := 0; a < 2 && a < cols; a++ {
		col := mat.Col(nil, a, &vecs)
		if col[argmaxAbs(col)] < 0 {
			for j := range col {
				col[j] = -col[j]
			}
		}
		p.axes.SetCol(a, col)
		if total > 0 {
			p.Explained[a] = vars[a] / total
		}
	}
	return p, nil
}

// Apply projects points (which must have the fitted dimensionality).
func (p *Projection) Apply(points [][]float64) [][]float64 {
	out := make([][]float64, len(points))
	d := len(p.mean)
	centered := make([]float64, d)
	for i, pt := range points {
		for j := 0; j < d; j++ {
			centered[j] = pt[j] - p.mean[j]
		}
		var xy mat.VecDense
		xy.MulVec(p.axes.T(), mat.NewVecDense(d, centered))
		out[i] = []float64{xy.AtVec(0), xy.AtVec(1)}
	}
	return out
}

// Project2D fits a projection on points and applies it to them.
func Project2D(points [][]float64) ([][]float64, error) {
	p, err := NewProjection(points)
	if err != nil {
		return nil, err
	}
	return p.Apply(points), nil
}

func argmaxAbs(v []float64) int {
	best := 0
	for i, x := range v {
		if math.Abs(x) > math.Abs(v[best]) {
			best = i
		}
	}
	return best
}
