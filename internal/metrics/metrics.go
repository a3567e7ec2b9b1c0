package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/segmenta-cli/internal/kmeans"
	"go.uber.org/zap"
)

// ErrDegenerate is returned when a score is undefined for the labeling, for
// example when every point shares one label.
var ErrDegenerate = errors.New("degenerate clustering")

// Evaluation holds the clustering quality scores. When Degraded is set every
// score is zero because at least one of them could not be computed.
type Evaluation struct {
	Inertia          float64 `json:"inertia" yaml:"inertia"`
	Silhouette       float64 `json:"silhouette" yaml:"silhouette"`
	CalinskiHarabasz float64 `json:"calinski_harabasz" yaml:"calinski_harabasz"`
	DaviesBouldin    float64 `json:"davies_bouldin" yaml:"davies_bouldin"`
	Degraded         bool    `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Reason           string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Options tunes Evaluate.
type Options struct {
	// RefitInertia reports the inertia of a fresh k-means fit with Fit
	// instead of the inertia of the given labels.
	RefitInertia bool
	K            int
	Fit          kmeans.Config
	Logger       *zap.Logger
}

// Evaluate scores a labeling. It never fails: any metric error yields an
// all-zero Evaluation with Degraded set.
func Evaluate(points [][]float64, labels []int, opt Options) Evaluation {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ev, err := evaluate(points, labels, opt)
	if err != nil {
		log.Warn("metrics unavailable, reporting zeros", zap.Error(err))
		return Evaluation{Degraded: true, Reason: err.Error()}
	}
	return ev
}

func evaluate(points [][]float64, labels []int, opt Options) (Evaluation, error) {
	var ev Evaluation
	var err error
	if opt.RefitInertia {
		k := opt.K
		if k <= 0 {
			k = countLabels(labels)
		}
		res, ferr := kmeans.Fit(points, k, opt.Fit)
		if ferr != nil {
			return Evaluation{}, fmt.Errorf("refit inertia: %w", ferr)
		}
		ev.Inertia = res.Inertia
	} else if ev.Inertia, err = Inertia(points, labels); err != nil {
		return Evaluation{}, err
	}
	if ev.Silhouette, err = Silhouette(points, labels); err != nil {
		return Evaluation{}, err
	}
	if ev.CalinskiHarabasz, err = CalinskiHarabasz(points, labels); err != nil {
		return Evaluation{}, err
	}
	if ev.DaviesBouldin, err = DaviesBouldin(points, labels); err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

// Inertia is the within-cluster sum of squared distances to each label's
// mean.
func Inertia(points [][]float64, labels []int) (float64, error) {
	g, err := group(points, labels)
	if err != nil {
		return 0, err
	}
	var s float64
	for i, p := range points {
		s += kmeans.SquaredEuclidean(p, g.centroids[g.idx[i]])
	}
	return s, nil
}

// Silhouette is the mean silhouette coefficient over all points using
// Euclidean distance. Points in singleton clusters score 0.
func Silhouette(points [][]float64, labels []int) (float64, error) {
	g, err := group(points, labels)
	if err != nil {
		return 0, err
	}
	if err := g.requireSpread(); err != nil {
		return 0, err
	}
	n := len(points)
	sums := make([]float64, len(g.sizes))
	var total float64
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			sums[g.idx[j]] += math.Sqrt(kmeans.SquaredEuclidean(points[i], points[j]))
		}
		own := g.idx[i]
		if g.sizes[own] == 1 {
			continue
		}
		a := sums[own] / float64(g.sizes[own]-1)
		b := math.Inf(1)
		for c, sz := range g.sizes {
			if c == own {
				continue
			}
			if m := sums[c] / float64(sz); m < b {
				b = m
			}
		}
		if d := math.Max(a, b); d > 0 {
			total += (b - a) / d
		}
	}
	return total / float64(n), nil
}

// CalinskiHarabasz is the ratio of between-cluster to within-cluster
// dispersion, scaled by degrees of freedom.
func CalinskiHarabasz(points [][]float64, labels []int) (float64, error) {
	g, err := group(points, labels)
	if err != nil {
		return 0, err
	}
	if err := g.requireSpread(); err != nil {
		return 0, err
	}
	mean := centroid(points)
	var extra, intra float64
	for c, ctr := range g.centroids {
		extra += float64(g.sizes[c]) * kmeans.SquaredEuclidean(ctr, mean)
	}
	for i, p := range points {
		intra += kmeans.SquaredEuclidean(p, g.centroids[g.idx[i]])
	}
	if intra == 0 {
		return 1, nil
	}
	n, k := float64(len(points)), float64(len(g.sizes))
	return extra * (n - k) / (intra * (k - 1)), nil
}

// DaviesBouldin is the mean, over clusters, of the worst ratio of summed
// intra-cluster scatter to centroid separation. Lower is better.
func DaviesBouldin(points [][]float64, labels []int) (float64, error) {
	g, err := group(points, labels)
	if err != nil {
		return 0, err
	}
	if err := g.requireSpread(); err != nil {
		return 0, err
	}
	k := len(g.sizes)
	scatter := make([]float64, k)
	for i, p := range points {
		c := g.idx[i]
		scatter[c] += math.Sqrt(kmeans.SquaredEuclidean(p, g.centroids[c]))
	}
	for c := range scatter {
		scatter[c] /= float64(g.sizes[c])
	}
	sep := make([][]float64, k)
	allZeroSep := true
	for a := range sep {
		sep[a] = make([]float64, k)
		for b := range sep[a] {
			sep[a][b] = math.Sqrt(kmeans.SquaredEuclidean(g.centroids[a], g.centroids[b]))
			if sep[a][b] > 1e-8 {
				allZeroSep = false
			}
		}
	}
	if allNear0(scatter) || allZeroSep {
		return 0, nil
	}
	var total float64
	for a := 0; a < k; a++ {
		worst := 0.0
		for b := 0; b < k; b++ {
			if sep[a][b] == 0 {
				continue
			}
			if r := (scatter[a] + scatter[b]) / sep[a][b]; r > worst {
				worst = r
			}
		}
		total += worst
	}
	return total / float64(k), nil
}

// grouping maps arbitrary label values onto dense cluster indices.
type grouping struct {
	idx       []int
	sizes     []int
	centroids [][]float64
}

func group(points [][]float64, labels []int) (*grouping, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points", ErrDegenerate)
	}
	if len(points) != len(labels) {
		return nil, fmt.Errorf("%w: %d points but %d labels", ErrDegenerate, len(points), len(labels))
	}
	dense := map[int]int{}
	g := &grouping{idx: make([]int, len(labels))}
	for i, l := range labels {
		c, ok := dense[l]
		if !ok {
			c = len(dense)
			dense[l] = c
			g.sizes = append(g.sizes, 0)
		}
		g.idx[i] = c
		g.sizes[c]++
	}
	d := len(points[0])
	g.centroids = make([][]float64, len(g.sizes))
	for c := range g.centroids {
		g.centroids[c] = make([]float64, d)
	}
	for i, p := range points {
		if len(p) != d {
			return nil, fmt.Errorf("%w: ragged point %d", ErrDegenerate, i)
		}
		for j, v := range p {
			g.centroids[g.idx[i]][j] += v
		}
	}
	for c, ctr := range g.centroids {
		for j := range ctr {
			ctr[j] /= float64(g.sizes[c])
		}
	}
	return g, nil
}

// requireSpread enforces 2 <= clusters <= n-1.
func (g *grouping) requireSpread() error {
	k, n := len(g.sizes), len(g.idx)
	if k < 2 || k > n-1 {
		return fmt.Errorf("%w: %d distinct labels for %d points (need 2..%d)", ErrDegenerate, k, n, n-1)
	}
	return nil
}

func centroid(points [][]float64) []float64 {
	out := make([]float64, len(points[0]))
	for _, p := range points {
		for j, v := range p {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(points))
	}
	return out
}

func countLabels(labels []int) int {
	seen := map[int]struct{}{}
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

func allNear0(v []float64) bool {
	for _, x := range v {
		if math.Abs(x) > 1e-8 {
			return false
		}
	}
	return true
}
