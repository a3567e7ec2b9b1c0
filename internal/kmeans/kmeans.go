package kmeans

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Config holds the fitting parameters.
type Config struct {
	NInit   int     // independent k-means++ restarts; the lowest inertia wins
	MaxIter int     // Lloyd iterations per restart
	Tol     float64 // relative center-shift tolerance
	Seed    int64
}

// DefaultConfig returns the standard fitting parameters.
func DefaultConfig() Config {
	return Config{NInit: 20, MaxIter: 300, Tol: 1e-4, Seed: 42}
}

// Result is a fitted clustering.
type Result struct {
	K          int
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
	Converged  bool
}

// ErrInvalidInput is returned for empty or malformed data and out-of-range k.
var ErrInvalidInput = errors.New("invalid k-means input")

// Fit clusters points into k groups. The same points, k and Config always
// produce the same Result.
func Fit(points [][]float64, k int, cfg Config) (*Result, error) {
	if err := check(points, k); err != nil {
		return nil, err
	}
	if cfg.NInit <= 0 {
		cfg.NInit = 1
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 300
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	tol := cfg.Tol * meanVariance(points)

	var best *Result
	for run := 0; run < cfg.NInit; run++ {
		centers := initPlusPlus(points, k, rng)
		res := lloyd(points, centers, cfg.MaxIter, tol)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func check(points [][]float64, k int) error {
	if len(points) == 0 {
		return fmt.Errorf("%w: no points", ErrInvalidInput)
	}
	if k < 1 || k > len(points) {
		return fmt.Errorf("%w: k=%d with %d points", ErrInvalidInput, k, len(points))
	}
	d := len(points[0])
	if d == 0 {
		return fmt.Errorf("%w: zero-dimensional points", ErrInvalidInput)
	}
	for i, p := range points {
		if len(p) != d {
			return fmt.Errorf("%w: point %d has %d dims, want %d", ErrInvalidInput, i, len(p), d)
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value at point %d", ErrInvalidInput, i)
			}
		}
	}
	return nil
}

// SquaredEuclidean returns the squared L2 distance between a and b.
func SquaredEuclidean(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// Predict assigns each point to its nearest centroid.
func Predict(points, centroids [][]float64) []int {
	labels := make([]int, len(points))
	for i, p := range points {
		labels[i], _ = nearest(p, centroids)
	}
	return labels
}

func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centers {
		if d := SquaredEuclidean(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

// meanVariance is the average per-feature population variance; it turns the
// relative tolerance into an absolute center-shift threshold.
func meanVariance(points [][]float64) float64 {
	d := len(points[0])
	n := float64(len(points))
	var total float64
	for j := 0; j < d; j++ {
		var sum, sq float64
		for _, p := range points {
			sum += p[j]
		}
		mean := sum / n
		for _, p := range points {
			diff := p[j] - mean
			sq += diff * diff
		}
		total += sq / n
	}
	return total / float64(d)
}

// initPlusPlus seeds k centers with greedy k-means++: each step samples
// several candidates proportionally to squared distance and keeps the one
// that lowers the potential most.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	first := rng.Intn(n)
	centers = append(centers, clone(points[first]))

	closest := make([]float64, n)
	var pot float64
	for i, p := range points {
		closest[i] = SquaredEuclidean(p, centers[0])
		pot += closest[i]
	}
	trials := 2 + int(math.Log(float64(k)))
	for len(centers) < k {
		bestCand := -1
		bestPot := math.Inf(1)
		var bestDist []float64
		for t := 0; t < trials; t++ {
			cand := sample(closest, pot, rng)
			dist := make([]float64, n)
			var p float64
			for i, pt := range points {
				d := SquaredEuclidean(pt, points[cand])
				if closest[i] < d {
					d = closest[i]
				}
				dist[i] = d
				p += d
			}
			if p < bestPot {
				bestCand, bestPot, bestDist = cand, p, dist
			}
		}
		centers = append(centers, clone(points[bestCand]))
		closest, pot = bestDist, bestPot
	}
	return centers
}

// sample draws an index with probability proportional to weights.
func sample(weights []float64, total float64, rng *rand.Rand) int {
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	r := rng.Float64() * total
	var cum float64
	for i, w := range weights {
		cum += w
		if cum > r {
			return i
		}
	}
	return len(weights) - 1
}

func lloyd(points [][]float64, centers [][]float64, maxIter int, tol float64) *Result {
	k := len(centers)
	labels := Predict(points, centers)
	res := &Result{K: k}
	for it := 1; it <= maxIter; it++ {
		next := means(points, labels, centers)
		var shift float64
		for c := range centers {
			shift += SquaredEuclidean(centers[c], next[c])
		}
		centers = next
		nextLabels := Predict(points, centers)
		res.Iterations = it
		same := equalLabels(labels, nextLabels)
		labels = nextLabels
		if same || shift <= tol {
			res.Converged = true
			break
		}
	}
	res.Labels = labels
	res.Centroids = centers
	for i, p := range points {
		res.Inertia += SquaredEuclidean(p, centers[labels[i]])
	}
	return res
}

// means recomputes centers from labels. A cluster left empty is moved onto
// the point currently farthest from its own center.
func means(points [][]float64, labels []int, prev [][]float64) [][]float64 {
	k := len(prev)
	d := len(points[0])
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, d)
	}
	counts := make([]int, k)
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for j, v := range p {
			sums[c][j] += v
		}
	}
	var empty []int
	for c := range sums {
		if counts[c] == 0 {
			empty = append(empty, c)
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
	}
	if len(empty) > 0 {
		order := make([]int, len(points))
		dist := make([]float64, len(points))
		for i, p := range points {
			order[i] = i
			dist[i] = SquaredEuclidean(p, prev[labels[i]])
		}
		sort.SliceStable(order, func(a, b int) bool { return dist[order[a]] > dist[order[b]] })
		for e, c := range empty {
			sums[c] = clone(points[order[e%len(order)]])
		}
	}
	return sums
}

func equalLabels(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
