package selection

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/segmenta-cli/internal/kmeans"
	"github.com/KaramelBytes/segmenta-cli/internal/metrics"
	"github.com/KaramelBytes/segmenta-cli/internal/preprocess"
	"github.com/KaramelBytes/segmenta-cli/internal/progress"
	"go.uber.org/zap"
)

// Methods used to pick the final k.
const (
	MethodSilhouette = "silhouette score"
	MethodElbow      = "elbow method"
)

const (
	minK    = 2
	hardCap = 15
)

// Options controls the k search.
type Options struct {
	// MaxK is the requested upper bound before the row and hard caps apply.
	MaxK int
	// InertiaFit configures the fits behind the elbow curve.
	InertiaFit kmeans.Config
	// SilhouetteFit configures the fits behind the silhouette curve.
	SilhouetteFit kmeans.Config
	Progress      progress.Func
	Logger        *zap.Logger
}

// DefaultOptions returns the standard search settings.
func DefaultOptions() Options {
	inertia := kmeans.DefaultConfig()
	inertia.NInit = 10
	return Options{MaxK: 10, InertiaFit: inertia, SilhouetteFit: kmeans.DefaultConfig()}
}

// Score is one point on a k curve.
type Score struct {
	K     int     `json:"k" yaml:"k"`
	Value float64 `json:"value" yaml:"value"`
}

// Result describes how k was chosen.
type Result struct {
	EffectiveMaxK int     `json:"effective_max_k" yaml:"effective_max_k"`
	Inertia       []Score `json:"inertia" yaml:"inertia"`
	Silhouette    []Score `json:"silhouette" yaml:"silhouette"`
	ElbowK        int     `json:"elbow_k" yaml:"elbow_k"`
	SilhouetteK   int     `json:"silhouette_k" yaml:"silhouette_k"`
	OptimalK      int     `json:"optimal_k" yaml:"optimal_k"`
	Method        string  `json:"method" yaml:"method"`
	Reason        string  `json:"reason" yaml:"reason"`
}

// EffectiveMaxK caps the requested maximum by half the row count and 15.
func EffectiveMaxK(maxK, n int) int {
	return min(maxK, n/2, hardCap)
}

// SelectK evaluates inertia and silhouette curves over candidate k values
// and reconciles the elbow and silhouette choices.
func SelectK(points [][]float64, opt Options) (*Result, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	n := len(points)
	if n < 3 {
		return nil, fmt.Errorf("%w: need at least 3 rows to choose k, have %d", preprocess.ErrInsufficientData, n)
	}
	if opt.MaxK <= 0 {
		opt.MaxK = 10
	}
	res := &Result{EffectiveMaxK: EffectiveMaxK(opt.MaxK, n)}
	silMax := min(res.EffectiveMaxK, n-1)
	total := max(res.EffectiveMaxK, 1) + max(silMax-1, 0)
	done := 0
	step := func(msg string) {
		done++
		opt.Progress.Report("clustering", done*100/total, msg)
	}

	for k := 1; k <= res.EffectiveMaxK; k++ {
		inertia, err := inertiaAt(points, k, opt.InertiaFit)
		if err != nil {
			return nil, fmt.Errorf("inertia at k=%d: %w", k, err)
		}
		res.Inertia = append(res.Inertia, Score{K: k, Value: inertia})
		step(fmt.Sprintf("Computed inertia for k=%d", k))
	}

	for k := minK; k <= silMax; k++ {
		s, err := silhouetteAt(points, k, opt.SilhouetteFit)
		step(fmt.Sprintf("Computed silhouette for k=%d", k))
		if err != nil {
			log.Debug("skipping k", zap.Int("k", k), zap.Error(err))
			continue
		}
		res.Silhouette = append(res.Silhouette, Score{K: k, Value: s})
	}

	res.ElbowK = ElbowK(res.Inertia)
	res.SilhouetteK = SilhouetteK(res.Silhouette, res.ElbowK)
	res.OptimalK, res.Method = Reconcile(res.ElbowK, res.SilhouetteK, res.EffectiveMaxK)
	res.Reason = reason(res)
	log.Info("selected k",
		zap.Int("k", res.OptimalK),
		zap.Int("elbow_k", res.ElbowK),
		zap.Int("silhouette_k", res.SilhouetteK),
		zap.String("method", res.Method))
	return res, nil
}

func inertiaAt(points [][]float64, k int, cfg kmeans.Config) (float64, error) {
	if k == 1 {
		return metrics.Inertia(points, make([]int, len(points)))
	}
	fit, err := kmeans.Fit(points, k, cfg)
	if err != nil {
		return 0, err
	}
	return fit.Inertia, nil
}

func silhouetteAt(points [][]float64, k int, cfg kmeans.Config) (float64, error) {
	fit, err := kmeans.Fit(points, k, cfg)
	if err != nil {
		return 0, err
	}
	s, err := metrics.Silhouette(points, fit.Labels)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0, fmt.Errorf("non-finite silhouette at k=%d", k)
	}
	return s, nil
}

// ElbowK returns the k two positions after the largest absolute second
// difference of the inertia curve. Curves shorter than 3 points yield their
// smallest k, or 3 when empty.
func ElbowK(curve []Score) int {
	if len(curve) == 0 {
		return 3
	}
	if len(curve) < 3 {
		return curve[0].K
	}
	first := make([]float64, len(curve)-1)
	for i := range first {
		first[i] = curve[i+1].Value - curve[i].Value
	}
	best, bestV := 0, math.Inf(-1)
	for i := 0; i+1 < len(first); i++ {
		if v := math.Abs(first[i+1] - first[i]); v > bestV {
			best, bestV = i, v
		}
	}
	return curve[best+2].K
}

// SilhouetteK returns the k with the highest silhouette (the smallest such k
// on ties), or fallback when the curve is empty.
func SilhouetteK(curve []Score, fallback int) int {
	if len(curve) == 0 {
		return fallback
	}
	best := curve[0]
	for _, s := range curve[1:] {
		if s.Value > best.Value {
			best = s
		}
	}
	return best.K
}

// Reconcile prefers the silhouette choice when it is within 2 of the elbow
// and clamps the result to [2, maxK]. The lower bound wins when maxK < 2.
func Reconcile(elbow, sil, maxK int) (int, string) {
	k, method := elbow, MethodElbow
	if abs(elbow-sil) <= 2 {
		k, method = sil, MethodSilhouette
	}
	return max(minK, min(k, maxK)), method
}

func reason(r *Result) string {
	if r.Method == MethodSilhouette {
		return fmt.Sprintf("elbow (k=%d) and silhouette (k=%d) agree within 2; chose k=%d by %s",
			r.ElbowK, r.SilhouetteK, r.OptimalK, r.Method)
	}
	return fmt.Sprintf("elbow (k=%d) and silhouette (k=%d) disagree by more than 2; chose k=%d by %s",
		r.ElbowK, r.SilhouetteK, r.OptimalK, r.Method)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
