package selection

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/KaramelBytes/segmenta-cli/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blobs(centers [][]float64, per int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	var out [][]float64
	for _, c := range centers {
		for i := 0; i < per; i++ {
			out = append(out, []float64{c[0] + rng.NormFloat64()*0.5, c[1] + rng.NormFloat64()*0.5})
		}
	}
	return out
}

func curve(vals ...float64) []Score {
	out := make([]Score, len(vals))
	for i, v := range vals {
		out[i] = Score{K: i + 1, Value: v}
	}
	return out
}

func TestElbowK(t *testing.T) {
	cases := []struct {
		name  string
		curve []Score
		want  int
	}{
		{"empty", nil, 3},
		{"one point", curve(100), 1},
		{"two points", curve(100, 50), 1},
		{"sharp bend", curve(100, 50, 20, 15, 12), 4},
		{"bend at start", curve(100, 10, 9, 8), 3},
	}
	for _, tc := range cases {
		if got := ElbowK(tc.curve); got != tc.want {
			t.Fatalf("%s: ElbowK = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSilhouetteK(t *testing.T) {
	assert.Equal(t, 7, SilhouetteK(nil, 7))
	s := []Score{{2, 0.4}, {3, 0.61}, {4, 0.61}, {5, 0.2}}
	assert.Equal(t, 3, SilhouetteK(s, 9))
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		elbow, sil, max int
		want            int
		method          string
	}{
		{3, 4, 10, 4, MethodSilhouette},
		{4, 2, 10, 2, MethodSilhouette},
		{2, 8, 10, 2, MethodElbow},
		{9, 3, 10, 9, MethodElbow},
		{12, 12, 10, 10, MethodSilhouette},
		{1, 1, 1, 2, MethodSilhouette},
	}
	for _, tc := range cases {
		k, m := Reconcile(tc.elbow, tc.sil, tc.max)
		if k != tc.want || m != tc.method {
			t.Fatalf("Reconcile(%d,%d,%d) = %d,%q want %d,%q", tc.elbow, tc.sil, tc.max, k, m, tc.want, tc.method)
		}
	}
}

func TestEffectiveMaxK(t *testing.T) {
	assert.Equal(t, 10, EffectiveMaxK(10, 100))
	assert.Equal(t, 6, EffectiveMaxK(10, 12))
	assert.Equal(t, 15, EffectiveMaxK(40, 1000))
}

func TestSelectKFindsThreeBlobs(t *testing.T) {
	pts := blobs([][]float64{{0, 0}, {10, 10}, {-10, 10}}, 33, 5)
	res, err := SelectK(pts, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, res.OptimalK)
	assert.Equal(t, 3, res.SilhouetteK)
	assert.Equal(t, 10, res.EffectiveMaxK)
	require.Len(t, res.Inertia, 10)
	assert.Equal(t, 1, res.Inertia[0].K)
	for _, s := range res.Silhouette {
		if s.K == 3 {
			assert.GreaterOrEqual(t, s.Value, 0.5)
		}
	}
	assert.NotEmpty(t, res.Reason)
}

func TestSelectKBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{4, 9, 12, 25} {
		pts := make([][]float64, n)
		for i := range pts {
			pts[i] = []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		}
		opt := DefaultOptions()
		opt.MaxK = 10
		res, err := SelectK(pts, opt)
		require.NoError(t, err)
		limit := EffectiveMaxK(opt.MaxK, n)
		if res.OptimalK < 2 || res.OptimalK > limit {
			t.Fatalf("n=%d: k=%d outside [2,%d]", n, res.OptimalK, limit)
		}
	}
}

func TestSelectKTooFewRows(t *testing.T) {
	_, err := SelectK([][]float64{{1}, {2}}, DefaultOptions())
	if !errors.Is(err, preprocess.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestSelectKReportsProgress(t *testing.T) {
	var last int
	calls := 0
	opt := DefaultOptions()
	opt.Progress = func(stage string, pct int, _ string) {
		calls++
		if pct < last {
			t.Fatalf("progress went backwards: %d after %d", pct, last)
		}
		last = pct
		assert.Equal(t, "clustering", stage)
	}
	_, err := SelectK(blobs([][]float64{{0, 0}, {5, 5}}, 10, 2), opt)
	require.NoError(t, err)
	assert.Equal(t, 100, last)
	assert.Positive(t, calls)
}
