package kmeans

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// blobs returns per points around each center with unit-ish spread.
func blobs(centers [][]float64, per int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	var out [][]float64
	for _, c := range centers {
		for i := 0; i < per; i++ {
			p := make([]float64, len(c))
			for j := range c {
				p[j] = c[j] + rng.NormFloat64()*0.5
			}
			out = append(out, p)
		}
	}
	return out
}

var threeCenters = [][]float64{{0, 0}, {10, 10}, {-10, 10}}

func TestFitRecoversSeparatedBlobs(t *testing.T) {
	pts := blobs(threeCenters, 30, 1)
	res, err := Fit(pts, 3, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !res.Converged {
		t.Fatalf("expected convergence on separated blobs")
	}
	for b := 0; b < 3; b++ {
		want := res.Labels[b*30]
		for i := b * 30; i < (b+1)*30; i++ {
			if res.Labels[i] != want {
				t.Fatalf("blob %d split across clusters at point %d", b, i)
			}
		}
	}
	if res.Labels[0] == res.Labels[30] || res.Labels[30] == res.Labels[60] || res.Labels[0] == res.Labels[60] {
		t.Fatalf("blobs merged: %v", res.Labels)
	}
}

func TestFitDeterministic(t *testing.T) {
	pts := blobs(threeCenters, 20, 7)
	a, err := Fit(pts, 4, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, err := Fit(pts, 4, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed gave different results (-a +b):\n%s", diff)
	}
}

func TestLabelsInRange(t *testing.T) {
	pts := blobs(threeCenters, 10, 3)
	for k := 1; k <= 8; k++ {
		res, err := Fit(pts, k, Config{NInit: 3, MaxIter: 50, Tol: 1e-4, Seed: 42})
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if len(res.Centroids) != k {
			t.Fatalf("k=%d: %d centroids", k, len(res.Centroids))
		}
		for i, l := range res.Labels {
			if l < 0 || l >= k {
				t.Fatalf("k=%d: label[%d] = %d out of range", k, i, l)
			}
		}
	}
}

func TestSingleClusterInertiaIsTotalSS(t *testing.T) {
	pts := [][]float64{{0, 0}, {2, 0}, {0, 2}, {2, 2}}
	res, err := Fit(pts, 1, DefaultConfig())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(res.Inertia-8) > 1e-12 {
		t.Fatalf("inertia = %v, want 8", res.Inertia)
	}
	if diff := cmp.Diff([][]float64{{1, 1}}, res.Centroids); diff != "" {
		t.Fatalf("centroid mismatch:\n%s", diff)
	}
}

func TestInertiaDecreasesWithK(t *testing.T) {
	pts := blobs(threeCenters, 15, 11)
	prev := math.Inf(1)
	for k := 1; k <= 4; k++ {
		res, err := Fit(pts, k, DefaultConfig())
		if err != nil {
			t.Fatalf("fit: %v", err)
		}
		if res.Inertia > prev+1e-9 {
			t.Fatalf("inertia rose from %v to %v at k=%d", prev, res.Inertia, k)
		}
		prev = res.Inertia
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		pts [][]float64
		k   int
	}{
		"empty":     {nil, 1},
		"k zero":    {[][]float64{{1}}, 0},
		"k too big": {[][]float64{{1}, {2}}, 3},
		"ragged":    {[][]float64{{1, 2}, {3}}, 1},
		"nan":       {[][]float64{{1}, {math.NaN()}}, 1},
	}
	for name, tc := range cases {
		if _, err := Fit(tc.pts, tc.k, DefaultConfig()); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: err = %v, want ErrInvalidInput", name, err)
		}
	}
}

func TestPredict(t *testing.T) {
	got := Predict([][]float64{{0.1}, {9}, {4.9}}, [][]float64{{0}, {10}})
	if diff := cmp.Diff([]int{0, 1, 0}, got); diff != "" {
		t.Fatalf("Predict (-want +got):\n%s", diff)
	}
}
