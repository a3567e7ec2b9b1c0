package metrics

import (
	"errors"
	"testing"

	"github.com/KaramelBytes/segmenta-cli/internal/kmeans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	twoPairs = [][]float64{{0}, {1}, {10}, {11}}
	pairLbls = []int{0, 0, 1, 1}
)

func TestScoresOnTwoPairs(t *testing.T) {
	in, err := Inertia(twoPairs, pairLbls)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, in, 1e-12)

	sil, err := Silhouette(twoPairs, pairLbls)
	require.NoError(t, err)
	assert.InDelta(t, (9.5/10.5+8.5/9.5)/2, sil, 1e-12)

	ch, err := CalinskiHarabasz(twoPairs, pairLbls)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, ch, 1e-9)

	db, err := DaviesBouldin(twoPairs, pairLbls)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, db, 1e-12)
}

func TestLabelValuesAreArbitrary(t *testing.T) {
	a := Evaluate(twoPairs, pairLbls, Options{})
	b := Evaluate(twoPairs, []int{9, 9, 4, 4}, Options{})
	assert.Equal(t, a, b)
	assert.False(t, a.Degraded)
}

func TestSilhouetteSingletonScoresZero(t *testing.T) {
	sil, err := Silhouette([][]float64{{0}, {1}, {10}}, []int{0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, (0.9+8.0/9.0)/3, sil, 1e-12)
}

func TestSingleLabelIsDegenerate(t *testing.T) {
	labels := []int{0, 0, 0, 0}
	_, err := Silhouette(twoPairs, labels)
	if !errors.Is(err, ErrDegenerate) {
		t.Fatalf("err = %v, want ErrDegenerate", err)
	}
	ev := Evaluate(twoPairs, labels, Options{K: 1})
	assert.True(t, ev.Degraded)
	assert.Zero(t, ev.Inertia)
	assert.Zero(t, ev.Silhouette)
	assert.Zero(t, ev.CalinskiHarabasz)
	assert.Zero(t, ev.DaviesBouldin)
	assert.NotEmpty(t, ev.Reason)
}

func TestEveryPointOwnClusterIsDegenerate(t *testing.T) {
	ev := Evaluate(twoPairs, []int{0, 1, 2, 3}, Options{})
	assert.True(t, ev.Degraded)
}

func TestLengthMismatchIsDegenerate(t *testing.T) {
	ev := Evaluate(twoPairs, []int{0, 1}, Options{})
	assert.True(t, ev.Degraded)
	assert.Equal(t, Evaluation{Degraded: true, Reason: ev.Reason}, ev)
}

func TestRefitInertia(t *testing.T) {
	ev := Evaluate(twoPairs, pairLbls, Options{RefitInertia: true, K: 2, Fit: kmeans.DefaultConfig()})
	require.False(t, ev.Degraded)
	assert.InDelta(t, 1.0, ev.Inertia, 1e-12)
}

func TestCalinskiHarabaszZeroIntra(t *testing.T) {
	ch, err := CalinskiHarabasz([][]float64{{1}, {1}, {5}, {5}}, pairLbls)
	require.NoError(t, err)
	assert.Equal(t, 1.0, ch)
}
