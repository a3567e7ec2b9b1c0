// Package chart renders clustering results as standalone HTML pages.
package chart

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/segmenta-cli/internal/selection"
	"github.com/KaramelBytes/segmenta-cli/internal/utils"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Renderer is anything that can write itself as HTML.
type Renderer interface {
	Render(w io.Writer) error
}

// Elbow builds a page with the inertia and silhouette curves.
func Elbow(sel *selection.Result) *components.Page {
	subtitle := fmt.Sprintf("optimal k = %d (%s)", sel.OptimalK, sel.Method)

	inertia := charts.NewLine()
	inertia.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Elbow method", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "k"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Inertia"}),
	)
	xs, ys := lineSeries(sel.Inertia)
	inertia.SetXAxis(xs).AddSeries("Inertia", ys).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))

	sil := charts.NewLine()
	sil.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Silhouette score", Subtitle: fmt.Sprintf("best k = %d", sel.SilhouetteK)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "k"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Silhouette"}),
	)
	xs, ys = lineSeries(sel.Silhouette)
	sil.SetXAxis(xs).AddSeries("Silhouette", ys).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))

	page := components.NewPage()
	page.PageTitle = "Choosing k"
	page.AddCharts(inertia, sil)
	return page
}

// Scatter plots points coloured by cluster, with centroids drawn as larger
// diamonds. Points with more than two features are projected onto their two
// principal components.
func Scatter(points [][]float64, labels []int, centroids [][]float64, columns []string) (*charts.Scatter, error) {
	if len(points) != len(labels) {
		return nil, fmt.Errorf("scatter: %d points but %d labels", len(points), len(labels))
	}
	xName, yName := "PC1", "PC2"
	var xy, cxy [][]float64
	if len(columns) <= 2 {
		xy, cxy = pad2(points), pad2(centroids)
		if len(columns) > 0 {
			xName = columns[0]
		}
		yName = ""
		if len(columns) > 1 {
			yName = columns[1]
		}
	} else {
		proj, err := NewProjection(points)
		if err != nil {
			return nil, err
		}
		xy, cxy = proj.Apply(points), proj.Apply(centroids)
	}

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Clusters", Subtitle: fmt.Sprintf("%d points, %d clusters", len(points), len(centroids))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	byCluster := make([][]opts.ScatterData, len(centroids))
	for i, p := range xy {
		l := labels[i]
		if l < 0 || l >= len(byCluster) {
			return nil, fmt.Errorf("scatter: label %d outside [0,%d)", l, len(byCluster))
		}
		byCluster[l] = append(byCluster[l], opts.ScatterData{Value: []interface{}{p[0], p[1]}})
	}
	for c, data := range byCluster {
		sc.AddSeries(fmt.Sprintf("Cluster %d", c), data).
			SetSeriesOptions(charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	}
	centers := make([]opts.ScatterData, len(cxy))
	for c, p := range cxy {
		centers[c] = opts.ScatterData{
			Name:       fmt.Sprintf("Centroid %d", c),
			Value:      []interface{}{p[0], p[1]},
			Symbol:     "diamond",
			SymbolSize: 18,
		}
	}
	sc.AddSeries("Centroids", centers)
	return sc, nil
}

// WriteElbow renders the k-selection curves to path and returns it.
func WriteElbow(path string, sel *selection.Result) (string, error) {
	return write(path, Elbow(sel))
}

// WriteScatter renders the cluster scatter to path and returns it.
func WriteScatter(path string, points [][]float64, labels []int, centroids [][]float64, columns []string) (string, error) {
	sc, err := Scatter(points, labels, centroids, columns)
	if err != nil {
		return "", err
	}
	return write(path, sc)
}

func write(path string, r Renderer) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

func lineSeries(curve []selection.Score) ([]string, []opts.LineData) {
	xs := make([]string, len(curve))
	ys := make([]opts.LineData, len(curve))
	for i, s := range curve {
		xs[i] = strconv.Itoa(s.K)
		ys[i] = opts.LineData{Value: s.Value}
	}
	return xs, ys
}

// pad2 keeps the first two coordinates of each point, using 0 for a missing
// second one.
func pad2(points [][]float64) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		xy := []float64{0, 0}
		copy(xy, p)
		out[i] = xy
	}
	return out
}
