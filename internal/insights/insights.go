package insights

import (
	"fmt"
	"math"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/metrics"
	"github.com/KaramelBytes/segmenta-cli/internal/preprocess"
	"gonum.org/v1/gonum/stat"
)

// Level compares a cluster mean with the global mean of a feature.
type Level string

const (
	High   Level = "High"
	Medium Level = "Medium"
	Low    Level = "Low"
)

// Concepts are the keyword sets used to find the price, sold and rating
// columns by name.
type Concepts struct {
	Price  []string `json:"price" yaml:"price"`
	Sold   []string `json:"sold" yaml:"sold"`
	Rating []string `json:"rating" yaml:"rating"`
}

// DefaultConcepts matches English and Indonesian marketplace exports.
func DefaultConcepts() Concepts {
	return Concepts{
		Price:  []string{"price", "harga"},
		Sold:   []string{"sold", "terjual"},
		Rating: []string{"rating"},
	}
}

// ClusterShare is the size of one cluster.
type ClusterShare struct {
	Cluster int     `json:"cluster" yaml:"cluster"`
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Distribution describes how rows spread across clusters.
type Distribution struct {
	Total        int            `json:"total" yaml:"total"`
	Clusters     []ClusterShare `json:"clusters" yaml:"clusters"`
	Largest      ClusterShare   `json:"largest" yaml:"largest"`
	Smallest     ClusterShare   `json:"smallest" yaml:"smallest"`
	BalanceRatio float64        `json:"balance_ratio" yaml:"balance_ratio"`
	Balance      string         `json:"balance" yaml:"balance"`
}

// Quality holds the verdicts derived from the evaluation metrics.
type Quality struct {
	Overall        string `json:"overall" yaml:"overall"`
	Interpretation string `json:"interpretation" yaml:"interpretation"`
	Separation     string `json:"separation" yaml:"separation"`
	Compactness    string `json:"compactness" yaml:"compactness"`
}

// FeatureProfile is one feature's statistics within a cluster.
type FeatureProfile struct {
	Name       string  `json:"name" yaml:"name"`
	Mean       float64 `json:"mean" yaml:"mean"`
	Std        float64 `json:"std" yaml:"std"`
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
	GlobalMean float64 `json:"global_mean" yaml:"global_mean"`
	Level      Level   `json:"level" yaml:"level"`
}

// ClusterProfile characterizes one cluster.
type ClusterProfile struct {
	Cluster     int              `json:"cluster" yaml:"cluster"`
	Size        int              `json:"size" yaml:"size"`
	Percent     float64          `json:"percent" yaml:"percent"`
	Features    []FeatureProfile `json:"features" yaml:"features"`
	Label       Label            `json:"label" yaml:"label"`
	Description string           `json:"description" yaml:"description"`
}

// ConceptColumns records which columns were matched to each concept; empty
// means no match.
type ConceptColumns struct {
	Price  string `json:"price,omitempty" yaml:"price,omitempty"`
	Sold   string `json:"sold,omitempty" yaml:"sold,omitempty"`
	Rating string `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// Business summarizes what the segmentation means commercially.
type Business struct {
	MarketSegmentation  string   `json:"market_segmentation" yaml:"market_segmentation"`
	ResourceAllocation  string   `json:"resource_allocation" yaml:"resource_allocation"`
	TargetingStrategy   string   `json:"targeting_strategy" yaml:"targeting_strategy"`
	GrowthOpportunities []string `json:"growth_opportunities" yaml:"growth_opportunities"`
}

// Insights is the full interpretation of a clustering run.
type Insights struct {
	K               int              `json:"k" yaml:"k"`
	Distribution    Distribution     `json:"distribution" yaml:"distribution"`
	Quality         Quality          `json:"quality" yaml:"quality"`
	Concepts        ConceptColumns   `json:"concept_columns" yaml:"concept_columns"`
	Clusters        []ClusterProfile `json:"clusters" yaml:"clusters"`
	Recommendations []string         `json:"recommendations" yaml:"recommendations"`
	Business        Business         `json:"business" yaml:"business"`
}

// Generate interprets labels over the original-scale table. labels must have
// one entry per row, each in [0, k).
func Generate(c *preprocess.Cleaned, labels []int, k int, ev metrics.Evaluation, concepts Concepts) (*Insights, error) {
	if c == nil || c.Len() == 0 {
		return nil, fmt.Errorf("insights: empty table")
	}
	if len(labels) != c.Len() {
		return nil, fmt.Errorf("insights: %d labels for %d rows", len(labels), c.Len())
	}
	if k < 1 {
		return nil, fmt.Errorf("insights: k must be positive, got %d", k)
	}
	for i, l := range labels {
		if l < 0 || l >= k {
			return nil, fmt.Errorf("insights: label %d at row %d outside [0,%d)", l, i, k)
		}
	}
	ins := &Insights{
		K:            k,
		Distribution: distribution(labels, k),
		Quality:      AssessQuality(ev),
	}
	ins.Concepts = ConceptColumns{
		Price:  first(IdentifyConceptColumn(c.Columns, concepts.Price)),
		Sold:   first(IdentifyConceptColumn(c.Columns, concepts.Sold)),
		Rating: first(IdentifyConceptColumn(c.Columns, concepts.Rating)),
	}
	ins.Clusters = profiles(c, labels, k, ins.Concepts, ins.Distribution)
	ins.Recommendations = recommendations(ev.Silhouette, k)
	// thresholds apply to the exact share; Percent is rounded for display
	d := ins.Distribution
	ins.Business = businessImplications(float64(d.Largest.Count)*100/float64(d.Total), k)
	return ins, nil
}

// IdentifyConceptColumn returns the first column whose lower-cased name
// contains any keyword.
func IdentifyConceptColumn(names []string, keywords []string) (string, bool) {
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return name, true
			}
		}
	}
	return "", false
}

func first(s string, _ bool) string { return s }

func distribution(labels []int, k int) Distribution {
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	total := len(labels)
	d := Distribution{Total: total, Clusters: make([]ClusterShare, k)}
	for c, n := range counts {
		d.Clusters[c] = ClusterShare{Cluster: c, Count: n, Percent: round1(float64(n) * 100 / float64(total))}
	}
	d.Largest, d.Smallest = d.Clusters[0], d.Clusters[0]
	for _, s := range d.Clusters[1:] {
		if s.Count > d.Largest.Count {
			d.Largest = s
		}
		if s.Count < d.Smallest.Count {
			d.Smallest = s
		}
	}
	if d.Largest.Count > 0 {
		d.BalanceRatio = float64(d.Smallest.Count) / float64(d.Largest.Count)
	}
	d.Balance = BalanceVerdict(d.BalanceRatio)
	return d
}

// BalanceVerdict maps min/max cluster size ratio to a verdict.
func BalanceVerdict(ratio float64) string {
	switch {
	case ratio > 0.7:
		return "very balanced"
	case ratio > 0.4:
		return "fairly balanced"
	case ratio > 0.2:
		return "imbalanced"
	default:
		return "very imbalanced"
	}
}

// AssessQuality derives verdicts from the metrics.
func AssessQuality(ev metrics.Evaluation) Quality {
	q := Quality{}
	switch s := ev.Silhouette; {
	case s >= 0.7:
		q.Overall, q.Interpretation = "excellent", "clusters are very distinct"
	case s >= 0.5:
		q.Overall, q.Interpretation = "good", "clusters are fairly distinct"
	case s >= 0.25:
		q.Overall, q.Interpretation = "fair", "clusters still overlap"
	default:
		q.Overall, q.Interpretation = "poor", "clusters are not clearly separated"
	}
	switch db := ev.DaviesBouldin; {
	case db <= 1:
		q.Separation = "excellent separation"
	case db <= 2:
		q.Separation = "fair separation"
	default:
		q.Separation = "poor separation"
	}
	switch ch := ev.CalinskiHarabasz; {
	case ch >= 100:
		q.Compactness = "very compact"
	case ch >= 50:
		q.Compactness = "fairly compact"
	default:
		q.Compactness = "poor compactness"
	}
	return q
}

// LevelOf compares a cluster mean with the global mean.
func LevelOf(clusterMean, globalMean float64) Level {
	switch {
	case clusterMean > globalMean*1.15:
		return High
	case clusterMean < globalMean*0.85:
		return Low
	default:
		return Medium
	}
}

func profiles(c *preprocess.Cleaned, labels []int, k int, cc ConceptColumns, d Distribution) []ClusterProfile {
	global := make([]float64, c.Dim())
	for j := range c.Columns {
		global[j] = stat.Mean(c.Column(j), nil)
	}
	members := make([][]int, k)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	labelAll := cc.Price != "" && cc.Sold != "" && cc.Rating != ""
	out := make([]ClusterProfile, 0, k)
	for cl := 0; cl < k; cl++ {
		p := ClusterProfile{Cluster: cl, Size: len(members[cl]), Percent: d.Clusters[cl].Percent, Label: NeedsReview}
		means := make([]float64, len(c.Columns))
		for j, name := range c.Columns {
			vals := make([]float64, len(members[cl]))
			for m, i := range members[cl] {
				vals[m] = c.Data[i][j]
			}
			fp := FeatureProfile{Name: name, GlobalMean: global[j]}
			if len(vals) > 0 {
				fp.Mean = stat.Mean(vals, nil)
				fp.Min, fp.Max = minMax(vals)
				fp.Level = LevelOf(fp.Mean, global[j])
				means[j] = fp.Mean
			}
			if len(vals) > 1 {
				fp.Std = stat.StdDev(vals, nil)
			}
			p.Features = append(p.Features, fp)
		}
		if labelAll && p.Size > 0 {
			// concept names resolve to the first matching column, as in
			// IdentifyConceptColumn
			pi, si, ri := indexOf(c.Columns, cc.Price), indexOf(c.Columns, cc.Sold), indexOf(c.Columns, cc.Rating)
			p.Label = Classify(
				means[pi], means[si], means[ri],
				global[pi], global[si], global[ri],
			)
		}
		p.Description = p.Label.Description()
		out = append(out, p)
	}
	return out
}

// Classify applies the category rules to cluster and global means, first
// match wins.
func Classify(price, sold, rating, gPrice, gSold, gRating float64) Label {
	switch {
	case sold > gSold && rating > gRating:
		return FlagshipTopPerformer
	case sold > gSold && price < gPrice:
		return FastMovingVolume
	case price > gPrice && sold < gSold:
		return PremiumNiche
	case rating > gRating:
		return PotentialUnderexploited
	default:
		return NeedsReview
	}
}

func recommendations(silhouette float64, k int) []string {
	rec := make([]string, 0, 5)
	if silhouette >= 0.5 {
		rec = append(rec, "Clustering quality is good enough for market segmentation")
	} else {
		rec = append(rec, "Re-evaluate the number of clusters or the feature set before acting on the segments")
	}
	switch {
	case k <= 3:
		rec = append(rec, fmt.Sprintf("Simple segmentation (%d clusters): keep campaigns broad per segment", k))
	case k <= 5:
		rec = append(rec, fmt.Sprintf("Moderate segmentation (%d clusters): tailor offers per segment", k))
	default:
		rec = append(rec, fmt.Sprintf("Complex segmentation (%d clusters): consider merging similar segments for execution", k))
	}
	return append(rec,
		"Run a different promotion for each cluster",
		"Monitor cluster performance regularly",
		"Use the clusters as a basis for business decisions",
	)
}

func businessImplications(largestPct float64, k int) Business {
	b := Business{
		ResourceAllocation: "Allocate resources per cluster according to its size and value",
		TargetingStrategy:  fmt.Sprintf("Targeting strategy based on %d clusters", k),
		GrowthOpportunities: []string{
			"Optimize the flagship clusters",
			"Develop the potential clusters",
			"Explore niche markets",
		},
	}
	switch {
	case largestPct > 50:
		b.MarketSegmentation = "one dominant segment"
	case largestPct > 30:
		b.MarketSegmentation = "dominant plus secondary segments"
	default:
		b.MarketSegmentation = "evenly spread market"
	}
	return b
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
