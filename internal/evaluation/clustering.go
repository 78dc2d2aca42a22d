package evaluation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClusterScore carries the elbow-method quality signal for one clustering
// fit scored against one dataset.
type ClusterScore struct {
	WSS   float64
	TSS   float64
	Ratio float64
}

// ScoreClustering computes within-cluster and total sum of squares for X
// under the given assignments and centroids. TSS is measured against the
// grand mean of the *fitting* data, so a single-cluster model scores a
// ratio of exactly 1 and the ratio always stays in [0, 1].
func ScoreClustering(X [][]decimal.Decimal, assignments []int, centroids [][]float64, grandMean []float64) (ClusterScore, error) {
	if len(X) != len(assignments) {
		return ClusterScore{}, fmt.Errorf("rows and assignments have different lengths: %d vs %d", len(X), len(assignments))
	}
	if len(X) == 0 {
		return ClusterScore{}, fmt.Errorf("no rows to score")
	}

	var wss, tss float64
	for i, row := range X {
		point := make([]float64, len(row))
		for j, v := range row {
			point[j], _ = v.Float64()
		}
		k := assignments[i]
		if k < 0 || k >= len(centroids) {
			return ClusterScore{}, fmt.Errorf("row %d assigned to cluster %d of %d", i, k, len(centroids))
		}
		wss += sumSquaredDiff(point, centroids[k])
		tss += sumSquaredDiff(point, grandMean)
	}

	score := ClusterScore{WSS: wss, TSS: tss}
	if tss > 0 {
		score.Ratio = wss / tss
	}
	if score.Ratio > 1 {
		score.Ratio = 1
	}
	return score, nil
}

// GrandMean averages each column of X.
func GrandMean(X [][]decimal.Decimal) []float64 {
	if len(X) == 0 {
		return nil
	}
	mean := make([]float64, len(X[0]))
	for _, row := range X {
		for j, v := range row {
			f, _ := v.Float64()
			mean[j] += f
		}
	}
	for j := range mean {
		mean[j] /= float64(len(X))
	}
	return mean
}

func sumSquaredDiff(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
