package models

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"
)

// KMeans partitions rows into K clusters with Lloyd iterations seeded by
// k-means++ initialization. All randomness flows from the explicit Seed;
// fitting twice with the same seed and data gives identical centroids.
type KMeans struct {
	BaseModel
	K         int
	MaxIter   int
	Seed      int64
	Centroids [][]float64
	// Inertia is the within-cluster sum of squares on the fitting data.
	Inertia float64
}

func NewKMeans(k int, seed int64) *KMeans {
	return &KMeans{
		K:       k,
		MaxIter: 100,
		Seed:    seed,
		BaseModel: BaseModel{
			Name: "KMeans",
			Params: map[string]any{
				"k":    k,
				"seed": seed,
			},
		},
	}
}

func (m *KMeans) Fit(X [][]decimal.Decimal) error {
	if m.K < 1 {
		return &FitError{Model: m.Name, Reason: "cluster count must be at least 1"}
	}
	if len(X) == 0 {
		return &FitError{Model: m.Name, Reason: "input data is empty"}
	}
	points := toFloat(X)
	n, p := len(points), len(points[0])
	if n < m.K {
		return &FitError{Model: m.Name, Reason: "fewer rows than clusters"}
	}

	rng := rand.New(rand.NewSource(m.Seed))
	m.Centroids = m.initCenters(points, rng)

	assign := make([]int, n)
	for it := 0; it < m.MaxIter; it++ {
		changed := false
		for i, x := range points {
			best := nearestCentroid(x, m.Centroids)
			if assign[i] != best {
				changed = true
				assign[i] = best
			}
		}

		sums := make([][]float64, m.K)
		counts := make([]int, m.K)
		for k := range sums {
			sums[k] = make([]float64, p)
		}
		for i, x := range points {
			k := assign[i]
			counts[k]++
			for j, v := range x {
				sums[k][j] += v
			}
		}
		for k := 0; k < m.K; k++ {
			if counts[k] == 0 {
				continue
			}
			for j := 0; j < p; j++ {
				m.Centroids[k][j] = sums[k][j] / float64(counts[k])
			}
		}

		if !changed && it > 0 {
			break
		}
	}

	m.Inertia = 0
	for i, x := range points {
		m.Inertia += euclidSquared(x, m.Centroids[assign[i]])
	}
	if math.IsNaN(m.Inertia) || math.IsInf(m.Inertia, 0) {
		return &FitError{Model: m.Name, Reason: "inertia diverged"}
	}
	return nil
}

// Predict assigns each row to its nearest fitted centroid. Cluster indices
// are zero-based.
func (m *KMeans) Predict(X [][]decimal.Decimal) ([]int, error) {
	if m.Centroids == nil {
		return nil, &FitError{Model: m.Name, Reason: "model is not fitted"}
	}
	if len(X) == 0 {
		return nil, &FitError{Model: m.Name, Reason: "input data is empty"}
	}
	points := toFloat(X)
	if len(points[0]) != len(m.Centroids[0]) {
		return nil, &FitError{Model: m.Name, Reason: "feature count does not match fitted centroids"}
	}
	assignments := make([]int, len(points))
	for i, x := range points {
		assignments[i] = nearestCentroid(x, m.Centroids)
	}
	return assignments, nil
}

func (m *KMeans) Reset() {
	m.Centroids = nil
	m.Inertia = 0
}

// initCenters runs k-means++: the first center is uniform, each further
// center is sampled proportionally to squared distance from the nearest
// chosen center.
func (m *KMeans) initCenters(points [][]float64, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, m.K)
	centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))

	for len(centroids) < m.K {
		distSq := make([]float64, n)
		total := 0.0
		for i, x := range points {
			minDist := math.MaxFloat64
			for _, c := range centroids {
				if d2 := euclidSquared(x, c); d2 < minDist {
					minDist = d2
				}
			}
			distSq[i] = minDist
			total += minDist
		}
		if total == 0 {
			// All remaining points coincide with a chosen center.
			centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))
			continue
		}
		r := rng.Float64() * total
		cumulative := 0.0
		picked := n - 1
		for i, d2 := range distSq {
			cumulative += d2
			if cumulative >= r {
				picked = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), points[picked]...))
	}
	return centroids
}

func nearestCentroid(x []float64, centroids [][]float64) int {
	best, bestD := 0, math.MaxFloat64
	for k, c := range centroids {
		if d := euclidSquared(x, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

func euclidSquared(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func toFloat(X [][]decimal.Decimal) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j], _ = v.Float64()
		}
	}
	return out
}
