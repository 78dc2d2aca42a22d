package recipe

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"clusterlab/internal/dataset"
)

// ProjectPCA replaces the numeric columns with their projection onto the
// first k principal components of the fitting data. Components come from
// a thin SVD of the column-centered matrix; k is capped at the smaller of
// the row and numeric column counts.
func ProjectPCA(k int) Step { return &pcaStep{k: k} }

type pcaStep struct{ k int }

func (s *pcaStep) Name() string { return "project_pca" }

func (s *pcaStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	if s.k < 1 {
		return nil, fmt.Errorf("project_pca: k must be at least 1, got %d", s.k)
	}
	cols := ds.NumericNames()
	if len(cols) == 0 {
		return nil, fmt.Errorf("project_pca: no numeric columns to project")
	}
	n, d := ds.Rows, len(cols)
	if n < 2 {
		return nil, fmt.Errorf("project_pca: need at least 2 rows, got %d", n)
	}
	// The thin SVD yields min(n, d) right singular vectors.
	k := s.k
	if k > d {
		k = d
	}
	if k > n {
		k = n
	}

	// Column means, then the centered data matrix.
	means := make([]float64, d)
	data := make([]float64, 0, n*d)
	for i := 0; i < n; i++ {
		for j, name := range cols {
			col, _ := ds.Column(name)
			v, _ := col.Numbers[i].Float64()
			data = append(data, v)
			means[j] += v / float64(n)
		}
	}
	centered := mat.NewDense(n, d, data)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centered.Set(i, j, centered.At(i, j)-means[j])
		}
	}

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return nil, fmt.Errorf("project_pca: SVD failed to converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	components := make([][]float64, k)
	for c := 0; c < k; c++ {
		components[c] = make([]float64, d)
		for j := 0; j < d; j++ {
			components[c][j] = v.At(j, c)
		}
	}
	return &fittedPCA{cols: cols, means: means, components: components}, nil
}

type fittedPCA struct {
	cols       []string
	means      []float64
	components [][]float64
}

func (f *fittedPCA) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	d := len(f.cols)
	centered := make([][]float64, ds.Rows)
	for i := range centered {
		centered[i] = make([]float64, d)
	}
	for j, name := range f.cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Spec.Kind != dataset.Numeric {
			return nil, fmt.Errorf("project_pca: column %q is not numeric", name)
		}
		for i := 0; i < ds.Rows; i++ {
			v, _ := col.Numbers[i].Float64()
			centered[i][j] = v - f.means[j]
		}
	}

	out := ds.Copy()
	for _, name := range f.cols {
		out = out.WithoutColumn(name)
	}
	for c, comp := range f.components {
		scores := make([]decimal.Decimal, ds.Rows)
		for i := 0; i < ds.Rows; i++ {
			s := 0.0
			for j := 0; j < d; j++ {
				s += centered[i][j] * comp[j]
			}
			scores[i] = decimal.NewFromFloat(s)
		}
		next, err := out.WithColumn(dataset.Column{
			Spec:    dataset.ColumnSpec{Name: fmt.Sprintf("PC%d", c+1), Kind: dataset.Numeric},
			Numbers: scores,
		})
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
