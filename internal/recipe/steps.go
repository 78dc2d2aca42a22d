package recipe

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"clusterlab/internal/dataset"
)

// NovelLevel is the catch-all bucket a FlagUnseen step maps previously
// unseen categorical values into.
const NovelLevel = "new"

// LogTransform replaces the selected numeric columns (all of them when
// cols is empty) with their natural logarithm. Values must be positive.
func LogTransform(cols ...string) Step { return &logStep{cols: cols} }

type logStep struct{ cols []string }

func (s *logStep) Name() string { return "log_transform" }

func (s *logStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	cols, err := resolveNumeric(ds, s.cols)
	if err != nil {
		return nil, err
	}
	for _, name := range cols {
		col, _ := ds.Column(name)
		for i, v := range col.Numbers {
			if !v.IsPositive() {
				return nil, fmt.Errorf("log_transform: column %q row %d: %s is not positive", name, i, v)
			}
		}
	}
	return &fittedLog{cols: cols}, nil
}

type fittedLog struct{ cols []string }

func (f *fittedLog) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds.Copy()
	for _, name := range f.cols {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		for i, v := range col.Numbers {
			fv, _ := v.Float64()
			if fv <= 0 {
				return nil, fmt.Errorf("log_transform: column %q row %d: %s is not positive", name, i, v)
			}
			col.Numbers[i] = decimal.NewFromFloat(math.Log(fv))
		}
	}
	return out, nil
}

// OneHot expands the selected categorical columns (all of them when cols is
// empty) into one 0/1 indicator column per level observed during fitting.
// Applying to a value outside the fitted level set fails with
// UnseenCategoryError; put a FlagUnseen step first to bucket novel values
// instead.
func OneHot(cols ...string) Step { return &oneHotStep{cols: cols} }

type oneHotStep struct{ cols []string }

func (s *oneHotStep) Name() string { return "one_hot" }

func (s *oneHotStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	cols, err := resolveCategorical(ds, s.cols)
	if err != nil {
		return nil, err
	}
	levels := make(map[string][]string, len(cols))
	for _, name := range cols {
		col, _ := ds.Column(name)
		observed := make(map[string]bool, len(col.Spec.Levels))
		for _, label := range col.Labels {
			observed[label] = true
		}
		// Keep declared level order, but only levels present in the
		// training data (plus the novel bucket if a FlagUnseen step
		// introduced it upstream).
		var kept []string
		for _, level := range col.Spec.Levels {
			if observed[level] || level == NovelLevel {
				kept = append(kept, level)
			}
		}
		levels[name] = kept
	}
	return &fittedOneHot{cols: cols, levels: levels}, nil
}

type fittedOneHot struct {
	cols   []string
	levels map[string][]string
}

func (f *fittedOneHot) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds.Copy()
	one := decimal.NewFromInt(1)
	for _, name := range f.cols {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		fitted := f.levels[name]
		index := make(map[string]int, len(fitted))
		for i, level := range fitted {
			index[level] = i
		}

		indicators := make([][]decimal.Decimal, len(fitted))
		for i := range indicators {
			indicators[i] = make([]decimal.Decimal, out.Rows)
		}
		for row, label := range col.Labels {
			idx, ok := index[label]
			if !ok {
				return nil, &UnseenCategoryError{Column: name, Value: label}
			}
			indicators[idx][row] = one
		}

		out = out.WithoutColumn(name)
		for i, level := range fitted {
			next, err := out.WithColumn(dataset.Column{
				Spec:    dataset.ColumnSpec{Name: name + "_" + level, Kind: dataset.Numeric},
				Numbers: indicators[i],
			})
			if err != nil {
				return nil, err
			}
			out = next
		}
	}
	return out, nil
}

// DropZeroVariance removes columns that carry no information on the
// fitting data: numeric columns where every value is equal and categorical
// columns with a single observed level.
func DropZeroVariance() Step { return &zeroVarStep{} }

type zeroVarStep struct{}

func (s *zeroVarStep) Name() string { return "drop_zero_variance" }

func (s *zeroVarStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	var drop []string
	for _, col := range ds.Columns {
		if ds.Rows == 0 {
			continue
		}
		constant := true
		if col.Spec.Kind == dataset.Numeric {
			for _, v := range col.Numbers[1:] {
				if !v.Equal(col.Numbers[0]) {
					constant = false
					break
				}
			}
		} else {
			for _, label := range col.Labels[1:] {
				if label != col.Labels[0] {
					constant = false
					break
				}
			}
		}
		if constant {
			drop = append(drop, col.Spec.Name)
		}
	}
	return &fittedZeroVar{drop: drop}, nil
}

type fittedZeroVar struct{ drop []string }

func (f *fittedZeroVar) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds
	for _, name := range f.drop {
		out = out.WithoutColumn(name)
	}
	if out == ds {
		out = ds.Copy()
	}
	return out, nil
}

// Normalize centers and scales the selected numeric columns (all of them
// when cols is empty) to mean 0 and unit sample standard deviation, using
// statistics from the fitting data only. A zero standard deviation scales
// by 1 instead.
func Normalize(cols ...string) Step { return &normalizeStep{cols: cols} }

type normalizeStep struct{ cols []string }

func (s *normalizeStep) Name() string { return "normalize" }

func (s *normalizeStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	cols, err := resolveNumeric(ds, s.cols)
	if err != nil {
		return nil, err
	}
	means := make(map[string]decimal.Decimal, len(cols))
	stds := make(map[string]decimal.Decimal, len(cols))
	for _, name := range cols {
		col, _ := ds.Column(name)
		mean := dataset.MeanOf(col.Numbers)
		std := dataset.StdOf(col.Numbers, mean)
		if std.IsZero() {
			std = decimal.NewFromInt(1)
		}
		means[name] = mean
		stds[name] = std
	}
	return &fittedNormalize{cols: cols, means: means, stds: stds}, nil
}

type fittedNormalize struct {
	cols  []string
	means map[string]decimal.Decimal
	stds  map[string]decimal.Decimal
}

func (f *fittedNormalize) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds.Copy()
	for _, name := range f.cols {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		mean, std := f.means[name], f.stds[name]
		for i, v := range col.Numbers {
			col.Numbers[i] = v.Sub(mean).Div(std)
		}
	}
	return out, nil
}

// FlagUnseen rewrites the level set of the selected categorical columns
// (all of them when cols is empty) to the levels observed during fitting
// plus a catch-all novel bucket. Applying to an unobserved value maps it
// to the bucket instead of failing.
func FlagUnseen(cols ...string) Step { return &flagUnseenStep{cols: cols} }

type flagUnseenStep struct{ cols []string }

func (s *flagUnseenStep) Name() string { return "flag_unseen_category" }

func (s *flagUnseenStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	cols, err := resolveCategorical(ds, s.cols)
	if err != nil {
		return nil, err
	}
	observed := make(map[string][]string, len(cols))
	for _, name := range cols {
		col, _ := ds.Column(name)
		seen := make(map[string]bool, len(col.Spec.Levels))
		for _, label := range col.Labels {
			seen[label] = true
		}
		var kept []string
		for _, level := range col.Spec.Levels {
			if seen[level] {
				kept = append(kept, level)
			}
		}
		observed[name] = kept
	}
	return &fittedFlagUnseen{cols: cols, observed: observed}, nil
}

type fittedFlagUnseen struct {
	cols     []string
	observed map[string][]string
}

func (f *fittedFlagUnseen) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds.Copy()
	for _, name := range f.cols {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		kept := f.observed[name]
		known := make(map[string]bool, len(kept))
		for _, level := range kept {
			known[level] = true
		}
		for i, label := range col.Labels {
			if !known[label] {
				col.Labels[i] = NovelLevel
			}
		}
		col.Spec.Levels = append(append([]string(nil), kept...), NovelLevel)
	}
	return out, nil
}

// PowerTransform applies a Yeo-Johnson transform to the selected numeric
// columns (all of them when cols is empty), choosing each column's lambda
// from a fixed grid to minimize the skewness of the transformed values.
func PowerTransform(cols ...string) Step { return &powerStep{cols: cols} }

type powerStep struct{ cols []string }

func (s *powerStep) Name() string { return "power_transform" }

var lambdaGrid = []float64{-2, -1.5, -1, -0.5, 0, 0.5, 1, 1.5, 2}

func (s *powerStep) Fit(ds *dataset.Dataset) (FittedStep, error) {
	cols, err := resolveNumeric(ds, s.cols)
	if err != nil {
		return nil, err
	}
	lambdas := make(map[string]float64, len(cols))
	for _, name := range cols {
		col, _ := ds.Column(name)
		values := make([]float64, len(col.Numbers))
		for i, v := range col.Numbers {
			values[i], _ = v.Float64()
		}
		best, bestSkew := 1.0, math.Inf(1)
		for _, lambda := range lambdaGrid {
			transformed := make([]float64, len(values))
			for i, v := range values {
				transformed[i] = yeoJohnson(v, lambda)
			}
			skew := math.Abs(skewness(transformed))
			if skew < bestSkew {
				best, bestSkew = lambda, skew
			}
		}
		lambdas[name] = best
	}
	return &fittedPower{cols: cols, lambdas: lambdas}, nil
}

type fittedPower struct {
	cols    []string
	lambdas map[string]float64
}

func (f *fittedPower) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	out := ds.Copy()
	for _, name := range f.cols {
		col, err := out.Column(name)
		if err != nil {
			return nil, err
		}
		lambda := f.lambdas[name]
		for i, v := range col.Numbers {
			fv, _ := v.Float64()
			col.Numbers[i] = decimal.NewFromFloat(yeoJohnson(fv, lambda))
		}
	}
	return out, nil
}

func yeoJohnson(x, lambda float64) float64 {
	switch {
	case x >= 0 && lambda != 0:
		return (math.Pow(x+1, lambda) - 1) / lambda
	case x >= 0:
		return math.Log(x + 1)
	case lambda != 2:
		return -(math.Pow(-x+1, 2-lambda) - 1) / (2 - lambda)
	default:
		return -math.Log(-x + 1)
	}
}

func skewness(values []float64) float64 {
	n := float64(len(values))
	if n < 3 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n
	var m2, m3 float64
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}
