package dataset

import (
	"math"

	"github.com/shopspring/decimal"
)

// ColumnSummary holds per-column statistics for the analyst-facing EDA
// report. Numeric columns get min/max/mean/std; categorical columns get
// level counts.
type ColumnSummary struct {
	Name        string
	Kind        Kind
	Min         decimal.Decimal
	Max         decimal.Decimal
	Mean        decimal.Decimal
	Std         decimal.Decimal
	LevelCounts map[string]int
}

// Summarize computes column statistics for all columns in dataset order.
func Summarize(ds *Dataset) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		s := ColumnSummary{Name: col.Spec.Name, Kind: col.Spec.Kind}
		if col.Spec.Kind == Numeric {
			s.Min = minOf(col.Numbers)
			s.Max = maxOf(col.Numbers)
			s.Mean = MeanOf(col.Numbers)
			s.Std = StdOf(col.Numbers, s.Mean)
		} else {
			s.LevelCounts = make(map[string]int, len(col.Spec.Levels))
			for _, level := range col.Spec.Levels {
				s.LevelCounts[level] = 0
			}
			for _, label := range col.Labels {
				s.LevelCounts[label]++
			}
		}
		out = append(out, s)
	}
	return out
}

func minOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	min := values[0]
	for _, v := range values[1:] {
		if v.LessThan(min) {
			min = v
		}
	}
	return min
}

func maxOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max
}

// MeanOf averages a numeric column.
func MeanOf(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// StdOf computes the sample standard deviation around mean. The square
// root goes through float64; decimal has no exact sqrt.
func StdOf(values []decimal.Decimal, mean decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}
	variance := decimal.Zero
	for _, v := range values {
		diff := v.Sub(mean)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(decimal.NewFromInt(int64(len(values) - 1)))
	varFloat, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(varFloat))
}
