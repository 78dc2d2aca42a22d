package search

import (
	"fmt"
	"math"
)

// FoldMetrics holds one fold's metric values for one configuration, or
// the error that prevented them.
type FoldMetrics struct {
	Values map[string]float64
	Err    error
}

// ConfigResult aggregates all folds of one (workflow, combination) cell.
type ConfigResult struct {
	Workflow   string
	ComboIndex int
	Params     map[string]any
	Folds      []FoldMetrics
}

// Mean averages a metric across folds, skipping failed folds. When every
// fold failed the mean is NaN and the configuration is excluded from
// selection.
func (c *ConfigResult) Mean(metric string) float64 {
	sum, n := 0.0, 0
	for _, fold := range c.Folds {
		if fold.Err != nil {
			continue
		}
		if v, ok := fold.Values[metric]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Std is the sample standard deviation of a metric across successful
// folds.
func (c *ConfigResult) Std(metric string) float64 {
	mean := c.Mean(metric)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum, n := 0.0, 0
	for _, fold := range c.Folds {
		if fold.Err != nil {
			continue
		}
		if v, ok := fold.Values[metric]; ok {
			d := v - mean
			sum += d * d
			n++
		}
	}
	if n < 2 {
		return 0
	}
	return math.Sqrt(sum / float64(n-1))
}

// FailedFolds counts folds that recorded an error.
func (c *ConfigResult) FailedFolds() int {
	failed := 0
	for _, fold := range c.Folds {
		if fold.Err != nil {
			failed++
		}
	}
	return failed
}

// TuningResult is the full search output: one ConfigResult per
// (workflow × grid combination), ordered workflow-major then grid order.
type TuningResult struct {
	Metrics []string
	Configs []ConfigResult
}

// SelectBest returns the configuration with the highest mean of the given
// metric among configurations with at least one successful fold. Ties go
// to the earliest configuration in search order.
func (t *TuningResult) SelectBest(metric string) (*ConfigResult, error) {
	var best *ConfigResult
	bestMean := math.Inf(-1)
	for i := range t.Configs {
		mean := t.Configs[i].Mean(metric)
		if math.IsNaN(mean) {
			continue
		}
		if mean > bestMean {
			bestMean = mean
			best = &t.Configs[i]
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no configuration produced a usable %q value", metric)
	}
	return best, nil
}

// ByWorkflow groups configuration results by workflow identifier,
// preserving search order within each group.
func (t *TuningResult) ByWorkflow() map[string][]*ConfigResult {
	out := make(map[string][]*ConfigResult)
	for i := range t.Configs {
		c := &t.Configs[i]
		out[c.Workflow] = append(out[c.Workflow], c)
	}
	return out
}
