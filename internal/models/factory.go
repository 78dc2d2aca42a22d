package models

import (
	"fmt"
)

// Spec names a model family and its hyperparameters. Search combines a
// Spec's fixed params with one grid combination to build each candidate;
// "to-be-tuned" parameters are simply absent from Fixed.
type Spec struct {
	Family string
	Fixed  map[string]any
}

// params merges fixed values with one grid combination; the combination
// wins on conflict.
func (s Spec) params(combo map[string]any) map[string]any {
	merged := make(map[string]any, len(s.Fixed)+len(combo))
	for k, v := range s.Fixed {
		merged[k] = v
	}
	for k, v := range combo {
		merged[k] = v
	}
	return merged
}

// NewClusterer instantiates a clustering model from a spec and one grid
// combination. Invalid hyperparameter values are configuration errors and
// abort the search.
func NewClusterer(spec Spec, combo map[string]any, seed int64) (Clusterer, error) {
	p := spec.params(combo)
	switch spec.Family {
	case "kmeans":
		k, err := intParam(p, "k", 0)
		if err != nil {
			return nil, err
		}
		if k < 1 {
			return nil, fmt.Errorf("kmeans: cluster count %d is below 1", k)
		}
		return NewKMeans(k, seed), nil
	default:
		return nil, fmt.Errorf("unknown clustering family: %s", spec.Family)
	}
}

// NewClassifier instantiates a classification model from a spec and one
// grid combination.
func NewClassifier(spec Spec, combo map[string]any) (Classifier, error) {
	p := spec.params(combo)
	switch spec.Family {
	case "decision_tree":
		maxDepth, err := intParam(p, "max_depth", 10)
		if err != nil {
			return nil, err
		}
		minSplit, err := intParam(p, "min_samples_split", 2)
		if err != nil {
			return nil, err
		}
		minDecrease, err := floatParam(p, "min_impurity_decrease", 0)
		if err != nil {
			return nil, err
		}
		return NewDecisionTree(maxDepth, minSplit, minDecrease), nil
	default:
		return nil, fmt.Errorf("unknown classification family: %s", spec.Family)
	}
}

func intParam(p map[string]any, name string, fallback int) (int, error) {
	v, ok := p[name]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected integer, got %T", name, v)
	}
}

func floatParam(p map[string]any, name string, fallback float64) (float64, error) {
	v, ok := p[name]
	if !ok {
		return fallback, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", name, v)
	}
}
