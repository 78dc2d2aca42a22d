package search

import "fmt"

// Axis is one hyperparameter dimension of a grid.
type Axis struct {
	Name   string
	Values []any
}

// Grid is an ordered list of concrete hyperparameter combinations. Order
// is significant: SelectBest breaks ties in favor of the earlier index.
type Grid []map[string]any

// Expand builds the cross product of the axes. The first axis varies
// slowest, the last fastest, like nested loops in declaration order.
func Expand(axes ...Axis) (Grid, error) {
	for _, axis := range axes {
		if len(axis.Values) == 0 {
			return nil, fmt.Errorf("grid axis %q has no values", axis.Name)
		}
	}
	grid := Grid{map[string]any{}}
	for _, axis := range axes {
		next := make(Grid, 0, len(grid)*len(axis.Values))
		for _, combo := range grid {
			for _, value := range axis.Values {
				merged := make(map[string]any, len(combo)+1)
				for k, v := range combo {
					merged[k] = v
				}
				merged[axis.Name] = value
				next = append(next, merged)
			}
		}
		grid = next
	}
	return grid, nil
}

// IntAxis builds an axis of integer values.
func IntAxis(name string, values ...int) Axis {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Axis{Name: name, Values: out}
}

// FloatAxis builds an axis of float values.
func FloatAxis(name string, values ...float64) Axis {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Axis{Name: name, Values: out}
}

// IntRange builds consecutive integers from lo to hi inclusive.
func IntRange(name string, lo, hi int) (Axis, error) {
	if hi < lo {
		return Axis{}, fmt.Errorf("grid axis %q: range %d..%d is empty", name, lo, hi)
	}
	values := make([]any, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, v)
	}
	return Axis{Name: name, Values: values}, nil
}
