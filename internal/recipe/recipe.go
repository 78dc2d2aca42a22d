package recipe

import (
	"fmt"

	"clusterlab/internal/dataset"
)

// UnseenCategoryError reports a categorical value that was not observed
// while fitting and has no novel-bucket handling configured.
type UnseenCategoryError struct {
	Column string
	Value  string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("column %q: value %q was not seen during fitting", e.Column, e.Value)
}

// Step is one declarative transform in a recipe. Fit learns whatever
// statistics the step needs from training data only and returns an
// immutable FittedStep.
type Step interface {
	Name() string
	Fit(ds *dataset.Dataset) (FittedStep, error)
}

// FittedStep applies a previously fitted transform to any dataset with a
// compatible schema. Apply never mutates its input.
type FittedStep interface {
	Apply(ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Recipe is a named, ordered sequence of steps. Order is significant:
// each step is fitted on the output of the steps before it.
type Recipe struct {
	Name  string
	Steps []Step
}

func New(name string, steps ...Step) Recipe {
	return Recipe{Name: name, Steps: steps}
}

// Fit preps the recipe on training data, producing a FittedRecipe that can
// be applied repeatedly and deterministically.
func (r Recipe) Fit(ds *dataset.Dataset) (*FittedRecipe, error) {
	fitted := make([]FittedStep, 0, len(r.Steps))
	cur := ds
	for _, step := range r.Steps {
		fs, err := step.Fit(cur)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: fitting step %s: %w", r.Name, step.Name(), err)
		}
		cur, err = fs.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: applying step %s during fit: %w", r.Name, step.Name(), err)
		}
		fitted = append(fitted, fs)
	}
	return &FittedRecipe{Name: r.Name, steps: fitted}, nil
}

// FittedRecipe is a recipe whose steps all carry concrete fitted
// parameters.
type FittedRecipe struct {
	Name  string
	steps []FittedStep
}

// Apply bakes the fitted recipe into a new dataset.
func (fr *FittedRecipe) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	cur := ds
	for i, fs := range fr.steps {
		next, err := fs.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("recipe %q: step %d: %w", fr.Name, i, err)
		}
		cur = next
	}
	return cur, nil
}

// resolveNumeric expands an empty column selection to every numeric column
// and validates an explicit one.
func resolveNumeric(ds *dataset.Dataset, cols []string) ([]string, error) {
	if len(cols) == 0 {
		return ds.NumericNames(), nil
	}
	for _, name := range cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Spec.Kind != dataset.Numeric {
			return nil, fmt.Errorf("column %q is not numeric", name)
		}
	}
	return cols, nil
}

// resolveCategorical is the categorical counterpart of resolveNumeric.
func resolveCategorical(ds *dataset.Dataset, cols []string) ([]string, error) {
	if len(cols) == 0 {
		return ds.CategoricalNames(), nil
	}
	for _, name := range cols {
		col, err := ds.Column(name)
		if err != nil {
			return nil, err
		}
		if col.Spec.Kind != dataset.Categorical {
			return nil, fmt.Errorf("column %q is not categorical", name)
		}
	}
	return cols, nil
}
