package workflow

import (
	"fmt"
	"sort"
	"strconv"

	"clusterlab/internal/dataset"
	"clusterlab/internal/models"
	"clusterlab/internal/recipe"
)

// Workflow pairs a preprocessing recipe with a model spec; it is the unit
// of search and of final fitting.
type Workflow struct {
	Recipe recipe.Recipe
	Spec   models.Spec
}

// Fitted is a workflow whose recipe and model both carry concrete fitted
// parameters. It owns no external resources.
type Fitted struct {
	Recipe     *recipe.FittedRecipe
	Clusterer  models.Clusterer
	Classifier models.Classifier
	// FeatureNames are the transformed column names the model was fitted
	// on, in matrix order.
	FeatureNames []string
}

// FinalizeClustering binds chosen hyperparameters to a clustering
// workflow and fits recipe and model on the full training data.
func FinalizeClustering(wf Workflow, params map[string]any, ds *dataset.Dataset, seed int64) (*Fitted, error) {
	model, err := models.NewClusterer(wf.Spec, params, seed)
	if err != nil {
		return nil, err
	}
	fittedRecipe, baked, err := prep(wf.Recipe, ds)
	if err != nil {
		return nil, err
	}
	X := baked.Matrix()
	if err := dataset.ValidateMatrix(X); err != nil {
		return nil, err
	}
	if err := model.Fit(X); err != nil {
		return nil, err
	}
	return &Fitted{
		Recipe:       fittedRecipe,
		Clusterer:    model,
		FeatureNames: baked.NumericNames(),
	}, nil
}

// FinalizeClassification binds chosen hyperparameters to a classification
// workflow and fits on the given training data, using labelCol as target.
// The label column is excluded from the feature transforms.
func FinalizeClassification(wf Workflow, params map[string]any, ds *dataset.Dataset, labelCol string) (*Fitted, error) {
	model, err := models.NewClassifier(wf.Spec, params)
	if err != nil {
		return nil, err
	}
	y, err := ds.LabelInts(labelCol)
	if err != nil {
		return nil, err
	}
	fittedRecipe, baked, err := prep(wf.Recipe, ds.WithoutColumn(labelCol))
	if err != nil {
		return nil, err
	}
	X := baked.Matrix()
	if err := dataset.ValidateMatrix(X); err != nil {
		return nil, err
	}
	if err := model.Fit(X, y); err != nil {
		return nil, err
	}
	return &Fitted{
		Recipe:       fittedRecipe,
		Classifier:   model,
		FeatureNames: baked.NumericNames(),
	}, nil
}

func prep(r recipe.Recipe, ds *dataset.Dataset) (*recipe.FittedRecipe, *dataset.Dataset, error) {
	fitted, err := r.Fit(ds)
	if err != nil {
		return nil, nil, err
	}
	baked, err := fitted.Apply(ds)
	if err != nil {
		return nil, nil, err
	}
	return fitted, baked, nil
}

// PredictClusters assigns a cluster label to every row. Labels are the
// strings "1".."k" so the downstream classification task sees an ordinary
// categorical target.
func (f *Fitted) PredictClusters(ds *dataset.Dataset) ([]string, error) {
	if f.Clusterer == nil {
		return nil, fmt.Errorf("workflow has no fitted clustering model")
	}
	baked, err := f.Recipe.Apply(ds)
	if err != nil {
		return nil, err
	}
	assignments, err := f.Clusterer.Predict(baked.Matrix())
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(assignments))
	for i, a := range assignments {
		labels[i] = strconv.Itoa(a + 1)
	}
	return labels, nil
}

// LabelDataset merges cluster assignments back onto a copy of the dataset
// as a categorical column.
func LabelDataset(ds *dataset.Dataset, name string, labels []string, k int) (*dataset.Dataset, error) {
	levels := make([]string, k)
	for i := range levels {
		levels[i] = strconv.Itoa(i + 1)
	}
	return ds.WithColumn(dataset.Column{
		Spec:   dataset.ColumnSpec{Name: name, Kind: dataset.Categorical, Levels: levels},
		Labels: labels,
	})
}

// PredictLabels classifies every row of ds, returning class indices into
// the label column's level set.
func (f *Fitted) PredictLabels(ds *dataset.Dataset, labelCol string) ([]int, error) {
	if f.Classifier == nil {
		return nil, fmt.Errorf("workflow has no fitted classification model")
	}
	baked, err := f.Recipe.Apply(ds.WithoutColumn(labelCol))
	if err != nil {
		return nil, err
	}
	return f.Classifier.Predict(baked.Matrix()), nil
}

// ImportanceEntry is one (feature, score) pair of the ranked importance
// list.
type ImportanceEntry struct {
	Feature string
	Score   float64
}

// Importance ranks transformed features by the fitted tree's impurity
// decrease, highest first. Ties keep matrix order.
func (f *Fitted) Importance() ([]ImportanceEntry, error) {
	tree, ok := f.Classifier.(*models.DecisionTree)
	if !ok {
		return nil, fmt.Errorf("classifier %T does not expose feature importance", f.Classifier)
	}
	scores := tree.FeatureImportance()
	if len(scores) != len(f.FeatureNames) {
		return nil, fmt.Errorf("importance has %d entries for %d features", len(scores), len(f.FeatureNames))
	}
	entries := make([]ImportanceEntry, len(scores))
	for i, score := range scores {
		entries[i] = ImportanceEntry{Feature: f.FeatureNames[i], Score: score}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}
