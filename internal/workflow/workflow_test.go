package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clusterlab/internal/dataset"
	"clusterlab/internal/evaluation"
	"clusterlab/internal/models"
	"clusterlab/internal/recipe"
)

func pcaRecipe(t *testing.T) recipe.Recipe {
	t.Helper()
	rec, ok := recipe.Lookup("dummy-norm-pca")
	require.True(t, ok)
	return rec
}

func TestFinalizeClusteringAndPredict(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	wf := Workflow{Recipe: pcaRecipe(t), Spec: models.Spec{Family: "kmeans"}}
	fitted, err := FinalizeClustering(wf, map[string]any{"k": 6}, ds, 42)
	require.NoError(t, err)
	require.NotNil(t, fitted.Clusterer)
	assert.Equal(t, []string{"PC1", "PC2", "PC3", "PC4", "PC5"}, fitted.FeatureNames)

	labels, err := fitted.PredictClusters(ds)
	require.NoError(t, err)
	require.Len(t, labels, 32)

	valid := map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": true, "6": true}
	used := make(map[string]bool)
	for _, label := range labels {
		assert.True(t, valid[label], "label %q outside 1..6", label)
		used[label] = true
	}
	assert.Greater(t, len(used), 1, "six clusters on 32 cars should not collapse to one")
}

func TestPredictClustersDeterminism(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)
	wf := Workflow{Recipe: pcaRecipe(t), Spec: models.Spec{Family: "kmeans"}}

	a, err := FinalizeClustering(wf, map[string]any{"k": 6}, ds, 42)
	require.NoError(t, err)
	b, err := FinalizeClustering(wf, map[string]any{"k": 6}, ds, 42)
	require.NoError(t, err)

	la, err := a.PredictClusters(ds)
	require.NoError(t, err)
	lb, err := b.PredictClusters(ds)
	require.NoError(t, err)
	assert.Equal(t, la, lb)
}

func TestLabelDataset(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	labels := make([]string, ds.Rows)
	for i := range labels {
		labels[i] = "2"
	}
	labeled, err := LabelDataset(ds, "cluster", labels, 3)
	require.NoError(t, err)

	col, err := labeled.Column("cluster")
	require.NoError(t, err)
	assert.Equal(t, dataset.Categorical, col.Spec.Kind)
	assert.Equal(t, []string{"1", "2", "3"}, col.Spec.Levels)

	y, err := labeled.LabelInts("cluster")
	require.NoError(t, err)
	assert.Equal(t, 1, y[0], "level 2 encodes as index 1")
}

func TestFinalizeClassificationExcludesLabelColumn(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	rec, ok := recipe.Lookup("dummy-norm")
	require.True(t, ok)
	wf := Workflow{Recipe: rec, Spec: models.Spec{Family: "decision_tree"}}

	fitted, err := FinalizeClassification(wf, map[string]any{"max_depth": 4}, ds, "am")
	require.NoError(t, err)
	require.NotNil(t, fitted.Classifier)

	for _, name := range fitted.FeatureNames {
		assert.NotContains(t, name, "am_", "target must not leak into the features")
	}

	preds, err := fitted.PredictLabels(ds, "am")
	require.NoError(t, err)
	require.Len(t, preds, 32)
	for _, p := range preds {
		assert.Contains(t, []int{0, 1}, p)
	}
}

func TestImportanceRanksFeatures(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	rec, ok := recipe.Lookup("dummy-norm")
	require.True(t, ok)
	wf := Workflow{Recipe: rec, Spec: models.Spec{Family: "decision_tree"}}
	fitted, err := FinalizeClassification(wf, map[string]any{"max_depth": 4}, ds, "am")
	require.NoError(t, err)

	entries, err := fitted.Importance()
	require.NoError(t, err)
	require.Len(t, entries, len(fitted.FeatureNames))

	total := 0.0
	for i, e := range entries {
		total += e.Score
		if i > 0 {
			assert.LessOrEqual(t, e.Score, entries[i-1].Score, "ranking must be descending")
		}
	}
	assert.InDelta(t, 1, total, 1e-9)
}

// The full unsupervised-then-supervised chain: cluster, label, hold out a
// test set, fit a tree on the training rows, score the held-out rows.
func TestClusterThenClassifyEndToEnd(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	clusterWF := Workflow{Recipe: pcaRecipe(t), Spec: models.Spec{Family: "kmeans"}}
	clusterFit, err := FinalizeClustering(clusterWF, map[string]any{"k": 3}, ds, 42)
	require.NoError(t, err)

	labels, err := clusterFit.PredictClusters(ds)
	require.NoError(t, err)
	labeled, err := LabelDataset(ds, "cluster", labels, 3)
	require.NoError(t, err)

	y, err := labeled.LabelInts("cluster")
	require.NoError(t, err)
	train, test, err := evaluation.TrainTestSplit(labeled.Rows, 0.25, 42)
	require.NoError(t, err)

	rec, ok := recipe.Lookup("log-dummy-norm")
	require.True(t, ok)
	treeWF := Workflow{Recipe: rec, Spec: models.Spec{Family: "decision_tree"}}
	treeFit, err := FinalizeClassification(treeWF,
		map[string]any{"max_depth": 4, "min_samples_split": 2}, labeled.SelectRows(train), "cluster")
	require.NoError(t, err)

	preds, err := treeFit.PredictLabels(labeled.SelectRows(test), "cluster")
	require.NoError(t, err)

	yTest := make([]int, len(test))
	for i, idx := range test {
		yTest[i] = y[idx]
	}
	metrics, err := evaluation.CalculateMetrics(yTest, preds, models.ExtractClasses(y))
	require.NoError(t, err)
	assert.Equal(t, len(test), metrics.NumSamples)
	assert.GreaterOrEqual(t, metrics.Accuracy, 0.0)
	assert.LessOrEqual(t, metrics.Accuracy, 1.0)
}

// A held-out row with a categorical level the training rows never showed
// surfaces as a typed error the pipeline can catch, when the recipe has no
// novel-level bucket.
func TestPredictLabelsUnseenCategory(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	// Maserati Bora (row 30) is the only eight-carburetor car.
	train := make([]int, 0, ds.Rows-1)
	for i := 0; i < ds.Rows; i++ {
		if i != 30 {
			train = append(train, i)
		}
	}

	rec, ok := recipe.Lookup("dummy-norm")
	require.True(t, ok)
	wf := Workflow{Recipe: rec, Spec: models.Spec{Family: "decision_tree"}}
	fitted, err := FinalizeClassification(wf, map[string]any{"max_depth": 4}, ds.SelectRows(train), "am")
	require.NoError(t, err)

	_, err = fitted.PredictLabels(ds.SelectRows([]int{30}), "am")
	var unseen *recipe.UnseenCategoryError
	require.ErrorAs(t, err, &unseen)
	assert.Equal(t, "carb", unseen.Column)
	assert.Equal(t, "8", unseen.Value)
}

func TestFittedGuards(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	rec, ok := recipe.Lookup("dummy-norm")
	require.True(t, ok)
	fittedRecipe, err := rec.Fit(ds)
	require.NoError(t, err)

	f := &Fitted{Recipe: fittedRecipe}
	_, err = f.PredictClusters(ds)
	assert.Error(t, err)
	_, err = f.PredictLabels(ds, "am")
	assert.Error(t, err)
}
