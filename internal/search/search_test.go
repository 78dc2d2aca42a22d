package search

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clusterlab/internal/dataset"
	"clusterlab/internal/evaluation"
	"clusterlab/internal/models"
	"clusterlab/internal/recipe"
)

func TestExpandOrdering(t *testing.T) {
	grid, err := Expand(
		IntAxis("a", 1, 2),
		IntAxis("b", 10, 20, 30),
	)
	require.NoError(t, err)
	require.Len(t, grid, 6)

	// First axis slowest, second fastest.
	assert.Equal(t, map[string]any{"a": 1, "b": 10}, grid[0])
	assert.Equal(t, map[string]any{"a": 1, "b": 30}, grid[2])
	assert.Equal(t, map[string]any{"a": 2, "b": 10}, grid[3])
	assert.Equal(t, map[string]any{"a": 2, "b": 30}, grid[5])
}

func TestExpandEmptyAxis(t *testing.T) {
	_, err := Expand(IntAxis("a", 1), Axis{Name: "b"})
	assert.Error(t, err)
}

func TestIntRange(t *testing.T) {
	axis, err := IntRange("k", 1, 10)
	require.NoError(t, err)
	assert.Len(t, axis.Values, 10)
	assert.Equal(t, 1, axis.Values[0])
	assert.Equal(t, 10, axis.Values[9])

	_, err = IntRange("k", 5, 4)
	assert.Error(t, err)
}

func TestConfigResultAggregates(t *testing.T) {
	c := ConfigResult{Folds: []FoldMetrics{
		{Values: map[string]float64{"roc_auc": 0.8}},
		{Values: map[string]float64{"roc_auc": 0.6}},
		{Err: errors.New("fit failed")},
	}}

	assert.InDelta(t, 0.7, c.Mean("roc_auc"), 1e-12)
	assert.InDelta(t, math.Sqrt(0.02), c.Std("roc_auc"), 1e-9)
	assert.Equal(t, 1, c.FailedFolds())
}

func TestConfigResultAllFoldsFailed(t *testing.T) {
	c := ConfigResult{Folds: []FoldMetrics{
		{Err: errors.New("fit failed")},
		{Err: errors.New("fit failed")},
	}}
	assert.True(t, math.IsNaN(c.Mean("roc_auc")))
	assert.True(t, math.IsNaN(c.Std("roc_auc")))
	assert.Equal(t, 2, c.FailedFolds())
}

func TestSelectBestTieGoesToEarliest(t *testing.T) {
	result := TuningResult{Configs: []ConfigResult{
		{ComboIndex: 0, Folds: []FoldMetrics{{Values: map[string]float64{"roc_auc": 0.9}}}},
		{ComboIndex: 1, Folds: []FoldMetrics{{Values: map[string]float64{"roc_auc": 0.9}}}},
		{ComboIndex: 2, Folds: []FoldMetrics{{Values: map[string]float64{"roc_auc": 0.8}}}},
	}}
	best, err := result.SelectBest("roc_auc")
	require.NoError(t, err)
	assert.Equal(t, 0, best.ComboIndex)
}

func TestSelectBestSkipsFailedConfigs(t *testing.T) {
	result := TuningResult{Configs: []ConfigResult{
		{ComboIndex: 0, Folds: []FoldMetrics{{Err: errors.New("fit failed")}}},
		{ComboIndex: 1, Folds: []FoldMetrics{{Values: map[string]float64{"roc_auc": 0.5}}}},
	}}
	best, err := result.SelectBest("roc_auc")
	require.NoError(t, err)
	assert.Equal(t, 1, best.ComboIndex)

	allFailed := TuningResult{Configs: []ConfigResult{
		{Folds: []FoldMetrics{{Err: errors.New("fit failed")}}},
	}}
	_, err = allFailed.SelectBest("roc_auc")
	assert.Error(t, err)
}

func TestByWorkflow(t *testing.T) {
	result := TuningResult{Configs: []ConfigResult{
		{Workflow: "a", ComboIndex: 0},
		{Workflow: "a", ComboIndex: 1},
		{Workflow: "b", ComboIndex: 0},
	}}
	groups := result.ByWorkflow()
	require.Len(t, groups, 2)
	assert.Len(t, groups["a"], 2)
	assert.Len(t, groups["b"], 1)
	assert.Equal(t, 1, groups["a"][1].ComboIndex)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	clusterGrid, err := cfg.ClusterGrid()
	require.NoError(t, err)
	assert.Len(t, clusterGrid, 10)

	treeGrid, err := cfg.TreeGrid()
	require.NoError(t, err)
	assert.Len(t, treeGrid, 64)
	assert.Equal(t, map[string]any{
		"max_depth":             2,
		"min_samples_split":     2,
		"min_impurity_decrease": 0.0,
	}, treeGrid[0])
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	content := "seed: 7\nclustering:\n  folds: 4\n  max_clusters: 5\n  chosen_k: 3\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 4, cfg.Clustering.Folds)
	assert.Equal(t, 5, cfg.Clustering.MaxClusters)
	// Untouched fields keep their defaults.
	assert.Equal(t, 1, cfg.Clustering.MinClusters)
	assert.Equal(t, 0.25, cfg.Classification.TestSize)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	content := "clustering:\n  min_clusters: 0\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clustering.ChosenK = 99
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Classification.TestSize = 1.5
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Clustering.Recipes = nil
	assert.Error(t, cfg.Validate())
}

func TestSearchClusteringElbowTable(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	grid, err := Expand(must(IntRange("k", 1, 10)))
	require.NoError(t, err)

	runner := NewRunner(42)
	result, err := runner.SearchClustering(ds, recipe.Registry(), models.Spec{Family: "kmeans"}, grid, 10)
	require.NoError(t, err)

	groups := result.ByWorkflow()
	require.Len(t, groups, 3)
	for name, configs := range groups {
		require.Len(t, configs, 10, "recipe %s", name)
		for _, c := range configs {
			// Two cars carry a carburetor count nobody else has; the
			// folds validating them fail under recipes without the
			// novel-level bucket and are recorded, not fatal.
			if name == "log-dummy-norm" {
				assert.Zero(t, c.FailedFolds(), "recipe %s k=%v", name, c.Params["k"])
			} else {
				assert.LessOrEqual(t, c.FailedFolds(), 2, "recipe %s k=%v", name, c.Params["k"])
			}
			ratio := c.Mean("wss_tss_ratio")
			assert.GreaterOrEqual(t, ratio, 0.0, "recipe %s k=%v", name, c.Params["k"])
			assert.LessOrEqual(t, ratio, 1.0, "recipe %s k=%v", name, c.Params["k"])
		}
		// A single cluster explains nothing: its ratio is exactly 1.
		assert.InDelta(t, 1, configs[0].Mean("wss_tss_ratio"), 1e-12, "recipe %s", name)
	}
}

func TestSearchClusteringDeterminism(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	grid, err := Expand(must(IntRange("k", 2, 4)))
	require.NoError(t, err)
	recipes := []recipe.Recipe{recipe.Registry()[2]}

	first, err := NewRunner(42).SearchClustering(ds, recipes, models.Spec{Family: "kmeans"}, grid, 5)
	require.NoError(t, err)
	second, err := NewRunner(42).SearchClustering(ds, recipes, models.Spec{Family: "kmeans"}, grid, 5)
	require.NoError(t, err)

	require.Len(t, second.Configs, len(first.Configs))
	for i := range first.Configs {
		assert.Equal(t,
			first.Configs[i].Mean("wss_tss_ratio"),
			second.Configs[i].Mean("wss_tss_ratio"),
			"config %d", i)
	}
}

func TestSearchClusteringRejectsBadGrid(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	runner := NewRunner(42)
	_, err = runner.SearchClustering(ds, recipe.Registry(), models.Spec{Family: "kmeans"},
		Grid{{"k": 0}}, 5)
	assert.Error(t, err, "invalid cluster count is a configuration error, not a fold failure")

	_, err = runner.SearchClustering(ds, nil, models.Spec{Family: "kmeans"}, Grid{{"k": 2}}, 5)
	assert.Error(t, err)

	_, err = runner.SearchClustering(ds, recipe.Registry(), models.Spec{Family: "kmeans"}, nil, 5)
	assert.Error(t, err)
}

func TestSearchClassificationProgressAndBounds(t *testing.T) {
	ds := labeledMotorTrend(t)

	grid, err := Expand(
		IntAxis("max_depth", 2, 4),
		IntAxis("min_samples_split", 2, 4),
	)
	require.NoError(t, err)

	runner := NewRunner(42)
	var mu sync.Mutex
	var maxDone, total int
	// Callbacks come from several workers and may arrive out of order.
	runner.OnProgress = func(done, n int) {
		mu.Lock()
		if done > maxDone {
			maxDone = done
		}
		total = n
		mu.Unlock()
	}

	result, err := runner.SearchClassification(ds, recipe.Registry()[2],
		models.Spec{Family: "decision_tree"}, grid, 3, "am")
	require.NoError(t, err)

	require.Len(t, result.Configs, 4)
	assert.Equal(t, []string{ClassificationMetric}, result.Metrics)
	assert.Equal(t, 12, total, "4 combinations across 3 folds")
	assert.Equal(t, 12, maxDone)

	for _, c := range result.Configs {
		require.Len(t, c.Folds, 3)
		mean := c.Mean(ClassificationMetric)
		if !math.IsNaN(mean) {
			assert.GreaterOrEqual(t, mean, 0.0)
			assert.LessOrEqual(t, mean, 1.0)
		}
	}

	best, err := result.SelectBest(ClassificationMetric)
	require.NoError(t, err)
	assert.NotNil(t, best.Params["max_depth"])
}

func TestSearchClassificationFoldsPlainResampling(t *testing.T) {
	ds := labeledMotorTrend(t)

	grid, err := Expand(IntAxis("max_depth", 2, 4))
	require.NoError(t, err)

	// Unstratified folds, as the pipeline falls back to when a label
	// stratum is too small for the stratified scheme.
	folds, err := evaluation.KFold(ds.Rows, 4, 42)
	require.NoError(t, err)

	runner := NewRunner(42)
	result, err := runner.SearchClassificationFolds(ds, recipe.Registry()[0],
		models.Spec{Family: "decision_tree"}, grid, folds, "am")
	require.NoError(t, err)

	require.Len(t, result.Configs, 2)
	for _, c := range result.Configs {
		require.Len(t, c.Folds, 4)
		mean := c.Mean(ClassificationMetric)
		if !math.IsNaN(mean) {
			assert.GreaterOrEqual(t, mean, 0.0)
			assert.LessOrEqual(t, mean, 1.0)
		}
	}
}

func TestSearchClassificationRejectsBadInput(t *testing.T) {
	ds := labeledMotorTrend(t)
	runner := NewRunner(42)

	_, err := runner.SearchClassification(ds, recipe.Registry()[2],
		models.Spec{Family: "decision_tree"}, Grid{{"max_depth": "deep"}}, 3, "am")
	assert.Error(t, err)

	_, err = runner.SearchClassification(ds, recipe.Registry()[2],
		models.Spec{Family: "decision_tree"}, Grid{{"max_depth": 4}}, 3, "missing")
	assert.Error(t, err)
}

// labeledMotorTrend returns the car table; the am column doubles as a
// two-class target with enough rows per stratum for 3 folds.
func labeledMotorTrend(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)
	return ds
}

func must(axis Axis, err error) Axis {
	if err != nil {
		panic(err)
	}
	return axis
}
