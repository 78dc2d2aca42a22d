package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"clusterlab/internal/dataset"
	"clusterlab/internal/evaluation"
	"clusterlab/internal/search"
	"clusterlab/internal/workflow"
)

func elbowResult() *search.TuningResult {
	return &search.TuningResult{
		Metrics: search.ClusteringMetrics,
		Configs: []search.ConfigResult{
			{
				Workflow: "dummy-norm", ComboIndex: 0, Params: map[string]any{"k": 1},
				Folds: []search.FoldMetrics{
					{Values: map[string]float64{"wss": 10, "tss": 10, "wss_tss_ratio": 1}},
					{Values: map[string]float64{"wss": 12, "tss": 12, "wss_tss_ratio": 1}},
				},
			},
			{
				Workflow: "dummy-norm", ComboIndex: 1, Params: map[string]any{"k": 2},
				Folds: []search.FoldMetrics{
					{Values: map[string]float64{"wss": 4, "tss": 10, "wss_tss_ratio": 0.4}},
					{Err: errors.New("fit failed")},
				},
			},
			{
				Workflow: "dummy-norm", ComboIndex: 2, Params: map[string]any{"k": 3},
				Folds: []search.FoldMetrics{
					{Err: errors.New("fit failed")},
					{Err: errors.New("fit failed")},
				},
			},
		},
	}
}

func TestDatasetSummaryOutput(t *testing.T) {
	ds, err := dataset.LoadMotorTrend()
	require.NoError(t, err)

	var buf bytes.Buffer
	NewReporterTo(&buf).DatasetSummary(ds)
	out := buf.String()

	assert.Contains(t, out, "32 rows, 11 columns")
	assert.Contains(t, out, "mpg")
	assert.Contains(t, out, "categorical")
	assert.Contains(t, out, "v-shaped")
}

func TestElbowTableOutput(t *testing.T) {
	var buf bytes.Buffer
	NewReporterTo(&buf).ElbowTable(elbowResult())
	out := buf.String()

	assert.Contains(t, out, "dummy-norm")
	assert.Contains(t, out, "k=1")
	assert.Contains(t, out, "folds failed")
	assert.Contains(t, out, "all folds failed")
}

func TestConfusionMatrixOutput(t *testing.T) {
	metrics, err := evaluation.CalculateMetrics([]int{0, 1, 1}, []int{0, 1, 0}, []int{0, 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	NewReporterTo(&buf).ConfusionMatrix(metrics, []string{"1", "2"}, []int{0, 1})
	out := buf.String()

	assert.Contains(t, out, "confusion")
	assert.Contains(t, out, "per-class")
	assert.Contains(t, out, "support=1")
}

func TestImportanceRankingSkipsZeroScores(t *testing.T) {
	var buf bytes.Buffer
	NewReporterTo(&buf).ImportanceRanking([]workflow.ImportanceEntry{
		{Feature: "wt", Score: 0.7},
		{Feature: "hp", Score: 0.3},
		{Feature: "qsec", Score: 0},
	})
	out := buf.String()

	assert.Contains(t, out, "wt")
	assert.Contains(t, out, "hp")
	assert.NotContains(t, out, "qsec")
}

func TestWarnOutput(t *testing.T) {
	var buf bytes.Buffer
	NewReporterTo(&buf).Warn("falling back to %s", "plain folds")
	assert.Contains(t, buf.String(), "falling back to plain folds")
}

func TestExportElbowCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elbow.csv")
	require.NoError(t, ExportElbowCSV(path, elbowResult()))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Recipe", "K", "MeanWSS", "MeanTSS", "MeanRatio", "StdRatio", "FailedFolds"}, rows[0])
	assert.Equal(t, "dummy-norm", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "1.000000", rows[1][4])
	assert.Equal(t, "0", rows[1][6])

	// One failed fold still yields a mean; all failed yields empty cells.
	assert.Equal(t, "0.400000", rows[2][4])
	assert.Equal(t, "1", rows[2][6])
	assert.Equal(t, "", rows[3][4])
	assert.Equal(t, "2", rows[3][6])
}

func TestPlotElbow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elbow.png")
	require.NoError(t, PlotElbow(path, elbowResult()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRunSummaryWithoutHeldOutMetrics(t *testing.T) {
	best := &search.ConfigResult{
		Workflow: "dummy-norm-pca",
		Params:   map[string]any{"max_depth": 2},
		Folds: []search.FoldMetrics{
			{Values: map[string]float64{search.ClassificationMetric: 0.8}},
		},
	}
	summary := NewRunSummary(7, 6, "dummy-norm-pca", best, nil,
		map[string]int{"1": 32},
		[]workflow.ImportanceEntry{{Feature: "PC1", Score: 1}})

	assert.Zero(t, summary.TestAccuracy)
	assert.Nil(t, summary.ConfusionMatrix)
	assert.InDelta(t, 0.8, summary.BestTreeCVScore, 1e-12)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, WriteRunSummary(path, summary))
}

func TestRunSummaryRoundTrip(t *testing.T) {
	metrics, err := evaluation.CalculateMetrics([]int{0, 1, 1}, []int{0, 1, 1}, []int{0, 1})
	require.NoError(t, err)

	best := &search.ConfigResult{
		Workflow: "log-dummy-norm",
		Params:   map[string]any{"max_depth": 4},
		Folds: []search.FoldMetrics{
			{Values: map[string]float64{search.ClassificationMetric: 0.9}},
		},
	}
	summary := NewRunSummary(42, 6, "dummy-norm-pca", best, metrics,
		map[string]int{"1": 10, "2": 22},
		[]workflow.ImportanceEntry{{Feature: "PC1", Score: 0.8}, {Feature: "PC2", Score: 0}})

	assert.Equal(t, int64(42), summary.Seed)
	assert.InDelta(t, 0.9, summary.BestTreeCVScore, 1e-12)
	require.Len(t, summary.TopImportance, 1, "zero-score features are dropped")
	assert.Equal(t, "PC1", summary.TopImportance[0].Feature)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, WriteRunSummary(path, summary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded RunSummary
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, summary.ChosenK, decoded.ChosenK)
	assert.Equal(t, summary.ChosenRecipe, decoded.ChosenRecipe)
	assert.InDelta(t, summary.TestAccuracy, decoded.TestAccuracy, 1e-12)
}
