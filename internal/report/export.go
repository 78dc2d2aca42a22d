package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"clusterlab/internal/evaluation"
	"clusterlab/internal/search"
	"clusterlab/internal/workflow"
)

// ExportElbowCSV writes the (recipe, k, mean metric) table consumed by
// external plotting tools. Configurations where every fold failed export
// an empty metric cell.
func ExportElbowCSV(path string, result *search.TuningResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Recipe", "K", "MeanWSS", "MeanTSS", "MeanRatio", "StdRatio", "FailedFolds"}); err != nil {
		return err
	}
	for _, cfg := range result.Configs {
		ratio := cfg.Mean("wss_tss_ratio")
		ratioCell := ""
		stdCell := ""
		if !math.IsNaN(ratio) {
			ratioCell = fmt.Sprintf("%.6f", ratio)
			stdCell = fmt.Sprintf("%.6f", cfg.Std("wss_tss_ratio"))
		}
		row := []string{
			cfg.Workflow,
			fmt.Sprintf("%v", cfg.Params["k"]),
			meanCell(cfg, "wss"),
			meanCell(cfg, "tss"),
			ratioCell,
			stdCell,
			fmt.Sprintf("%d", cfg.FailedFolds()),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}

func meanCell(cfg search.ConfigResult, metric string) string {
	v := cfg.Mean(metric)
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}

// RunSummary is the YAML artifact recording what the pipeline chose and
// how the final model scored.
type RunSummary struct {
	Seed             int64              `yaml:"seed"`
	ChosenK          int                `yaml:"chosen_k"`
	ChosenRecipe     string             `yaml:"chosen_recipe"`
	BestTreeParams   map[string]any     `yaml:"best_tree_params"`
	BestTreeCVScore  float64            `yaml:"best_tree_cv_roc_auc"`
	TestAccuracy     float64            `yaml:"test_accuracy"`
	TestBalancedAcc  float64            `yaml:"test_balanced_accuracy"`
	TestMacroF1      float64            `yaml:"test_macro_f1"`
	ConfusionMatrix  [][]int            `yaml:"confusion_matrix"`
	ClusterSizes     map[string]int     `yaml:"cluster_sizes"`
	TopImportance    []ImportanceRecord `yaml:"top_importance"`
}

type ImportanceRecord struct {
	Feature string  `yaml:"feature"`
	Score   float64 `yaml:"score"`
}

// NewRunSummary assembles the run artifact from the pipeline outputs.
// metrics may be nil when the held-out evaluation was skipped; the test
// fields then stay zero.
func NewRunSummary(seed int64, chosenK int, chosenRecipe string, best *search.ConfigResult,
	metrics *evaluation.ClassificationMetrics, clusterSizes map[string]int,
	importance []workflow.ImportanceEntry) *RunSummary {

	summary := &RunSummary{
		Seed:            seed,
		ChosenK:         chosenK,
		ChosenRecipe:    chosenRecipe,
		BestTreeParams:  best.Params,
		BestTreeCVScore: best.Mean(search.ClassificationMetric),
		ClusterSizes:    clusterSizes,
	}
	if metrics != nil {
		summary.TestAccuracy = metrics.Accuracy
		summary.TestBalancedAcc = metrics.BalancedAccuracy
		summary.TestMacroF1 = metrics.MacroF1
		summary.ConfusionMatrix = metrics.ConfusionMatrix
	}
	for _, e := range importance {
		if e.Score == 0 {
			continue
		}
		summary.TopImportance = append(summary.TopImportance, ImportanceRecord{Feature: e.Feature, Score: e.Score})
	}
	return summary
}

// WriteRunSummary writes the summary as YAML.
func WriteRunSummary(path string, summary *RunSummary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
