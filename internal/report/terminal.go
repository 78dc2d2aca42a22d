package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fatih/color"

	"clusterlab/internal/dataset"
	"clusterlab/internal/evaluation"
	"clusterlab/internal/search"
	"clusterlab/internal/workflow"
)

// Reporter prints the analyst-facing sections of a pipeline run.
type Reporter struct {
	out io.Writer

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
}

func NewReporter() *Reporter {
	return &Reporter{
		out:    os.Stdout,
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

// NewReporterTo writes to an arbitrary writer, for tests.
func NewReporterTo(w io.Writer) *Reporter {
	r := NewReporter()
	r.out = w
	return r
}

func (r *Reporter) Section(title string) {
	fmt.Fprintf(r.out, "\n%s\n%s\n", r.cyan(title), strings.Repeat("-", len(title)))
}

// DatasetSummary prints per-column statistics.
func (r *Reporter) DatasetSummary(ds *dataset.Dataset) {
	r.Section(fmt.Sprintf("Dataset: %d rows, %d columns", ds.Rows, len(ds.Columns)))
	for _, s := range dataset.Summarize(ds) {
		if s.Kind == dataset.Numeric {
			fmt.Fprintf(r.out, "  %-12s numeric      min=%-10s max=%-10s mean=%-10s std=%s\n",
				s.Name,
				s.Min.StringFixed(3), s.Max.StringFixed(3),
				s.Mean.StringFixed(3), s.Std.StringFixed(3))
		} else {
			parts := make([]string, 0, len(s.LevelCounts))
			col, _ := ds.Column(s.Name)
			for _, level := range col.Spec.Levels {
				parts = append(parts, fmt.Sprintf("%s:%d", level, s.LevelCounts[level]))
			}
			fmt.Fprintf(r.out, "  %-12s categorical  %s\n", s.Name, strings.Join(parts, " "))
		}
	}
}

// ElbowTable prints mean WSS/TSS ratio per (recipe, k) so the analyst can
// pick the elbow.
func (r *Reporter) ElbowTable(result *search.TuningResult) {
	r.Section("Clustering search: mean WSS/TSS ratio by recipe and k")
	byWorkflow := result.ByWorkflow()
	for _, name := range workflowOrder(result) {
		fmt.Fprintf(r.out, "  %s\n", r.yellow(name))
		for _, cfg := range byWorkflow[name] {
			mean := cfg.Mean("wss_tss_ratio")
			std := cfg.Std("wss_tss_ratio")
			line := fmt.Sprintf("    k=%-3v ratio=%.4f (std %.4f)", cfg.Params["k"], mean, std)
			if failed := cfg.FailedFolds(); failed > 0 {
				line += r.red(fmt.Sprintf("  [%d/%d folds failed]", failed, len(cfg.Folds)))
			}
			if math.IsNaN(mean) {
				line = fmt.Sprintf("    k=%-3v %s", cfg.Params["k"], r.red("all folds failed"))
			}
			fmt.Fprintln(r.out, line)
		}
	}
}

// BestConfig prints the selected configuration of a search.
func (r *Reporter) BestConfig(best *search.ConfigResult, metric string) {
	r.Section("Selected configuration")
	fmt.Fprintf(r.out, "  recipe=%s params=%v %s=%.4f (std %.4f)\n",
		best.Workflow, best.Params, metric, best.Mean(metric), best.Std(metric))
}

// ConfusionMatrix prints the held-out evaluation.
func (r *Reporter) ConfusionMatrix(metrics *evaluation.ClassificationMetrics, levels []string, classes []int) {
	r.Section("Held-out evaluation")
	fmt.Fprintf(r.out, "  accuracy=%s balanced=%.4f macro_f1=%.4f\n",
		r.green(fmt.Sprintf("%.4f", metrics.Accuracy)), metrics.BalancedAccuracy, metrics.MacroF1)

	fmt.Fprintf(r.out, "\n  confusion (rows=truth, cols=predicted)\n")
	fmt.Fprintf(r.out, "  %8s", "")
	for _, class := range classes {
		fmt.Fprintf(r.out, "%8s", levelName(levels, class))
	}
	fmt.Fprintln(r.out)
	for i, class := range classes {
		fmt.Fprintf(r.out, "  %8s", levelName(levels, class))
		for j := range classes {
			fmt.Fprintf(r.out, "%8d", metrics.ConfusionMatrix[i][j])
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintf(r.out, "\n  per-class\n")
	for _, class := range classes {
		pc := metrics.PerClassMetrics[class]
		fmt.Fprintf(r.out, "  %8s precision=%.4f recall=%.4f f1=%.4f support=%d\n",
			levelName(levels, class), pc.Precision, pc.Recall, pc.F1Score, pc.Support)
	}
}

// ImportanceRanking prints the ranked variable importance list.
func (r *Reporter) ImportanceRanking(entries []workflow.ImportanceEntry) {
	r.Section("Variable importance")
	for i, e := range entries {
		if e.Score == 0 {
			continue
		}
		fmt.Fprintf(r.out, "  %2d. %-20s %.4f\n", i+1, e.Feature, e.Score)
	}
}

// StageTiming prints one line per completed pipeline stage.
func (r *Reporter) StageTiming(description string, seconds float64) {
	fmt.Fprintf(r.out, "%s %s (%.2fs)\n", r.green("done:"), description, seconds)
}

// Warn prints a recoverable deviation, such as a stratified split falling
// back to a plain one.
func (r *Reporter) Warn(format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n", r.yellow("warning:"), fmt.Sprintf(format, args...))
}

func levelName(levels []string, class int) string {
	if class >= 0 && class < len(levels) {
		return levels[class]
	}
	return fmt.Sprintf("#%d", class)
}

// workflowOrder lists workflow names in first-appearance order.
func workflowOrder(result *search.TuningResult) []string {
	var order []string
	seen := make(map[string]bool)
	for _, cfg := range result.Configs {
		if !seen[cfg.Workflow] {
			seen[cfg.Workflow] = true
			order = append(order, cfg.Workflow)
		}
	}
	return order
}
