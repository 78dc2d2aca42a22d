package report

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"clusterlab/internal/search"
)

// PlotElbow renders the elbow curve: one line per recipe, cluster count on
// the x axis, mean WSS/TSS ratio on the y axis. Configurations where all
// folds failed are left out of their line.
func PlotElbow(path string, result *search.TuningResult) error {
	p := plot.New()
	p.Title.Text = "Cluster count selection"
	p.X.Label.Text = "clusters (k)"
	p.Y.Label.Text = "mean WSS/TSS ratio"

	byWorkflow := result.ByWorkflow()
	var lineArgs []any
	for _, name := range workflowOrder(result) {
		pts := make(plotter.XYs, 0, len(byWorkflow[name]))
		for _, cfg := range byWorkflow[name] {
			k, ok := asFloat(cfg.Params["k"])
			if !ok {
				continue
			}
			ratio := cfg.Mean("wss_tss_ratio")
			if math.IsNaN(ratio) {
				continue
			}
			pts = append(pts, plotter.XY{X: k, Y: ratio})
		}
		lineArgs = append(lineArgs, name, pts)
	}

	if err := plotutil.AddLinePoints(p, lineArgs...); err != nil {
		return fmt.Errorf("failed to build elbow plot: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save elbow plot: %w", err)
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
