package search

import (
	"fmt"
	"runtime"
	"sync"

	"clusterlab/internal/dataset"
	"clusterlab/internal/evaluation"
	"clusterlab/internal/models"
	"clusterlab/internal/recipe"
)

// ClusteringMetrics and ClassificationMetric name the metric columns the
// two search modes produce.
var (
	ClusteringMetrics    = []string{"wss", "tss", "wss_tss_ratio"}
	ClassificationMetric = "roc_auc"
)

// Runner fits the cross product of (workflow × grid combination) on every
// fold with a bounded worker pool. Cells are independent pure functions of
// their inputs; results are merged by index, so execution order does not
// matter. Individual cell failures are recorded, never fatal.
type Runner struct {
	Workers    int
	Seed       int64
	OnProgress func(done, total int)
}

func NewRunner(seed int64) *Runner {
	return &Runner{
		Workers: runtime.GOMAXPROCS(0),
		Seed:    seed,
	}
}

// cell is one unit of search work.
type cell struct {
	configIdx int
	foldIdx   int
	run       func() (map[string]float64, error)
}

// SearchClustering runs clustering-mode search: every recipe crossed with
// every grid combination, fitted per fold and scored on the fold's
// validation rows transformed by the same fitted recipe. The returned
// table is the raw material for elbow-style inspection; selecting a
// cluster count stays a human decision.
func (r *Runner) SearchClustering(ds *dataset.Dataset, recipes []recipe.Recipe, spec models.Spec, grid Grid, nFolds int) (*TuningResult, error) {
	if len(recipes) == 0 {
		return nil, fmt.Errorf("clustering search needs at least one recipe")
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("clustering search needs a non-empty grid")
	}
	// Configuration errors in the grid abort before any fitting.
	for i, combo := range grid {
		if _, err := models.NewClusterer(spec, combo, r.Seed); err != nil {
			return nil, fmt.Errorf("grid combination %d: %w", i, err)
		}
	}

	folds, err := evaluation.KFold(ds.Rows, nFolds, r.Seed)
	if err != nil {
		return nil, err
	}

	result := &TuningResult{Metrics: ClusteringMetrics}
	var cells []cell
	for _, rec := range recipes {
		for comboIdx, combo := range grid {
			configIdx := len(result.Configs)
			result.Configs = append(result.Configs, ConfigResult{
				Workflow:   rec.Name,
				ComboIndex: comboIdx,
				Params:     combo,
				Folds:      make([]FoldMetrics, len(folds)),
			})
			for foldIdx, fold := range folds {
				rec, combo, fold := rec, combo, fold
				cellSeed := r.Seed + int64(configIdx*len(folds)+foldIdx+1)
				cells = append(cells, cell{
					configIdx: configIdx,
					foldIdx:   foldIdx,
					run: func() (map[string]float64, error) {
						return clusteringCell(ds, rec, spec, combo, fold, cellSeed)
					},
				})
			}
		}
	}

	r.execute(cells, result)
	return result, nil
}

// SearchClassification runs classification-mode search: one recipe, a
// stratified resampling scheme over labelCol, ROC AUC per fold.
func (r *Runner) SearchClassification(ds *dataset.Dataset, rec recipe.Recipe, spec models.Spec, grid Grid, nFolds int, labelCol string) (*TuningResult, error) {
	y, err := ds.LabelInts(labelCol)
	if err != nil {
		return nil, err
	}
	folds, err := evaluation.StratifiedKFold(y, nFolds, r.Seed)
	if err != nil {
		return nil, err
	}
	return r.SearchClassificationFolds(ds, rec, spec, grid, folds, labelCol)
}

// SearchClassificationFolds is SearchClassification over caller-supplied
// folds, for resampling schemes other than the stratified default.
func (r *Runner) SearchClassificationFolds(ds *dataset.Dataset, rec recipe.Recipe, spec models.Spec, grid Grid, folds []evaluation.Fold, labelCol string) (*TuningResult, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("classification search needs a non-empty grid")
	}
	for i, combo := range grid {
		if _, err := models.NewClassifier(spec, combo); err != nil {
			return nil, fmt.Errorf("grid combination %d: %w", i, err)
		}
	}
	y, err := ds.LabelInts(labelCol)
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidateLabels(y); err != nil {
		return nil, err
	}

	// The label column is the target; it must not flow through the
	// feature transforms.
	features := ds.WithoutColumn(labelCol)

	result := &TuningResult{Metrics: []string{ClassificationMetric}}
	var cells []cell
	for comboIdx, combo := range grid {
		configIdx := len(result.Configs)
		result.Configs = append(result.Configs, ConfigResult{
			Workflow:   rec.Name,
			ComboIndex: comboIdx,
			Params:     combo,
			Folds:      make([]FoldMetrics, len(folds)),
		})
		for foldIdx, fold := range folds {
			combo, fold := combo, fold
			cells = append(cells, cell{
				configIdx: configIdx,
				foldIdx:   foldIdx,
				run: func() (map[string]float64, error) {
					return classificationCell(features, y, rec, spec, combo, fold)
				},
			})
		}
	}

	r.execute(cells, result)
	return result, nil
}

// execute drains the cells through the worker pool and writes each outcome
// into its (config, fold) slot.
func (r *Runner) execute(cells []cell, result *TuningResult) {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(cells) {
		workers = len(cells)
	}

	jobs := make(chan int, len(cells))
	var done int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				c := cells[idx]
				values, err := c.run()
				result.Configs[c.configIdx].Folds[c.foldIdx] = FoldMetrics{Values: values, Err: err}
				if r.OnProgress != nil {
					mu.Lock()
					done++
					n := done
					mu.Unlock()
					r.OnProgress(n, len(cells))
				}
			}
		}()
	}
	for i := range cells {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

func clusteringCell(ds *dataset.Dataset, rec recipe.Recipe, spec models.Spec, combo map[string]any, fold evaluation.Fold, seed int64) (map[string]float64, error) {
	trainDS := ds.SelectRows(fold.Train)
	valDS := ds.SelectRows(fold.Validation)

	fitted, err := rec.Fit(trainDS)
	if err != nil {
		return nil, err
	}
	trainBaked, err := fitted.Apply(trainDS)
	if err != nil {
		return nil, err
	}
	valBaked, err := fitted.Apply(valDS)
	if err != nil {
		return nil, err
	}

	XTrain := trainBaked.Matrix()
	XVal := valBaked.Matrix()
	if err := dataset.ValidateMatrix(XTrain); err != nil {
		return nil, err
	}

	model, err := models.NewClusterer(spec, combo, seed)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(XTrain); err != nil {
		return nil, err
	}

	km, ok := model.(*models.KMeans)
	if !ok {
		return nil, fmt.Errorf("clustering family %s does not expose centroids", spec.Family)
	}
	assignments, err := km.Predict(XVal)
	if err != nil {
		return nil, err
	}
	score, err := evaluation.ScoreClustering(XVal, assignments, km.Centroids, evaluation.GrandMean(XTrain))
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		"wss":           score.WSS,
		"tss":           score.TSS,
		"wss_tss_ratio": score.Ratio,
	}, nil
}

func classificationCell(features *dataset.Dataset, y []int, rec recipe.Recipe, spec models.Spec, combo map[string]any, fold evaluation.Fold) (map[string]float64, error) {
	trainDS := features.SelectRows(fold.Train)
	valDS := features.SelectRows(fold.Validation)
	yTrain := selectLabels(y, fold.Train)
	yVal := selectLabels(y, fold.Validation)

	fitted, err := rec.Fit(trainDS)
	if err != nil {
		return nil, err
	}
	trainBaked, err := fitted.Apply(trainDS)
	if err != nil {
		return nil, err
	}
	valBaked, err := fitted.Apply(valDS)
	if err != nil {
		return nil, err
	}

	XTrain := trainBaked.Matrix()
	XVal := valBaked.Matrix()
	if err := dataset.ValidateMatrix(XTrain); err != nil {
		return nil, err
	}

	model, err := models.NewClassifier(spec, combo)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(XTrain, yTrain); err != nil {
		return nil, err
	}

	proba := model.PredictProba(XVal)
	auc, err := evaluation.ROCAUC(yVal, proba, model.GetClasses())
	if err != nil {
		return nil, err
	}
	return map[string]float64{ClassificationMetric: auc}, nil
}

func selectLabels(y []int, indices []int) []int {
	out := make([]int, len(indices))
	for i, idx := range indices {
		out[i] = y[idx]
	}
	return out
}
