package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"clusterlab/internal/dataset"
	"clusterlab/internal/evaluation"
	"clusterlab/internal/jobs"
	"clusterlab/internal/models"
	"clusterlab/internal/recipe"
	"clusterlab/internal/report"
	"clusterlab/internal/search"
	"clusterlab/internal/workflow"
)

const clusterCol = "cluster"

func main() {
	var (
		configPath string
		dataPath   string
		outDir     string
		seed       int64
		withPlot   bool
	)

	root := &cobra.Command{
		Use:   "analyze",
		Short: "Cluster the road-test dataset, then learn to predict the clusters",
		Long: `analyze runs the full pipeline: exploratory summary, cross-validated
k-means search over the preprocessing recipes, cluster labeling with the
chosen configuration, cross-validated decision-tree search on the cluster
label, and held-out evaluation of the final tree.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := search.DefaultConfig()
			if configPath != "" {
				loaded, err := search.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg, dataPath, outDir, withPlot)
		},
	}

	root.Flags().StringVar(&configPath, "config", "", "YAML config file (defaults mirror the reference analysis)")
	root.Flags().StringVar(&dataPath, "data", "", "optional CSV with the road-test schema (defaults to the built-in table)")
	root.Flags().StringVar(&outDir, "out", "results", "directory for the elbow table, plot and run summary")
	root.Flags().Int64Var(&seed, "seed", 42, "seed for folds, splits and model initialization")
	root.Flags().BoolVar(&withPlot, "plot", true, "render the elbow curve PNG")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg *search.Config, dataPath, outDir string, withPlot bool) error {
	rep := report.NewReporter()
	tracker := jobs.NewManager()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Stage 1: load and summarize.
	ds, err := loadData(dataPath)
	if err != nil {
		return err
	}
	rep.DatasetSummary(ds)

	// Stage 2: clustering-mode search across all configured recipes.
	recipes, err := resolveRecipes(cfg.Clustering.Recipes)
	if err != nil {
		return err
	}
	grid, err := cfg.ClusterGrid()
	if err != nil {
		return err
	}

	job := tracker.Start("clustering-search", fmt.Sprintf("k-means search, k %d..%d, %d recipes, %d folds",
		cfg.Clustering.MinClusters, cfg.Clustering.MaxClusters, len(recipes), cfg.Clustering.Folds))
	runner := search.NewRunner(cfg.Seed)
	runner.OnProgress = job.SetProgress
	clusterResult, err := runner.SearchClustering(ds, recipes, models.Spec{Family: "kmeans"}, grid, cfg.Clustering.Folds)
	if err != nil {
		job.Fail(err)
		return err
	}
	job.Complete()
	rep.StageTiming(job.Description, job.Duration().Seconds())
	rep.ElbowTable(clusterResult)

	elbowCSV := filepath.Join(outDir, "elbow.csv")
	if err := report.ExportElbowCSV(elbowCSV, clusterResult); err != nil {
		return err
	}
	if withPlot {
		if err := report.PlotElbow(filepath.Join(outDir, "elbow.png"), clusterResult); err != nil {
			return err
		}
	}

	// Stage 3: finalize the analyst-chosen clustering configuration and
	// label every row.
	chosenRecipe, ok := recipe.Lookup(cfg.Clustering.ChosenRecipe)
	if !ok {
		return fmt.Errorf("chosen_recipe %q is not in the registry", cfg.Clustering.ChosenRecipe)
	}
	job = tracker.Start("finalize-clustering", fmt.Sprintf("final k-means fit, k=%d on %s",
		cfg.Clustering.ChosenK, chosenRecipe.Name))
	fittedCluster, err := workflow.FinalizeClustering(
		workflow.Workflow{Recipe: chosenRecipe, Spec: models.Spec{Family: "kmeans"}},
		map[string]any{"k": cfg.Clustering.ChosenK}, ds, cfg.Seed)
	if err != nil {
		job.Fail(err)
		return err
	}
	labels, err := fittedCluster.PredictClusters(ds)
	if err != nil {
		job.Fail(err)
		return err
	}
	labeled, err := workflow.LabelDataset(ds, clusterCol, labels, cfg.Clustering.ChosenK)
	if err != nil {
		job.Fail(err)
		return err
	}
	job.Complete()
	rep.StageTiming(job.Description, job.Duration().Seconds())

	clusterSizes := make(map[string]int)
	for _, label := range labels {
		clusterSizes[label]++
	}

	// Stage 4: split off a held-out test set, stratified by cluster when
	// the cluster sizes allow it.
	y, err := labeled.LabelInts(clusterCol)
	if err != nil {
		return err
	}
	trainIdx, testIdx, err := evaluation.StratifiedSplit(y, cfg.Classification.TestSize, cfg.Seed)
	if err != nil {
		var insufficient *evaluation.InsufficientDataError
		if !errors.As(err, &insufficient) {
			return err
		}
		rep.Warn("stratified split unavailable (%v); falling back to a plain split", err)
		trainIdx, testIdx, err = evaluation.TrainTestSplit(labeled.Rows, cfg.Classification.TestSize, cfg.Seed)
		if err != nil {
			return err
		}
	}
	trainDS := labeled.SelectRows(trainIdx)
	testDS := labeled.SelectRows(testIdx)

	// Stage 5: classification-mode search on the training data. The tree
	// reuses the recipe that produced the clusters.
	treeGrid, err := cfg.TreeGrid()
	if err != nil {
		return err
	}
	treeSpec := models.Spec{Family: "decision_tree"}

	job = tracker.Start("classification-search", fmt.Sprintf("decision-tree search, %d configurations, %d folds",
		len(treeGrid), cfg.Classification.Folds))
	runner = search.NewRunner(cfg.Seed)
	runner.OnProgress = job.SetProgress
	treeResult, err := runner.SearchClassification(trainDS, chosenRecipe, treeSpec, treeGrid, cfg.Classification.Folds, clusterCol)
	if err != nil {
		var insufficient *evaluation.InsufficientDataError
		if !errors.As(err, &insufficient) {
			job.Fail(err)
			return err
		}
		rep.Warn("stratified folds unavailable (%v); falling back to plain folds", err)
		treeResult, err = searchWithPlainFolds(runner, trainDS, chosenRecipe, treeSpec, treeGrid, cfg.Classification.Folds, clusterCol)
		if err != nil {
			job.Fail(err)
			return err
		}
	}
	best, err := treeResult.SelectBest(search.ClassificationMetric)
	if err != nil {
		job.Fail(err)
		return err
	}
	job.Complete()
	rep.StageTiming(job.Description, job.Duration().Seconds())
	rep.BestConfig(best, search.ClassificationMetric)

	// Stage 6: final fit on the training split, then held-out evaluation.
	job = tracker.Start("final-fit", "final decision-tree fit and held-out evaluation")
	fittedTree, err := workflow.FinalizeClassification(
		workflow.Workflow{Recipe: chosenRecipe, Spec: treeSpec}, best.Params, trainDS, clusterCol)
	if err != nil {
		job.Fail(err)
		return err
	}
	classes := models.ExtractClasses(y)
	var metrics *evaluation.ClassificationMetrics
	predictions, err := fittedTree.PredictLabels(testDS, clusterCol)
	if err != nil {
		var unseen *recipe.UnseenCategoryError
		if !errors.As(err, &unseen) {
			job.Fail(err)
			return err
		}
		// A test row carries a level the training rows never showed and
		// the chosen recipe has no novel-level bucket.
		rep.Warn("held-out evaluation skipped: test column %q has unseen level %q; pick a chosen_recipe with novel-level bucketing or another seed",
			unseen.Column, unseen.Value)
	} else {
		yTest, err := testDS.LabelInts(clusterCol)
		if err != nil {
			job.Fail(err)
			return err
		}
		metrics, err = evaluation.CalculateMetrics(yTest, predictions, classes)
		if err != nil {
			job.Fail(err)
			return err
		}
	}
	importance, err := fittedTree.Importance()
	if err != nil {
		job.Fail(err)
		return err
	}
	job.Complete()
	rep.StageTiming(job.Description, job.Duration().Seconds())

	if metrics != nil {
		clusterLevels := make([]string, cfg.Clustering.ChosenK)
		for i := range clusterLevels {
			clusterLevels[i] = fmt.Sprintf("%d", i+1)
		}
		rep.ConfusionMatrix(metrics, clusterLevels, classes)
	}
	rep.ImportanceRanking(importance)

	summary := report.NewRunSummary(cfg.Seed, cfg.Clustering.ChosenK, chosenRecipe.Name,
		best, metrics, clusterSizes, importance)
	summaryPath := filepath.Join(outDir, "run_summary.yaml")
	if err := report.WriteRunSummary(summaryPath, summary); err != nil {
		return err
	}
	fmt.Printf("\nartifacts: %s, %s\n", elbowCSV, summaryPath)
	return nil
}

func loadData(path string) (*dataset.Dataset, error) {
	if path == "" {
		return dataset.LoadMotorTrend()
	}
	return dataset.LoadCSV(path, dataset.MotorTrendSchema(), "model")
}

func resolveRecipes(names []string) ([]recipe.Recipe, error) {
	out := make([]recipe.Recipe, 0, len(names))
	for _, name := range names {
		r, ok := recipe.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("recipe %q is not in the registry", name)
		}
		out = append(out, r)
	}
	return out, nil
}

// searchWithPlainFolds rebuilds the classification search on unstratified
// folds when a cluster is too small for stratified resampling.
func searchWithPlainFolds(runner *search.Runner, ds *dataset.Dataset, rec recipe.Recipe, spec models.Spec, grid search.Grid, nFolds int, labelCol string) (*search.TuningResult, error) {
	folds, err := evaluation.KFold(ds.Rows, nFolds, runner.Seed)
	if err != nil {
		return nil, err
	}
	return runner.SearchClassificationFolds(ds, rec, spec, grid, folds, labelCol)
}
