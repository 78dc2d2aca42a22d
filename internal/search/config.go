package search

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives the full pipeline run: which recipes to search, the
// clustering and classification grids, resampling sizes, and the one seed
// all randomness derives from.
type Config struct {
	Seed int64 `yaml:"seed"`

	Clustering struct {
		Recipes      []string `yaml:"recipes"`
		Folds        int      `yaml:"folds"`
		MinClusters  int      `yaml:"min_clusters"`
		MaxClusters  int      `yaml:"max_clusters"`
		ChosenK      int      `yaml:"chosen_k"`
		ChosenRecipe string   `yaml:"chosen_recipe"`
	} `yaml:"clustering"`

	Classification struct {
		Folds               int       `yaml:"folds"`
		TestSize            float64   `yaml:"test_size"`
		MaxDepth            []int     `yaml:"max_depth"`
		MinSamplesSplit     []int     `yaml:"min_samples_split"`
		MinImpurityDecrease []float64 `yaml:"min_impurity_decrease"`
	} `yaml:"classification"`
}

// DefaultConfig mirrors the reference analysis: k 1..10 over 10 folds on
// all three recipes, then a 4x4x4 tree grid under 3 stratified folds, with
// the elbow-selected k = 6 on the PCA recipe.
func DefaultConfig() *Config {
	cfg := &Config{Seed: 42}

	cfg.Clustering.Recipes = []string{"log-dummy-norm", "dummy-norm-pca", "dummy-norm"}
	cfg.Clustering.Folds = 10
	cfg.Clustering.MinClusters = 1
	cfg.Clustering.MaxClusters = 10
	cfg.Clustering.ChosenK = 6
	cfg.Clustering.ChosenRecipe = "dummy-norm-pca"

	cfg.Classification.Folds = 3
	cfg.Classification.TestSize = 0.25
	cfg.Classification.MaxDepth = []int{2, 4, 8, 15}
	cfg.Classification.MinSamplesSplit = []int{2, 4, 8, 16}
	cfg.Classification.MinImpurityDecrease = []float64{0, 0.005, 0.01, 0.05}
	return cfg
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects configuration values the pipeline cannot honor. These
// are non-recoverable: the run aborts rather than searching a broken grid.
func (c *Config) Validate() error {
	if c.Clustering.MinClusters < 1 {
		return fmt.Errorf("clustering: min_clusters %d is below 1", c.Clustering.MinClusters)
	}
	if c.Clustering.MaxClusters < c.Clustering.MinClusters {
		return fmt.Errorf("clustering: max_clusters %d is below min_clusters %d",
			c.Clustering.MaxClusters, c.Clustering.MinClusters)
	}
	if c.Clustering.Folds < 2 {
		return fmt.Errorf("clustering: folds %d is below 2", c.Clustering.Folds)
	}
	if len(c.Clustering.Recipes) == 0 {
		return fmt.Errorf("clustering: no recipes configured")
	}
	if c.Clustering.ChosenK < c.Clustering.MinClusters || c.Clustering.ChosenK > c.Clustering.MaxClusters {
		return fmt.Errorf("clustering: chosen_k %d is outside the %d..%d grid",
			c.Clustering.ChosenK, c.Clustering.MinClusters, c.Clustering.MaxClusters)
	}
	if c.Classification.Folds < 2 {
		return fmt.Errorf("classification: folds %d is below 2", c.Classification.Folds)
	}
	if c.Classification.TestSize <= 0 || c.Classification.TestSize >= 1 {
		return fmt.Errorf("classification: test_size %v must be in (0, 1)", c.Classification.TestSize)
	}
	for _, d := range c.Classification.MaxDepth {
		if d < 1 {
			return fmt.Errorf("classification: max_depth %d is below 1", d)
		}
	}
	return nil
}

// ClusterGrid expands the configured cluster-count range.
func (c *Config) ClusterGrid() (Grid, error) {
	axis, err := IntRange("k", c.Clustering.MinClusters, c.Clustering.MaxClusters)
	if err != nil {
		return nil, err
	}
	return Expand(axis)
}

// TreeGrid expands the configured decision-tree axes in declaration
// order: depth, then split size, then impurity decrease.
func (c *Config) TreeGrid() (Grid, error) {
	return Expand(
		IntAxis("max_depth", c.Classification.MaxDepth...),
		IntAxis("min_samples_split", c.Classification.MinSamplesSplit...),
		FloatAxis("min_impurity_decrease", c.Classification.MinImpurityDecrease...),
	)
}
