package models

import (
	"github.com/shopspring/decimal"
)

type TreeNode struct {
	IsLeaf           bool
	Class            int
	ClassCounts      map[int]int
	Feature          int
	Threshold        decimal.Decimal
	Left             *TreeNode
	Right            *TreeNode
	Samples          int
	Impurity         float64
	ImpurityDecrease float64
}

// DecisionTree is a CART classifier with Gini impurity. MinImpurityDecrease
// doubles as the cost-complexity knob: splits whose impurity gain falls
// below it are not taken.
type DecisionTree struct {
	BaseModel
	Root                *TreeNode
	MaxDepth            int
	MinSamplesSplit     int
	MinImpurityDecrease float64

	nFeatures  int
	importance []float64
}

func NewDecisionTree(maxDepth, minSamplesSplit int, minImpurityDecrease float64) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	if minSamplesSplit <= 0 {
		minSamplesSplit = 2
	}
	if minImpurityDecrease < 0 {
		minImpurityDecrease = 0
	}
	return &DecisionTree{
		MaxDepth:            maxDepth,
		MinSamplesSplit:     minSamplesSplit,
		MinImpurityDecrease: minImpurityDecrease,
		BaseModel: BaseModel{
			Name: "DecisionTree",
			Params: map[string]any{
				"max_depth":             maxDepth,
				"min_samples_split":     minSamplesSplit,
				"min_impurity_decrease": minImpurityDecrease,
			},
		},
	}
}

func (dt *DecisionTree) Fit(X [][]decimal.Decimal, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return &FitError{Model: dt.Name, Reason: "feature matrix and labels are empty or mismatched"}
	}
	dt.Classes = ExtractClasses(y)
	dt.nFeatures = len(X[0])
	dt.importance = make([]float64, dt.nFeatures)
	dt.Root = dt.buildTree(X, y, 0)
	return nil
}

func (dt *DecisionTree) buildTree(X [][]decimal.Decimal, y []int, depth int) *TreeNode {
	node := &TreeNode{
		Samples:     len(y),
		ClassCounts: countClasses(y),
	}
	node.Impurity = gini(node.ClassCounts, len(y))

	if depth >= dt.MaxDepth || len(y) < dt.MinSamplesSplit || isPure(y) {
		return dt.makeLeaf(node)
	}

	bestFeature, bestThreshold, bestDecrease := dt.findBestSplit(X, y, node.Impurity)
	if bestDecrease < dt.MinImpurityDecrease || bestDecrease <= 0 {
		return dt.makeLeaf(node)
	}

	leftIdx, rightIdx := splitIndices(X, bestFeature, bestThreshold)
	if len(leftIdx) == 0 || len(rightIdx) == 0 {
		return dt.makeLeaf(node)
	}

	node.Feature = bestFeature
	node.Threshold = bestThreshold
	node.ImpurityDecrease = bestDecrease
	dt.importance[bestFeature] += float64(len(y)) * bestDecrease

	XLeft, yLeft := selectRows(X, y, leftIdx)
	XRight, yRight := selectRows(X, y, rightIdx)
	node.Left = dt.buildTree(XLeft, yLeft, depth+1)
	node.Right = dt.buildTree(XRight, yRight, depth+1)
	return node
}

func (dt *DecisionTree) makeLeaf(node *TreeNode) *TreeNode {
	node.IsLeaf = true
	node.Class = majorityClass(node.ClassCounts)
	return node
}

func (dt *DecisionTree) findBestSplit(X [][]decimal.Decimal, y []int, parentImpurity float64) (int, decimal.Decimal, float64) {
	bestFeature := 0
	bestThreshold := decimal.Zero
	bestDecrease := 0.0
	n := len(y)

	for feature := range X[0] {
		for _, threshold := range uniqueValues(X, feature) {
			leftIdx, rightIdx := splitIndices(X, feature, threshold)
			if len(leftIdx) == 0 || len(rightIdx) == 0 {
				continue
			}

			leftCounts := make(map[int]int)
			for _, idx := range leftIdx {
				leftCounts[y[idx]]++
			}
			rightCounts := make(map[int]int)
			for _, idx := range rightIdx {
				rightCounts[y[idx]]++
			}

			weighted := (float64(len(leftIdx))/float64(n))*gini(leftCounts, len(leftIdx)) +
				(float64(len(rightIdx))/float64(n))*gini(rightCounts, len(rightIdx))
			decrease := parentImpurity - weighted

			if decrease > bestDecrease {
				bestDecrease = decrease
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestDecrease
}

func (dt *DecisionTree) Predict(X [][]decimal.Decimal) []int {
	predictions := make([]int, len(X))
	for i, sample := range X {
		predictions[i] = dt.predictNode(sample, dt.Root).Class
	}
	return predictions
}

// PredictProba returns, per row, the class proportions of the leaf the row
// lands in, in GetClasses order.
func (dt *DecisionTree) PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal {
	proba := make([][]decimal.Decimal, len(X))
	for i, sample := range X {
		leaf := dt.predictNode(sample, dt.Root)
		total := decimal.NewFromInt(int64(leaf.Samples))
		proba[i] = make([]decimal.Decimal, len(dt.Classes))
		for j, class := range dt.Classes {
			count := decimal.NewFromInt(int64(leaf.ClassCounts[class]))
			if total.IsZero() {
				proba[i][j] = decimal.Zero
			} else {
				proba[i][j] = count.Div(total)
			}
		}
	}
	return proba
}

func (dt *DecisionTree) predictNode(sample []decimal.Decimal, node *TreeNode) *TreeNode {
	if node.IsLeaf {
		return node
	}
	if sample[node.Feature].LessThan(node.Threshold) {
		return dt.predictNode(sample, node.Left)
	}
	return dt.predictNode(sample, node.Right)
}

// FeatureImportance returns per-feature impurity decrease, weighted by the
// samples reaching each split and normalized to sum to 1. An unfit or
// splitless tree yields all zeros.
func (dt *DecisionTree) FeatureImportance() []float64 {
	out := make([]float64, dt.nFeatures)
	total := 0.0
	for _, v := range dt.importance {
		total += v
	}
	if total == 0 {
		return out
	}
	for i, v := range dt.importance {
		out[i] = v / total
	}
	return out
}

func (dt *DecisionTree) Reset() {
	dt.Root = nil
	dt.Classes = nil
	dt.importance = nil
	dt.nFeatures = 0
}

func gini(counts map[int]int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		p := float64(count) / float64(n)
		impurity -= p * p
	}
	return impurity
}

func countClasses(y []int) map[int]int {
	counts := make(map[int]int)
	for _, class := range y {
		counts[class]++
	}
	return counts
}

func isPure(y []int) bool {
	if len(y) == 0 {
		return true
	}
	first := y[0]
	for _, class := range y {
		if class != first {
			return false
		}
	}
	return true
}

func majorityClass(counts map[int]int) int {
	best, bestCount := 0, -1
	for class, count := range counts {
		if count > bestCount || (count == bestCount && class < best) {
			best, bestCount = class, count
		}
	}
	return best
}

func uniqueValues(X [][]decimal.Decimal, feature int) []decimal.Decimal {
	seen := make(map[string]bool)
	var values []decimal.Decimal
	for _, sample := range X {
		key := sample[feature].String()
		if !seen[key] {
			seen[key] = true
			values = append(values, sample[feature])
		}
	}
	return values
}

func splitIndices(X [][]decimal.Decimal, feature int, threshold decimal.Decimal) ([]int, []int) {
	var left, right []int
	for i, sample := range X {
		if sample[feature].LessThan(threshold) {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func selectRows(X [][]decimal.Decimal, y []int, indices []int) ([][]decimal.Decimal, []int) {
	outX := make([][]decimal.Decimal, len(indices))
	outY := make([]int, len(indices))
	for i, idx := range indices {
		outX[i] = X[idx]
		outY[i] = y[idx]
	}
	return outX, outY
}
