package evaluation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ROCAUC computes the macro-averaged one-vs-rest area under the ROC curve.
// proba rows hold class scores in classes order. Per class the AUC comes
// from the rank-sum (Mann-Whitney) formulation, with ties counted as half;
// classes without both a positive and a negative example are skipped.
func ROCAUC(yTrue []int, proba [][]decimal.Decimal, classes []int) (float64, error) {
	if len(yTrue) != len(proba) {
		return 0, fmt.Errorf("labels and probabilities have different lengths: %d vs %d", len(yTrue), len(proba))
	}
	if len(yTrue) == 0 {
		return 0, fmt.Errorf("no predictions to score")
	}

	total := 0.0
	scored := 0
	for ci, class := range classes {
		var positives, negatives []float64
		for i, label := range yTrue {
			if ci >= len(proba[i]) {
				return 0, fmt.Errorf("row %d has %d scores for %d classes", i, len(proba[i]), len(classes))
			}
			score, _ := proba[i][ci].Float64()
			if label == class {
				positives = append(positives, score)
			} else {
				negatives = append(negatives, score)
			}
		}
		if len(positives) == 0 || len(negatives) == 0 {
			continue
		}

		wins := 0.0
		for _, p := range positives {
			for _, n := range negatives {
				switch {
				case p > n:
					wins++
				case p == n:
					wins += 0.5
				}
			}
		}
		total += wins / float64(len(positives)*len(negatives))
		scored++
	}

	if scored == 0 {
		return 0, fmt.Errorf("no class had both positive and negative examples")
	}
	return total / float64(scored), nil
}
