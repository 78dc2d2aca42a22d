package evaluation

import (
	"fmt"
	"math"
	"strings"
)

type ClassificationMetrics struct {
	Accuracy         float64              `json:"accuracy"`
	BalancedAccuracy float64              `json:"balanced_accuracy"`
	MacroPrecision   float64              `json:"macro_precision"`
	MacroRecall      float64              `json:"macro_recall"`
	MacroF1          float64              `json:"macro_f1"`
	PerClassMetrics  map[int]ClassMetrics `json:"per_class_metrics"`
	ConfusionMatrix  [][]int              `json:"confusion_matrix"`
	ClassSupport     map[int]int          `json:"class_support"`
	NumSamples       int                  `json:"num_samples"`
	NumClasses       int                  `json:"num_classes"`
}

type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// CalculateMetrics builds the confusion matrix and the accuracy/precision/
// recall surface for a prediction run. Rows of the matrix are true
// classes, columns predicted, both in classes order.
func CalculateMetrics(yTrue, yPred []int, classes []int) (*ClassificationMetrics, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("true and predicted labels have different lengths: %d vs %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no predictions to score")
	}

	numSamples := len(yTrue)
	numClasses := len(classes)
	confusion := buildConfusionMatrix(yTrue, yPred, classes)

	classSupport := make(map[int]int)
	for _, class := range yTrue {
		classSupport[class]++
	}

	perClass := make(map[int]ClassMetrics)
	var macroPrec, macroRec, macroF1, balanced float64
	for i, class := range classes {
		tp := confusion[i][i]
		fp, fn := 0, 0
		for j := range classes {
			if j != i {
				fp += confusion[j][i]
				fn += confusion[i][j]
			}
		}

		precision := safeDivide(float64(tp), float64(tp+fp))
		recall := safeDivide(float64(tp), float64(tp+fn))
		f1 := safeDivide(2*precision*recall, precision+recall)

		perClass[class] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1Score:   f1,
			Support:   classSupport[class],
		}
		macroPrec += precision
		macroRec += recall
		macroF1 += f1
		balanced += recall
	}
	macroPrec /= float64(numClasses)
	macroRec /= float64(numClasses)
	macroF1 /= float64(numClasses)
	balanced /= float64(numClasses)

	correct := 0
	for i, pred := range yPred {
		if pred == yTrue[i] {
			correct++
		}
	}

	return &ClassificationMetrics{
		Accuracy:         float64(correct) / float64(numSamples),
		BalancedAccuracy: balanced,
		MacroPrecision:   macroPrec,
		MacroRecall:      macroRec,
		MacroF1:          macroF1,
		PerClassMetrics:  perClass,
		ConfusionMatrix:  confusion,
		ClassSupport:     classSupport,
		NumSamples:       numSamples,
		NumClasses:       numClasses,
	}, nil
}

func buildConfusionMatrix(yTrue, yPred []int, classes []int) [][]int {
	matrix := make([][]int, len(classes))
	for i := range matrix {
		matrix[i] = make([]int, len(classes))
	}
	classToIdx := make(map[int]int, len(classes))
	for i, class := range classes {
		classToIdx[class] = i
	}
	for i := range yTrue {
		trueIdx, trueOk := classToIdx[yTrue[i]]
		predIdx, predOk := classToIdx[yPred[i]]
		if trueOk && predOk {
			matrix[trueIdx][predIdx]++
		}
	}
	return matrix
}

func safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	result := numerator / denominator
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0
	}
	return result
}

func (m *ClassificationMetrics) FormatMetrics() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Accuracy: %.4f\n", m.Accuracy)
	fmt.Fprintf(&b, "Balanced Accuracy: %.4f\n", m.BalancedAccuracy)
	fmt.Fprintf(&b, "Macro Avg - Precision: %.4f, Recall: %.4f, F1: %.4f\n",
		m.MacroPrecision, m.MacroRecall, m.MacroF1)
	return b.String()
}
