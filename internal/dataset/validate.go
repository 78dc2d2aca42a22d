package dataset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateMatrix checks that a materialized feature matrix is rectangular
// and non-empty before it is handed to a model.
func ValidateMatrix(X [][]decimal.Decimal) error {
	if len(X) == 0 {
		return fmt.Errorf("feature matrix is empty")
	}
	nFeatures := len(X[0])
	if nFeatures == 0 {
		return fmt.Errorf("feature matrix has no columns")
	}
	for i, row := range X {
		if len(row) != nFeatures {
			return fmt.Errorf("inconsistent feature count at row %d: expected %d, got %d", i, nFeatures, len(row))
		}
	}
	return nil
}

// ValidateLabels checks that a classification target carries at least two
// classes.
func ValidateLabels(y []int) error {
	if len(y) == 0 {
		return fmt.Errorf("labels are empty")
	}
	classCount := make(map[int]int)
	for _, label := range y {
		classCount[label]++
	}
	if len(classCount) < 2 {
		return fmt.Errorf("target must have at least 2 classes, found %d", len(classCount))
	}
	return nil
}
