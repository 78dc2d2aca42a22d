package models

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FitError reports a model fit that failed for numerical or data-shape
// reasons. During grid search it marks a missing metric cell rather than
// aborting the run.
type FitError struct {
	Model  string
	Reason string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s fit failed: %s", e.Model, e.Reason)
}

// Classifier is a supervised model over decimal feature matrices.
type Classifier interface {
	Fit(X [][]decimal.Decimal, y []int) error
	Predict(X [][]decimal.Decimal) []int
	PredictProba(X [][]decimal.Decimal) [][]decimal.Decimal
	GetName() string
	GetParams() map[string]any
	GetClasses() []int
	Reset()
}

// Clusterer is an unsupervised model over decimal feature matrices.
type Clusterer interface {
	Fit(X [][]decimal.Decimal) error
	Predict(X [][]decimal.Decimal) ([]int, error)
	GetName() string
	GetParams() map[string]any
	Reset()
}

// BaseModel carries the name/params bookkeeping shared by all models.
type BaseModel struct {
	Name    string
	Params  map[string]any
	Classes []int
}

func (bm *BaseModel) GetName() string {
	return bm.Name
}

func (bm *BaseModel) GetParams() map[string]any {
	return bm.Params
}

func (bm *BaseModel) GetClasses() []int {
	return bm.Classes
}

// ExtractClasses lists the distinct labels in y in ascending order.
func ExtractClasses(y []int) []int {
	classMap := make(map[int]bool)
	for _, label := range y {
		classMap[label] = true
	}
	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}
