package evaluation

import (
	"fmt"
	"math/rand"
	"sort"
)

// InsufficientDataError reports a fold or stratified split that cannot be
// satisfied, such as a stratum with fewer rows than the partition needs.
type InsufficientDataError struct {
	Detail string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Detail
}

// Fold is one train/validation partition, as row indices into the source
// dataset.
type Fold struct {
	Train      []int
	Validation []int
}

// KFold partitions n rows into k folds. Shuffling is driven entirely by
// the explicit seed; the same seed always yields the same folds.
func KFold(n, k int, seed int64) ([]Fold, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("fold count %d must be between 2 and %d", k, n)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)

	folds := make([]Fold, k)
	foldSize := n / k
	for i := 0; i < k; i++ {
		start := i * foldSize
		end := start + foldSize
		if i == k-1 {
			end = n
		}
		validation := append([]int(nil), indices[start:end]...)
		train := make([]int, 0, n-len(validation))
		train = append(train, indices[:start]...)
		train = append(train, indices[end:]...)
		folds[i] = Fold{Train: train, Validation: validation}
	}
	return folds, nil
}

// StratifiedKFold partitions rows into k folds while keeping each label's
// proportions approximately equal across folds. Labels are distributed
// round-robin within each stratum after a seeded shuffle.
func StratifiedKFold(y []int, k int, seed int64) ([]Fold, error) {
	n := len(y)
	if k < 2 || k > n {
		return nil, fmt.Errorf("fold count %d must be between 2 and %d", k, n)
	}

	strata := make(map[int][]int)
	for i, label := range y {
		strata[label] = append(strata[label], i)
	}
	for label, members := range strata {
		if len(members) < k {
			return nil, &InsufficientDataError{
				Detail: fmt.Sprintf("stratum %d has %d rows, cannot fill %d folds", label, len(members), k),
			}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	validation := make([][]int, k)
	labels := sortedKeys(strata)
	for _, label := range labels {
		members := append([]int(nil), strata[label]...)
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		for i, idx := range members {
			validation[i%k] = append(validation[i%k], idx)
		}
	}

	folds := make([]Fold, k)
	for f := 0; f < k; f++ {
		inValidation := make(map[int]bool, len(validation[f]))
		for _, idx := range validation[f] {
			inValidation[idx] = true
		}
		train := make([]int, 0, n-len(validation[f]))
		for i := 0; i < n; i++ {
			if !inValidation[i] {
				train = append(train, i)
			}
		}
		folds[f] = Fold{Train: train, Validation: validation[f]}
	}
	return folds, nil
}

// TrainTestSplit divides n rows into train and test index sets after a
// seeded shuffle.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v must be in (0, 1)", testSize)
	}
	if n < 2 {
		return nil, nil, &InsufficientDataError{Detail: fmt.Sprintf("%d rows cannot be split", n)}
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	testCount := int(float64(n) * testSize)
	if testCount == 0 {
		testCount = 1
	}
	trainCount := n - testCount
	return indices[:trainCount], indices[trainCount:], nil
}

// StratifiedSplit divides rows into train and test index sets, preserving
// each label's proportion. Every stratum contributes at least one test
// row; a single-row stratum cannot be split.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v must be in (0, 1)", testSize)
	}
	if len(y) == 0 {
		return nil, nil, &InsufficientDataError{Detail: "no rows to split"}
	}

	strata := make(map[int][]int)
	for i, label := range y {
		strata[label] = append(strata[label], i)
	}

	rng := rand.New(rand.NewSource(seed))
	for _, label := range sortedKeys(strata) {
		members := append([]int(nil), strata[label]...)
		if len(members) < 2 {
			return nil, nil, &InsufficientDataError{
				Detail: fmt.Sprintf("stratum %d has a single row and cannot be split", label),
			}
		}
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		testCount := int(float64(len(members)) * testSize)
		if testCount == 0 {
			testCount = 1
		}
		trainCount := len(members) - testCount
		train = append(train, members[:trainCount]...)
		test = append(test, members[trainCount:]...)
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
