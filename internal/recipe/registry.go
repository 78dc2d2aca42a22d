package recipe

// Registry returns the fixed set of named preprocessing recipes the
// pipeline searches over, in their canonical order. Step order inside a
// recipe is deliberate: categorical handling comes before normalization,
// normalization before projection.
func Registry() []Recipe {
	return []Recipe{
		New("log-dummy-norm",
			FlagUnseen(),
			LogTransform("disp", "hp", "wt"),
			OneHot(),
			DropZeroVariance(),
			Normalize(),
		),
		New("dummy-norm-pca",
			OneHot(),
			DropZeroVariance(),
			Normalize(),
			ProjectPCA(5),
		),
		New("dummy-norm",
			OneHot(),
			DropZeroVariance(),
			Normalize(),
		),
	}
}

// Lookup finds a registry recipe by name.
func Lookup(name string) (Recipe, bool) {
	for _, r := range Registry() {
		if r.Name == name {
			return r, true
		}
	}
	return Recipe{}, false
}
