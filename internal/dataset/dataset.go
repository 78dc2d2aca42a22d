package dataset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// SchemaError reports a column that is missing, mistyped, or carries a
// value outside its declared domain.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in column %q: %s", e.Column, e.Reason)
}

// ColumnSpec declares one column of a Dataset. Categorical columns carry a
// fixed, ordered level set and an optional mapping from raw codes (as they
// appear in the source data) to levels.
type ColumnSpec struct {
	Name   string
	Kind   Kind
	Levels []string
	Codes  map[string]string
}

func (cs ColumnSpec) levelIndex(label string) int {
	for i, l := range cs.Levels {
		if l == label {
			return i
		}
	}
	return -1
}

type Schema struct {
	Columns []ColumnSpec
}

func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

type Column struct {
	Spec    ColumnSpec
	Numbers []decimal.Decimal
	Labels  []string
}

func (c Column) len() int {
	if c.Spec.Kind == Numeric {
		return len(c.Numbers)
	}
	return len(c.Labels)
}

func (c Column) clone() Column {
	out := Column{Spec: c.Spec}
	out.Spec.Levels = append([]string(nil), c.Spec.Levels...)
	if c.Numbers != nil {
		out.Numbers = append([]decimal.Decimal(nil), c.Numbers...)
	}
	if c.Labels != nil {
		out.Labels = append([]string(nil), c.Labels...)
	}
	return out
}

// Dataset is an ordered collection of typed columns sharing one row count.
// Mutating methods return copies; a loaded Dataset is never changed in place.
type Dataset struct {
	Names   []string
	Columns []Column
	Rows    int
}

func New(names []string, columns []Column) (*Dataset, error) {
	rows := -1
	for _, c := range columns {
		if rows == -1 {
			rows = c.len()
		}
		if c.len() != rows {
			return nil, &SchemaError{Column: c.Spec.Name, Reason: fmt.Sprintf("has %d rows, expected %d", c.len(), rows)}
		}
	}
	if rows < 0 {
		rows = 0
	}
	if names != nil && len(names) != rows {
		return nil, &SchemaError{Column: "", Reason: fmt.Sprintf("%d row names for %d rows", len(names), rows)}
	}
	return &Dataset{Names: names, Columns: columns, Rows: rows}, nil
}

func (ds *Dataset) Schema() Schema {
	specs := make([]ColumnSpec, len(ds.Columns))
	for i, c := range ds.Columns {
		specs[i] = c.Spec
	}
	return Schema{Columns: specs}
}

// Column returns the named column or a SchemaError when absent.
func (ds *Dataset) Column(name string) (*Column, error) {
	for i := range ds.Columns {
		if ds.Columns[i].Spec.Name == name {
			return &ds.Columns[i], nil
		}
	}
	return nil, &SchemaError{Column: name, Reason: "column not found"}
}

func (ds *Dataset) Copy() *Dataset {
	cols := make([]Column, len(ds.Columns))
	for i, c := range ds.Columns {
		cols[i] = c.clone()
	}
	return &Dataset{
		Names:   append([]string(nil), ds.Names...),
		Columns: cols,
		Rows:    ds.Rows,
	}
}

// WithColumn returns a copy of the dataset with col appended, replacing any
// existing column of the same name.
func (ds *Dataset) WithColumn(col Column) (*Dataset, error) {
	if col.len() != ds.Rows {
		return nil, &SchemaError{Column: col.Spec.Name, Reason: fmt.Sprintf("has %d rows, dataset has %d", col.len(), ds.Rows)}
	}
	out := ds.Copy()
	for i := range out.Columns {
		if out.Columns[i].Spec.Name == col.Spec.Name {
			out.Columns[i] = col.clone()
			return out, nil
		}
	}
	out.Columns = append(out.Columns, col.clone())
	return out, nil
}

// WithoutColumn returns a copy with the named column removed. Removing a
// column that does not exist is not an error.
func (ds *Dataset) WithoutColumn(name string) *Dataset {
	out := ds.Copy()
	cols := out.Columns[:0]
	for _, c := range out.Columns {
		if c.Spec.Name != name {
			cols = append(cols, c)
		}
	}
	out.Columns = cols
	return out
}

// SelectRows returns a copy holding only the given row indices, in order.
func (ds *Dataset) SelectRows(indices []int) *Dataset {
	cols := make([]Column, len(ds.Columns))
	for i, c := range ds.Columns {
		out := Column{Spec: c.Spec}
		if c.Spec.Kind == Numeric {
			out.Numbers = make([]decimal.Decimal, len(indices))
			for j, idx := range indices {
				out.Numbers[j] = c.Numbers[idx]
			}
		} else {
			out.Labels = make([]string, len(indices))
			for j, idx := range indices {
				out.Labels[j] = c.Labels[idx]
			}
		}
		cols[i] = out
	}
	var names []string
	if ds.Names != nil {
		names = make([]string, len(indices))
		for j, idx := range indices {
			names[j] = ds.Names[idx]
		}
	}
	return &Dataset{Names: names, Columns: cols, Rows: len(indices)}
}

// NumericNames lists the numeric column names in dataset order.
func (ds *Dataset) NumericNames() []string {
	var names []string
	for _, c := range ds.Columns {
		if c.Spec.Kind == Numeric {
			names = append(names, c.Spec.Name)
		}
	}
	return names
}

// CategoricalNames lists the categorical column names in dataset order.
func (ds *Dataset) CategoricalNames() []string {
	var names []string
	for _, c := range ds.Columns {
		if c.Spec.Kind == Categorical {
			names = append(names, c.Spec.Name)
		}
	}
	return names
}

// Matrix materializes the numeric columns as a row-major feature matrix.
// Categorical columns are skipped; encode them first if they should
// contribute features.
func (ds *Dataset) Matrix() [][]decimal.Decimal {
	var numeric []*Column
	for i := range ds.Columns {
		if ds.Columns[i].Spec.Kind == Numeric {
			numeric = append(numeric, &ds.Columns[i])
		}
	}
	X := make([][]decimal.Decimal, ds.Rows)
	for i := 0; i < ds.Rows; i++ {
		X[i] = make([]decimal.Decimal, len(numeric))
		for j, c := range numeric {
			X[i][j] = c.Numbers[i]
		}
	}
	return X
}

// LabelInts encodes a categorical column as level indices, for use as a
// classification target.
func (ds *Dataset) LabelInts(name string) ([]int, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Spec.Kind != Categorical {
		return nil, &SchemaError{Column: name, Reason: "label column must be categorical"}
	}
	y := make([]int, ds.Rows)
	for i, label := range col.Labels {
		idx := col.Spec.levelIndex(label)
		if idx < 0 {
			return nil, &SchemaError{Column: name, Reason: fmt.Sprintf("value %q is not a declared level", label)}
		}
		y[i] = idx
	}
	return y, nil
}
