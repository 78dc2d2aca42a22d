package dataset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The 1974 Motor Trend road-test table: 32 cars, 11 measured columns.
// cyl, vs, am, gear and carb are small fixed code sets and are loaded as
// categorical columns with readable labels.

type carRow struct {
	name                       string
	mpg, disp, drat, wt, qsec  float64
	hp                         int
	cyl, vs, am, gear, carb    int
}

var motorTrendRows = []carRow{
	{"Mazda RX4", 21.0, 160.0, 3.90, 2.620, 16.46, 110, 6, 0, 1, 4, 4},
	{"Mazda RX4 Wag", 21.0, 160.0, 3.90, 2.875, 17.02, 110, 6, 0, 1, 4, 4},
	{"Datsun 710", 22.8, 108.0, 3.85, 2.320, 18.61, 93, 4, 1, 1, 4, 1},
	{"Hornet 4 Drive", 21.4, 258.0, 3.08, 3.215, 19.44, 110, 6, 1, 0, 3, 1},
	{"Hornet Sportabout", 18.7, 360.0, 3.15, 3.440, 17.02, 175, 8, 0, 0, 3, 2},
	{"Valiant", 18.1, 225.0, 2.76, 3.460, 20.22, 105, 6, 1, 0, 3, 1},
	{"Duster 360", 14.3, 360.0, 3.21, 3.570, 15.84, 245, 8, 0, 0, 3, 4},
	{"Merc 240D", 24.4, 146.7, 3.69, 3.190, 20.00, 62, 4, 1, 0, 4, 2},
	{"Merc 230", 22.8, 140.8, 3.92, 3.150, 22.90, 95, 4, 1, 0, 4, 2},
	{"Merc 280", 19.2, 167.6, 3.92, 3.440, 18.30, 123, 6, 1, 0, 4, 4},
	{"Merc 280C", 17.8, 167.6, 3.92, 3.440, 18.90, 123, 6, 1, 0, 4, 4},
	{"Merc 450SE", 16.4, 275.8, 3.07, 4.070, 17.40, 180, 8, 0, 0, 3, 3},
	{"Merc 450SL", 17.3, 275.8, 3.07, 3.730, 17.60, 180, 8, 0, 0, 3, 3},
	{"Merc 450SLC", 15.2, 275.8, 3.07, 3.780, 18.00, 180, 8, 0, 0, 3, 3},
	{"Cadillac Fleetwood", 10.4, 472.0, 2.93, 5.250, 17.98, 205, 8, 0, 0, 3, 4},
	{"Lincoln Continental", 10.4, 460.0, 3.00, 5.424, 17.82, 215, 8, 0, 0, 3, 4},
	{"Chrysler Imperial", 14.7, 440.0, 3.23, 5.345, 17.42, 230, 8, 0, 0, 3, 4},
	{"Fiat 128", 32.4, 78.7, 4.08, 2.200, 19.47, 66, 4, 1, 1, 4, 1},
	{"Honda Civic", 30.4, 75.7, 4.93, 1.615, 18.52, 52, 4, 1, 1, 4, 2},
	{"Toyota Corolla", 33.9, 71.1, 4.22, 1.835, 19.90, 65, 4, 1, 1, 4, 1},
	{"Toyota Corona", 21.5, 120.1, 3.70, 2.465, 20.01, 97, 4, 1, 0, 3, 1},
	{"Dodge Challenger", 15.5, 318.0, 2.76, 3.520, 16.87, 150, 8, 0, 0, 3, 2},
	{"AMC Javelin", 15.2, 304.0, 3.15, 3.435, 17.30, 150, 8, 0, 0, 3, 2},
	{"Camaro Z28", 13.3, 350.0, 3.73, 3.840, 15.41, 245, 8, 0, 0, 3, 4},
	{"Pontiac Firebird", 19.2, 400.0, 3.08, 3.845, 17.05, 175, 8, 0, 0, 3, 2},
	{"Fiat X1-9", 27.3, 79.0, 4.08, 1.935, 18.90, 66, 4, 1, 1, 4, 1},
	{"Porsche 914-2", 26.0, 120.3, 4.43, 2.140, 16.70, 91, 4, 0, 1, 5, 2},
	{"Lotus Europa", 30.4, 95.1, 3.77, 1.513, 16.90, 113, 4, 1, 1, 5, 2},
	{"Ford Pantera L", 15.8, 351.0, 4.22, 3.170, 14.50, 264, 8, 0, 1, 5, 4},
	{"Ferrari Dino", 19.7, 145.0, 3.62, 2.770, 15.50, 175, 6, 0, 1, 5, 6},
	{"Maserati Bora", 15.0, 301.0, 3.54, 3.570, 14.60, 335, 8, 0, 1, 5, 8},
	{"Volvo 142E", 21.4, 121.0, 4.11, 2.780, 18.60, 109, 4, 1, 1, 4, 2},
}

// MotorTrendSchema is the declared 11-column schema of the road-test table.
func MotorTrendSchema() Schema {
	return Schema{Columns: []ColumnSpec{
		{Name: "mpg", Kind: Numeric},
		{Name: "cyl", Kind: Categorical, Levels: []string{"4", "6", "8"}},
		{Name: "disp", Kind: Numeric},
		{Name: "hp", Kind: Numeric},
		{Name: "drat", Kind: Numeric},
		{Name: "wt", Kind: Numeric},
		{Name: "qsec", Kind: Numeric},
		{Name: "vs", Kind: Categorical, Levels: []string{"v-shaped", "straight"},
			Codes: map[string]string{"0": "v-shaped", "1": "straight"}},
		{Name: "am", Kind: Categorical, Levels: []string{"automatic", "manual"},
			Codes: map[string]string{"0": "automatic", "1": "manual"}},
		{Name: "gear", Kind: Categorical, Levels: []string{"3", "4", "5"}},
		{Name: "carb", Kind: Categorical, Levels: []string{"1", "2", "3", "4", "6", "8"}},
	}}
}

// LoadMotorTrend builds the canonical in-memory dataset, converting the
// integer code columns to their categorical labels.
func LoadMotorTrend() (*Dataset, error) {
	schema := MotorTrendSchema()
	n := len(motorTrendRows)

	names := make([]string, n)
	cells := make(map[string][]string, len(schema.Columns))
	for _, spec := range schema.Columns {
		cells[spec.Name] = make([]string, n)
	}

	for i, row := range motorTrendRows {
		names[i] = row.name
		cells["mpg"][i] = fmt.Sprintf("%g", row.mpg)
		cells["cyl"][i] = fmt.Sprintf("%d", row.cyl)
		cells["disp"][i] = fmt.Sprintf("%g", row.disp)
		cells["hp"][i] = fmt.Sprintf("%d", row.hp)
		cells["drat"][i] = fmt.Sprintf("%g", row.drat)
		cells["wt"][i] = fmt.Sprintf("%g", row.wt)
		cells["qsec"][i] = fmt.Sprintf("%g", row.qsec)
		cells["vs"][i] = fmt.Sprintf("%d", row.vs)
		cells["am"][i] = fmt.Sprintf("%d", row.am)
		cells["gear"][i] = fmt.Sprintf("%d", row.gear)
		cells["carb"][i] = fmt.Sprintf("%d", row.carb)
	}

	columns := make([]Column, 0, len(schema.Columns))
	for _, spec := range schema.Columns {
		col, err := buildColumn(spec, cells[spec.Name])
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return New(names, columns)
}

// buildColumn parses raw string cells into a typed column, translating
// categorical codes to levels and rejecting anything outside the schema.
func buildColumn(spec ColumnSpec, raw []string) (Column, error) {
	col := Column{Spec: spec}
	switch spec.Kind {
	case Numeric:
		col.Numbers = make([]decimal.Decimal, len(raw))
		for i, cell := range raw {
			v, err := decimal.NewFromString(cell)
			if err != nil {
				return Column{}, &SchemaError{Column: spec.Name, Reason: fmt.Sprintf("row %d: %q is not numeric", i, cell)}
			}
			col.Numbers[i] = v
		}
	case Categorical:
		col.Labels = make([]string, len(raw))
		for i, cell := range raw {
			label := cell
			if mapped, ok := spec.Codes[cell]; ok {
				label = mapped
			}
			if spec.levelIndex(label) < 0 {
				return Column{}, &SchemaError{Column: spec.Name, Reason: fmt.Sprintf("row %d: code %q is outside the declared level set", i, cell)}
			}
			col.Labels[i] = label
		}
	default:
		return Column{}, &SchemaError{Column: spec.Name, Reason: fmt.Sprintf("unknown column kind %q", spec.Kind)}
	}
	return col, nil
}
