// Package dataset loads the stock CSV into a dense numeric table. Rows are
// ordered by date; that ordering is what makes the lag embeddings and
// row-index splits downstream valid, so it is validated here at the boundary.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
)

// dateLayouts are tried in order for the first CSV column.
var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02.01.2006"}

// Dataset is one loaded CSV: a date index plus a dense numeric table.
type Dataset struct {
	Path  string
	Dates []time.Time
	Names []string   // numeric column names, in file order
	Table *mat.Dense // rows × numeric columns
}

// Load reads a CSV with a header row, a leading date column, and numeric
// columns after it. Rows must be in non-decreasing date order.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("dataset: read header of %s: %w", path, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("dataset: %s needs a date column and at least one numeric column", path)
	}
	cols := len(header) - 1

	var (
		data  []float64
		dates []time.Time
		row   int
	)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read row %d: %w", row+2, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("dataset: row %d has %d fields, header has %d", row+2, len(record), len(header))
		}

		date, err := parseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("dataset: row %d: %w", row+2, err)
		}
		if len(dates) > 0 && date.Before(dates[len(dates)-1]) {
			return nil, fmt.Errorf("dataset: row %d (%s) is out of date order", row+2, record[0])
		}
		dates = append(dates, date)

		for j, s := range record[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %q: parse %q: %w", row+2, header[j+1], s, err)
			}
			data = append(data, v)
		}
		row++
	}
	if row == 0 {
		return nil, fmt.Errorf("dataset: %s has no data rows", path)
	}

	return &Dataset{
		Path:  path,
		Dates: dates,
		Names: header[1:],
		Table: mat.NewDense(row, cols, data),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int {
	r, _ := d.Table.Dims()
	return r
}

// Column returns a copy of the numeric column at the given index.
func (d *Dataset) Column(j int) ([]float64, error) {
	r, c := d.Table.Dims()
	if j < 0 || j >= c {
		return nil, fmt.Errorf("dataset: column %d out of range [0,%d)", j, c)
	}
	out := make([]float64, r)
	mat.Col(out, j, d.Table)
	return out, nil
}

// HighLowFluct returns the three consumed series: file columns 2-4, i.e. the
// first three numeric columns (high, low, daily fluctuation).
func (d *Dataset) HighLowFluct() (high, low, fluct []float64, err error) {
	if _, c := d.Table.Dims(); c < 3 {
		return nil, nil, nil, fmt.Errorf("dataset: %s has %d numeric columns, need high/low/fluctuation", d.Path, c)
	}
	if high, err = d.Column(0); err != nil {
		return nil, nil, nil, err
	}
	if low, err = d.Column(1); err != nil {
		return nil, nil, nil, err
	}
	if fluct, err = d.Column(2); err != nil {
		return nil, nil, nil, err
	}
	return high, low, fluct, nil
}

// ShapeMatrix returns the rows × 3 matrix of the consumed columns, the input
// to the clustering stage.
func (d *Dataset) ShapeMatrix() (*mat.Dense, error) {
	high, low, fluct, err := d.HighLowFluct()
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(high), 3, nil)
	for i := range high {
		out.Set(i, 0, high[i])
		out.Set(i, 1, low[i])
		out.Set(i, 2, fluct[i])
	}
	return out, nil
}

// SplitSeries cuts a series at the fixed row index: rows [0,trainRows) train,
// the remainder test.
func SplitSeries(series []float64, trainRows int) (train, test []float64, err error) {
	if trainRows < 1 || trainRows >= len(series) {
		return nil, nil, fmt.Errorf("dataset: split at %d invalid for %d rows", trainRows, len(series))
	}
	return series[:trainRows], series[trainRows:], nil
}
