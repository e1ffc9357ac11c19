package export

import "fmt"

// Column describes one exported field. Width is a relative weight used by
// the PDF layout; zero counts as one.
type Column struct {
	Header string
	Width  float64
}

// Dataset is a titled table. Every row must have one cell per column.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Columns))
		}
	}
	return nil
}

func (d Dataset) headers() []string {
	headers := make([]string, len(d.Columns))
	for i, column := range d.Columns {
		headers[i] = column.Header
	}
	return headers
}
