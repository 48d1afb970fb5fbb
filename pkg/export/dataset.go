package export

import "fmt"

// Dataset is a titled table. Title, Subtitle and Footer only appear in
// document formats.
type Dataset struct {
	Title    string
	Subtitle string
	Footer   string
	Headers  []string
	Rows     [][]string
	// Widths are relative column weights for document formats. Missing
	// weights default to 1.
	Widths []float64
}

// AddRow appends one record. Short records are padded, long ones truncated.
func (d *Dataset) AddRow(values ...string) {
	row := make([]string, len(d.Headers))
	copy(row, values)
	d.Rows = append(d.Rows, row)
}

func (d Dataset) validate(format Format) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s export needs at least one column", format)
	}
	return nil
}

func (d Dataset) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
