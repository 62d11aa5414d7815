package export

import (
	"strconv"
	"time"
)

// Dataset is an ordered table prepared for a report download. Column
// order is the render order.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// AddRow appends one record. Short rows are padded and long rows
// truncated so every rendered line has exactly one cell per column.
func (d *Dataset) AddRow(values ...string) {
	if len(values) < len(d.Columns) {
		padded := make([]string, len(d.Columns))
		copy(padded, values)
		values = padded
	}
	d.Rows = append(d.Rows, values[:len(d.Columns)])
}

// Timestamp formats an optional time for a report cell. Open-ended
// records render as an empty cell.
func Timestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Seconds formats an optional seconds counter for a report cell.
func Seconds(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
