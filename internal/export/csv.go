package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// WriteCSV writes recs with a RecordColumns header. Absent values are empty
// cells.
func WriteCSV(w io.Writer, spec provider.CategorySpec, recs []provider.Record) error {
	cols := spec.RecordColumns()
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, r := range recs {
		for i, col := range cols {
			row[i] = formatCell(r.Value(col))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
