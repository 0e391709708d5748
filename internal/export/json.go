package export

import (
	"encoding/json"
	"io"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// WriteJSON writes recs as an array of flat objects keyed by column name.
// Absent values are omitted.
func WriteJSON(w io.Writer, spec provider.CategorySpec, recs []provider.Record) error {
	cols := spec.RecordColumns()
	rows := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		row := make(map[string]any, len(cols))
		for _, col := range cols {
			if v := r.Value(col); v != nil {
				row[col] = v
			}
		}
		rows = append(rows, row)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
