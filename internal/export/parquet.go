package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// parquetSchema builds a flat schema for spec. Key columns are required,
// identity and stat columns optional, fantasy points required doubles.
func parquetSchema(spec provider.CategorySpec) *parquet.Schema {
	double := parquet.Leaf(parquet.DoubleType)
	g := parquet.Group{
		"player_gsis_id": parquet.String(),
		"season":         parquet.Int(32),
		"season_type":    parquet.String(),
		"week":           parquet.Int(32),
	}
	for _, col := range provider.IdentityColumns {
		g[col] = parquet.Optional(parquet.String())
	}
	for _, col := range spec.StatColumns() {
		g[col] = parquet.Optional(double)
	}
	for _, col := range provider.FantasyColumns {
		g[col] = double
	}
	for _, col := range spec.Efficiency {
		g[col] = parquet.Optional(double)
	}
	return parquet.NewSchema(spec.Table, g)
}

// WriteParquet writes recs as a Snappy-compressed Parquet file.
func WriteParquet(w io.Writer, spec provider.CategorySpec, recs []provider.Record) error {
	schema := parquetSchema(spec)
	leaves := schema.Columns()

	pw := parquet.NewWriter(w, schema, parquet.Compression(&parquet.Snappy))
	rows := make([]parquet.Row, 0, len(recs))
	for _, r := range recs {
		row, err := parquetRow(schema, leaves, r)
		if err != nil {
			pw.Close()
			return err
		}
		rows = append(rows, row)
	}
	if _, err := pw.WriteRows(rows); err != nil {
		pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return pw.Close()
}

// parquetRow maps r onto the schema's leaf order. Groups sort their fields
// by name, so leaf indexes do not follow RecordColumns.
func parquetRow(schema *parquet.Schema, leaves [][]string, r provider.Record) (parquet.Row, error) {
	row := make(parquet.Row, len(leaves))
	for _, path := range leaves {
		col := path[0]
		leaf, ok := schema.Lookup(col)
		if !ok {
			return nil, fmt.Errorf("parquet column %s missing", col)
		}
		i, def := leaf.ColumnIndex, leaf.MaxDefinitionLevel

		var v parquet.Value
		switch x := r.Value(col).(type) {
		case nil:
			if def == 0 {
				return nil, fmt.Errorf("required parquet column %s is empty", col)
			}
			row[i] = parquet.Value{}.Level(0, 0, i)
			continue
		case string:
			v = parquet.ValueOf(x)
		case int:
			v = parquet.ValueOf(int32(x))
		case float64:
			v = parquet.ValueOf(x)
		default:
			return nil, fmt.Errorf("parquet column %s: unsupported %T", col, x)
		}
		row[i] = v.Level(0, def, i)
	}
	return row, nil
}
