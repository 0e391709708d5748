package nflverse

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

// Identity columns in NGS release files.
const (
	colPlayerID   = "player_gsis_id"
	colName       = "player_display_name"
	colPosition   = "player_position"
	colTeam       = "team_abbr"
	colSeason     = "season"
	colSeasonType = "season_type"
	colWeek       = "week"
)

// ParseNGS decodes one NGS CSV file for category cat. Columns are matched
// by header name so upstream column reordering or additions are harmless.
// Cells that do not parse are left out of Stats; rows are never rejected
// here (that is provider.Normalize's job).
func ParseNGS(r io.Reader, cat provider.Category) ([]provider.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ngs %s header: %w", cat, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{colPlayerID, colSeason, colWeek} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("ngs %s: missing column %q", cat, required)
		}
	}

	statCols := cat.Spec().StatColumns()

	var out []provider.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ngs %s line %d: %w", cat, line, err)
		}

		get := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		raw := provider.RawRecord{
			Category:   cat,
			PlayerID:   get(colPlayerID),
			Name:       get(colName),
			Position:   get(colPosition),
			Team:       get(colTeam),
			SeasonType: get(colSeasonType),
			Stats:      make(map[string]float64, len(statCols)),
		}
		if n, ok := provider.ParseInt(get(colSeason)); ok {
			raw.Season = &n
		}
		if n, ok := provider.ParseInt(get(colWeek)); ok {
			raw.Week = &n
		}
		for _, col := range statCols {
			if v, ok := provider.ParseStat(get(col)); ok {
				raw.Stats[col] = v
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

// decode wraps r in a gzip reader when gzipped is set.
func decode(r io.Reader, gzipped bool, cat provider.Category) ([]provider.RawRecord, error) {
	if !gzipped {
		return ParseNGS(r, cat)
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer zr.Close()
	return ParseNGS(zr, cat)
}

// filterSeason returns the rows of raws for season and how many of them
// carry that season. Rows without a parseable season ride along with every
// season so validation counts them as malformed; a caller that fetches
// several seasons of one file counts them once.
func filterSeason(raws []provider.RawRecord, season int) ([]provider.RawRecord, int) {
	out := make([]provider.RawRecord, 0, len(raws)/4)
	dated := 0
	for _, r := range raws {
		switch {
		case r.Season == nil:
			out = append(out, r)
		case *r.Season == season:
			out = append(out, r)
			dated++
		}
	}
	return out, dated
}
