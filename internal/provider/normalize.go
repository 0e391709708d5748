package provider

import "strings"

// Filter restricts which validated records enter a run. Empty slices allow
// everything.
type Filter struct {
	Positions   []string
	SeasonTypes []string
}

// NormalizeResult carries validated records and the counts of rows that did
// not make it through.
type NormalizeResult struct {
	Records   []Record
	Malformed int // missing player id, season or week, or one out of range
	Filtered  int // valid but excluded by position / season type filters
}

// Normalize validates raw upstream rows. Rows missing a required identifying
// field are dropped and counted; optional stat cells are passed through as-is
// (absent cells score as zero downstream).
func Normalize(raws []RawRecord, f Filter) NormalizeResult {
	var res NormalizeResult
	positions := toSet(f.Positions)
	seasonTypes := toSet(f.SeasonTypes)

	res.Records = make([]Record, 0, len(raws))
	for _, raw := range raws {
		id := strings.TrimSpace(raw.PlayerID)
		if id == "" || raw.Season == nil || raw.Week == nil ||
			!validSeason(*raw.Season) || !validWeek(*raw.Week) {
			res.Malformed++
			continue
		}

		rec := Record{
			Category:   raw.Category,
			PlayerID:   id,
			Name:       strings.TrimSpace(raw.Name),
			Position:   strings.ToUpper(strings.TrimSpace(raw.Position)),
			Team:       strings.ToUpper(strings.TrimSpace(raw.Team)),
			Season:     *raw.Season,
			SeasonType: NormalizeSeasonType(raw.SeasonType),
			Week:       *raw.Week,
			Stats:      raw.Stats,
		}
		if rec.Stats == nil {
			rec.Stats = map[string]float64{}
		}

		if len(positions) > 0 && !positions[rec.Position] {
			res.Filtered++
			continue
		}
		if len(seasonTypes) > 0 && !seasonTypes[rec.SeasonType] {
			res.Filtered++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

// Bounds on the identifying integers. Week 0 is the preseason.
const (
	MinSeason = 1920
	MaxSeason = 2100
	MaxWeek   = 30
)

func validSeason(n int) bool { return n >= MinSeason && n <= MaxSeason }

func validWeek(n int) bool { return n >= 0 && n <= MaxWeek }

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[strings.ToUpper(strings.TrimSpace(v))] = true
	}
	return set
}
