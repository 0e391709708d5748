// Package provider defines canonical data types that all upstream sources
// normalize into. These structs are the contract between sources, the
// fantasy engine, and the stores. Sources output these, stores write them.
//
// Column lists live here so the schema, the upsert statements, the combined
// view, and the backup exports are all generated from one definition.
package provider

import (
	"fmt"
	"strings"

	"github.com/cameron-eth/firstballotETL/internal/config"
)

// Category is one positional stat category.
type Category string

const (
	Passing   Category = "passing"
	Rushing   Category = "rushing"
	Receiving Category = "receiving"
)

// Categories returns every category in canonical (join) order.
func Categories() []Category {
	return []Category{Passing, Rushing, Receiving}
}

// ParseCategory resolves a user-supplied category name.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Passing:
		return Passing, nil
	case Rushing:
		return Rushing, nil
	case Receiving:
		return Receiving, nil
	}
	return "", fmt.Errorf("unknown category %q (want passing, rushing, or receiving)", s)
}

// CategorySpec describes the columns of one category table.
type CategorySpec struct {
	Category   Category
	Table      string
	Basic      []string // counters; the scoring inputs are among these
	Advanced   []string // NGS metrics, stored but never scored
	Efficiency []string // fantasy points per unit, derived
}

var specs = map[Category]CategorySpec{
	Passing: {
		Category: Passing,
		Table:    config.PassingTable,
		Basic:    []string{"attempts", "completions", "pass_yards", "pass_touchdowns", "interceptions"},
		Advanced: []string{
			"avg_time_to_throw", "avg_completed_air_yards", "avg_intended_air_yards",
			"avg_air_yards_differential", "aggressiveness", "max_completed_air_distance",
			"avg_air_yards_to_sticks", "passer_rating", "completion_percentage",
			"expected_completion_percentage", "completion_percentage_above_expectation",
			"avg_air_distance", "max_air_distance",
		},
		Efficiency: []string{"fantasy_points_per_attempt"},
	},
	Rushing: {
		Category: Rushing,
		Table:    config.RushingTable,
		Basic:    []string{"rush_attempts", "rush_yards", "rush_touchdowns"},
		Advanced: []string{
			"efficiency", "percent_attempts_gte_eight_defenders", "avg_time_to_los",
			"expected_rush_yards", "rush_yards_over_expected", "avg_rush_yards",
			"rush_yards_over_expected_per_att", "rush_pct_over_expected",
		},
		Efficiency: []string{"fantasy_points_per_rush"},
	},
	Receiving: {
		Category: Receiving,
		Table:    config.ReceivingTable,
		Basic:    []string{"targets", "receptions", "yards", "rec_touchdowns"},
		Advanced: []string{
			"avg_cushion", "avg_separation", "avg_intended_air_yards",
			"percent_share_of_intended_air_yards", "catch_percentage",
			"avg_yac", "avg_expected_yac", "avg_yac_above_expectation",
		},
		Efficiency: []string{"fantasy_points_per_reception", "fantasy_points_per_target"},
	},
}

// Spec returns the column definition for c. It panics on an unknown
// category.
func (c Category) Spec() CategorySpec {
	s, ok := specs[c]
	if !ok {
		panic(fmt.Sprintf("provider: no spec for category %q", string(c)))
	}
	return s
}

// StatColumns returns basic then advanced columns.
func (s CategorySpec) StatColumns() []string {
	cols := make([]string, 0, len(s.Basic)+len(s.Advanced))
	cols = append(cols, s.Basic...)
	return append(cols, s.Advanced...)
}

// RecordColumns returns every data column of the category table in storage
// order: key, identity, stats, fantasy, efficiency.
func (s CategorySpec) RecordColumns() []string {
	cols := make([]string, 0, len(KeyColumns)+len(IdentityColumns)+len(s.Basic)+len(s.Advanced)+len(FantasyColumns)+len(s.Efficiency))
	cols = append(cols, KeyColumns...)
	cols = append(cols, IdentityColumns...)
	cols = append(cols, s.StatColumns()...)
	cols = append(cols, FantasyColumns...)
	return append(cols, s.Efficiency...)
}

// Identity columns shared by every category table, in storage order. The
// natural key is the first four.
var (
	KeyColumns      = []string{"player_gsis_id", "season", "season_type", "week"}
	IdentityColumns = []string{"player_display_name", "player_position", "team_abbr"}
	FantasyColumns  = []string{"fantasy_points", "fantasy_ppg"}
)

// Season types as stored. Upstream spellings are folded by NormalizeSeasonType.
const (
	SeasonRegular = "REG"
	SeasonPost    = "POST"
)

// NormalizeSeasonType maps upstream spellings onto REG / POST. Empty input is
// treated as the regular season.
func NormalizeSeasonType(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "REG", "REGULAR", "REGULAR_SEASON":
		return SeasonRegular
	case "POST", "POSTSEASON", "PLAYOFFS":
		return SeasonPost
	default:
		return strings.ToUpper(strings.TrimSpace(s))
	}
}

// --------------------------------------------------------------------------
// Records
// --------------------------------------------------------------------------

// RawRecord is one upstream row before validation. Nil Season or Week and an
// empty PlayerID mark a row the normalizer will drop.
type RawRecord struct {
	Category   Category
	PlayerID   string
	Name       string
	Position   string
	Team       string
	SeasonType string
	Season     *int
	Week       *int
	Stats      map[string]float64 // only cells present upstream
}

// Key is the natural key of a category row.
type Key struct {
	PlayerID   string
	Season     int
	SeasonType string
	Week       int
}

// GroupKey identifies a player season aggregate.
type GroupKey struct {
	PlayerID   string
	Season     int
	SeasonType string
}

// Record is one validated, possibly scored performance record.
type Record struct {
	Category   Category           `json:"category"`
	PlayerID   string             `json:"player_gsis_id"`
	Name       string             `json:"player_display_name"`
	Position   string             `json:"player_position"`
	Team       string             `json:"team_abbr"`
	Season     int                `json:"season"`
	SeasonType string             `json:"season_type"`
	Week       int                `json:"week"`
	Stats      map[string]float64 `json:"stats"` // absent key = NULL column

	FantasyPoints float64            `json:"fantasy_points"`
	FantasyPPG    float64            `json:"fantasy_ppg"`
	Efficiency    map[string]float64 `json:"efficiency,omitempty"`
}

// Key returns the record's natural key.
func (r Record) Key() Key {
	return Key{PlayerID: r.PlayerID, Season: r.Season, SeasonType: r.SeasonType, Week: r.Week}
}

// Group returns the player season the record belongs to.
func (r Record) Group() GroupKey {
	return GroupKey{PlayerID: r.PlayerID, Season: r.Season, SeasonType: r.SeasonType}
}

// Stat returns a stat value, or zero when the upstream cell was absent.
func (r Record) Stat(name string) float64 {
	return r.Stats[name]
}

// StatPtr returns a stat value, or nil when absent.
func (r Record) StatPtr(name string) *float64 {
	v, ok := r.Stats[name]
	if !ok {
		return nil
	}
	return &v
}

// Value returns the value of one RecordColumns column: string, int, or
// float64, or nil for an absent stat or empty identity field.
func (r Record) Value(col string) any {
	switch col {
	case "player_gsis_id":
		return r.PlayerID
	case "season":
		return r.Season
	case "season_type":
		return r.SeasonType
	case "week":
		return r.Week
	case "player_display_name":
		return nilEmpty(r.Name)
	case "player_position":
		return nilEmpty(r.Position)
	case "team_abbr":
		return nilEmpty(r.Team)
	case "fantasy_points":
		return r.FantasyPoints
	case "fantasy_ppg":
		return r.FantasyPPG
	}
	if v, ok := r.Stats[col]; ok {
		return v
	}
	if v, ok := r.Efficiency[col]; ok {
		return v
	}
	return nil
}

func nilEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
