package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestNormalizeDropsMalformed(t *testing.T) {
	raws := []RawRecord{
		{Category: Passing, PlayerID: "00-0033873", Season: intPtr(2024), Week: intPtr(1), SeasonType: "REG", Position: "qb"},
		{Category: Passing, PlayerID: "", Season: intPtr(2024), Week: intPtr(1)},
		{Category: Passing, PlayerID: "00-0036355", Season: nil, Week: intPtr(2)},
		{Category: Passing, PlayerID: "00-0036355", Season: intPtr(2024), Week: nil},
		{Category: Passing, PlayerID: "00-0036355", Season: intPtr(2024), Week: intPtr(0), SeasonType: ""},
	}

	res := Normalize(raws, Filter{})

	assert.Equal(t, 3, res.Malformed)
	assert.Equal(t, 0, res.Filtered)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "QB", res.Records[0].Position)
	assert.Equal(t, SeasonRegular, res.Records[1].SeasonType, "empty season type defaults to regular")
	assert.Equal(t, 0, res.Records[1].Week, "week 0 is a valid preseason week")
	assert.NotNil(t, res.Records[1].Stats)
}

func TestNormalizeFilters(t *testing.T) {
	raws := []RawRecord{
		{Category: Receiving, PlayerID: "a", Season: intPtr(2024), Week: intPtr(3), Position: "WR", SeasonType: "REG"},
		{Category: Receiving, PlayerID: "b", Season: intPtr(2024), Week: intPtr(3), Position: "TE", SeasonType: "REG"},
		{Category: Receiving, PlayerID: "c", Season: intPtr(2024), Week: intPtr(19), Position: "WR", SeasonType: "POST"},
	}

	res := Normalize(raws, Filter{Positions: []string{"wr"}, SeasonTypes: []string{"REG"}})

	require.Len(t, res.Records, 1)
	assert.Equal(t, "a", res.Records[0].PlayerID)
	assert.Equal(t, 2, res.Filtered)
	assert.Zero(t, res.Malformed)
}

func TestParseStat(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"250", 250, true},
		{" 7.25 ", 7.25, true},
		{"-3", -3, true},
		{"", 0, false},
		{"NA", 0, false},
		{"NaN", 0, false},
		{"nan", 0, false},
		{"None", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseStat(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseInt(t *testing.T) {
	n, ok := ParseInt("2024.0")
	assert.True(t, ok)
	assert.Equal(t, 2024, n)

	_, ok = ParseInt("3.5")
	assert.False(t, ok)

	_, ok = ParseInt("NA")
	assert.False(t, ok)

	for _, cell := range []string{"1e30", "99999999999", "-3000000000"} {
		_, ok = ParseInt(cell)
		assert.False(t, ok, cell)
	}

	n, ok = ParseInt("2147483647")
	assert.True(t, ok)
	assert.Equal(t, 2147483647, n)
}

func TestNormalizeDropsOutOfRangeSeasonAndWeek(t *testing.T) {
	raws := []RawRecord{
		{Category: Rushing, PlayerID: "a", Season: intPtr(2024), Week: intPtr(3)},
		{Category: Rushing, PlayerID: "b", Season: intPtr(99999), Week: intPtr(3)},
		{Category: Rushing, PlayerID: "c", Season: intPtr(2024), Week: intPtr(-1)},
		{Category: Rushing, PlayerID: "d", Season: intPtr(2024), Week: intPtr(MaxWeek + 1)},
	}

	res := Normalize(raws, Filter{})
	require.Len(t, res.Records, 1)
	assert.Equal(t, "a", res.Records[0].PlayerID)
	assert.Equal(t, 3, res.Malformed)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Rushing ")
	require.NoError(t, err)
	assert.Equal(t, Rushing, c)

	_, err = ParseCategory("kicking")
	assert.Error(t, err)
}

func TestStatPtr(t *testing.T) {
	r := Record{Stats: map[string]float64{"pass_yards": 0}}
	require.NotNil(t, r.StatPtr("pass_yards"), "present zero is not NULL")
	assert.Nil(t, r.StatPtr("interceptions"))
	assert.Zero(t, r.Stat("interceptions"))
}

func TestRecordValue(t *testing.T) {
	r := Record{
		PlayerID: "p1", Season: 2024, SeasonType: SeasonRegular, Week: 3, Name: "Name",
		Stats:         map[string]float64{"targets": 8},
		FantasyPoints: 12.5,
		Efficiency:    map[string]float64{"fantasy_points_per_target": 1.56},
	}
	assert.Equal(t, "p1", r.Value("player_gsis_id"))
	assert.Equal(t, 3, r.Value("week"))
	assert.Equal(t, "Name", r.Value("player_display_name"))
	assert.Nil(t, r.Value("team_abbr"), "empty identity is absent")
	assert.Equal(t, 8.0, r.Value("targets"))
	assert.Nil(t, r.Value("receptions"))
	assert.Equal(t, 12.5, r.Value("fantasy_points"))
	assert.Equal(t, 1.56, r.Value("fantasy_points_per_target"))
}

func TestRecordColumnsOrder(t *testing.T) {
	cols := Receiving.Spec().RecordColumns()
	assert.Equal(t, KeyColumns, cols[:len(KeyColumns)])
	assert.Equal(t, []string{"fantasy_points_per_reception", "fantasy_points_per_target"}, cols[len(cols)-2:])
	assert.Len(t, cols, len(KeyColumns)+len(IdentityColumns)+4+8+len(FantasyColumns)+2)
}
