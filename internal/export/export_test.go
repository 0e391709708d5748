package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameron-eth/firstballotETL/internal/provider"
)

func sample() []provider.Record {
	return []provider.Record{
		{
			Category: provider.Passing, PlayerID: "00-0033873", Name: "Patrick Mahomes", Position: "QB", Team: "KC",
			Season: 2024, SeasonType: "REG", Week: 1,
			Stats:         map[string]float64{"attempts": 30, "pass_yards": 250, "pass_touchdowns": 2, "interceptions": 1},
			FantasyPoints: 35, FantasyPPG: 35,
			Efficiency: map[string]float64{"fantasy_points_per_attempt": 1.17},
		},
		{
			Category: provider.Passing, PlayerID: "00-0036442", Season: 2024, SeasonType: "REG", Week: 1,
			Stats: map[string]float64{"pass_yards": 180.5},
			FantasyPoints: 18.05, FantasyPPG: 18.05,
		},
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"csv, parquet", "CSV", "json"})
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatParquet, FormatJSON}, got)

	_, err = ParseFormats([]string{"xml"})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	spec := provider.Passing.Spec()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, spec, sample()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, spec.RecordColumns(), rows[0])

	col := func(name string) int {
		for i, c := range rows[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("column %s missing", name)
		return -1
	}
	assert.Equal(t, "Patrick Mahomes", rows[1][col("player_display_name")])
	assert.Equal(t, "250", rows[1][col("pass_yards")])
	assert.Equal(t, "35", rows[1][col("fantasy_points")])
	assert.Equal(t, "", rows[2][col("player_display_name")])
	assert.Equal(t, "", rows[2][col("attempts")], "absent stat is an empty cell")
	assert.Equal(t, "180.5", rows[2][col("pass_yards")])
}

func TestWriteJSONOmitsAbsentValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, provider.Passing.Spec(), sample()))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "00-0033873", rows[0]["player_gsis_id"])
	assert.Equal(t, 1.17, rows[0]["fantasy_points_per_attempt"])
	assert.NotContains(t, rows[1], "attempts")
	assert.NotContains(t, rows[1], "player_display_name")
	assert.Equal(t, 18.05, rows[1]["fantasy_points"])
}

func TestWriteParquet(t *testing.T) {
	spec := provider.Passing.Spec()
	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, spec, sample()))

	f, err := parquet.OpenFile(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.EqualValues(t, 2, f.NumRows())
	assert.Len(t, f.Schema().Columns(), len(spec.RecordColumns()))
}

type fakeUploader struct {
	keys []string
}

func (u *fakeUploader) Upload(_ context.Context, key, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	u.keys = append(u.keys, key)
	return nil
}

func TestBackupExportWritesEveryFormat(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	b := NewBackup(dir, "primary", []Format{FormatCSV, FormatJSON, FormatParquet}, nil)
	b.Uploader = up
	b.Prefix = "backups/ngs/"
	b.now = func() time.Time { return time.Date(2024, 9, 10, 9, 0, 0, 0, time.UTC) }

	require.NoError(t, b.Export(context.Background(), provider.Passing, 2024, sample()))

	for _, ext := range []string{"csv", "json", "parquet"} {
		assert.FileExists(t, filepath.Join(dir, "ngs_passing_2024_primary."+ext))
	}
	assert.Equal(t, []string{
		"backups/ngs/20240910T090000Z/ngs_passing_2024_primary.csv",
		"backups/ngs/20240910T090000Z/ngs_passing_2024_primary.json",
		"backups/ngs/20240910T090000Z/ngs_passing_2024_primary.parquet",
	}, up.keys)
}

func TestBackupDefaultsToCSV(t *testing.T) {
	b := NewBackup(t.TempDir(), "", nil, nil)
	assert.Equal(t, []Format{FormatCSV}, b.Formats)
	assert.Equal(t, "ngs_rushing_2023", b.FileName(provider.Rushing, 2023))
}
