package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Pipeline holds the ingestion settings that live in pipeline.toml. Every key
// can be overridden from the environment as FBETL_<SECTION>_<KEY>, e.g.
// FBETL_PIPELINE_BATCH_SIZE=500.
type Pipeline struct {
	Data     DataSettings     `mapstructure:"data"`
	Pipeline RunSettings      `mapstructure:"pipeline"`
	Filters  FilterSettings   `mapstructure:"filters"`
	NGS      NGSSettings      `mapstructure:"ngs"`
	Schedule ScheduleSettings `mapstructure:"schedule"`
}

type DataSettings struct {
	StartYear      int    `mapstructure:"start_year"`
	EndYear        int    `mapstructure:"end_year"`
	CurrentSeason  int    `mapstructure:"current_season"`
	OutputDir      string `mapstructure:"output_dir"`
	SaveToCSV      bool   `mapstructure:"save_to_csv"`
	SaveToJSON     bool   `mapstructure:"save_to_json"`
	SaveToParquet  bool   `mapstructure:"save_to_parquet"`
	SaveToDatabase bool   `mapstructure:"save_to_database"`
}

type RunSettings struct {
	BatchSize    int  `mapstructure:"batch_size"`
	WriteDelayMS int  `mapstructure:"write_delay_ms"`
	Verbose      bool `mapstructure:"verbose"`
}

type FilterSettings struct {
	Positions   []string `mapstructure:"positions"`
	SeasonTypes []string `mapstructure:"season_types"`
}

type NGSSettings struct {
	StatTypes []string `mapstructure:"stat_types"`
}

type ScheduleSettings struct {
	Cron string `mapstructure:"cron"`
}

var pipelineDefaults = map[string]interface{}{
	"data.start_year":         2024,
	"data.end_year":           2025,
	"data.current_season":     2025,
	"data.output_dir":         "output",
	"data.save_to_csv":        true,
	"data.save_to_json":       false,
	"data.save_to_parquet":    false,
	"data.save_to_database":   true,
	"pipeline.batch_size":     1000,
	"pipeline.write_delay_ms": 250,
	"pipeline.verbose":        false,
	"filters.positions":       []string{},
	"filters.season_types":    []string{"REG", "POST"},
	"ngs.stat_types":          []string{"passing", "rushing", "receiving"},
	"schedule.cron":           "0 9 * * TUE",
}

// LoadPipeline reads pipeline settings. An empty path searches for
// pipeline.toml in the working directory and falls back to defaults when it
// is absent; an explicit path must exist.
func LoadPipeline(path string) (*Pipeline, error) {
	v := viper.New()
	for k, val := range pipelineDefaults {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix("FBETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read pipeline config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pipeline")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read pipeline config: %w", err)
			}
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decode pipeline config: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Pipeline) normalize() {
	p.Filters.Positions = upperAll(p.Filters.Positions)
	p.Filters.SeasonTypes = upperAll(p.Filters.SeasonTypes)
	for i, s := range p.NGS.StatTypes {
		p.NGS.StatTypes[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// Validate rejects settings the runner cannot honour.
func (p *Pipeline) Validate() error {
	if p.Data.StartYear <= 0 || p.Data.EndYear < p.Data.StartYear {
		return fmt.Errorf("invalid year range %d-%d", p.Data.StartYear, p.Data.EndYear)
	}
	if p.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", p.Pipeline.BatchSize)
	}
	if p.Pipeline.WriteDelayMS < 0 {
		return fmt.Errorf("write_delay_ms must not be negative")
	}
	return nil
}

// YearRange returns every season from start_year to end_year inclusive.
func (p *Pipeline) YearRange() []int {
	years := make([]int, 0, p.Data.EndYear-p.Data.StartYear+1)
	for y := p.Data.StartYear; y <= p.Data.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// WriteDelay is the minimum spacing between successive persistence batches.
func (p *Pipeline) WriteDelay() time.Duration {
	return time.Duration(p.Pipeline.WriteDelayMS) * time.Millisecond
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
