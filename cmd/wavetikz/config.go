package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rendis/wavetikz/pkg/schema"
)

// Config holds all wavetikz configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	DBPath        string  `json:"db_path"`
	LogLevel      string  `json:"log_level"`
	LogJSON       bool    `json:"log_json"`
	PoolSize      int     `json:"pool_size"`
	Cache         bool    `json:"cache"`
	Format        string  `json:"format"`
	Unit          string  `json:"unit"`
	GapGlyph      string  `json:"gap_glyph"`
	CycleWidth    float64 `json:"cycle_width"`
	RowHeight     float64 `json:"row_height"`
	RowGap        float64 `json:"row_gap"`
	ShowNames     bool    `json:"show_names"`
	WatchSchedule string  `json:"watch_schedule"`
}

func defaultConfig() Config {
	geom := schema.DefaultGeometry()
	return Config{
		DBPath:        filepath.Join(wavetikzDir(), "wavetikz.db"),
		LogLevel:      "warn",
		PoolSize:      8,
		Cache:         true,
		Format:        "tikz",
		Unit:          "1em",
		GapGlyph:      string(geom.GapGlyph),
		CycleWidth:    geom.CycleWidth,
		RowHeight:     geom.RowHeight,
		RowGap:        geom.RowGap,
		ShowNames:     geom.ShowNames,
		WatchSchedule: "@every 2s",
	}
}

func wavetikzDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wavetikz"
	}
	return filepath.Join(home, ".wavetikz")
}

func settingsPath() string {
	return filepath.Join(wavetikzDir(), "settings.json")
}

func loadConfig() Config {
	return loadConfigFrom(settingsPath(), os.Getenv)
}

// loadConfigFrom layers settings.json and the environment over the defaults.
// Flags are applied afterwards by each subcommand.
func loadConfigFrom(path string, getenv func(string) string) Config {
	cfg := defaultConfig()

	// settings.json (ignore if missing).
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	if v := getenv("WAVETIKZ_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("WAVETIKZ_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("WAVETIKZ_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
	if v := getenv("WAVETIKZ_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}
	if v := getenv("WAVETIKZ_CACHE"); v != "" {
		cfg.Cache = parseBool(v)
	}
	if v := getenv("WAVETIKZ_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := getenv("WAVETIKZ_UNIT"); v != "" {
		cfg.Unit = v
	}
	if v := getenv("WAVETIKZ_GAP_GLYPH"); v != "" {
		cfg.GapGlyph = v
	}
	if v := getenv("WAVETIKZ_CYCLE_WIDTH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.CycleWidth = f
		}
	}
	if v := getenv("WAVETIKZ_ROW_HEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RowHeight = f
		}
	}
	if v := getenv("WAVETIKZ_ROW_GAP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RowGap = f
		}
	}
	if v := getenv("WAVETIKZ_SHOW_NAMES"); v != "" {
		cfg.ShowNames = parseBool(v)
	}
	if v := getenv("WAVETIKZ_WATCH_SCHEDULE"); v != "" {
		cfg.WatchSchedule = v
	}

	return cfg
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// Geometry builds the grid configuration. Transition and label spacing keep
// their defaults.
func (c Config) Geometry() schema.Geometry {
	geom := schema.DefaultGeometry()
	geom.CycleWidth = c.CycleWidth
	geom.RowHeight = c.RowHeight
	geom.RowGap = c.RowGap
	geom.GapGlyph = schema.GapGlyphStyle(c.GapGlyph)
	geom.ShowNames = c.ShowNames
	return geom
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged bool
	RestartNeeded   []string // fields that only take effect on restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.PoolSize != new.PoolSize {
		d.RestartNeeded = append(d.RestartNeeded, "pool_size")
	}
	if old.Cache != new.Cache {
		d.RestartNeeded = append(d.RestartNeeded, "cache")
	}
	if old.LogJSON != new.LogJSON {
		d.RestartNeeded = append(d.RestartNeeded, "log_json")
	}
	return d
}
