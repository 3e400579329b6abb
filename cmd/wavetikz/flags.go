package main

import "flag"

// bindCommon registers the flags every pipeline command shares. Defaults come
// from cfg, so parsing overrides settings.json and the environment.
func bindCommon(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "cache database path")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "log as JSON")
	fs.IntVar(&cfg.PoolSize, "pool-size", cfg.PoolSize, "decode worker pool size")
}

// bindGeometry registers the grid flags.
func bindGeometry(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.GapGlyph, "gap-glyph", cfg.GapGlyph, "gap glyph style: slash or line")
	fs.Float64Var(&cfg.CycleWidth, "cycle-width", cfg.CycleWidth, "width of one cycle")
	fs.Float64Var(&cfg.RowHeight, "row-height", cfg.RowHeight, "height of one row")
	fs.Float64Var(&cfg.RowGap, "row-gap", cfg.RowGap, "vertical gap between rows")
	fs.BoolVar(&cfg.ShowNames, "names", cfg.ShowNames, "draw signal names left of each row")
	fs.StringVar(&cfg.Unit, "unit", cfg.Unit, "TeX length of one geometry unit")
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
