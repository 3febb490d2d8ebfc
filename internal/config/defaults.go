package config

import "strings"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9980"
	defaultAppLogPath  = "/data/logs/tradestat.log"

	defaultFillsRoot   = "/data/fills"
	defaultResultsPath = "/data/db/stat_runs.db"
	defaultReportsRoot = "/data/reports"

	defaultReplaySource  = "local"
	defaultImportDir     = "/data/import"
	defaultMaxConcurrent = 2

	defaultBinanceREST    = "https://fapi.binance.com"
	defaultBinanceLotSize = "1"
	defaultBinanceRate    = 120
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Data.applyDefaults(keys)
	c.Replay.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data.fills_root", &d.FillsRoot, defaultFillsRoot),
		stringFieldDefault("data.results_path", &d.ResultsPath, defaultResultsPath),
		stringFieldDefault("data.reports_root", &d.ReportsRoot, defaultReportsRoot),
	)
}

func (r *ReplayConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("replay.default_source", &r.DefaultSource, defaultReplaySource),
		stringFieldDefault("replay.import_dir", &r.ImportDir, defaultImportDir),
		fieldDefault{
			key:   "replay.max_concurrent",
			need:  func() bool { return r.MaxConcurrent <= 0 },
			apply: func() { r.MaxConcurrent = defaultMaxConcurrent },
		},
	)
	r.Binance.applyDefaults(keys)
}

func (b *BinanceConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("replay.binance.rest_base_url", &b.RESTBaseURL, defaultBinanceREST),
		stringFieldDefault("replay.binance.lot_size", &b.LotSize, defaultBinanceLotSize),
		fieldDefault{
			key:   "replay.binance.rate_limit_per_min",
			need:  func() bool { return b.RateLimitPerMin <= 0 },
			apply: func() { b.RateLimitPerMin = defaultBinanceRate },
		},
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
