package config

import "strings"

// Config 是 tradestat 的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	Data   DataConfig   `toml:"data"`
	Replay ReplayConfig `toml:"replay"`
	Report ReportConfig `toml:"report"`
	Notify NotifyConfig `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 描述各类持久化数据的落盘位置。
type DataConfig struct {
	FillsRoot   string `toml:"fills_root"`
	ResultsPath string `toml:"results_path"`
	ReportsRoot string `toml:"reports_root"`
}

type ReplayConfig struct {
	DefaultSource string        `toml:"default_source"`
	ImportDir     string        `toml:"import_dir"`
	Watch         bool          `toml:"watch"`
	MaxConcurrent int           `toml:"max_concurrent"`
	Binance       BinanceConfig `toml:"binance"`
}

type BinanceConfig struct {
	Enabled         bool   `toml:"enabled"`
	APIKey          string `toml:"api_key"`
	APISecret       string `toml:"api_secret"`
	RESTBaseURL     string `toml:"rest_base_url"`
	LotSize         string `toml:"lot_size"`
	RateLimitPerMin int    `toml:"rate_limit_per_min"`
}

type ReportConfig struct {
	Snapshot bool `toml:"snapshot"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
