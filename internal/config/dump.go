package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Dump 输出合并默认值后的有效配置，敏感字段打码，用于启动日志排查。
func (c *Config) Dump() (string, error) {
	redacted := *c
	redacted.Replay.Binance.APIKey = redactSecret(redacted.Replay.Binance.APIKey)
	redacted.Replay.Binance.APISecret = redactSecret(redacted.Replay.Binance.APISecret)
	redacted.Notify.Telegram.BotToken = redactSecret(redacted.Notify.Telegram.BotToken)

	raw, err := yaml.Marshal(redacted)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func redactSecret(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return v[:2] + "****" + v[len(v)-2:]
}
