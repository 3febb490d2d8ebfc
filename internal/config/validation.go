package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Replay.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	return nil
}

func (r *ReplayConfig) validate() error {
	switch r.DefaultSource {
	case "local", "jsonl":
	case "binance":
		if !r.Binance.Enabled {
			return fmt.Errorf("replay.default_source 为 binance 时需要启用 replay.binance")
		}
	default:
		return fmt.Errorf("replay.default_source 不支持: %q", r.DefaultSource)
	}
	return r.Binance.validate()
}

func (b *BinanceConfig) validate() error {
	if !b.Enabled {
		return nil
	}
	if strings.TrimSpace(b.APIKey) == "" || strings.TrimSpace(b.APISecret) == "" {
		return fmt.Errorf("replay.binance 启用时 api_key/api_secret 必填")
	}
	lot, err := decimal.NewFromString(b.LotSize)
	if err != nil || lot.Sign() <= 0 {
		return fmt.Errorf("replay.binance.lot_size 必须是正数: %q", b.LotSize)
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if tg.Enabled && (strings.TrimSpace(tg.BotToken) == "" || strings.TrimSpace(tg.ChatID) == "") {
		return fmt.Errorf("notify.telegram 启用时 bot_token/chat_id 必填")
	}
	return nil
}
