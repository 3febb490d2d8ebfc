package app

import (
	"fmt"

	"tradestat/internal/config"
	"tradestat/internal/logger"
	"tradestat/internal/notifier"
	"tradestat/internal/replay"
	"tradestat/internal/report"
	"tradestat/internal/run"
	"tradestat/internal/server"
)

// build 按依赖顺序组装应用：存储 → 数据源 → 回放服务 → 外围设施。
func build(cfg *config.Config) (*App, error) {
	fills, err := replay.NewStore(cfg.Data.FillsRoot)
	if err != nil {
		return nil, fmt.Errorf("初始化成交库失败: %w", err)
	}
	results, err := run.NewResultStore(cfg.Data.ResultsPath)
	if err != nil {
		_ = fills.Close()
		return nil, fmt.Errorf("初始化结果库失败: %w", err)
	}

	sources, err := buildSources(cfg)
	if err != nil {
		_ = fills.Close()
		_ = results.Close()
		return nil, err
	}

	svc := run.NewService(run.ServiceOptions{
		DefaultSource: cfg.Replay.DefaultSource,
		MaxConcurrent: cfg.Replay.MaxConcurrent,
	}, fills, results, sources...)

	renderer, err := report.NewRenderer(cfg.Data.ReportsRoot, cfg.Report.Snapshot)
	if err != nil {
		_ = fills.Close()
		_ = results.Close()
		return nil, fmt.Errorf("初始化报告渲染失败: %w", err)
	}
	svc.SetReporter(renderer)

	if cfg.Notify.Telegram.Enabled {
		tg := notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
		svc.SetNotifier(notifier.NewRunNotifier(tg))
		logger.Infof("Telegram 通知已启用 chat_id=%s", cfg.Notify.Telegram.ChatID)
	}

	httpSrv, err := server.NewServer(server.Config{Addr: cfg.App.HTTPAddr, Svc: svc})
	if err != nil {
		_ = fills.Close()
		_ = results.Close()
		return nil, err
	}

	var watcher *replay.Watcher
	if cfg.Replay.Watch {
		watcher, err = replay.NewWatcher(cfg.Replay.ImportDir, fills)
		if err != nil {
			_ = fills.Close()
			_ = results.Close()
			return nil, fmt.Errorf("初始化导入监听失败: %w", err)
		}
	}

	return &App{
		cfg:     cfg,
		fills:   fills,
		results: results,
		svc:     svc,
		http:    httpSrv,
		watcher: watcher,
	}, nil
}

func buildSources(cfg *config.Config) ([]replay.Source, error) {
	var sources []replay.Source

	jsonl, err := replay.NewJSONLSource(cfg.Replay.ImportDir)
	if err != nil {
		return nil, fmt.Errorf("初始化 jsonl 数据源失败: %w", err)
	}
	sources = append(sources, jsonl)

	if cfg.Replay.Binance.Enabled {
		binance, err := replay.NewBinanceSource(replay.BinanceConfig{
			APIKey:          cfg.Replay.Binance.APIKey,
			APISecret:       cfg.Replay.Binance.APISecret,
			RESTBaseURL:     cfg.Replay.Binance.RESTBaseURL,
			LotSize:         cfg.Replay.Binance.LotSize,
			RateLimitPerMin: cfg.Replay.Binance.RateLimitPerMin,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化 binance 数据源失败: %w", err)
		}
		sources = append(sources, binance)
		logger.Infof("Binance 成交拉取已启用 base_url=%s", cfg.Replay.Binance.RESTBaseURL)
	}
	return sources, nil
}
