package app

import (
	"context"
	"fmt"

	"tradestat/internal/config"
	"tradestat/internal/logger"
	"tradestat/internal/replay"
	"tradestat/internal/run"
	"tradestat/internal/server"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与导入监听。
type App struct {
	cfg     *config.Config
	fills   *replay.Store
	results *run.ResultStore
	svc     *run.Service
	http    *server.Server
	watcher *replay.Watcher
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run 启动全部服务，阻塞直到 ctx 取消或任一服务出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if a.watcher != nil {
		group.Go(func() error {
			err := a.watcher.Run(ctx)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	err := group.Wait()
	a.svc.Wait()
	a.close()
	return err
}

func (a *App) close() {
	if a.fills != nil {
		if err := a.fills.Close(); err != nil {
			logger.Errorf("关闭成交库失败: %v", err)
		}
	}
	if a.results != nil {
		if err := a.results.Close(); err != nil {
			logger.Errorf("关闭结果库失败: %v", err)
		}
	}
}

// Service 暴露回放服务实例，供测试使用。
func (a *App) Service() *run.Service {
	if a == nil {
		return nil
	}
	return a.svc
}
