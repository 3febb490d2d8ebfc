package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradestat/internal/logger"
	"tradestat/internal/market"
	symbolpkg "tradestat/internal/pkg/symbol"
	"tradestat/internal/replay"
	"tradestat/internal/stats"
)

// SourceLocal 表示从本地成交库读取，而非外部 Source。
const SourceLocal = "local"

// Reporter 在回放完成后渲染结果报告，返回产物路径。
type Reporter interface {
	Render(ctx context.Context, r Run) (string, error)
}

// Notifier 在任务结束时推送结果摘要。
type Notifier interface {
	NotifyRun(ctx context.Context, r Run) error
}

// ServiceOptions 控制回放服务的行为。
type ServiceOptions struct {
	DefaultSource string
	MaxConcurrent int
	RunTimeout    time.Duration
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.DefaultSource == "" {
		o.DefaultSource = SourceLocal
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 2
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = 5 * time.Minute
	}
	return o
}

// Service 串起一次完整回放：取成交、喂给统计、落库、出报告、发通知。
type Service struct {
	opts    ServiceOptions
	sources map[string]replay.Source
	fills   *replay.Store
	results *ResultStore

	reporter Reporter
	notifier Notifier

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewService(opts ServiceOptions, fills *replay.Store, results *ResultStore, sources ...replay.Source) *Service {
	final := opts.withDefaults()
	m := make(map[string]replay.Source, len(sources))
	for _, src := range sources {
		if src == nil {
			continue
		}
		m[src.Name()] = src
	}
	return &Service{
		opts:    final,
		sources: m,
		fills:   fills,
		results: results,
		sem:     make(chan struct{}, final.MaxConcurrent),
	}
}

// SetReporter 注入报告渲染器，可选。
func (s *Service) SetReporter(r Reporter) { s.reporter = r }

// SetNotifier 注入结果通知器，可选。
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// Results 暴露任务存储，供查询接口复用。
func (s *Service) Results() *ResultStore { return s.results }

// Fills 暴露本地成交库。
func (s *Service) Fills() *replay.Store { return s.fills }

// StartRun 登记任务并异步执行，立即返回任务快照。
func (s *Service) StartRun(ctx context.Context, req Request) (Run, error) {
	req.Symbol = symbolpkg.Normalize(req.Symbol)
	if req.Symbol == "" {
		return Run{}, fmt.Errorf("symbol 不能为空")
	}
	r := NewRun(req, s.opts.DefaultSource)
	if r.Config.Source != SourceLocal {
		if _, ok := s.sources[r.Config.Source]; !ok {
			return Run{}, fmt.Errorf("未知的数据来源: %q", r.Config.Source)
		}
	}
	if err := s.results.Insert(r); err != nil {
		return Run{}, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()

		runCtx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)
		defer cancel()
		s.execute(runCtx, r)
	}()
	return r, nil
}

// Wait 等待所有在途任务结束，仅用于退出阶段。
func (s *Service) Wait() { s.wg.Wait() }

func (s *Service) execute(ctx context.Context, r Run) {
	if err := s.results.UpdateStatus(r.ID, StatusRunning, ""); err != nil {
		logger.Errorf("run %s 状态更新失败: %v", r.ID, err)
	}

	st, err := s.replayRun(ctx, r)
	if err != nil {
		logger.Errorf("run %s 执行失败: %v", r.ID, err)
		if uerr := s.results.UpdateStatus(r.ID, StatusFailed, err.Error()); uerr != nil {
			logger.Errorf("run %s 失败状态落库失败: %v", r.ID, uerr)
		}
		return
	}

	r.Stats = &st
	r.Status = StatusDone
	reportPath := ""
	if s.reporter != nil {
		reportPath, err = s.reporter.Render(ctx, r)
		if err != nil {
			// 统计结果仍然有效，报告失败只记日志。
			logger.Errorf("run %s 报告渲染失败: %v", r.ID, err)
			reportPath = ""
		}
	}
	r.ReportPath = reportPath
	if err := s.results.UpdateSummary(r.ID, st, reportPath); err != nil {
		logger.Errorf("run %s 结果落库失败: %v", r.ID, err)
		return
	}
	logger.Infof("run %s 完成 symbol=%s trades=%d win_rate=%.4f", r.ID, r.Config.Symbol, st.Trades, st.WinRate)

	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, r); err != nil {
			logger.Warnf("run %s 通知发送失败: %v", r.ID, err)
		}
	}
}

func (s *Service) replayRun(ctx context.Context, r Run) (Stats, error) {
	events, err := s.loadFills(ctx, r.Config)
	if err != nil {
		return Stats{}, err
	}

	tradeStats := stats.New()
	replayer := replay.NewReplayer()
	replayer.Subscribe(tradeStats)
	processed, err := replayer.Replay(ctx, events)
	if err != nil {
		return Stats{}, err
	}
	return snapshot(tradeStats, processed), nil
}

func (s *Service) loadFills(ctx context.Context, cfg Config) ([]market.OrderEvent, error) {
	if cfg.Source == SourceLocal {
		return s.fills.ListFills(ctx, cfg.Symbol, cfg.Start, cfg.End, cfg.Limit)
	}
	src := s.sources[cfg.Source]
	return src.Fetch(ctx, replay.FetchRequest{
		Symbol: cfg.Symbol,
		Start:  cfg.Start,
		End:    cfg.End,
		Limit:  cfg.Limit,
	})
}

func snapshot(ts *stats.TradeStats, fills int) Stats {
	st := Stats{
		Fills:           fills,
		Trades:          ts.Count(),
		Profitable:      ts.ProfitableCount(),
		Unprofitable:    ts.UnprofitableCount(),
		Even:            ts.EvenCount(),
		All:             ts.All(),
		Profits:         ts.Profits(),
		Losses:          ts.Losses(),
		AllReturns:      ts.AllReturns(),
		PositiveReturns: ts.PositiveReturns(),
		NegativeReturns: ts.NegativeReturns(),
	}
	for _, p := range st.All {
		st.TotalProfit += p
	}
	if st.Trades > 0 {
		st.WinRate = float64(st.Profitable) / float64(st.Trades)
	}
	return st
}
