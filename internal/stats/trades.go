package stats

import (
	"fmt"

	"tradestat/internal/market"
	"tradestat/internal/position"
)

// 结算标记价。登记交易时持仓必为零，任意价格结果相同，按惯例取 0。
const settleMark = 0.0

// TradeStats 把按发生顺序回放的成交事件还原成一笔笔完整交易
// （持仓从非零回到恰好为零即为一笔），并累计盈亏与收益率序列。
// 非并发安全：调用方必须串行投递事件，一条事件（含翻转的两腿）
// 处理完毕后才能投递下一条。
type TradeStats struct {
	all             []float64
	profits         []float64
	losses          []float64
	allReturns      []float64
	positiveReturns []float64
	negativeReturns []float64
	evenTrades      int

	trackers map[string]*position.Tracker
}

func New() *TradeStats {
	return &TradeStats{
		trackers: make(map[string]*position.Tracker),
	}
}

// OnOrderUpdated 处理一条订单推送。非 filled 状态直接忽略，不产生
// 任何副作用（包括为该标的建立持仓记录）。返回的错误均为致命错误：
// 上游数据或分支判定存在缺陷，调用方应中止整个回放。
func (s *TradeStats) OnOrderUpdated(ev market.OrderEvent) error {
	if !ev.IsFilled() {
		return nil
	}
	delta, err := signedQuantity(ev.Action, ev.Execution.Quantity)
	if err != nil {
		return fmt.Errorf("订单事件非法（symbol=%s）: %w", ev.Symbol, err)
	}
	tracker := s.trackers[ev.Symbol]
	if tracker == nil {
		tracker = position.NewTracker()
		s.trackers[ev.Symbol] = tracker
	}
	return s.applyFill(tracker, ev.Execution.Price, ev.Execution.Commission, delta)
}

// signedQuantity 把四种 action 换算成带符号数量：买入方向为正、卖出方向为负。
func signedQuantity(action market.Action, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("成交数量必须为正，实际为 %d", quantity)
	}
	switch action {
	case market.ActionBuy, market.ActionBuyCover:
		return quantity, nil
	case market.ActionSell, market.ActionSellShort:
		return -quantity, nil
	default:
		return 0, fmt.Errorf("未知的 action: %q", action)
	}
}

func (s *TradeStats) applyFill(tracker *position.Tracker, price, commission float64, delta int) error {
	current := tracker.Shares()
	switch Classify(current, delta) {
	case TransitionOpen:
		if delta > 0 {
			tracker.Buy(delta, price, commission)
		} else {
			tracker.Sell(-delta, price, commission)
		}
	case TransitionAddLong:
		tracker.Buy(delta, price, commission)
	case TransitionPartialExit:
		tracker.Sell(-delta, price, commission)
	case TransitionFullExit:
		tracker.Sell(current, price, commission)
		return s.recordTrade(tracker)
	case TransitionFlipShort:
		// 先平掉全部多头并结算，再开出反向空头。
		// 手续费沿用原始口径：总手续费分别除以两腿各自的数量，
		// 两腿之和一般不等于总手续费；历史结果依赖该口径，不做修正。
		newShares := current + delta
		tracker.Sell(current, price, commission/float64(current))
		if err := s.recordTrade(tracker); err != nil {
			return err
		}
		tracker.Sell(-newShares, price, commission/float64(-newShares))
	case TransitionAddShort:
		tracker.Sell(-delta, price, commission)
	case TransitionPartialCover:
		tracker.Buy(delta, price, commission)
	case TransitionFullCover:
		tracker.Buy(-current, price, commission)
		return s.recordTrade(tracker)
	case TransitionFlipLong:
		newShares := current + delta
		tracker.Buy(-current, price, commission/float64(-current))
		if err := s.recordTrade(tracker); err != nil {
			return err
		}
		tracker.Buy(newShares, price, commission/float64(newShares))
	}
	return nil
}

// recordTrade 在持仓刚好归零时登记一笔完整交易并复位 tracker。
func (s *TradeStats) recordTrade(tracker *position.Tracker) error {
	if shares := tracker.Shares(); shares != 0 {
		return fmt.Errorf("结算时持仓应为 0，实际为 %d（转变判定存在缺陷）", shares)
	}
	netProfit := tracker.NetProfit(settleMark)
	netReturn := tracker.Return(settleMark)

	switch {
	case netProfit > 0:
		s.profits = append(s.profits, netProfit)
		s.positiveReturns = append(s.positiveReturns, netReturn)
	case netProfit < 0:
		s.losses = append(s.losses, netProfit)
		s.negativeReturns = append(s.negativeReturns, netReturn)
	default:
		s.evenTrades++
	}
	s.all = append(s.all, netProfit)
	s.allReturns = append(s.allReturns, netReturn)

	tracker.Rebase(settleMark)
	return nil
}

// Shares 返回某标的当前净持仓；没有持仓记录时为 0。
func (s *TradeStats) Shares(symbol string) int {
	tracker := s.trackers[symbol]
	if tracker == nil {
		return 0
	}
	return tracker.Shares()
}

// Count 返回完整交易总数。
func (s *TradeStats) Count() int {
	return len(s.all)
}

// ProfitableCount 返回盈利交易数。
func (s *TradeStats) ProfitableCount() int {
	return len(s.profits)
}

// UnprofitableCount 返回亏损交易数。
func (s *TradeStats) UnprofitableCount() int {
	return len(s.losses)
}

// EvenCount 返回盈亏为零的交易数。
func (s *TradeStats) EvenCount() int {
	return s.evenTrades
}

// All 返回每笔交易的净盈亏（按完成顺序，副本）。
func (s *TradeStats) All() []float64 {
	return copyFloats(s.all)
}

// Profits 返回盈利交易的净盈亏。
func (s *TradeStats) Profits() []float64 {
	return copyFloats(s.profits)
}

// Losses 返回亏损交易的净盈亏。
func (s *TradeStats) Losses() []float64 {
	return copyFloats(s.losses)
}

// AllReturns 返回每笔交易的收益率，与 All 同序同长。
func (s *TradeStats) AllReturns() []float64 {
	return copyFloats(s.allReturns)
}

// PositiveReturns 返回盈利交易的收益率。
func (s *TradeStats) PositiveReturns() []float64 {
	return copyFloats(s.positiveReturns)
}

// NegativeReturns 返回亏损交易的收益率。
func (s *TradeStats) NegativeReturns() []float64 {
	return copyFloats(s.negativeReturns)
}

func copyFloats(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	return out
}
