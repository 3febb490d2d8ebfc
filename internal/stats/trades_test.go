package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradestat/internal/market"
)

const testSymbol = "SPY"

func fill(action market.Action, qty int, price, commission float64) market.OrderEvent {
	return market.OrderEvent{
		Symbol: testSymbol,
		Status: market.OrderStatusFilled,
		Action: action,
		Execution: market.Execution{
			Price:      price,
			Quantity:   qty,
			Commission: commission,
			Time:       time.Now(),
		},
	}
}

func feed(t *testing.T, s *TradeStats, events ...market.OrderEvent) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, s.OnOrderUpdated(ev))
	}
}

func TestNoTrades(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 0, s.ProfitableCount())
	assert.Equal(t, 0, s.UnprofitableCount())
	assert.Equal(t, 0, s.EvenCount())
	assert.Empty(t, s.All())
	assert.Empty(t, s.AllReturns())
}

func TestLongTrades(t *testing.T) {
	s := New()
	feed(t, s,
		// 盈利
		fill(market.ActionBuy, 1, 127.14, 0),
		fill(market.ActionSell, 1, 127.16, 0),
		// 亏损
		fill(market.ActionBuy, 1, 127.20, 0),
		fill(market.ActionSell, 1, 127.16, 0),
		// 盈利
		fill(market.ActionBuy, 1, 127.16, 0),
		fill(market.ActionSell, 1, 127.26, 0),
		// 未平仓，不计入
		fill(market.ActionBuy, 1, 127.34, 0),
	)

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, 2, s.ProfitableCount())
	assert.Equal(t, 1, s.UnprofitableCount())
	assert.Equal(t, 0, s.EvenCount())
	assert.Equal(t, 1, s.Shares(testSymbol))

	all := s.All()
	require.Len(t, all, 3)
	assert.InDelta(t, 0.02, all[0], 1e-9)
	assert.InDelta(t, -0.04, all[1], 1e-9)
	assert.InDelta(t, 0.10, all[2], 1e-9)

	pos := s.PositiveReturns()
	require.Len(t, pos, 2)
	assert.InDelta(t, (127.16-127.14)/127.14, pos[0], 1e-9)
	assert.InDelta(t, (127.26-127.16)/127.16, pos[1], 1e-9)

	neg := s.NegativeReturns()
	require.Len(t, neg, 1)
	assert.InDelta(t, (127.16-127.20)/127.20, neg[0], 1e-9)
}

func TestLongShortFlip(t *testing.T) {
	s := New()
	feed(t, s,
		// 开多
		fill(market.ActionBuy, 1, 127.14, 0),
		// 卖 2 手：平多并翻空
		fill(market.ActionSell, 2, 127.16, 0),
		// 回补平空
		fill(market.ActionBuyCover, 1, 127.20, 0),
	)

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 1, s.ProfitableCount())
	assert.Equal(t, 1, s.UnprofitableCount())
	assert.Equal(t, 0, s.Shares(testSymbol))

	all := s.All()
	require.Len(t, all, 2)
	assert.InDelta(t, 0.02, all[0], 1e-9)
	assert.InDelta(t, -0.04, all[1], 1e-9)

	returns := s.AllReturns()
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.02/127.14, returns[0], 1e-9)
	assert.InDelta(t, -0.04/127.16, returns[1], 1e-9)
}

func TestShortThenLongSeparately(t *testing.T) {
	s := New()
	feed(t, s,
		fill(market.ActionBuy, 1, 127.14, 0),
		fill(market.ActionSell, 1, 127.16, 0),
		fill(market.ActionSellShort, 1, 127.16, 0),
		fill(market.ActionBuyCover, 1, 127.20, 0),
	)

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 1, s.ProfitableCount())
	assert.Equal(t, 1, s.UnprofitableCount())
	assert.Equal(t, 0, s.Shares(testSymbol))
}

// 买 10 卖 15 的翻转：平多一笔按 commission/10 计费，
// 新空头腿按 commission/5 计费。
func TestFlipCommissionSplit(t *testing.T) {
	s := New()
	feed(t, s,
		fill(market.ActionBuy, 10, 10, 0),
		fill(market.ActionSell, 15, 12, 3),
	)

	require.Equal(t, 1, s.Count())
	assert.Equal(t, -5, s.Shares(testSymbol))

	all := s.All()
	// 平多腿：(12-10)*10 - 3/10
	assert.InDelta(t, 20-0.3, all[0], 1e-9)
	assert.InDelta(t, (20-0.3)/100, s.AllReturns()[0], 1e-9)

	// 回补空头后结算第二笔，带上翻转时留下的 3/5 手续费
	feed(t, s, fill(market.ActionBuyCover, 5, 11, 0))
	require.Equal(t, 2, s.Count())
	assert.InDelta(t, 5*(12-11)-0.6, s.All()[1], 1e-9)
	assert.InDelta(t, (5-0.6)/60, s.AllReturns()[1], 1e-9)
	assert.Equal(t, 0, s.Shares(testSymbol))
}

func TestFlatToFlatSingleTrade(t *testing.T) {
	s := New()
	feed(t, s,
		fill(market.ActionBuy, 7, 42.5, 0.2),
		fill(market.ActionSell, 7, 43.1, 0.2),
	)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 0, s.Shares(testSymbol))
}

func TestNoPrematureCompletion(t *testing.T) {
	s := New()
	feed(t, s,
		fill(market.ActionBuy, 10, 100, 0),
		fill(market.ActionSell, 4, 101, 0),
		fill(market.ActionBuy, 2, 102, 0),
		fill(market.ActionSell, 5, 103, 0),
	)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, 3, s.Shares(testSymbol))
}

func TestEvenTrade(t *testing.T) {
	s := New()
	feed(t, s,
		fill(market.ActionBuy, 1, 100, 0),
		fill(market.ActionSell, 1, 100, 0),
	)
	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, s.EvenCount())
	assert.Equal(t, 0, s.ProfitableCount())
	assert.Equal(t, 0, s.UnprofitableCount())

	require.Len(t, s.All(), 1)
	assert.Zero(t, s.All()[0])
	require.Len(t, s.AllReturns(), 1)
	assert.Zero(t, s.AllReturns()[0])
}

func TestUnknownActionRejected(t *testing.T) {
	s := New()
	ev := fill(market.ActionBuy, 1, 100, 0)
	ev.Action = market.Action("hold")

	err := s.OnOrderUpdated(ev)
	require.Error(t, err)

	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.All())
	// 校验失败不应创建持仓记录
	assert.NotContains(t, s.trackers, testSymbol)
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	s := New()
	ev := fill(market.ActionBuy, 0, 100, 0)

	require.Error(t, s.OnOrderUpdated(ev))
	assert.NotContains(t, s.trackers, testSymbol)
}

func TestUnfilledOrderIgnored(t *testing.T) {
	s := New()
	ev := fill(market.ActionBuy, 1, 100, 0)
	ev.Status = market.OrderStatusSubmitted

	require.NoError(t, s.OnOrderUpdated(ev))
	assert.Equal(t, 0, s.Count())
	assert.NotContains(t, s.trackers, testSymbol)
}

// 每处理一条事件后计数守恒与符号一致性都必须成立。
func TestInvariantsAfterEveryFill(t *testing.T) {
	s := New()
	events := []market.OrderEvent{
		fill(market.ActionBuy, 5, 100, 0.5),
		fill(market.ActionSell, 5, 102, 0.5),
		fill(market.ActionSellShort, 3, 101, 0.1),
		fill(market.ActionBuyCover, 3, 104, 0.1),
		fill(market.ActionBuy, 4, 100, 0),
		fill(market.ActionSell, 6, 99, 0.6),
		fill(market.ActionBuyCover, 2, 98, 0),
		fill(market.ActionBuy, 1, 100, 0),
		fill(market.ActionSell, 1, 100, 0),
	}
	for i, ev := range events {
		require.NoError(t, s.OnOrderUpdated(ev), "event %d", i)

		assert.Equal(t, s.Count(), s.ProfitableCount()+s.UnprofitableCount()+s.EvenCount(), "event %d", i)
		assert.Len(t, s.AllReturns(), s.Count(), "event %d", i)
		assert.Len(t, s.PositiveReturns(), s.ProfitableCount(), "event %d", i)
		assert.Len(t, s.NegativeReturns(), s.UnprofitableCount(), "event %d", i)
		for _, p := range s.Profits() {
			assert.Positive(t, p)
		}
		for _, l := range s.Losses() {
			assert.Negative(t, l)
		}
	}
	assert.Equal(t, 5, s.Count())
	assert.Equal(t, 1, s.EvenCount())
}

func TestMultipleSymbolsIndependent(t *testing.T) {
	s := New()
	ethSell := fill(market.ActionSellShort, 2, 2000, 0)
	ethSell.Symbol = "ETH"
	ethCover := fill(market.ActionBuyCover, 2, 1900, 0)
	ethCover.Symbol = "ETH"

	feed(t, s,
		fill(market.ActionBuy, 1, 100, 0),
		ethSell,
		ethCover,
	)

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 1, s.Shares(testSymbol))
	assert.Equal(t, 0, s.Shares("ETH"))
}
