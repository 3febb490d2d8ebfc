package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerLongRoundTrip(t *testing.T) {
	tr := NewTracker()
	tr.Buy(1, 127.14, 0)
	assert.Equal(t, 1, tr.Shares())
	assert.InDelta(t, 127.14, tr.Cost(), 1e-9)

	tr.Sell(1, 127.16, 0)
	assert.Equal(t, 0, tr.Shares())
	assert.InDelta(t, 0.02, tr.NetProfit(0), 1e-9)
	assert.InDelta(t, 0.02/127.14, tr.Return(0), 1e-9)
}

func TestTrackerShortRoundTrip(t *testing.T) {
	tr := NewTracker()
	tr.Sell(1, 127.16, 0)
	assert.Equal(t, -1, tr.Shares())
	assert.InDelta(t, 127.16, tr.Cost(), 1e-9)

	tr.Buy(1, 127.20, 0)
	assert.Equal(t, 0, tr.Shares())
	assert.InDelta(t, -0.04, tr.NetProfit(0), 1e-9)
	assert.InDelta(t, -0.04/127.16, tr.Return(0), 1e-9)
}

func TestTrackerCommissionReducesProfit(t *testing.T) {
	tr := NewTracker()
	tr.Buy(10, 10, 0.5)
	tr.Sell(10, 12, 0.5)
	assert.InDelta(t, 19.0, tr.NetProfit(0), 1e-9)
}

func TestTrackerAddToPositionAccumulatesCost(t *testing.T) {
	tr := NewTracker()
	tr.Buy(10, 10, 0)
	tr.Buy(10, 12, 0)
	assert.Equal(t, 20, tr.Shares())
	assert.InDelta(t, 220, tr.Cost(), 1e-9)

	// 减仓不增加成本
	tr.Sell(5, 13, 0)
	assert.InDelta(t, 220, tr.Cost(), 1e-9)
}

func TestTrackerFlipCountsOnlyNewLeg(t *testing.T) {
	tr := NewTracker()
	tr.Buy(10, 10, 0)
	// 卖出 15：平掉 10 手多头并开出 5 手空头，仅空头部分计成本
	tr.Sell(15, 12, 0)
	assert.Equal(t, -5, tr.Shares())
	assert.InDelta(t, 100+5*12, tr.Cost(), 1e-9)
}

func TestTrackerRebaseAtFlat(t *testing.T) {
	tr := NewTracker()
	tr.Buy(2, 100, 1)
	tr.Sell(2, 110, 1)
	tr.Rebase(0)

	assert.Equal(t, 0, tr.Shares())
	assert.InDelta(t, 0, tr.NetProfit(0), 1e-9)
	assert.InDelta(t, 0, tr.Cost(), 1e-9)
	assert.InDelta(t, 0, tr.Commissions(), 1e-9)
}

func TestTrackerRebaseWithOpenPosition(t *testing.T) {
	tr := NewTracker()
	tr.Buy(3, 100, 2)
	tr.Rebase(105)

	// 重置后以 105 为基准，当前价下盈亏归零
	assert.Equal(t, 3, tr.Shares())
	assert.InDelta(t, 0, tr.NetProfit(105), 1e-9)
	assert.InDelta(t, 3*105, tr.Cost(), 1e-9)
	assert.InDelta(t, 3*10, tr.NetProfit(115), 1e-9)
}
