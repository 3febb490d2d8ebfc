package position

// Tracker 以成本法跟踪单个标的的净持仓与盈亏。
// shares>0 为多头、<0 为空头、==0 为平仓状态。
// 记账口径：
//   - cash 累计买卖现金流（买入为负、卖出为正）；
//   - commissions 累计全部手续费；
//   - cost 累计投入成本：开仓与加仓按 |数量|*价格 计入，减仓不计，
//     翻转时只计入反向新仓部分。
// 盈亏与收益率都以该口径推导，收益率分母即 cost。
type Tracker struct {
	shares      int
	cash        float64
	commissions float64
	cost        float64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Shares 返回带符号的净持仓数量。
func (t *Tracker) Shares() int {
	return t.shares
}

// Cost 返回累计投入成本。
func (t *Tracker) Cost() float64 {
	return t.cost
}

// Commissions 返回累计手续费。
func (t *Tracker) Commissions() float64 {
	return t.commissions
}

func (t *Tracker) updateCost(quantity int, price float64) {
	var cost float64
	switch {
	case t.shares > 0:
		if quantity > 0 {
			cost = float64(quantity) * price
		} else if diff := t.shares + quantity; diff < 0 {
			// 多翻空，只有反向新仓计成本
			cost = float64(-diff) * price
		}
	case t.shares < 0:
		if quantity < 0 {
			cost = float64(-quantity) * price
		} else if diff := t.shares + quantity; diff > 0 {
			cost = float64(diff) * price
		}
	default:
		cost = abs(quantity) * price
	}
	t.cost += cost
}

// Buy 买入 quantity（必须为正，由调用方保证）。
func (t *Tracker) Buy(quantity int, price, commission float64) {
	t.updateCost(quantity, price)
	t.cash -= float64(quantity) * price
	t.shares += quantity
	t.commissions += commission
}

// Sell 卖出 quantity（必须为正，由调用方保证）。
func (t *Tracker) Sell(quantity int, price, commission float64) {
	t.updateCost(-quantity, price)
	t.cash += float64(quantity) * price
	t.shares -= quantity
	t.commissions += commission
}

// NetProfit 返回以 mark 价结算未平部分后的净盈亏（已扣手续费）。
func (t *Tracker) NetProfit(mark float64) float64 {
	return t.cash + float64(t.shares)*mark - t.commissions
}

// Return 返回净盈亏相对累计成本的收益率（1.0 即 100%）。
func (t *Tracker) Return(mark float64) float64 {
	if t.cost == 0 {
		return 0
	}
	return t.NetProfit(mark) / t.cost
}

// Rebase 以 mark 价重置记账基准：此后 NetProfit(mark) 为 0。
// 持仓为零时等价于完全清零，供同一标的继续累计下一笔交易。
func (t *Tracker) Rebase(mark float64) {
	t.cost = abs(t.shares) * mark
	t.cash = -float64(t.shares) * mark
	t.commissions = 0
}

func abs(v int) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}
