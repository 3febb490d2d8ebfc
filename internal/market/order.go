package market

import (
	"fmt"
	"strings"
	"time"
)

// Action 表示订单的交易方向，取值与回放数据中的 action 字段一致。
type Action string

const (
	ActionBuy       Action = "buy"           // 开多/加多
	ActionBuyCover  Action = "buy_to_cover"  // 买入平空
	ActionSell      Action = "sell"          // 卖出平多
	ActionSellShort Action = "sell_short"    // 开空/加空
)

// ParseAction 标准化 action 字符串；不在四种取值内时返回错误。
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionBuy:
		return ActionBuy, nil
	case ActionBuyCover:
		return ActionBuyCover, nil
	case ActionSell:
		return ActionSell, nil
	case ActionSellShort:
		return ActionSellShort, nil
	default:
		return "", fmt.Errorf("未知的 action: %q", raw)
	}
}

// 订单状态。统计只关心 filled，其余状态一律跳过。
const (
	OrderStatusSubmitted = "submitted"
	OrderStatusAccepted  = "accepted"
	OrderStatusFilled    = "filled"
	OrderStatusCanceled  = "canceled"
)

// Execution 记录一次成交明细。Quantity 以最小交易单位（手）计数。
type Execution struct {
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Commission float64   `json:"commission"`
	Time       time.Time `json:"time"`
}

// OrderEvent 是订单状态推送。事件源（交易所导出、回放文件等）
// 统一转换成该结构后再交给统计端，核心逻辑不感知具体来源。
type OrderEvent struct {
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"`
	Action    Action    `json:"action"`
	Execution Execution `json:"execution"`
}

// IsFilled 返回订单是否处于已成交状态。
func (e OrderEvent) IsFilled() bool {
	return e.Status == OrderStatusFilled
}
