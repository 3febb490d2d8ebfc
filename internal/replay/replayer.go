package replay

import (
	"context"
	"fmt"

	"tradestat/internal/market"
)

// FillHandler 按发生顺序接收订单事件。实现方不要求并发安全，
// Replayer 保证一条事件处理完毕后才派发下一条。
type FillHandler interface {
	OnOrderUpdated(ev market.OrderEvent) error
}

// Replayer 把一段事件序列逐条派发给全部订阅者。
// 任一订阅者返回错误即中止回放，已派发的事件不回滚。
type Replayer struct {
	handlers []FillHandler
}

func NewReplayer() *Replayer {
	return &Replayer{}
}

// Subscribe 注册一个事件订阅者。
func (r *Replayer) Subscribe(h FillHandler) {
	if h == nil {
		return
	}
	r.handlers = append(r.handlers, h)
}

// Replay 顺序派发 events，返回成功处理的事件数。
func (r *Replayer) Replay(ctx context.Context, events []market.OrderEvent) (int, error) {
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		for _, h := range r.handlers {
			if err := h.OnOrderUpdated(ev); err != nil {
				return i, fmt.Errorf("第 %d 条事件处理失败: %w", i+1, err)
			}
		}
	}
	return len(events), nil
}
