package replay

import (
	"context"

	"tradestat/internal/market"
)

// FetchRequest 描述一次成交记录拉取。
type FetchRequest struct {
	Symbol string
	Start  int64 // Unix ms（可选；0 表示不限制）
	End    int64 // Unix ms（可选；0 表示不限制）
	Limit  int
}

// Source 统一不同成交来源（本地导出文件、交易所 API）的拉取行为。
// 返回的事件必须按发生时间升序排列。
type Source interface {
	Fetch(ctx context.Context, req FetchRequest) ([]market.OrderEvent, error)
	Name() string
}
