package replay

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"tradestat/internal/market"
	symbolpkg "tradestat/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const maxTradeFetchLimit = 1000

// BinanceConfig 控制合约账户成交拉取。
type BinanceConfig struct {
	APIKey          string
	APISecret       string
	RESTBaseURL     string
	LotSize         string
	RateLimitPerMin int
}

func (c BinanceConfig) withDefaults() BinanceConfig {
	if c.LotSize == "" {
		c.LotSize = "1"
	}
	if c.RateLimitPerMin <= 0 {
		c.RateLimitPerMin = 120
	}
	return c
}

// BinanceSource 基于 go-binance SDK 拉取合约账户成交并转换为订单事件。
// 统计口径以整数份额为单位，LotSize 为一份对应的合约数量。
type BinanceSource struct {
	cfg     BinanceConfig
	client  *futures.Client
	lotSize decimal.Decimal
	limiter *rate.Limiter
}

func NewBinanceSource(cfg BinanceConfig) (*BinanceSource, error) {
	final := cfg.withDefaults()
	lot, err := decimal.NewFromString(final.LotSize)
	if err != nil || lot.Sign() <= 0 {
		return nil, fmt.Errorf("lot size 无效: %q", final.LotSize)
	}
	client := futures.NewClient(final.APIKey, final.APISecret)
	if base := strings.TrimSpace(final.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(final.RateLimitPerMin)), 1)
	return &BinanceSource{
		cfg:     final,
		client:  client,
		lotSize: lot,
		limiter: limiter,
	}, nil
}

func (s *BinanceSource) Name() string { return "binance" }

func (s *BinanceSource) Fetch(ctx context.Context, req FetchRequest) ([]market.OrderEvent, error) {
	symbol := symbolpkg.Normalize(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	limit := req.Limit
	if limit <= 0 || limit > maxTradeFetchLimit {
		limit = maxTradeFetchLimit
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	svc := s.client.NewListAccountTradeService().Symbol(symbol).Limit(limit)
	if req.Start > 0 {
		svc = svc.StartTime(req.Start)
	}
	if req.End > 0 {
		svc = svc.EndTime(req.End)
	}
	trades, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("拉取账户成交失败: %w", err)
	}

	out := make([]market.OrderEvent, 0, len(trades))
	for _, tr := range trades {
		if tr == nil {
			continue
		}
		ev, err := s.convertTrade(symbol, tr)
		if err != nil {
			return nil, fmt.Errorf("成交 %d 转换失败: %w", tr.ID, err)
		}
		out = append(out, ev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Execution.Time.Before(out[j].Execution.Time)
	})
	return out, nil
}

func (s *BinanceSource) convertTrade(symbol string, tr *futures.AccountTrade) (market.OrderEvent, error) {
	price, err := decimal.NewFromString(tr.Price)
	if err != nil {
		return market.OrderEvent{}, fmt.Errorf("price 无效: %w", err)
	}
	qty, err := decimal.NewFromString(tr.Quantity)
	if err != nil {
		return market.OrderEvent{}, fmt.Errorf("qty 无效: %w", err)
	}
	commission, err := decimal.NewFromString(tr.Commission)
	if err != nil {
		return market.OrderEvent{}, fmt.Errorf("commission 无效: %w", err)
	}
	lots := qty.Div(s.lotSize)
	if !lots.IsInteger() || lots.Sign() <= 0 {
		return market.OrderEvent{}, fmt.Errorf("数量 %s 不是 lot size %s 的正整数倍", tr.Quantity, s.lotSize)
	}
	action, err := mapBinanceAction(string(tr.Side), string(tr.PositionSide))
	if err != nil {
		return market.OrderEvent{}, err
	}
	return market.OrderEvent{
		Symbol: symbol,
		Status: market.OrderStatusFilled,
		Action: action,
		Execution: market.Execution{
			Price:      price.InexactFloat64(),
			Quantity:   int(lots.IntPart()),
			Commission: commission.InexactFloat64(),
			Time:       time.UnixMilli(tr.Time),
		},
	}, nil
}

func mapBinanceAction(side, positionSide string) (market.Action, error) {
	short := strings.EqualFold(positionSide, "SHORT")
	switch strings.ToUpper(side) {
	case "BUY":
		if short {
			return market.ActionBuyCover, nil
		}
		return market.ActionBuy, nil
	case "SELL":
		if short {
			return market.ActionSellShort, nil
		}
		return market.ActionSell, nil
	default:
		return "", fmt.Errorf("未知的成交方向: %q", side)
	}
}
