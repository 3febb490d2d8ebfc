package replay

import (
	"testing"

	"tradestat/internal/market"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapBinanceAction(t *testing.T) {
	cases := []struct {
		side, positionSide string
		want               market.Action
	}{
		{"BUY", "LONG", market.ActionBuy},
		{"BUY", "BOTH", market.ActionBuy},
		{"BUY", "SHORT", market.ActionBuyCover},
		{"SELL", "LONG", market.ActionSell},
		{"SELL", "BOTH", market.ActionSell},
		{"SELL", "SHORT", market.ActionSellShort},
	}
	for _, tc := range cases {
		got, err := mapBinanceAction(tc.side, tc.positionSide)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s/%s", tc.side, tc.positionSide)
	}

	_, err := mapBinanceAction("HOLD", "BOTH")
	require.Error(t, err)
}

func TestConvertTradeLotSize(t *testing.T) {
	src, err := NewBinanceSource(BinanceConfig{LotSize: "0.001"})
	require.NoError(t, err)

	ev, err := src.convertTrade("BTCUSDT", &futures.AccountTrade{
		ID:           1,
		Side:         "BUY",
		PositionSide: "BOTH",
		Price:        "65000.5",
		Quantity:     "0.005",
		Commission:   "0.12",
		Time:         1700000000000,
	})
	require.NoError(t, err)
	assert.Equal(t, market.ActionBuy, ev.Action)
	assert.Equal(t, 5, ev.Execution.Quantity)
	assert.Equal(t, 65000.5, ev.Execution.Price)
	assert.Equal(t, 0.12, ev.Execution.Commission)
	assert.True(t, ev.IsFilled())

	_, err = src.convertTrade("BTCUSDT", &futures.AccountTrade{
		Side: "BUY", PositionSide: "BOTH",
		Price: "1", Quantity: "0.0005", Commission: "0",
	})
	require.Error(t, err)
}

func TestNewBinanceSourceRejectsBadLotSize(t *testing.T) {
	_, err := NewBinanceSource(BinanceConfig{LotSize: "0"})
	require.Error(t, err)
	_, err = NewBinanceSource(BinanceConfig{LotSize: "abc"})
	require.Error(t, err)
}
