package replay

import (
	"context"
	"testing"
	"time"

	"tradestat/internal/market"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeFill(action market.Action, qty int, price float64, ts int64) market.OrderEvent {
	return market.OrderEvent{
		Symbol: "BTCUSDT",
		Status: market.OrderStatusFilled,
		Action: action,
		Execution: market.Execution{
			Price:    price,
			Quantity: qty,
			Time:     time.UnixMilli(ts),
		},
	}
}

func TestStoreInsertAndList(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	fills := []market.OrderEvent{
		storeFill(market.ActionBuy, 2, 100, 1000),
		storeFill(market.ActionSell, 1, 101, 2000),
		storeFill(market.ActionSell, 1, 102, 3000),
	}
	n, err := store.InsertFills(ctx, "BTCUSDT", fills)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := store.ListFills(ctx, "btcusdt", 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, market.ActionBuy, got[0].Action)
	assert.Equal(t, int64(1000), got[0].Execution.Time.UnixMilli())
	assert.Equal(t, "BTCUSDT", got[0].Symbol)

	t.Run("时间区间过滤", func(t *testing.T) {
		got, err := store.ListFills(ctx, "BTCUSDT", 1500, 2500, 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 101.0, got[0].Execution.Price)
	})

	t.Run("limit 截断", func(t *testing.T) {
		got, err := store.ListFills(ctx, "BTCUSDT", 0, 0, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestStoreManifest(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.InsertFills(ctx, "ETHUSDT", []market.OrderEvent{
		storeFill(market.ActionBuy, 1, 10, 500),
		storeFill(market.ActionSell, 1, 11, 900),
	})
	require.NoError(t, err)

	m, err := store.Manifest(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", m.Symbol)
	assert.Equal(t, int64(500), m.MinTime)
	assert.Equal(t, int64(900), m.MaxTime)
	assert.Equal(t, int64(2), m.Rows)
	assert.NotZero(t, m.LastSyncAt)
}

func TestStoreReplaceFills(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.InsertFills(ctx, "SOLUSDT", []market.OrderEvent{
		storeFill(market.ActionBuy, 1, 10, 100),
	})
	require.NoError(t, err)

	n, err := store.ReplaceFills(ctx, "SOLUSDT", []market.OrderEvent{
		storeFill(market.ActionSellShort, 3, 20, 200),
		storeFill(market.ActionBuyCover, 3, 19, 300),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := store.ListFills(ctx, "SOLUSDT", 0, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, market.ActionSellShort, got[0].Action)

	m, err := store.Manifest(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Rows)
}

func TestStoreIsolatesSymbols(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.InsertFills(ctx, "AAA", []market.OrderEvent{storeFill(market.ActionBuy, 1, 1, 1)})
	require.NoError(t, err)

	got, err := store.ListFills(ctx, "BBB", 0, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
