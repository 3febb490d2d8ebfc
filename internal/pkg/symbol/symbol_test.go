package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"BTC/USDT":      "BTCUSDT",
		"btc/usdt":      "BTCUSDT",
		" ethusdt ":     "ETHUSDT",
		"SOL/USDT:USDT": "SOLUSDT",
		"SPY":           "SPY",
		"":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input=%q", in)
	}
}

func TestParse(t *testing.T) {
	sym := Parse("BTCUSDT")
	assert.Equal(t, "BTC", sym.Base)
	assert.Equal(t, "USDT", sym.Quote)

	assert.True(t, IsValid("ETH/BTC"))
	assert.False(t, IsValid("SPY"))
}
