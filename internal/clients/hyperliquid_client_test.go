package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clearinghouseFixture = `{
  "assetPositions": [
    {"type": "oneWay", "position": {
      "coin": "BTC", "szi": "0.5", "entryPx": "60000.0", "liquidationPx": "41000.5",
      "marginUsed": "1500.0", "unrealizedPnl": "250.25", "positionValue": "30125.0",
      "leverage": {"type": "cross", "value": 20}
    }},
    {"type": "oneWay", "position": {
      "coin": "ETH", "szi": "-2.0", "entryPx": "3000.0", "liquidationPx": null,
      "marginUsed": "600.0", "unrealizedPnl": "-12.5",
      "leverage": {"type": "isolated", "value": 10, "rawUsd": "6600.0"}
    }},
    {"type": "oneWay", "position": {
      "coin": "SOL", "szi": "0.0", "entryPx": null, "liquidationPx": null,
      "marginUsed": "0.0", "unrealizedPnl": "0.0",
      "leverage": {"type": "cross", "value": 5}
    }}
  ],
  "marginSummary": {
    "accountValue": "10000.0", "totalMarginUsed": "2100.0",
    "totalNtlPos": "36125.0", "totalRawUsd": "-20000.0"
  },
  "withdrawable": "7900.0"
}`

func TestDecodeAccountState(t *testing.T) {
	st, err := decodeAccountState([]byte(clearinghouseFixture))
	require.NoError(t, err)

	t.Run("account value is the capital base, not raw usd", func(t *testing.T) {
		assert.Equal(t, "10000", st.AccountValue.String())
		assert.Equal(t, "2100", st.TotalMarginUsed.String())
		assert.Equal(t, "7900", st.Withdrawable.String())
	})

	t.Run("flat positions are dropped", func(t *testing.T) {
		require.Len(t, st.Positions, 2)
		assert.Equal(t, "BTC", st.Positions[0].Coin)
		assert.Equal(t, "ETH", st.Positions[1].Coin)
	})

	t.Run("risk fields are carried", func(t *testing.T) {
		btc := st.Positions[0]
		assert.Equal(t, "0.5", btc.Size.String())
		assert.Equal(t, "60000", btc.EntryPx.String())
		require.True(t, btc.LiquidationPx.Valid)
		assert.Equal(t, "41000.5", btc.LiquidationPx.Decimal.String())
		assert.Equal(t, "1500", btc.MarginUsed.String())
		assert.Equal(t, "250.25", btc.UnrealizedPnl.String())
		assert.Equal(t, "cross", btc.Leverage.Type)
		assert.Equal(t, 20, btc.Leverage.Value)

		eth := st.Positions[1]
		assert.Equal(t, "-2", eth.Size.String())
		assert.False(t, eth.LiquidationPx.Valid)
		assert.Equal(t, "-12.5", eth.UnrealizedPnl.String())
		assert.Equal(t, "isolated", eth.Leverage.Type)
		assert.Equal(t, 10, eth.Leverage.Value)
	})

	t.Run("missing numbers read as zero", func(t *testing.T) {
		st, err := decodeAccountState([]byte(`{"marginSummary": {}, "withdrawable": ""}`))
		require.NoError(t, err)
		assert.True(t, st.AccountValue.IsZero())
		assert.True(t, st.Withdrawable.IsZero())
		assert.Empty(t, st.Positions)
	})

	t.Run("malformed document", func(t *testing.T) {
		_, err := decodeAccountState([]byte(`{"assetPositions": 7}`))
		assert.Error(t, err)
	})
}
