package exitcond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSingleClauses(t *testing.T) {
	t.Run("indicator below", func(t *testing.T) {
		conds := Parse("RSI below 30")
		require.Len(t, conds, 1)
		assert.Equal(t, IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30}, conds[0])
	})

	t.Run("profit percent", func(t *testing.T) {
		conds := Parse("profit > 10%")
		require.Len(t, conds, 1)
		assert.Equal(t, ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 10}, conds[0])
	})

	t.Run("loss flips sign and comparator", func(t *testing.T) {
		conds := Parse("loss > 5%")
		require.Len(t, conds, 1)
		assert.Equal(t, ProfitCondition{Metric: MetricPnLPct, Operator: OpLT, Value: -5}, conds[0])
	})

	t.Run("price level", func(t *testing.T) {
		conds := Parse("price crosses above $150.50")
		require.Len(t, conds, 1)
		assert.Equal(t, PriceCondition{Operator: OpCrossesAbove, Value: 150.5}, conds[0])
	})

	t.Run("stop loss phrasing", func(t *testing.T) {
		conds := Parse("stop loss at $142")
		require.Len(t, conds, 1)
		assert.Equal(t, PriceCondition{Operator: OpBelow, Value: 142}, conds[0])
	})

	t.Run("hold duration phrasing", func(t *testing.T) {
		conds := Parse("held for more than 10 days")
		require.Len(t, conds, 1)
		assert.Equal(t, TimeCondition{Metric: MetricDaysHeld, Operator: OpGT, Value: 10}, conds[0])
	})

	t.Run("days held comparator", func(t *testing.T) {
		conds := Parse("days held >= 5")
		require.Len(t, conds, 1)
		assert.Equal(t, TimeCondition{Metric: MetricDaysHeld, Operator: OpGTE, Value: 5}, conds[0])
	})

	t.Run("volume ratio", func(t *testing.T) {
		conds := Parse("volume above 2x average")
		require.Len(t, conds, 1)
		assert.Equal(t, VolumeCondition{Metric: MetricVolumeRatio, Operator: OpGT, Value: 2}, conds[0])
	})

	t.Run("close versus moving average", func(t *testing.T) {
		for _, phrase := range []string{"close below 50-sma", "close below sma-50", "close below sma50"} {
			conds := Parse(phrase)
			require.Len(t, conds, 1, phrase)
			assert.Equal(t, IndicatorCondition{Indicator: "CLOSE_OVER_SMA50", Operator: OpBelow, Value: 1}, conds[0], phrase)
		}
	})
}

func TestParseBooleanSplit(t *testing.T) {
	t.Run("and builds all node", func(t *testing.T) {
		conds := Parse("RSI above 70 and profit > 15%")
		require.Len(t, conds, 1)
		all, ok := conds[0].(AllCondition)
		require.True(t, ok)
		require.Len(t, all.Children, 2)
		assert.Equal(t, IndicatorCondition{Indicator: "RSI", Operator: OpAbove, Value: 70}, all.Children[0])
		assert.Equal(t, ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 15}, all.Children[1])
	})

	t.Run("or builds any node", func(t *testing.T) {
		conds := Parse("price below 90 or days held > 30")
		require.Len(t, conds, 1)
		anyNode, ok := conds[0].(AnyCondition)
		require.True(t, ok)
		require.Len(t, anyNode.Children, 2)
	})

	t.Run("lines parse independently", func(t *testing.T) {
		conds := Parse("RSI below 30\nprofit > 10%")
		assert.Len(t, conds, 2)
	})
}

func TestParseUnparseable(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("   \n\t"))
	assert.Empty(t, Parse("sell when the vibes are off"))
	// 部分可解析时保留可解析的子句
	conds := Parse("gibberish nonsense clause\nRSI below 30")
	assert.Len(t, conds, 1)
}

func TestJSONRoundTrip(t *testing.T) {
	tree := AllCondition{Children: []Condition{
		IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30},
		AnyCondition{Children: []Condition{
			ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 10},
			TimeCondition{Metric: MetricDaysHeld, Operator: OpGTE, Value: 20},
		}},
	}}
	raw, err := EncodeJSON(tree)
	require.NoError(t, err)

	decoded, err := DecodeJSON(string(raw))
	require.NoError(t, err)
	assert.Equal(t, tree, decoded)
}

func TestDecodeListTolerance(t *testing.T) {
	conds, err := DecodeList(`[{"type":"indicator","indicator":"RSI","operator":"below","value":30}]`)
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30}, conds[0])

	_, err = DecodeList(`[{"type":"indicator","operator":"below","value":30}]`)
	assert.Error(t, err)

	conds, err = DecodeList("")
	require.NoError(t, err)
	assert.Nil(t, conds)
}
