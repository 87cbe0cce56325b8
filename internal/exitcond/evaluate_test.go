package exitcond

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestEvaluatePrice(t *testing.T) {
	t.Run("above and below compare directly", func(t *testing.T) {
		ctx := Context{CurrentPrice: 151}
		assert.True(t, Evaluate(PriceCondition{Operator: OpAbove, Value: 150}, ctx))
		assert.False(t, Evaluate(PriceCondition{Operator: OpBelow, Value: 150}, ctx))
	})

	t.Run("cross requires previous price", func(t *testing.T) {
		cond := PriceCondition{Operator: OpCrossesAbove, Value: 149}
		assert.False(t, Evaluate(cond, Context{CurrentPrice: 155}))
		assert.False(t, Evaluate(cond, Context{CurrentPrice: 155, PreviousPrice: floatPtr(152)}))
		assert.True(t, Evaluate(cond, Context{CurrentPrice: 155, PreviousPrice: floatPtr(148)}))
	})

	t.Run("crosses below mirrors crosses above", func(t *testing.T) {
		cond := PriceCondition{Operator: OpCrossesBelow, Value: 100}
		assert.True(t, Evaluate(cond, Context{CurrentPrice: 98, PreviousPrice: floatPtr(101)}))
		assert.False(t, Evaluate(cond, Context{CurrentPrice: 98, PreviousPrice: floatPtr(99)}))
		assert.False(t, Evaluate(cond, Context{CurrentPrice: 98}))
	})
}

func TestEvaluateIndicator(t *testing.T) {
	ctx := Context{Indicators: map[string]float64{"RSI": 25}}

	t.Run("missing indicator never exits", func(t *testing.T) {
		assert.False(t, Evaluate(IndicatorCondition{Indicator: "MACD", Operator: OpAbove, Value: 0}, ctx))
	})

	t.Run("present indicator compares", func(t *testing.T) {
		assert.True(t, Evaluate(IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30}, ctx))
		assert.False(t, Evaluate(IndicatorCondition{Indicator: "RSI", Operator: OpAbove, Value: 30}, ctx))
	})

	t.Run("indicator cross requires previous value", func(t *testing.T) {
		cond := IndicatorCondition{Indicator: "RSI", Operator: OpCrossesBelow, Value: 30}
		assert.False(t, Evaluate(cond, ctx))
		withPrev := ctx
		withPrev.PrevIndicator = map[string]float64{"RSI": 35}
		assert.True(t, Evaluate(cond, withPrev))
	})
}

func TestEvaluateVolume(t *testing.T) {
	t.Run("ratio with zero average is false not an error", func(t *testing.T) {
		cond := VolumeCondition{Metric: MetricVolumeRatio, Operator: OpGT, Value: 2}
		assert.False(t, Evaluate(cond, Context{Volume: 1000000}))
		assert.True(t, Evaluate(cond, Context{Volume: 1000000, AvgVolume: 400000}))
	})

	t.Run("absolute volume", func(t *testing.T) {
		cond := VolumeCondition{Metric: MetricVolume, Operator: OpGTE, Value: 500000}
		assert.True(t, Evaluate(cond, Context{Volume: 500000}))
		assert.False(t, Evaluate(cond, Context{Volume: 499999}))
	})
}

func TestEvaluateTimeAndProfit(t *testing.T) {
	ctx := Context{DaysHeld: 5, HoursHeld: 120, PnLPct: 12.5, PnLAbs: 340}

	assert.True(t, Evaluate(TimeCondition{Metric: MetricDaysHeld, Operator: OpGTE, Value: 5}, ctx))
	assert.False(t, Evaluate(TimeCondition{Metric: MetricDaysHeld, Operator: OpGT, Value: 5}, ctx))
	assert.True(t, Evaluate(TimeCondition{Metric: MetricHoursHeld, Operator: OpEQ, Value: 120}, ctx))
	assert.True(t, Evaluate(ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 10}, ctx))
	assert.True(t, Evaluate(ProfitCondition{Metric: MetricPnLAbs, Operator: OpLTE, Value: 340}, ctx))
}

func TestEvaluateComposites(t *testing.T) {
	ctx := Context{
		CurrentPrice: 155,
		PnLPct:       12,
		Indicators:   map[string]float64{"RSI": 75},
	}
	priceHigh := PriceCondition{Operator: OpAbove, Value: 150}
	profitLow := ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 20}
	rsiHot := IndicatorCondition{Indicator: "RSI", Operator: OpAbove, Value: 70}

	t.Run("all requires every child", func(t *testing.T) {
		assert.True(t, Evaluate(AllCondition{Children: []Condition{priceHigh, rsiHot}}, ctx))
		assert.False(t, Evaluate(AllCondition{Children: []Condition{priceHigh, profitLow}}, ctx))
	})

	t.Run("any requires one child", func(t *testing.T) {
		assert.True(t, Evaluate(AnyCondition{Children: []Condition{profitLow, rsiHot}}, ctx))
		assert.False(t, Evaluate(AnyCondition{Children: []Condition{profitLow}}, ctx))
	})

	t.Run("nested trees evaluate recursively", func(t *testing.T) {
		tree := AllCondition{Children: []Condition{
			priceHigh,
			AnyCondition{Children: []Condition{profitLow, rsiHot}},
		}}
		assert.True(t, Evaluate(tree, ctx))
	})
}

func TestEvaluateAll(t *testing.T) {
	ctx := Context{CurrentPrice: 155, Indicators: map[string]float64{"RSI": 25}}
	conds := []Condition{
		PriceCondition{Operator: OpAbove, Value: 150},
		IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30},
		ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 50},
	}
	res := EvaluateAll(conds, ctx)
	assert.True(t, res.ShouldExit)
	assert.Equal(t, []string{"Price above $150.00", "RSI below 30"}, res.Triggered)

	empty := EvaluateAll(nil, ctx)
	assert.False(t, empty.ShouldExit)
	assert.Empty(t, empty.Triggered)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Price above $150.00", Format(PriceCondition{Operator: OpAbove, Value: 150}))
	assert.Equal(t, "RSI below 30", Format(IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30}))
	assert.Equal(t, "Profit > 10%", Format(ProfitCondition{Metric: MetricPnLPct, Operator: OpGT, Value: 10}))
	assert.Equal(t, "Held >= 5 days", Format(TimeCondition{Metric: MetricDaysHeld, Operator: OpGTE, Value: 5}))
	assert.Equal(t, "Volume ratio > 2x", Format(VolumeCondition{Metric: MetricVolumeRatio, Operator: OpGT, Value: 2}))
	assert.Equal(t,
		"ALL: [Price above $150.00, RSI below 30]",
		Format(AllCondition{Children: []Condition{
			PriceCondition{Operator: OpAbove, Value: 150},
			IndicatorCondition{Indicator: "RSI", Operator: OpBelow, Value: 30},
		}}))
}
