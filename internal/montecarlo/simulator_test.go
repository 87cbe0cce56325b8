package montecarlo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) *float64 { return &v }

func sampleTrades() []Trade {
	return []Trade{
		{PnLPct: pct(0.05)},
		{PnLPct: pct(-0.02)},
		{PnLPct: pct(0.08)},
		{PnLPct: pct(-0.04)},
		{PnLPct: pct(0.03)},
		{PnLPct: pct(0.10)},
		{PnLPct: pct(-0.01)},
		{PnLPct: pct(0.02)},
	}
}

func TestSimulateDeterministicWithSeed(t *testing.T) {
	cfg := Config{Simulations: 500, Seed: 42}
	a := Simulate(sampleTrades(), cfg)
	b := Simulate(sampleTrades(), cfg)
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, a.ExpectedValue, b.ExpectedValue)
	assert.Equal(t, a.WorstCase, b.WorstCase)
	assert.Equal(t, a.BestCase, b.BestCase)
	assert.Equal(t, a.Percentiles, b.Percentiles)
	assert.Equal(t, a.Distribution, b.Distribution)
}

func TestSimulateNoUsableTrades(t *testing.T) {
	assert.Nil(t, Simulate(nil, Config{Simulations: 100}))
	assert.Nil(t, Simulate([]Trade{{PnLPct: nil}, {PnLPct: nil}}, Config{Simulations: 100}))
}

func TestSimulateHistogramCoversAllRuns(t *testing.T) {
	r := Simulate(sampleTrades(), Config{Simulations: 2000, Seed: 7})
	require.NotNil(t, r)
	require.Len(t, r.Distribution, 20)

	total := 0
	for _, b := range r.Distribution {
		total += b.Count
	}
	assert.Equal(t, r.Simulations, total)

	// 末格闭区间，最大值必须落在格子里
	last := r.Distribution[len(r.Distribution)-1]
	assert.LessOrEqual(t, r.BestCase, last.Max)
	assert.Equal(t, r.Distribution[0].Min, r.WorstCase)
}

func TestSimulatePercentilesMonotone(t *testing.T) {
	r := Simulate(sampleTrades(), Config{
		Simulations: 1000,
		Seed:        99,
		Percentiles: []float64{0.05, 0.25, 0.5, 0.75, 0.95},
	})
	require.NotNil(t, r)
	require.Len(t, r.Percentiles, 5)
	for i := 1; i < len(r.Percentiles); i++ {
		assert.LessOrEqual(t, r.Percentiles[i-1].Equity, r.Percentiles[i].Equity)
	}
	assert.GreaterOrEqual(t, r.Percentiles[0].Equity, r.WorstCase)
	assert.LessOrEqual(t, r.Percentiles[4].Equity, r.BestCase)
}

func TestSimulateWithSizing(t *testing.T) {
	r := SimulateWithSizing(sampleTrades(), 100000, Config{Simulations: 500, Seed: 42})
	require.NotNil(t, r)
	assert.Equal(t, 100000.0, r.InitialEquity)
	assert.Greater(t, r.ExpectedValue, 0.0)

	assert.Nil(t, SimulateWithSizing(sampleTrades(), 0, Config{Simulations: 100}))
	assert.Nil(t, SimulateWithSizing(sampleTrades(), -5, Config{Simulations: 100}))
}

func TestSimulateProbabilitiesInRange(t *testing.T) {
	r := Simulate(sampleTrades(), Config{Simulations: 1000, Seed: 3})
	require.NotNil(t, r)
	assert.GreaterOrEqual(t, r.ProbProfit, 0.0)
	assert.LessOrEqual(t, r.ProbProfit, 1.0)
	assert.GreaterOrEqual(t, r.ProbRuin, 0.0)
	assert.LessOrEqual(t, r.ProbRuin, 1.0)
}

func TestConfidenceInterval(t *testing.T) {
	r := Simulate(sampleTrades(), Config{Simulations: 1000, Seed: 11})
	require.NotNil(t, r)

	ci := r.ConfidenceInterval(0.90)
	require.NotNil(t, ci)
	assert.LessOrEqual(t, ci.Lower, ci.Upper)
	assert.Equal(t, r.Confidence.Lower, ci.Lower)
	assert.Equal(t, r.Confidence.Upper, ci.Upper)

	wide := r.ConfidenceInterval(0.99)
	require.NotNil(t, wide)
	assert.LessOrEqual(t, wide.Lower, ci.Lower)
	assert.GreaterOrEqual(t, wide.Upper, ci.Upper)

	assert.Nil(t, r.ConfidenceInterval(0))
	assert.Nil(t, r.ConfidenceInterval(1))
	assert.Nil(t, (*Result)(nil).ConfidenceInterval(0.9))
}

func TestSimulateSingleReturnDegenerate(t *testing.T) {
	// 只有一个收益率时所有路径相同，直方图宽度为 0
	r := Simulate([]Trade{{PnLPct: pct(0.05)}}, Config{Simulations: 200, Seed: 1})
	require.NotNil(t, r)
	assert.Equal(t, r.WorstCase, r.BestCase)
	assert.Equal(t, 200, r.Distribution[0].Count)
}

func TestLCGContract(t *testing.T) {
	// state = (state*1103515245 + 12345) mod 2^31
	l := newLCG(1)
	const mod = int64(1) << 31
	want := (int64(1)*1103515245 + 12345) % mod
	got := l.Draw()
	assert.InDelta(t, float64(want)/float64(mod), got, 1e-12)
}

func TestTextReport(t *testing.T) {
	r := Simulate(sampleTrades(), Config{Simulations: 300, Seed: 42})
	require.NotNil(t, r)
	s := TextReport(r)
	assert.Contains(t, s, "盈利概率")
	assert.Contains(t, s, "置信区间")
	assert.Contains(t, s, "P05")

	assert.Contains(t, TextReport(nil), "无可用交易数据")
}
