package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/backtest"
	"kestrel/internal/config"
	"kestrel/internal/montecarlo"
)

func sampleResult() *backtest.Result {
	return &backtest.Result{
		Config:  config.BacktestConfig{InitialCapital: 100000},
		Metrics: backtest.Metrics{FinalEquity: 105000, TotalTrades: 3},
		EquityCurve: []backtest.EquityPoint{
			{Date: 1704153600000, Equity: 100000},
			{Date: 1704240000000, Equity: 102000},
			{Date: 1704326400000, Equity: 105000},
		},
	}
}

func TestWriteHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.html")
	pnl := 0.05
	mc := montecarlo.Simulate([]montecarlo.Trade{{PnLPct: &pnl}}, montecarlo.Config{Simulations: 100, Seed: 1})
	require.NotNil(t, mc)

	require.NoError(t, WriteHTML(path, sampleResult(), mc))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "资金曲线")
	assert.Contains(t, string(data), "蒙特卡洛")
}

func TestWriteHTMLWithoutMonteCarlo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteHTML(path, sampleResult(), nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteHTMLNilResult(t *testing.T) {
	assert.Error(t, WriteHTML(filepath.Join(t.TempDir(), "x.html"), nil, nil))
}
