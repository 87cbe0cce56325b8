package backtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kestrel/internal/config"
)

func newTestStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := NewResultStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestResultStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	runID := uuid.NewString()

	result := &Result{
		Config: config.BacktestConfig{
			Symbols:        []string{"AAPL"},
			StartDate:      "2024-01-01",
			EndDate:        "2024-06-30",
			InitialCapital: 100000,
		},
		Trades: []Trade{
			{Symbol: "AAPL", Shares: 100, EntryDate: 1, ExitDate: 2, EntryPrice: 100, ExitPrice: 110, PnL: 1000, PnLPct: 0.10, Reason: ExitTakeProfit},
			{Symbol: "AAPL", Shares: 100, EntryDate: 3, ExitDate: 4, EntryPrice: 110, ExitPrice: 104, PnL: -600, PnLPct: -0.055, Reason: ExitStopLoss},
		},
		Metrics:     Metrics{TotalTrades: 2, Wins: 1, Losses: 1, WinRate: 0.5, FinalEquity: 100400},
		EquityCurve: []EquityPoint{{Date: 1, Equity: 100000}, {Date: 4, Equity: 100400}},
	}

	require.NoError(t, store.InsertRun(ctx, runID, result))
	require.NoError(t, store.UpdateRunStatus(ctx, runID, RunStatusRunning, "推演中"))
	require.NoError(t, store.SaveResult(ctx, runID, result))

	var row runModel
	require.NoError(t, store.db.Where("id = ?", runID).First(&row).Error)
	assert.Equal(t, RunStatusDone, row.Status)
	assert.Equal(t, 2, row.TotalTrades)
	assert.Equal(t, 100400.0, row.FinalEquity)
}

func TestRecentClosedTradesOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	runID := uuid.NewString()

	result := &Result{
		Config: config.BacktestConfig{Symbols: []string{"AAPL"}, InitialCapital: 100000},
		Trades: []Trade{
			{Symbol: "AAPL", ExitDate: 10, EntryPrice: 100, ExitPrice: 110, PnL: 1000},
			{Symbol: "AAPL", ExitDate: 30, EntryPrice: 100, ExitPrice: 95, PnL: -500},
			{Symbol: "AAPL", ExitDate: 20, EntryPrice: 100, ExitPrice: 102, PnL: 200},
		},
	}
	require.NoError(t, store.InsertRun(ctx, runID, result))
	require.NoError(t, store.SaveResult(ctx, runID, result))

	trades, err := store.RecentClosedTrades(ctx, 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// 最近平仓在前
	require.NotNil(t, trades[0].PnL)
	assert.Equal(t, -500.0, *trades[0].PnL)
	require.NotNil(t, trades[1].PnL)
	assert.Equal(t, 200.0, *trades[1].PnL)
}
