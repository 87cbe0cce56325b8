package backtest

import (
	"time"

	"kestrel/internal/config"
)

// ExitReason 标记平仓由哪条规则触发。
type ExitReason string

const (
	ExitStopLoss     ExitReason = "stoploss"
	ExitTakeProfit   ExitReason = "takeprofit"
	ExitTrailingStop ExitReason = "trailing_stop"
	ExitROITable     ExitReason = "roi_table"
	ExitEndOfData    ExitReason = "end_of_data"
)

// Position 是一笔在场仓位。只有移动止损步骤会改它，
// 且止损价只升不降。
type Position struct {
	Symbol        string
	Shares        int
	EntryPrice    float64
	EntryDate     int64
	StopPrice     float64
	TrailingStop  float64 // 0 表示未启用
	TakeProfit    float64 // 0 表示未配置
	HighWaterMark float64
	Score         float64
	EntryFee      float64
}

// Trade 是一笔已平仓交易，写入后不再修改。
type Trade struct {
	Symbol     string     `json:"symbol"`
	Shares     int        `json:"shares"`
	EntryDate  int64      `json:"entry_date"`
	ExitDate   int64      `json:"exit_date"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	PnL        float64    `json:"pnl"`
	PnLPct     float64    `json:"pnl_pct"`
	Reason     ExitReason `json:"reason"`
	HoldMins   int64      `json:"hold_mins"`
	Score      float64    `json:"score"`
}

// EquityPoint 是资金曲线上的一个点，每个公共交易日一个。
type EquityPoint struct {
	Date   int64   `json:"date"`
	Equity float64 `json:"equity"`
}

// Metrics 中的比率类指标在交易数不足时为 nil。
type Metrics struct {
	TotalTrades   int      `json:"total_trades"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	WinRate       float64  `json:"win_rate"`
	TotalPnL      float64  `json:"total_pnl"`
	TotalPnLPct   float64  `json:"total_pnl_pct"`
	FinalEquity   float64  `json:"final_equity"`
	AvgWin        float64  `json:"avg_win"`
	AvgLoss       float64  `json:"avg_loss"`
	MaxDrawdown   float64  `json:"max_drawdown"`
	Sharpe        *float64 `json:"sharpe"`
	Sortino       *float64 `json:"sortino"`
	Calmar        *float64 `json:"calmar"`
	SQN           *float64 `json:"sqn"`
	Expectancy    float64  `json:"expectancy"`
	ProfitFactor  float64  `json:"profit_factor"`
	AvgHoldMins   float64  `json:"avg_hold_mins"`
	BestTradePct  float64  `json:"best_trade_pct"`
	WorstTradePct float64  `json:"worst_trade_pct"`
}

// Result 是一次回测的全部产出。
type Result struct {
	Config       config.BacktestConfig `json:"config"`
	Trades       []Trade               `json:"trades"`
	Metrics      Metrics               `json:"metrics"`
	EquityCurve  []EquityPoint         `json:"equity_curve"`
	DailyReturns []float64             `json:"daily_returns"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
}

// signal 是某个交易日产生、次日开盘执行的入场信号。
type signal struct {
	Symbol string
	Score  float64
}
