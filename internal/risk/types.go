package risk

import "context"

// Side 表示交易方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PortfolioState 是单次决策用的组合快照，由调用方构造并持有，Guard 不修改。
// 百分比字段统一为 0~1 小数。
type PortfolioState struct {
	CashAvailable  float64
	TotalValue     float64
	OpenPositions  int
	TodayPnL       float64
	TodayPnLPct    float64
	SectorCounts   map[string]int
	SectorValuePct map[string]float64
	PeakValue      float64
}

// TradeProposal 描述一笔待审的交易，逐次构造、用后即弃。
type TradeProposal struct {
	Symbol          string
	Side            Side
	Shares          float64
	Price           float64
	StopLossPct     float64
	PositionSizePct float64
	Sector          string
}

// ValidationResult 用值而非异常表达"不允许"。
type ValidationResult struct {
	Allowed bool
	Reason  string
}

// ClosedTrade 是连亏统计需要的最小已平仓记录。
// 指针字段为 nil 表示上游数据缺失。
type ClosedTrade struct {
	PnL        *float64
	EntryPrice *float64
	ExitPrice  *float64
}

// TradeHistory 提供按时间倒序（最近在前）的已平仓记录。
type TradeHistory interface {
	RecentClosedTrades(ctx context.Context, limit int) ([]ClosedTrade, error)
}
