package risk

import (
	"context"
	"math"

	"kestrel/internal/logger"
)

// LosingStreakMultiplier 根据最近的连续亏损缩减仓位。
// threshold=3、factor=0.5 时：连亏 3~5 笔 -> 0.5x，6~8 笔 -> 0.25x。
// 存储读取失败一律降级为 1.0：指标故障不能阻断交易路径。
func (g *Guard) LosingStreakMultiplier(ctx context.Context) float64 {
	threshold := g.cfg.StreakReductionThreshold
	factor := g.cfg.StreakReductionFactor
	if threshold <= 0 || factor <= 0 || factor >= 1 {
		return 1.0
	}
	if g.history == nil {
		return 1.0
	}
	lookback := g.cfg.StreakLookback
	if lookback <= 0 {
		lookback = 20
	}
	trades, err := g.history.RecentClosedTrades(ctx, lookback)
	if err != nil {
		logger.Debugf("[risk] 读取已平仓记录失败，仓位系数回退为 1.0: %v", err)
		return 1.0
	}

	streak := 0
	for _, tr := range trades {
		if !isLoss(tr) {
			break
		}
		streak++
	}
	if streak < threshold {
		return 1.0
	}
	return math.Pow(factor, math.Floor(float64(streak)/float64(threshold)))
}

// isLoss 判定单笔是否亏损：优先看 P&L；缺失时比较出入场价；都缺按亏损计。
func isLoss(tr ClosedTrade) bool {
	if tr.PnL != nil {
		return *tr.PnL < 0
	}
	if tr.EntryPrice != nil && tr.ExitPrice != nil {
		return *tr.ExitPrice < *tr.EntryPrice
	}
	return true
}
