package risk

import (
	"fmt"

	"kestrel/internal/config"
)

// Guard 是无状态的风控规则引擎：除连亏统计读一次存储外没有副作用，
// 可被任意数量的决策协程并发调用。
type Guard struct {
	cfg     config.RiskConfig
	history TradeHistory
}

func NewGuard(cfg config.RiskConfig, history TradeHistory) *Guard {
	return &Guard{cfg: cfg, history: history}
}

// ValidateTrade 按固定顺序执行风控规则，第一条不通过的规则决定拒绝原因。
func (g *Guard) ValidateTrade(p TradeProposal, portfolio PortfolioState) ValidationResult {
	// 卖出永远放行：风控限制不能阻止离场。
	if p.Side == SideSell {
		return ValidationResult{Allowed: true}
	}

	if portfolio.OpenPositions >= g.cfg.MaxPositions {
		return reject("Max positions reached (%d/%d)", portfolio.OpenPositions, g.cfg.MaxPositions)
	}

	// 未定股数的提案用声明的仓位比例折算名义金额。
	notional := p.Shares * p.Price
	if notional <= 0 && p.PositionSizePct > 0 {
		notional = p.PositionSizePct * portfolio.TotalValue
	}
	maxSize := g.cfg.MaxPositionSizePct * portfolio.TotalValue
	if notional > maxSize {
		return reject("Position size $%.2f exceeds limit $%.2f (%.0f%% of portfolio)",
			notional, maxSize, g.cfg.MaxPositionSizePct*100)
	}

	// 规模与单笔风险彼此独立：止损宽的交易可以过规模检查但栽在这里。
	tradeRisk := notional * p.StopLossPct
	maxRisk := g.cfg.MaxRiskPerTradePct * portfolio.TotalValue
	if tradeRisk > maxRisk {
		return reject("Trade risk $%.2f exceeds max risk per trade $%.2f (%.1f%% of portfolio)",
			tradeRisk, maxRisk, g.cfg.MaxRiskPerTradePct*100)
	}

	if p.Sector != "" {
		if count, ok := portfolio.SectorCounts[p.Sector]; ok && count >= g.cfg.MaxSectorConcentration {
			return reject("Sector %s already has %d open positions (limit %d)",
				p.Sector, count, g.cfg.MaxSectorConcentration)
		}
		if g.cfg.MaxSectorValuePct > 0 {
			if frac, ok := portfolio.SectorValuePct[p.Sector]; ok && frac > g.cfg.MaxSectorValuePct {
				return reject("Sector %s value exposure %.1f%% exceeds limit %.1f%%",
					p.Sector, frac*100, g.cfg.MaxSectorValuePct*100)
			}
		}
	}

	if notional > portfolio.CashAvailable {
		return reject("Insufficient cash: need $%.2f, available $%.2f", notional, portfolio.CashAvailable)
	}

	return ValidationResult{Allowed: true}
}

// CheckDailyLoss 当日亏损超过限额时返回 true。恰好等于限额不算触发。
func (g *Guard) CheckDailyLoss(portfolio PortfolioState) bool {
	return portfolio.TodayPnLPct < -g.cfg.DailyLossLimitPct
}

// CheckDrawdown 距历史峰值的回撤超过告警线时返回 true。
// 峰值非正视为"不可能有回撤"。
func (g *Guard) CheckDrawdown(portfolio PortfolioState) bool {
	if portfolio.PeakValue <= 0 {
		return false
	}
	drawdown := (portfolio.PeakValue - portfolio.TotalValue) / portfolio.PeakValue
	return drawdown > g.cfg.MaxDrawdownAlertPct
}

func reject(format string, v ...any) ValidationResult {
	return ValidationResult{Allowed: false, Reason: fmt.Sprintf(format, v...)}
}
