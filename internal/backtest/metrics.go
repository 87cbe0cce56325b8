package backtest

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	riskFreeRate    = 0.02
	tradingDaysYear = 252
	minDailyReturns = 5
)

func computeMetrics(initialCapital float64, trades []Trade, dailyReturns []float64) Metrics {
	m := Metrics{FinalEquity: initialCapital}
	if len(trades) == 0 {
		return m
	}

	var (
		grossWin, grossLoss float64
		sumPnL, sumHold     float64
		pnlPcts             []float64
	)
	m.TotalTrades = len(trades)
	m.BestTradePct = trades[0].PnLPct
	m.WorstTradePct = trades[0].PnLPct
	for _, t := range trades {
		sumPnL += t.PnL
		sumHold += float64(t.HoldMins)
		pnlPcts = append(pnlPcts, t.PnLPct)
		if t.PnL > 0 {
			m.Wins++
			grossWin += t.PnL
		} else {
			m.Losses++
			grossLoss += -t.PnL
		}
		if t.PnLPct > m.BestTradePct {
			m.BestTradePct = t.PnLPct
		}
		if t.PnLPct < m.WorstTradePct {
			m.WorstTradePct = t.PnLPct
		}
	}
	m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	m.TotalPnL = sumPnL
	if initialCapital > 0 {
		m.TotalPnLPct = sumPnL / initialCapital
	}
	m.FinalEquity = initialCapital + sumPnL
	if m.Wins > 0 {
		m.AvgWin = grossWin / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLoss = grossLoss / float64(m.Losses)
	}
	m.Expectancy = sumPnL / float64(m.TotalTrades)
	m.AvgHoldMins = sumHold / float64(m.TotalTrades)
	m.ProfitFactor = profitFactor(grossWin, grossLoss)
	m.MaxDrawdown = tradeDrawdown(initialCapital, trades)
	m.Sharpe = sharpe(dailyReturns)
	m.Sortino = sortino(dailyReturns)
	m.Calmar = calmar(m.TotalPnLPct, m.MaxDrawdown)
	m.SQN = sqn(pnlPcts)
	return m
}

func profitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss > 0 {
		return grossWin / grossLoss
	}
	if grossWin > 0 {
		return math.Inf(1)
	}
	return 0
}

// tradeDrawdown 从逐笔累计盈亏算最大回撤（相对初始资金），
// 不用资金曲线，避免未平仓浮亏干扰。
func tradeDrawdown(initialCapital float64, trades []Trade) float64 {
	if initialCapital <= 0 {
		return 0
	}
	equity := initialCapital
	peak := equity
	maxDD := 0.0
	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
			continue
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// sharpe 用日收益率年化，样本不足 5 个时视为未定义。
func sharpe(dailyReturns []float64) *float64 {
	if len(dailyReturns) < minDailyReturns {
		return nil
	}
	mean := stat.Mean(dailyReturns, nil)
	sd := stat.StdDev(dailyReturns, nil)
	if sd == 0 {
		return nil
	}
	dailyRF := riskFreeRate / tradingDaysYear
	v := (mean - dailyRF) / sd * math.Sqrt(tradingDaysYear)
	return &v
}

func sortino(dailyReturns []float64) *float64 {
	if len(dailyReturns) < minDailyReturns {
		return nil
	}
	mean := stat.Mean(dailyReturns, nil)
	var downSq float64
	downs := 0
	for _, r := range dailyReturns {
		if r < 0 {
			downSq += r * r
			downs++
		}
	}
	if downs == 0 {
		return nil
	}
	downDev := math.Sqrt(downSq / float64(len(dailyReturns)))
	if downDev == 0 {
		return nil
	}
	dailyRF := riskFreeRate / tradingDaysYear
	v := (mean - dailyRF) / downDev * math.Sqrt(tradingDaysYear)
	return &v
}

func calmar(totalReturn, maxDrawdown float64) *float64 {
	if maxDrawdown == 0 {
		return nil
	}
	v := totalReturn / maxDrawdown
	return &v
}

// sqn = sqrt(N) * mean(R) / stddev(R)，R 为逐笔收益率。
func sqn(pnlPcts []float64) *float64 {
	if len(pnlPcts) < 2 {
		return nil
	}
	sd := stat.StdDev(pnlPcts, nil)
	if sd == 0 {
		return nil
	}
	v := math.Sqrt(float64(len(pnlPcts))) * stat.Mean(pnlPcts, nil) / sd
	return &v
}
