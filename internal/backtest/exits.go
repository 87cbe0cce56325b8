package backtest

import (
	"github.com/shopspring/decimal"

	"kestrel/internal/market"
)

// priceAtOrBelow 判断 price <= level，用 decimal 避免边界上的浮点误差。
func priceAtOrBelow(price, level float64) bool {
	return decimal.NewFromFloat(price).Cmp(decimal.NewFromFloat(level)) <= 0
}

// priceAtOrAbove 判断 price >= level。
func priceAtOrAbove(price, level float64) bool {
	return decimal.NewFromFloat(price).Cmp(decimal.NewFromFloat(level)) >= 0
}

// raiseTrailingStop 是移动止损唯一的写入口：
// newStop = max(当前止损, 最高价 * (1 - pct))，只升不降。
func raiseTrailingStop(existing, highWaterMark, pct float64) float64 {
	candidate := highWaterMark * (1 - pct)
	if candidate > existing {
		return candidate
	}
	return existing
}

// checkExit 按固定顺序检查一根日线是否触发平仓，
// 返回触发原因与成交价。顺序：止损、止盈、移动止损、ROI 表。
func (e *Engine) checkExit(pos *Position, candle market.Candle, elapsedMins int64) (ExitReason, float64, bool) {
	if pos.StopPrice > 0 && priceAtOrBelow(candle.Low, pos.StopPrice) {
		return ExitStopLoss, pos.StopPrice, true
	}
	if pos.TakeProfit > 0 && priceAtOrAbove(candle.High, pos.TakeProfit) {
		return ExitTakeProfit, pos.TakeProfit, true
	}
	if e.cfg.TrailingStop {
		if candle.High > pos.HighWaterMark {
			pos.HighWaterMark = candle.High
		}
		pos.TrailingStop = raiseTrailingStop(pos.TrailingStop, pos.HighWaterMark, e.cfg.StopLossPct)
		if pos.TrailingStop > 0 && priceAtOrBelow(candle.Low, pos.TrailingStop) {
			return ExitTrailingStop, pos.TrailingStop, true
		}
	}
	if len(e.roiTable) > 0 && pos.EntryPrice > 0 {
		if required, ok := roiRequirement(e.roiTable, elapsedMins); ok {
			profit := (candle.Close - pos.EntryPrice) / pos.EntryPrice
			if profit >= required {
				return ExitROITable, candle.Close, true
			}
		}
	}
	return "", 0, false
}
