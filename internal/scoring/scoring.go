package scoring

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"kestrel/internal/market"
)

// 综合打分所需的最少历史长度，受制于最慢的指标（EMA 50）。
const minHistory = 60

// TalibScorer 把 RSI、EMA 趋势和 MACD 动能合成一个 [0,100] 的入场分。
// 各分项权重固定，历史不足时直接报错，由调用方决定跳过。
type TalibScorer struct {
	RSIPeriod int
	EMAFast   int
	EMASlow   int
}

func NewTalibScorer() *TalibScorer {
	return &TalibScorer{RSIPeriod: 14, EMAFast: 20, EMASlow: 50}
}

func (s *TalibScorer) Score(candles []market.Candle) (float64, error) {
	if len(candles) < minHistory {
		return 0, fmt.Errorf("历史数据不足: %d < %d", len(candles), minHistory)
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	score := s.rsiScore(closes)*0.35 + s.trendScore(closes)*0.40 + s.momentumScore(closes)*0.25
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

// rsiScore 偏好中低位 RSI：超卖接近满分，超买趋零。
func (s *TalibScorer) rsiScore(closes []float64) float64 {
	series := talib.Rsi(closes, s.RSIPeriod)
	rsi := last(series)
	switch {
	case rsi <= 0:
		return 50
	case rsi < 30:
		return 100
	case rsi > 70:
		return 0
	default:
		// 30~70 线性衰减
		return 100 * (70 - rsi) / 40
	}
}

// trendScore 看收盘价相对快慢 EMA 的位置。
func (s *TalibScorer) trendScore(closes []float64) float64 {
	fast := last(talib.Ema(closes, s.EMAFast))
	slow := last(talib.Ema(closes, s.EMASlow))
	price := closes[len(closes)-1]
	if fast <= 0 || slow <= 0 {
		return 50
	}
	score := 0.0
	if price > fast {
		score += 40
	}
	if price > slow {
		score += 30
	}
	if fast > slow {
		score += 30
	}
	return score
}

// momentumScore 用 MACD 柱判断动能方向与强度。
func (s *TalibScorer) momentumScore(closes []float64) float64 {
	_, _, hist := talib.Macd(closes, 12, 26, 9)
	h := last(hist)
	price := closes[len(closes)-1]
	if price <= 0 {
		return 50
	}
	// 柱值归一到价格的 ±1% 区间
	norm := h / (price * 0.01)
	if norm > 1 {
		norm = 1
	}
	if norm < -1 {
		norm = -1
	}
	return 50 + norm*50
}

func last(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i] != 0 {
			return series[i]
		}
	}
	return 0
}
