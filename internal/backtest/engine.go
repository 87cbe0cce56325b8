package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"kestrel/internal/config"
	"kestrel/internal/logger"
	"kestrel/internal/market"
)

// Scorer 对一段日线历史打分，范围 [0,100]。
// 由组装层注入，引擎不依赖任何指标库。
type Scorer interface {
	Score(candles []market.Candle) (float64, error)
}

// Engine 在公共交易日序列上做严格单线程推演。
// 日内顺序固定：先平仓，再执行前一日信号，再产生新信号，最后记资金曲线。
type Engine struct {
	cfg      config.BacktestConfig
	scorer   Scorer
	roiTable map[int]float64
}

func NewEngine(cfg config.BacktestConfig, scorer Scorer) (*Engine, error) {
	if scorer == nil {
		return nil, fmt.Errorf("scorer 不能为空")
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("initial capital 需 > 0")
	}
	return &Engine{cfg: cfg, scorer: scorer, roiTable: cfg.ROIMinutes()}, nil
}

type runState struct {
	cash      float64
	positions map[string]*Position
	trades    []Trade
	curve     []EquityPoint
	pending   []signal
}

// Run 在 data 的公共交易日上推演。data 由加载器预先备齐，
// 引擎本身不做任何 I/O。
func (e *Engine) Run(ctx context.Context, data map[string][]market.Candle) (*Result, error) {
	dates := market.CommonDates(data)
	if len(dates) == 0 {
		return nil, fmt.Errorf("没有公共交易日")
	}
	symbols := make([]string, 0, len(data))
	for s := range data {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	// 每个 symbol 一个游标，history = 截至当日（含）的全部日线
	cursors := make(map[string]int, len(symbols))
	byDate := make(map[string]map[int64]market.Candle, len(symbols))
	for s, candles := range data {
		byDate[s] = market.IndexByDate(candles)
	}

	state := &runState{
		cash:      e.cfg.InitialCapital,
		positions: make(map[string]*Position),
	}
	startedAt := time.Now()

	for _, date := range dates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		today := make(map[string]market.Candle, len(symbols))
		for _, s := range symbols {
			candle := byDate[s][date]
			today[s] = candle
			for cursors[s] < len(data[s]) && data[s][cursors[s]].Date <= date {
				cursors[s]++
			}
		}

		e.processExits(state, today, date, symbols)
		e.executePending(state, today, date)
		e.generateSignals(state, data, cursors, symbols)

		equity := markToMarket(state, today)
		state.curve = append(state.curve, EquityPoint{Date: date, Equity: equity})
	}

	// 数据走完后强制平掉剩余仓位
	lastDate := dates[len(dates)-1]
	for _, s := range symbols {
		pos, ok := state.positions[s]
		if !ok {
			continue
		}
		e.closePosition(state, pos, byDate[s][lastDate].Close, lastDate, ExitEndOfData)
	}
	if len(state.curve) > 0 {
		state.curve[len(state.curve)-1].Equity = state.cash
	}

	dailyReturns := curveReturns(state.curve)
	result := &Result{
		Config:       e.cfg,
		Trades:       state.trades,
		Metrics:      computeMetrics(e.cfg.InitialCapital, state.trades, dailyReturns),
		EquityCurve:  state.curve,
		DailyReturns: dailyReturns,
		StartedAt:    startedAt,
		FinishedAt:   time.Now(),
	}
	logger.Infof("回测完成: %d 个交易日, %d 笔交易, 最终权益 %.2f",
		len(dates), len(state.trades), result.Metrics.FinalEquity)
	return result, nil
}

// processExits 对每个在场仓位按固定顺序检查平仓条件，先于一切开仓动作。
func (e *Engine) processExits(state *runState, today map[string]market.Candle, date int64, symbols []string) {
	for _, s := range symbols {
		pos, ok := state.positions[s]
		if !ok {
			continue
		}
		elapsedMins := (date - pos.EntryDate) / 60000
		reason, price, ok := e.checkExit(pos, today[s], elapsedMins)
		if !ok {
			continue
		}
		e.closePosition(state, pos, price, date, reason)
	}
}

// executePending 在当日开盘执行前一交易日产生的信号，避免前视偏差。
func (e *Engine) executePending(state *runState, today map[string]market.Candle, date int64) {
	pending := state.pending
	state.pending = nil
	for _, sig := range pending {
		if len(state.positions) >= e.cfg.MaxPositions {
			return
		}
		if _, open := state.positions[sig.Symbol]; open {
			continue
		}
		candle, ok := today[sig.Symbol]
		if !ok {
			continue
		}
		e.openPosition(state, sig, candle.Open, date, today)
	}
}

func (e *Engine) openPosition(state *runState, sig signal, price float64, date int64, today map[string]market.Candle) {
	if price <= 0 {
		return
	}
	equity := state.cash
	for s, pos := range state.positions {
		equity += float64(pos.Shares) * today[s].Open
	}
	size := e.cfg.MaxPositionSizePct * equity
	if size > state.cash {
		size = state.cash
	}
	shares := int(math.Floor(size / price))
	if shares <= 0 {
		return
	}
	cost := float64(shares) * price
	fee := cost * e.cfg.Commission
	if cost+fee > state.cash {
		return
	}
	state.cash -= cost + fee

	pos := &Position{
		Symbol:        sig.Symbol,
		Shares:        shares,
		EntryPrice:    price,
		EntryDate:     date,
		StopPrice:     price * (1 - e.cfg.StopLossPct),
		HighWaterMark: price,
		Score:         sig.Score,
		EntryFee:      fee,
	}
	if e.cfg.TrailingStop {
		pos.TrailingStop = pos.StopPrice
	}
	if e.cfg.TakeProfitPct > 0 {
		pos.TakeProfit = price * (1 + e.cfg.TakeProfitPct)
	}
	state.positions[sig.Symbol] = pos
}

func (e *Engine) closePosition(state *runState, pos *Position, price float64, date int64, reason ExitReason) {
	proceeds := float64(pos.Shares) * price
	fee := proceeds * e.cfg.Commission
	state.cash += proceeds - fee

	entryCost := float64(pos.Shares) * pos.EntryPrice
	pnl := proceeds - entryCost - pos.EntryFee - fee
	pnlPct := 0.0
	if entryCost > 0 {
		pnlPct = pnl / entryCost
	}
	state.trades = append(state.trades, Trade{
		Symbol:     pos.Symbol,
		Shares:     pos.Shares,
		EntryDate:  pos.EntryDate,
		ExitDate:   date,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Reason:     reason,
		HoldMins:   (date - pos.EntryDate) / 60000,
		Score:      pos.Score,
	})
	delete(state.positions, pos.Symbol)
}

// generateSignals 为无仓位的 symbol 打分并按分数从高到低排队，次日开盘执行。
// 打分失败只影响该 symbol 当日的信号，不中断整轮回测。
func (e *Engine) generateSignals(state *runState, data map[string][]market.Candle, cursors map[string]int, symbols []string) {
	if len(state.positions) >= e.cfg.MaxPositions {
		return
	}
	var signals []signal
	for _, s := range symbols {
		if _, open := state.positions[s]; open {
			continue
		}
		history := data[s][:cursors[s]]
		score, err := e.scoreSymbol(s, history)
		if err != nil {
			logger.Warnf("打分 %s 失败: %v", s, err)
			continue
		}
		if score/100 >= e.cfg.EntryThreshold {
			signals = append(signals, signal{Symbol: s, Score: score})
		}
	}
	sort.Slice(signals, func(i, j int) bool { return signals[i].Score > signals[j].Score })
	state.pending = signals
}

func (e *Engine) scoreSymbol(symbol string, history []market.Candle) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scorer panic: %v", r)
		}
	}()
	score, err = e.scorer.Score(history)
	if err != nil {
		return 0, err
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("%s 分数越界: %.2f", symbol, score)
	}
	return score, nil
}

func markToMarket(state *runState, today map[string]market.Candle) float64 {
	equity := state.cash
	for s, pos := range state.positions {
		equity += float64(pos.Shares) * today[s].Close
	}
	return equity
}

func curveReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].Equity/prev-1)
	}
	return out
}
