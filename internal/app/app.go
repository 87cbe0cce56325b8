package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kestrel/internal/backtest"
	"kestrel/internal/config"
	"kestrel/internal/config/loader"
	"kestrel/internal/exitcond"
	"kestrel/internal/logger"
	"kestrel/internal/market"
	"kestrel/internal/montecarlo"
	"kestrel/internal/report"
	"kestrel/internal/risk"
	"kestrel/internal/scoring"
)

// App 负责应用级编排：加载数据→回测→蒙特卡洛→报告落盘。
type App struct {
	cfg     *config.Config
	candles *market.Store
	results *backtest.ResultStore
	rules   *loader.RulesLoader
	guard   *risk.Guard
	engine  *backtest.Engine
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	candles, err := market.NewStore(cfg.Data.CandleRoot)
	if err != nil {
		return nil, fmt.Errorf("初始化行情库失败: %w", err)
	}
	results, err := backtest.NewResultStore(cfg.Data.ResultPath)
	if err != nil {
		candles.Close()
		return nil, fmt.Errorf("初始化结果库失败: %w", err)
	}
	engine, err := backtest.NewEngine(cfg.Backtest, scoring.NewTalibScorer())
	if err != nil {
		candles.Close()
		results.Close()
		return nil, err
	}

	var rules *loader.RulesLoader
	if cfg.Rules.Path != "" {
		rules, err = loader.NewRulesLoader(cfg.Rules.Path, cfg.Rules.Watch)
		if err != nil {
			candles.Close()
			results.Close()
			return nil, fmt.Errorf("加载出场规则失败: %w", err)
		}
		rules.Subscribe(func(snap loader.RulesSnapshot) {
			for name, p := range snap.Profiles {
				for _, c := range p.Conditions() {
					logger.Debugf("出场规则 [%s] %s", name, exitcond.Format(c))
				}
			}
		})
	}

	return &App{
		cfg:     cfg,
		candles: candles,
		results: results,
		rules:   rules,
		guard:   risk.NewGuard(cfg.Risk, results),
		engine:  engine,
	}, nil
}

func (a *App) Close() {
	if a.rules != nil {
		a.rules.Close()
	}
	if a.results != nil {
		a.results.Close()
	}
	if a.candles != nil {
		a.candles.Close()
	}
}

// Guard 暴露风控闸门，供外部执行层复用同一份历史读取器。
func (a *App) Guard() *risk.Guard { return a.guard }

// ExitSignals 用当前规则快照求值指定 profile 的持仓出场条件。
// 未配置规则文件或 profile 不存在时 ok 为 false。
func (a *App) ExitSignals(profile string, ctx exitcond.Context) (exitcond.EvalResult, bool) {
	if a.rules == nil {
		return exitcond.EvalResult{}, false
	}
	p, ok := a.rules.Profile(profile)
	if !ok {
		return exitcond.EvalResult{}, false
	}
	return exitcond.EvaluateAll(p.Conditions(), ctx), true
}

// Run 执行一次完整的回测流水线。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	bt := a.cfg.Backtest
	start, end, err := bt.DateRange()
	if err != nil {
		return err
	}
	symbols := bt.NormalizedSymbols()
	if len(symbols) == 0 {
		return fmt.Errorf("backtest.symbols 不能为空")
	}

	runID := uuid.NewString()
	logger.Infof("开始回测 %s: %v (%s ~ %s)", runID, symbols, bt.StartDate, bt.EndDate)

	data, err := market.NewLoader(a.candles).LoadMultiple(ctx, symbols, start, end)
	if err != nil {
		return err
	}

	result, err := a.engine.Run(ctx, data)
	if err != nil {
		return err
	}
	if err := a.results.InsertRun(ctx, runID, result); err != nil {
		return err
	}
	if err := a.results.SaveResult(ctx, runID, result); err != nil {
		return err
	}

	mc := a.runMonteCarlo(result)
	if mc != nil {
		logger.InfoBlock(montecarlo.TextReport(mc))
	} else {
		logger.Warnf("交易数不足，跳过蒙特卡洛模拟")
	}

	reportPath := filepath.Join(a.cfg.Data.ReportDir,
		fmt.Sprintf("backtest_%s.html", time.Now().Format("20060102_150405")))
	if err := report.WriteHTML(reportPath, result, mc); err != nil {
		logger.Errorf("写报告失败: %v", err)
	} else {
		logger.Infof("报告已写入 %s", reportPath)
	}

	a.logSummary(result)
	return nil
}

func (a *App) runMonteCarlo(result *backtest.Result) *montecarlo.Result {
	trades := make([]montecarlo.Trade, 0, len(result.Trades))
	for i := range result.Trades {
		trades = append(trades, montecarlo.Trade{PnLPct: &result.Trades[i].PnLPct})
	}
	mcCfg := montecarlo.Config{
		Simulations: a.cfg.MonteCarlo.Simulations,
		Seed:        a.cfg.MonteCarlo.Seed,
		Percentiles: a.cfg.MonteCarlo.Percentiles,
	}
	if capital := a.cfg.MonteCarlo.InitialCapital; capital > 0 {
		return montecarlo.SimulateWithSizing(trades, capital, mcCfg)
	}
	return montecarlo.Simulate(trades, mcCfg)
}

func (a *App) logSummary(result *backtest.Result) {
	m := result.Metrics
	logger.Infof("交易 %d 笔, 胜率 %.1f%%, 总盈亏 %.2f (%.2f%%), 最大回撤 %.2f%%",
		m.TotalTrades, m.WinRate*100, m.TotalPnL, m.TotalPnLPct*100, m.MaxDrawdown*100)
	if m.Sharpe != nil {
		logger.Infof("Sharpe %.2f", *m.Sharpe)
	}
	if m.ProfitFactor > 0 {
		logger.Infof("盈亏比 %.2f, 期望 %.2f/笔", m.ProfitFactor, m.Expectancy)
	}
}
