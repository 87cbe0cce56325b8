package config

import "strings"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppLogPath  = ""

	defaultDataCandleRoot = "data/candles"
	defaultDataResultPath = "data/results.db"
	defaultDataReportDir  = "reports"

	defaultRiskMaxPositions       = 10
	defaultRiskMaxPositionSize    = 0.15
	defaultRiskMaxRiskPerTrade    = 0.02
	defaultRiskSectorConcurrent   = 3
	defaultRiskDailyLossLimit     = 0.03
	defaultRiskMaxDrawdownAlert   = 0.10
	defaultRiskStreakThreshold    = 3
	defaultRiskStreakFactor       = 0.5
	defaultRiskStreakLookback     = 20

	defaultBacktestCapital       = 100000
	defaultBacktestThreshold     = 0.7
	defaultBacktestMaxPositions  = 5
	defaultBacktestPositionSize  = 0.2
	defaultBacktestStopLoss      = 0.05

	defaultMonteCarloSimulations = 10000
)

func defaultPercentiles() []float64 {
	return []float64{0.05, 0.25, 0.5, 0.75, 0.95}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Data.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.MonteCarlo.applyDefaults(keys)
	c.Rules.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (d *DataConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data.candle_root", &d.CandleRoot, defaultDataCandleRoot),
		stringFieldDefault("data.result_path", &d.ResultPath, defaultDataResultPath),
		stringFieldDefault("data.report_dir", &d.ReportDir, defaultDataReportDir),
	)
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.max_positions",
			need:  func() bool { return r.MaxPositions <= 0 },
			apply: func() { r.MaxPositions = defaultRiskMaxPositions },
		},
		fieldDefault{
			key:   "risk.max_position_size_pct",
			need:  func() bool { return r.MaxPositionSizePct <= 0 || r.MaxPositionSizePct > 1 },
			apply: func() { r.MaxPositionSizePct = defaultRiskMaxPositionSize },
		},
		fieldDefault{
			key:   "risk.max_risk_per_trade_pct",
			need:  func() bool { return r.MaxRiskPerTradePct <= 0 || r.MaxRiskPerTradePct > 1 },
			apply: func() { r.MaxRiskPerTradePct = defaultRiskMaxRiskPerTrade },
		},
		fieldDefault{
			key:   "risk.max_sector_concentration",
			need:  func() bool { return r.MaxSectorConcentration <= 0 },
			apply: func() { r.MaxSectorConcentration = defaultRiskSectorConcurrent },
		},
		fieldDefault{
			key:   "risk.daily_loss_limit_pct",
			need:  func() bool { return r.DailyLossLimitPct <= 0 },
			apply: func() { r.DailyLossLimitPct = defaultRiskDailyLossLimit },
		},
		fieldDefault{
			key:   "risk.max_drawdown_alert_pct",
			need:  func() bool { return r.MaxDrawdownAlertPct <= 0 },
			apply: func() { r.MaxDrawdownAlertPct = defaultRiskMaxDrawdownAlert },
		},
		fieldDefault{
			key:   "risk.streak_reduction_threshold",
			need:  func() bool { return r.StreakReductionThreshold < 0 },
			apply: func() { r.StreakReductionThreshold = defaultRiskStreakThreshold },
		},
		fieldDefault{
			key:   "risk.streak_reduction_factor",
			need:  func() bool { return r.StreakReductionFactor < 0 || r.StreakReductionFactor > 1 },
			apply: func() { r.StreakReductionFactor = defaultRiskStreakFactor },
		},
		fieldDefault{
			key:   "risk.streak_lookback",
			need:  func() bool { return r.StreakLookback <= 0 },
			apply: func() { r.StreakLookback = defaultRiskStreakLookback },
		},
	)
	// max_sector_value_pct 为 0 表示不启用该限制，不补默认值。
	if r.MaxSectorValuePct < 0 {
		r.MaxSectorValuePct = 0
	}
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "backtest.initial_capital",
			need:  func() bool { return b.InitialCapital <= 0 },
			apply: func() { b.InitialCapital = defaultBacktestCapital },
		},
		fieldDefault{
			key:   "backtest.entry_threshold",
			need:  func() bool { return b.EntryThreshold <= 0 || b.EntryThreshold > 1 },
			apply: func() { b.EntryThreshold = defaultBacktestThreshold },
		},
		fieldDefault{
			key:   "backtest.max_positions",
			need:  func() bool { return b.MaxPositions <= 0 },
			apply: func() { b.MaxPositions = defaultBacktestMaxPositions },
		},
		fieldDefault{
			key:   "backtest.max_position_size_pct",
			need:  func() bool { return b.MaxPositionSizePct <= 0 || b.MaxPositionSizePct > 1 },
			apply: func() { b.MaxPositionSizePct = defaultBacktestPositionSize },
		},
		fieldDefault{
			key:   "backtest.stop_loss_pct",
			need:  func() bool { return b.StopLossPct <= 0 || b.StopLossPct >= 1 },
			apply: func() { b.StopLossPct = defaultBacktestStopLoss },
		},
	)
	if b.TakeProfitPct < 0 {
		b.TakeProfitPct = 0
	}
	if b.Commission < 0 {
		b.Commission = 0
	}
}

func (m *MonteCarloConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "montecarlo.simulations",
			need:  func() bool { return m.Simulations <= 0 },
			apply: func() { m.Simulations = defaultMonteCarloSimulations },
		},
	)
	if len(m.Percentiles) == 0 {
		m.Percentiles = defaultPercentiles()
	}
	if m.InitialCapital < 0 {
		m.InitialCapital = 0
	}
}

func (r *RulesConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("rules.path", &r.Path, ""),
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
