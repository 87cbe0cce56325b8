package config

import "strings"

// Config 是 Kestrel 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	Data       DataConfig       `toml:"data"`
	Risk       RiskConfig       `toml:"risk"`
	Backtest   BacktestConfig   `toml:"backtest"`
	MonteCarlo MonteCarloConfig `toml:"montecarlo"`
	Rules      RulesConfig      `toml:"rules"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 指定历史 K 线与回测结果的落盘位置。
type DataConfig struct {
	CandleRoot string `toml:"candle_root"`
	ResultPath string `toml:"result_path"`
	ReportDir  string `toml:"report_dir"`
}

// RiskConfig 汇总实盘决策的所有风控阈值。
// 百分比字段统一用 0~1 的小数表示。
type RiskConfig struct {
	MaxPositions             int     `toml:"max_positions"`
	MaxPositionSizePct       float64 `toml:"max_position_size_pct"`
	MaxRiskPerTradePct       float64 `toml:"max_risk_per_trade_pct"`
	MaxSectorConcentration   int     `toml:"max_sector_concentration"`
	MaxSectorValuePct        float64 `toml:"max_sector_value_pct"`
	DailyLossLimitPct        float64 `toml:"daily_loss_limit_pct"`
	MaxDrawdownAlertPct      float64 `toml:"max_drawdown_alert_pct"`
	StreakReductionThreshold int     `toml:"streak_reduction_threshold"`
	StreakReductionFactor    float64 `toml:"streak_reduction_factor"`
	StreakLookback           int     `toml:"streak_lookback"`
}

// BacktestConfig 描述一次回测的参数。
type BacktestConfig struct {
	Symbols            []string           `toml:"symbols"`
	StartDate          string             `toml:"start_date"` // YYYY-MM-DD
	EndDate            string             `toml:"end_date"`
	InitialCapital     float64            `toml:"initial_capital"`
	EntryThreshold     float64            `toml:"entry_threshold"` // 归一化分数阈值 0~1
	MaxPositions       int                `toml:"max_positions"`
	MaxPositionSizePct float64            `toml:"max_position_size_pct"`
	StopLossPct        float64            `toml:"stop_loss_pct"`
	TakeProfitPct      float64            `toml:"take_profit_pct"`
	TrailingStop       bool               `toml:"trailing_stop"`
	Commission         float64            `toml:"commission"` // 成交额的佣金比例，双边收取
	ROITable           map[string]float64 `toml:"roi_table"`  // 持仓分钟数 -> 要求的利润比例
}

// MonteCarloConfig 控制蒙特卡洛模拟规模与随机种子。
type MonteCarloConfig struct {
	Simulations    int       `toml:"simulations"`
	Seed           int64     `toml:"seed"` // 0 表示不固定种子
	Percentiles    []float64 `toml:"percentiles"`
	InitialCapital float64   `toml:"initial_capital"`
}

// RulesConfig 指定出场规则文件（自然语言短语，逐行解析）。
type RulesConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

// NormalizedSymbols 返回去重、大写后的回测标的列表。
func (b BacktestConfig) NormalizedSymbols() []string {
	seen := make(map[string]struct{}, len(b.Symbols))
	out := make([]string, 0, len(b.Symbols))
	for _, s := range b.Symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
