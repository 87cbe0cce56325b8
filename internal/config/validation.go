package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.MonteCarlo.validate(); err != nil {
		return err
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxPositionSizePct <= 0 || r.MaxPositionSizePct > 1 {
		return fmt.Errorf("risk.max_position_size_pct must be in (0,1]")
	}
	if r.MaxRiskPerTradePct <= 0 || r.MaxRiskPerTradePct > 1 {
		return fmt.Errorf("risk.max_risk_per_trade_pct must be in (0,1]")
	}
	if r.MaxSectorValuePct < 0 || r.MaxSectorValuePct > 1 {
		return fmt.Errorf("risk.max_sector_value_pct must be in [0,1]")
	}
	if r.StreakReductionFactor < 0 || r.StreakReductionFactor > 1 {
		return fmt.Errorf("risk.streak_reduction_factor must be in [0,1]")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if len(b.NormalizedSymbols()) == 0 {
		return fmt.Errorf("backtest.symbols requires at least one symbol")
	}
	for _, field := range []struct {
		key, val string
	}{
		{"backtest.start_date", b.StartDate},
		{"backtest.end_date", b.EndDate},
	} {
		if strings.TrimSpace(field.val) == "" {
			return fmt.Errorf("%s is required", field.key)
		}
		if _, err := time.Parse("2006-01-02", field.val); err != nil {
			return fmt.Errorf("%s must be YYYY-MM-DD: %w", field.key, err)
		}
	}
	for k := range b.ROITable {
		if _, err := strconv.Atoi(k); err != nil {
			return fmt.Errorf("backtest.roi_table keys must be whole minutes (got %q)", k)
		}
	}
	return nil
}

func (m *MonteCarloConfig) validate() error {
	for _, p := range m.Percentiles {
		if p < 0 || p > 1 {
			return fmt.Errorf("montecarlo.percentiles entries must be in [0,1]")
		}
	}
	return nil
}

// DateRange 解析回测起止日期（UTC）。
func (b BacktestConfig) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.start_date 无效: %w", err)
	}
	end, err := time.Parse("2006-01-02", b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end_date 无效: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.end_date 必须晚于 start_date")
	}
	return start.UTC(), end.UTC(), nil
}

// ROIMinutes 把 roi_table 的字符串键转换成按分钟数排序用的整数映射。
func (b BacktestConfig) ROIMinutes() map[int]float64 {
	if len(b.ROITable) == 0 {
		return nil
	}
	out := make(map[int]float64, len(b.ROITable))
	for k, v := range b.ROITable {
		minutes, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || minutes < 0 {
			continue
		}
		out[minutes] = v
	}
	return out
}
