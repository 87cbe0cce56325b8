package exitcond

import (
	"regexp"
	"strconv"
	"strings"
)

// Parse 把自然语言风格的出场描述解析为条件列表。
// 尽力而为：解析不出的文本返回空列表，调用方把"无条件"当作"永不触发"。
func Parse(text string) []Condition {
	var out []Condition
	for _, line := range splitStatements(text) {
		if c, ok := parseBoolean(line); ok {
			out = append(out, c)
		}
	}
	return out
}

func splitStatements(text string) []string {
	var out []string
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ';'
	})
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseBoolean 先按顶层 " and " / " or " 拆分，再解析单个子句。
func parseBoolean(text string) (Condition, bool) {
	lower := strings.ToLower(text)
	if parts := splitOn(lower, " and "); len(parts) > 1 {
		children := parseClauses(parts)
		if len(children) == 0 {
			return nil, false
		}
		if len(children) == 1 {
			return children[0], true
		}
		return AllCondition{Children: children}, true
	}
	if parts := splitOn(lower, " or "); len(parts) > 1 {
		children := parseClauses(parts)
		if len(children) == 0 {
			return nil, false
		}
		if len(children) == 1 {
			return children[0], true
		}
		return AnyCondition{Children: children}, true
	}
	return parseClause(lower)
}

func parseClauses(parts []string) []Condition {
	var out []Condition
	for _, p := range parts {
		if c, ok := parseBoolean(p); ok {
			out = append(out, c)
		}
	}
	return out
}

func splitOn(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	rePriceLevel = regexp.MustCompile(`^(?:price|close)\s+(above|below|crosses\s+above|crosses\s+below)\s+\$?(-?\d+(?:\.\d+)?)\s*$`)
	reStopAt     = regexp.MustCompile(`^stop(?:[\s-]?loss)?\s+(?:at|below)\s+\$?(-?\d+(?:\.\d+)?)\s*$`)
	reProfit     = regexp.MustCompile(`^(profit|loss|p&l|pnl|gain)\s*(>=|<=|>|<|=|above|below|over|under|at least|at most|exceeds|reaches)\s*\$?(-?\d+(?:\.\d+)?)\s*(%)?\s*$`)
	reHeldFor    = regexp.MustCompile(`^(?:held|hold|holding)\s+(?:for\s+)?(?:(more than|over|at least|less than|under)\s+)?(-?\d+(?:\.\d+)?)\s+(day|days|hour|hours)\s*$`)
	reHeldComp   = regexp.MustCompile(`^(days|hours)\s+held\s*(>=|<=|>|<|=)\s*(-?\d+(?:\.\d+)?)\s*$`)
	reCloseVs    = regexp.MustCompile(`^(?:close|price)\s+(above|below)\s+(?:the\s+)?([a-z0-9][a-z0-9\s-]*[a-z0-9])\s*$`)
	reVolRatio   = regexp.MustCompile(`^volume\s+(?:ratio\s*)?(>=|<=|>|<|=|above|below|over|exceeds)\s*(-?\d+(?:\.\d+)?)\s*x(?:\s+average)?\s*$`)
	reVolAbs     = regexp.MustCompile(`^volume\s+(>=|<=|>|<|=|above|below|over|exceeds)\s*(-?\d+(?:\.\d+)?)\s*$`)
	reIndicator  = regexp.MustCompile(`^([a-z][a-z0-9\s-]*?)\s+(above|below|crosses\s+above|crosses\s+below|>=|<=|>|<|=)\s*(-?\d+(?:\.\d+)?)\s*%?\s*$`)
)

// parseClause 按固定优先级匹配单个子句。
func parseClause(text string) (Condition, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	// 1. 显式止损 / 价格水平
	if m := rePriceLevel.FindStringSubmatch(text); m != nil {
		op := levelOperator(m[1])
		val, err := strconv.ParseFloat(m[2], 64)
		if err == nil {
			return PriceCondition{Operator: op, Value: val}, true
		}
	}
	if m := reStopAt.FindStringSubmatch(text); m != nil {
		val, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return PriceCondition{Operator: OpBelow, Value: val}, true
		}
	}

	// 2. 盈亏
	if m := reProfit.FindStringSubmatch(text); m != nil {
		val, err := strconv.ParseFloat(m[3], 64)
		if err == nil {
			op := compareOperator(m[2])
			metric := MetricPnLPct
			if m[4] == "" && strings.Contains(text, "$") {
				metric = MetricPnLAbs
			}
			if m[1] == "loss" {
				// "loss > 5%" 表示亏损超过 5%，即 pnl < -5。
				val = -val
				op = invertComparison(op)
			}
			return ProfitCondition{Metric: metric, Operator: op, Value: val}, true
		}
	}

	// 3. 持仓时长短语
	if m := reHeldFor.FindStringSubmatch(text); m != nil {
		val, err := strconv.ParseFloat(m[2], 64)
		if err == nil {
			op := OpGTE
			switch m[1] {
			case "more than", "over":
				op = OpGT
			case "less than", "under":
				op = OpLT
			}
			metric := MetricDaysHeld
			if strings.HasPrefix(m[3], "hour") {
				metric = MetricHoursHeld
			}
			return TimeCondition{Metric: metric, Operator: op, Value: val}, true
		}
	}

	// 4. days held / hours held 比较式
	if m := reHeldComp.FindStringSubmatch(text); m != nil {
		val, err := strconv.ParseFloat(m[3], 64)
		if err == nil {
			metric := MetricDaysHeld
			if m[1] == "hours" {
				metric = MetricHoursHeld
			}
			return TimeCondition{Metric: metric, Operator: compareOperator(m[2]), Value: val}, true
		}
	}

	// 5. close above/below <指标别名>：转成 close/indicator 比值条件
	if m := reCloseVs.FindStringSubmatch(text); m != nil {
		if alias, ok := resolveIndicator(m[2]); ok {
			op := OpAbove
			val := 1.0
			if m[1] == "below" {
				op = OpBelow
			}
			return IndicatorCondition{Indicator: "CLOSE_OVER_" + alias, Operator: op, Value: val}, true
		}
	}

	// 6. 成交量
	if m := reVolRatio.FindStringSubmatch(text); m != nil {
		val, err := strconv.ParseFloat(m[2], 64)
		if err == nil {
			return VolumeCondition{Metric: MetricVolumeRatio, Operator: compareOperator(m[1]), Value: val}, true
		}
	}
	if m := reVolAbs.FindStringSubmatch(text); m != nil {
		val, err := strconv.ParseFloat(m[2], 64)
		if err == nil {
			return VolumeCondition{Metric: MetricVolume, Operator: compareOperator(m[1]), Value: val}, true
		}
	}

	// 7. 兜底：<指标> above|below <数字>
	if m := reIndicator.FindStringSubmatch(text); m != nil {
		if alias, ok := resolveIndicator(m[1]); ok {
			val, err := strconv.ParseFloat(m[3], 64)
			if err == nil {
				op := m[2]
				if lv := levelOperator(op); validLevelOp(lv) {
					return IndicatorCondition{Indicator: alias, Operator: lv, Value: val}, true
				}
				// 比较符写法统一折算成 above/below
				switch compareOperator(op) {
				case OpGT, OpGTE:
					return IndicatorCondition{Indicator: alias, Operator: OpAbove, Value: val}, true
				case OpLT, OpLTE:
					return IndicatorCondition{Indicator: alias, Operator: OpBelow, Value: val}, true
				}
			}
		}
	}

	return nil, false
}

func levelOperator(s string) Operator {
	switch normalizeSpace(s) {
	case "above":
		return OpAbove
	case "below":
		return OpBelow
	case "crosses above":
		return OpCrossesAbove
	case "crosses below":
		return OpCrossesBelow
	}
	return Operator(s)
}

func compareOperator(s string) Operator {
	switch normalizeSpace(s) {
	case ">", "above", "over", "exceeds", "reaches":
		return OpGT
	case "<", "below", "under":
		return OpLT
	case ">=", "at least":
		return OpGTE
	case "<=", "at most":
		return OpLTE
	case "=":
		return OpEQ
	}
	return OpGT
}

func invertComparison(op Operator) Operator {
	switch op {
	case OpGT:
		return OpLT
	case OpGTE:
		return OpLTE
	case OpLT:
		return OpGT
	case OpLTE:
		return OpGTE
	}
	return op
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// indicatorAliases 表为常见写法归一：key 为去掉空格/连字符的小写形式。
var indicatorAliases = map[string]string{
	"rsi":    "RSI",
	"rsi14":  "RSI",
	"14rsi":  "RSI",
	"macd":   "MACD",
	"adx":    "ADX",
	"atr":    "ATR",
	"obv":    "OBV",
	"vwap":   "VWAP",
	"stoch":  "STOCH",
	"sma20":  "SMA20",
	"20sma":  "SMA20",
	"sma50":  "SMA50",
	"50sma":  "SMA50",
	"sma100": "SMA100",
	"100sma": "SMA100",
	"sma200": "SMA200",
	"200sma": "SMA200",
	"ema9":   "EMA9",
	"9ema":   "EMA9",
	"ema20":  "EMA20",
	"20ema":  "EMA20",
	"ema50":  "EMA50",
	"50ema":  "EMA50",
}

var reIndicatorToken = regexp.MustCompile(`^[a-z]{2,10}\d{0,3}$`)

// resolveIndicator 大小写无关地解析指标别名（"50-sma"、"sma-50"、"sma50" 同义）。
func resolveIndicator(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	if key == "" {
		return "", false
	}
	if canon, ok := indicatorAliases[key]; ok {
		return canon, true
	}
	// 未知但形如指标名的 token 原样大写返回，交给上下文决定是否存在。
	if reIndicatorToken.MatchString(key) {
		return strings.ToUpper(key), true
	}
	return "", false
}
