package exitcond

// Evaluate 对单个条件做纯函数求值。
// 缺数据（无前值、指标缺失、均量为零）一律判 false：缺数据不触发出场。
func Evaluate(c Condition, ctx Context) bool {
	switch v := c.(type) {
	case PriceCondition:
		return evalLevel(v.Operator, ctx.CurrentPrice, ctx.PreviousPrice, v.Value)
	case IndicatorCondition:
		cur, ok := ctx.Indicators[v.Indicator]
		if !ok {
			return false
		}
		var prev *float64
		if ctx.PrevIndicator != nil {
			if p, ok := ctx.PrevIndicator[v.Indicator]; ok {
				prev = &p
			}
		}
		return evalLevel(v.Operator, cur, prev, v.Value)
	case TimeCondition:
		switch v.Metric {
		case MetricHoursHeld:
			return compare(v.Operator, ctx.HoursHeld, v.Value)
		default:
			return compare(v.Operator, ctx.DaysHeld, v.Value)
		}
	case ProfitCondition:
		switch v.Metric {
		case MetricPnLAbs:
			return compare(v.Operator, ctx.PnLAbs, v.Value)
		default:
			return compare(v.Operator, ctx.PnLPct, v.Value)
		}
	case VolumeCondition:
		switch v.Metric {
		case MetricVolumeRatio:
			if ctx.AvgVolume <= 0 {
				return false
			}
			return compare(v.Operator, ctx.Volume/ctx.AvgVolume, v.Value)
		default:
			return compare(v.Operator, ctx.Volume, v.Value)
		}
	case AllCondition:
		if len(v.Children) == 0 {
			return false
		}
		result := true
		for _, child := range v.Children {
			if !Evaluate(child, ctx) {
				result = false
			}
		}
		return result
	case AnyCondition:
		result := false
		for _, child := range v.Children {
			if Evaluate(child, ctx) {
				result = true
			}
		}
		return result
	default:
		return false
	}
}

// EvaluateAll 求值一组条件，返回是否出场以及触发条件的人读描述。
func EvaluateAll(conds []Condition, ctx Context) EvalResult {
	res := EvalResult{}
	for _, c := range conds {
		if Evaluate(c, ctx) {
			res.ShouldExit = true
			res.Triggered = append(res.Triggered, Format(c))
		}
	}
	return res
}

// evalLevel 处理 above/below 与跨越算子。
// 跨越要求前值存在：前值在阈值一侧、当前值在另一侧才算一次跨越。
func evalLevel(op Operator, current float64, previous *float64, threshold float64) bool {
	switch op {
	case OpAbove:
		return current > threshold
	case OpBelow:
		return current < threshold
	case OpCrossesAbove:
		if previous == nil {
			return false
		}
		return *previous <= threshold && current > threshold
	case OpCrossesBelow:
		if previous == nil {
			return false
		}
		return *previous >= threshold && current < threshold
	default:
		return false
	}
}

func compare(op Operator, left, right float64) bool {
	switch op {
	case OpGT:
		return left > right
	case OpLT:
		return left < right
	case OpGTE:
		return left >= right
	case OpLTE:
		return left <= right
	case OpEQ:
		return left == right
	default:
		return false
	}
}
