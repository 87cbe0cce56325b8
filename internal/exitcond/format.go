package exitcond

import (
	"fmt"
	"strings"
)

// Format 把条件渲染为审计日志 / UI 用的短语，是求值器的语义逆过程。
func Format(c Condition) string {
	switch v := c.(type) {
	case PriceCondition:
		return fmt.Sprintf("Price %s $%.2f", levelPhrase(v.Operator), v.Value)
	case IndicatorCondition:
		return fmt.Sprintf("%s %s %s", v.Indicator, levelPhrase(v.Operator), trimFloat(v.Value))
	case TimeCondition:
		unit := "days"
		if v.Metric == MetricHoursHeld {
			unit = "hours"
		}
		return fmt.Sprintf("Held %s %s %s", comparePhrase(v.Operator), trimFloat(v.Value), unit)
	case ProfitCondition:
		if v.Metric == MetricPnLAbs {
			return fmt.Sprintf("P&L %s $%.2f", comparePhrase(v.Operator), v.Value)
		}
		return fmt.Sprintf("Profit %s %s%%", comparePhrase(v.Operator), trimFloat(v.Value))
	case VolumeCondition:
		if v.Metric == MetricVolumeRatio {
			return fmt.Sprintf("Volume ratio %s %sx", comparePhrase(v.Operator), trimFloat(v.Value))
		}
		return fmt.Sprintf("Volume %s %s", comparePhrase(v.Operator), trimFloat(v.Value))
	case AllCondition:
		return "ALL: [" + joinChildren(v.Children) + "]"
	case AnyCondition:
		return "ANY: [" + joinChildren(v.Children) + "]"
	default:
		return "unknown condition"
	}
}

func joinChildren(children []Condition) string {
	parts := make([]string, 0, len(children))
	for _, c := range children {
		parts = append(parts, Format(c))
	}
	return strings.Join(parts, ", ")
}

func levelPhrase(op Operator) string {
	switch op {
	case OpAbove:
		return "above"
	case OpBelow:
		return "below"
	case OpCrossesAbove:
		return "crosses above"
	case OpCrossesBelow:
		return "crosses below"
	default:
		return string(op)
	}
}

func comparePhrase(op Operator) string {
	switch op {
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	case OpGTE:
		return ">="
	case OpLTE:
		return "<="
	case OpEQ:
		return "="
	default:
		return string(op)
	}
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
