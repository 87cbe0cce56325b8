package exitcond

import "fmt"

// Operator 表示条件比较算子。
// price/indicator 使用 above/below/crosses_above/crosses_below，
// time/profit/volume 使用 gt/lt/gte/lte/eq。
type Operator string

const (
	OpAbove        Operator = "above"
	OpBelow        Operator = "below"
	OpCrossesAbove Operator = "crosses_above"
	OpCrossesBelow Operator = "crosses_below"

	OpGT  Operator = "gt"
	OpLT  Operator = "lt"
	OpGTE Operator = "gte"
	OpLTE Operator = "lte"
	OpEQ  Operator = "eq"
)

// Metric 标识 time/profit/volume 叶子条件比较的量。
type Metric string

const (
	MetricDaysHeld    Metric = "days_held"
	MetricHoursHeld   Metric = "hours_held"
	MetricPnLPct      Metric = "pnl_pct"
	MetricPnLAbs      Metric = "pnl_abs"
	MetricVolume      Metric = "volume"
	MetricVolumeRatio Metric = "volume_ratio"
)

// Condition 是出场条件树的封闭和类型。
// 新增叶子种类时扩展新的实现类型，而不是往单个结构体加布尔开关。
type Condition interface {
	// Kind 返回 JSON tag（price/indicator/time/profit/volume/all/any）。
	Kind() string
}

// PriceCondition 将当前价格与阈值比较。
type PriceCondition struct {
	Operator Operator
	Value    float64
}

func (PriceCondition) Kind() string { return "price" }

// IndicatorCondition 将上下文中的命名指标值与阈值比较。
// 指标缺失时条件求值为 false。
type IndicatorCondition struct {
	Indicator string
	Operator  Operator
	Value     float64
}

func (IndicatorCondition) Kind() string { return "indicator" }

// TimeCondition 比较持仓时长（天或小时）。
type TimeCondition struct {
	Metric   Metric // days_held | hours_held
	Operator Operator
	Value    float64
}

func (TimeCondition) Kind() string { return "time" }

// ProfitCondition 比较盈亏（百分比或绝对额）。
type ProfitCondition struct {
	Metric   Metric // pnl_pct | pnl_abs
	Operator Operator
	Value    float64
}

func (ProfitCondition) Kind() string { return "profit" }

// VolumeCondition 比较成交量或量比。
type VolumeCondition struct {
	Metric   Metric // volume | volume_ratio
	Operator Operator
	Value    float64
}

func (VolumeCondition) Kind() string { return "volume" }

// AllCondition 要求全部子条件成立。
type AllCondition struct {
	Children []Condition
}

func (AllCondition) Kind() string { return "all" }

// AnyCondition 要求至少一个子条件成立。
type AnyCondition struct {
	Children []Condition
}

func (AnyCondition) Kind() string { return "any" }

// Context 是求值器的时点快照，每次求值一个实例，不做并发共享。
type Context struct {
	CurrentPrice  float64
	PreviousPrice *float64
	EntryPrice    float64
	PnLPct        float64
	PnLAbs        float64
	DaysHeld      float64
	HoursHeld     float64
	Indicators    map[string]float64
	PrevIndicator map[string]float64
	Volume        float64
	AvgVolume     float64
}

// EvalResult 汇总多个条件的求值结果。
type EvalResult struct {
	ShouldExit bool
	Triggered  []string
}

func validComparison(op Operator) bool {
	switch op {
	case OpGT, OpLT, OpGTE, OpLTE, OpEQ:
		return true
	}
	return false
}

func validLevelOp(op Operator) bool {
	switch op {
	case OpAbove, OpBelow, OpCrossesAbove, OpCrossesBelow:
		return true
	}
	return false
}

// Validate 检查条件树的算子组合是否合法。
func Validate(c Condition) error {
	switch v := c.(type) {
	case PriceCondition:
		if !validLevelOp(v.Operator) {
			return fmt.Errorf("price 条件不支持算子 %q", v.Operator)
		}
	case IndicatorCondition:
		if v.Indicator == "" {
			return fmt.Errorf("indicator 条件缺少指标名")
		}
		if !validLevelOp(v.Operator) {
			return fmt.Errorf("indicator 条件不支持算子 %q", v.Operator)
		}
	case TimeCondition:
		if !validComparison(v.Operator) {
			return fmt.Errorf("time 条件不支持算子 %q", v.Operator)
		}
	case ProfitCondition:
		if !validComparison(v.Operator) {
			return fmt.Errorf("profit 条件不支持算子 %q", v.Operator)
		}
	case VolumeCondition:
		if !validComparison(v.Operator) {
			return fmt.Errorf("volume 条件不支持算子 %q", v.Operator)
		}
	case AllCondition:
		for _, child := range v.Children {
			if err := Validate(child); err != nil {
				return err
			}
		}
	case AnyCondition:
		for _, child := range v.Children {
			if err := Validate(child); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("未知条件类型 %T", c)
	}
	return nil
}
