package exitcond

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// EncodeJSON 把条件树编码为带 type 标签的 JSON 文档。
func EncodeJSON(c Condition) ([]byte, error) {
	node, err := toNode(c)
	if err != nil {
		return nil, err
	}
	return json.Marshal(node)
}

func toNode(c Condition) (map[string]any, error) {
	switch v := c.(type) {
	case PriceCondition:
		return map[string]any{"type": "price", "operator": string(v.Operator), "value": v.Value}, nil
	case IndicatorCondition:
		return map[string]any{"type": "indicator", "indicator": v.Indicator, "operator": string(v.Operator), "value": v.Value}, nil
	case TimeCondition:
		return map[string]any{"type": "time", "metric": string(v.Metric), "operator": string(v.Operator), "value": v.Value}, nil
	case ProfitCondition:
		return map[string]any{"type": "profit", "metric": string(v.Metric), "operator": string(v.Operator), "value": v.Value}, nil
	case VolumeCondition:
		return map[string]any{"type": "volume", "metric": string(v.Metric), "operator": string(v.Operator), "value": v.Value}, nil
	case AllCondition:
		children, err := toNodes(v.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "all", "conditions": children}, nil
	case AnyCondition:
		children, err := toNodes(v.Children)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "any", "conditions": children}, nil
	default:
		return nil, fmt.Errorf("无法编码的条件类型 %T", c)
	}
}

func toNodes(children []Condition) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(children))
	for _, c := range children {
		node, err := toNode(c)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// DecodeJSON 宽容地解析单个条件文档。
func DecodeJSON(raw string) (Condition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("json 格式无效")
	}
	return fromResult(gjson.Parse(raw))
}

// DecodeList 解析条件数组；根节点也可以是单个对象。
func DecodeList(raw string) ([]Condition, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("json 格式无效")
	}
	parsed := gjson.Parse(raw)
	if !parsed.IsArray() {
		c, err := fromResult(parsed)
		if err != nil {
			return nil, err
		}
		return []Condition{c}, nil
	}
	var out []Condition
	var firstErr error
	parsed.ForEach(func(_, value gjson.Result) bool {
		c, err := fromResult(value)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		out = append(out, c)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func fromResult(value gjson.Result) (Condition, error) {
	if !value.IsObject() {
		return nil, fmt.Errorf("条件节点必须是对象")
	}
	kind := strings.ToLower(strings.TrimSpace(value.Get("type").String()))
	switch kind {
	case "price":
		c := PriceCondition{
			Operator: Operator(value.Get("operator").String()),
			Value:    value.Get("value").Float(),
		}
		return c, Validate(c)
	case "indicator":
		c := IndicatorCondition{
			Indicator: strings.TrimSpace(value.Get("indicator").String()),
			Operator:  Operator(value.Get("operator").String()),
			Value:     value.Get("value").Float(),
		}
		return c, Validate(c)
	case "time":
		c := TimeCondition{
			Metric:   Metric(value.Get("metric").String()),
			Operator: Operator(value.Get("operator").String()),
			Value:    value.Get("value").Float(),
		}
		return c, Validate(c)
	case "profit":
		c := ProfitCondition{
			Metric:   Metric(value.Get("metric").String()),
			Operator: Operator(value.Get("operator").String()),
			Value:    value.Get("value").Float(),
		}
		return c, Validate(c)
	case "volume":
		c := VolumeCondition{
			Metric:   Metric(value.Get("metric").String()),
			Operator: Operator(value.Get("operator").String()),
			Value:    value.Get("value").Float(),
		}
		return c, Validate(c)
	case "all", "any":
		children, err := childConditions(value)
		if err != nil {
			return nil, err
		}
		if kind == "all" {
			return AllCondition{Children: children}, nil
		}
		return AnyCondition{Children: children}, nil
	default:
		return nil, fmt.Errorf("未知条件 type: %q", kind)
	}
}

func childConditions(value gjson.Result) ([]Condition, error) {
	raw := value.Get("conditions")
	if !raw.Exists() || !raw.IsArray() {
		return nil, fmt.Errorf("%s 条件缺少 conditions 数组", value.Get("type").String())
	}
	var out []Condition
	var firstErr error
	raw.ForEach(func(_, child gjson.Result) bool {
		c, err := fromResult(child)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return false
		}
		out = append(out, c)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
