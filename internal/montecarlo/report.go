package montecarlo

import (
	"fmt"
	"strings"
)

// TextReport 渲染一份适合日志或终端输出的模拟摘要。
func TextReport(r *Result) string {
	if r == nil {
		return "蒙特卡洛模拟: 无可用交易数据"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "蒙特卡洛模拟 (%d 条路径, 初始权益 %.2f)\n", r.Simulations, r.InitialEquity)
	fmt.Fprintf(&b, "  期望最终权益: %.2f\n", r.ExpectedValue)
	fmt.Fprintf(&b, "  盈利概率: %.1f%%\n", r.ProbProfit*100)
	fmt.Fprintf(&b, "  破产概率(回撤>50%%): %.1f%%\n", r.ProbRuin*100)
	fmt.Fprintf(&b, "  90%% 置信区间: [%.2f, %.2f]\n", r.Confidence.Lower, r.Confidence.Upper)
	fmt.Fprintf(&b, "  最差/最好: %.2f / %.2f\n", r.WorstCase, r.BestCase)
	b.WriteString("  分位数:\n")
	for _, p := range r.Percentiles {
		fmt.Fprintf(&b, "    P%02.0f: %.2f\n", p.Level*100, p.Equity)
	}
	b.WriteString("  分布:\n")
	maxCount := 0
	for _, bk := range r.Distribution {
		if bk.Count > maxCount {
			maxCount = bk.Count
		}
	}
	for _, bk := range r.Distribution {
		bar := ""
		if maxCount > 0 {
			bar = strings.Repeat("#", bk.Count*40/maxCount)
		}
		fmt.Fprintf(&b, "    [%10.2f, %10.2f] %6d %s\n", bk.Min, bk.Max, bk.Count, bar)
	}
	return b.String()
}
