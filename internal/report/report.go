package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"kestrel/internal/backtest"
	"kestrel/internal/montecarlo"
)

const (
	colorEquity = "#3b82f6"
	colorBucket = "#34d399"
)

// WriteHTML 把资金曲线和蒙特卡洛分布渲染成一页 HTML。
// mc 为 nil 时只输出资金曲线。
func WriteHTML(path string, result *backtest.Result, mc *montecarlo.Result) error {
	if result == nil {
		return fmt.Errorf("回测结果不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(equityChart(result))
	if mc != nil {
		page.AddCharts(distributionChart(mc))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func equityChart(result *backtest.Result) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "资金曲线",
			Subtitle: fmt.Sprintf("初始 %.0f / 最终 %.2f / %d 笔交易",
				result.Config.InitialCapital, result.Metrics.FinalEquity, result.Metrics.TotalTrades),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)

	xAxis := make([]string, 0, len(result.EquityCurve))
	points := make([]opts.LineData, 0, len(result.EquityCurve))
	for _, p := range result.EquityCurve {
		xAxis = append(xAxis, time.UnixMilli(p.Date).UTC().Format("2006-01-02"))
		points = append(points, opts.LineData{Value: p.Equity})
	}
	line.SetXAxis(xAxis)
	line.AddSeries("Equity", points, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	return line
}

func distributionChart(mc *montecarlo.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "蒙特卡洛最终权益分布",
			Subtitle: fmt.Sprintf("%d 条路径 / 盈利概率 %.1f%% / 破产概率 %.1f%%",
				mc.Simulations, mc.ProbProfit*100, mc.ProbRuin*100),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	xAxis := make([]string, 0, len(mc.Distribution))
	counts := make([]opts.BarData, 0, len(mc.Distribution))
	for _, b := range mc.Distribution {
		xAxis = append(xAxis, fmt.Sprintf("%.0f", b.Min))
		counts = append(counts, opts.BarData{Value: b.Count})
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Count", counts, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBucket}))
	return bar
}
