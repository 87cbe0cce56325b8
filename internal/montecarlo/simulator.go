package montecarlo

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultSimulations = 10000
	histogramBuckets   = 20
	ruinDrawdown       = 0.5
)

// Trade 是模拟器需要的最小输入：单笔收益率（0.05 = +5%）。
// PnLPct 为 nil 的记录视为不可用，直接丢弃。
type Trade struct {
	PnLPct *float64
}

// Config 控制模拟规模、分位数与随机种子。
type Config struct {
	Simulations int
	Seed        int64 // 0 表示不固定种子
	Percentiles []float64
}

// PercentilePoint 是分位表中的一行。
type PercentilePoint struct {
	Level  float64 `json:"level"`
	Equity float64 `json:"equity"`
}

// Bucket 是最终权益直方图的一格。末格闭区间包含最大值。
type Bucket struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// Interval 表示置信区间。
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// simulationRun 是单条自举路径的结果，仅在聚合前存在。
type simulationRun struct {
	finalEquity float64
	maxDrawdown float64
	totalReturn float64
}

// Result 汇总全部模拟路径，构造后不再修改。
type Result struct {
	Simulations   int               `json:"simulations"`
	InitialEquity float64           `json:"initial_equity"`
	Percentiles   []PercentilePoint `json:"percentiles"`
	ExpectedValue float64           `json:"expected_value"`
	ProbProfit    float64           `json:"prob_profit"`
	ProbRuin      float64           `json:"prob_ruin"`
	Confidence    Interval          `json:"confidence"`
	Distribution  []Bucket          `json:"distribution"`
	WorstCase     float64           `json:"worst_case"`
	BestCase      float64           `json:"best_case"`

	sortedFinals []float64
}

// Simulate 以单位权益 1.0 起步做自举重抽样。
// 没有可用收益率时返回 nil："数据不足"是预期结果而不是错误。
func Simulate(trades []Trade, cfg Config) *Result {
	return run(trades, 1.0, cfg)
}

// SimulateWithSizing 与 Simulate 相同，但以 initialCapital 起步、
// 按绝对金额复利；"盈利概率"指最终权益超过 initialCapital。
func SimulateWithSizing(trades []Trade, initialCapital float64, cfg Config) *Result {
	if initialCapital <= 0 {
		return nil
	}
	return run(trades, initialCapital, cfg)
}

func run(trades []Trade, initial float64, cfg Config) *Result {
	returns := usableReturns(trades)
	if len(returns) == 0 {
		return nil
	}
	sims := cfg.Simulations
	if sims <= 0 {
		sims = defaultSimulations
	}
	levels := cfg.Percentiles
	if len(levels) == 0 {
		levels = []float64{0.05, 0.25, 0.5, 0.75, 0.95}
	}

	runs := make([]simulationRun, sims)
	if cfg.Seed != 0 {
		// 固定种子时顺序执行：样本必须按同一条 LCG 流依次落入各条路径。
		src := newLCG(cfg.Seed)
		for i := range runs {
			runs[i] = bootstrapPath(returns, initial, src)
		}
	} else {
		// 各路径相互独立，无种子时按 CPU 数并行。
		var g errgroup.Group
		workers := runtime.GOMAXPROCS(0)
		chunk := (sims + workers - 1) / workers
		for w := 0; w < workers; w++ {
			lo := w * chunk
			hi := min(lo+chunk, sims)
			if lo >= hi {
				break
			}
			g.Go(func() error {
				src := newStdSampler()
				for i := lo; i < hi; i++ {
					runs[i] = bootstrapPath(returns, initial, src)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return aggregate(runs, initial, levels)
}

// bootstrapPath 有放回地抽 len(returns) 个样本，按顺序复利并跟踪路径内最大回撤。
func bootstrapPath(returns []float64, initial float64, src sampler) simulationRun {
	equity := initial
	peak := equity
	maxDD := 0.0
	n := len(returns)
	for i := 0; i < n; i++ {
		idx := int(src.Draw() * float64(n))
		if idx >= n {
			idx = n - 1
		}
		equity *= 1 + returns[idx]
		if equity > peak {
			peak = equity
		} else if peak > 0 {
			dd := (peak - equity) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return simulationRun{
		finalEquity: equity,
		maxDrawdown: maxDD,
		totalReturn: equity/initial - 1,
	}
}

func aggregate(runs []simulationRun, initial float64, levels []float64) *Result {
	n := len(runs)
	sort.Slice(runs, func(i, j int) bool { return runs[i].finalEquity < runs[j].finalEquity })

	finals := make([]float64, n)
	profitable := 0
	ruined := 0
	for i, r := range runs {
		finals[i] = r.finalEquity
		if r.finalEquity > initial {
			profitable++
		}
		if r.maxDrawdown > ruinDrawdown {
			ruined++
		}
	}

	pcts := make([]PercentilePoint, 0, len(levels))
	for _, level := range levels {
		pcts = append(pcts, PercentilePoint{Level: level, Equity: orderStatistic(finals, level)})
	}

	return &Result{
		Simulations:   n,
		InitialEquity: initial,
		Percentiles:   pcts,
		ExpectedValue: stat.Mean(finals, nil),
		ProbProfit:    float64(profitable) / float64(n),
		ProbRuin:      float64(ruined) / float64(n),
		Confidence: Interval{
			Lower: orderStatistic(finals, 0.05),
			Upper: orderStatistic(finals, 0.95),
		},
		Distribution: histogram(finals),
		WorstCase:    finals[0],
		BestCase:     finals[n-1],
		sortedFinals: finals,
	}
}

// ConfidenceInterval 返回给定置信水平下的最终权益区间。
// level 非法或结果为空时返回 nil。
func (r *Result) ConfidenceInterval(level float64) *Interval {
	if r == nil || len(r.sortedFinals) == 0 || level <= 0 || level >= 1 {
		return nil
	}
	tail := (1 - level) / 2
	return &Interval{
		Lower: orderStatistic(r.sortedFinals, tail),
		Upper: orderStatistic(r.sortedFinals, 1-tail),
	}
}

// orderStatistic 读排序数组的顺序统计量：index = floor(level*(n-1))，不做插值。
func orderStatistic(sorted []float64, level float64) float64 {
	idx := int(math.Floor(level * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// histogram 在 [min,max] 上建 20 格等宽直方图。
// 主循环用半开区间 [bucketMin, bucketMax)，末格再用闭区间补一遍，
// 保证最大值不会落到格子外。
func histogram(finals []float64) []Bucket {
	n := len(finals)
	lo, hi := finals[0], finals[n-1]
	buckets := make([]Bucket, histogramBuckets)
	width := (hi - lo) / histogramBuckets
	for i := range buckets {
		buckets[i].Min = lo + float64(i)*width
		buckets[i].Max = lo + float64(i+1)*width
	}
	buckets[histogramBuckets-1].Max = hi

	if width <= 0 {
		buckets[0].Count = n
		return buckets
	}
	for _, v := range finals {
		idx := int((v - lo) / width)
		if idx >= 0 && idx < histogramBuckets {
			buckets[idx].Count++
		}
	}
	last := &buckets[histogramBuckets-1]
	last.Count = 0
	for _, v := range finals {
		if v >= last.Min && v <= hi {
			last.Count++
		}
	}
	return buckets
}

func usableReturns(trades []Trade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.PnLPct == nil {
			continue
		}
		out = append(out, *t.PnLPct)
	}
	return out
}
