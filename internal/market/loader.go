package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kestrel/internal/logger"
)

// Source 是日线读取端，由 Store 实现；测试可注入内存实现。
type Source interface {
	RangeCandles(ctx context.Context, symbol string, start, end int64) ([]Candle, error)
}

// Loader 并发加载多只股票的日线并做交易日对齐。
type Loader struct {
	src         Source
	concurrency int
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src, concurrency: 4}
}

// LoadMultiple 并发拉取 [start, end] 区间内每只股票的日线。
// 任一只失败则整体失败，回测不能在缺数据的宇宙里运行。
func (l *Loader) LoadMultiple(ctx context.Context, symbols []string, start, end time.Time) (map[string][]Candle, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols 不能为空")
	}
	startMs := start.UTC().UnixMilli()
	endMs := end.UTC().UnixMilli()

	var mu sync.Mutex
	out := make(map[string][]Candle, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for _, symbol := range symbols {
		symbol := strings.ToUpper(symbol)
		g.Go(func() error {
			candles, err := l.src.RangeCandles(gctx, symbol, startMs, endMs)
			if err != nil {
				return fmt.Errorf("加载 %s 日线失败: %w", symbol, err)
			}
			if len(candles) == 0 {
				return fmt.Errorf("%s 在 %s~%s 区间没有日线数据", symbol,
					start.Format("2006-01-02"), end.Format("2006-01-02"))
			}
			mu.Lock()
			out[symbol] = candles
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for symbol, candles := range out {
		logger.Debugf("已加载 %s 日线 %d 根", symbol, len(candles))
	}
	return out, nil
}

// CommonDates 返回所有股票都有数据的交易日，升序。
// 回测只在公共交易日上推进，避免停牌日造成的错位。
func CommonDates(data map[string][]Candle) []int64 {
	if len(data) == 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, candles := range data {
		seen := make(map[int64]bool, len(candles))
		for _, c := range candles {
			if !seen[c.Date] {
				seen[c.Date] = true
				counts[c.Date]++
			}
		}
	}
	var dates []int64
	for d, n := range counts {
		if n == len(data) {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

// IndexByDate 把日线切片转成按日期索引的 map，供回测按日取值。
func IndexByDate(candles []Candle) map[int64]Candle {
	out := make(map[int64]Candle, len(candles))
	for _, c := range candles {
		out[c.Date] = c
	}
	return out
}
