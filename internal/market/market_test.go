package market

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) int64 {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC().UnixMilli()
}

func makeCandles(dates ...string) []Candle {
	out := make([]Candle, 0, len(dates))
	for i, d := range dates {
		p := 100 + float64(i)
		out = append(out, Candle{Date: day(d), Open: p, High: p + 1, Low: p - 1, Close: p + 0.5, Volume: 1000})
	}
	return out
}

func TestStoreInsertAndRange(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	candles := makeCandles("2024-01-02", "2024-01-03", "2024-01-04")
	n, err := store.InsertCandles(ctx, "aapl", candles)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := store.RangeCandles(ctx, "AAPL", day("2024-01-02"), day("2024-01-03"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-01-02"), got[0].Date)
	assert.Equal(t, day("2024-01-03"), got[1].Date)

	m, err := store.Manifest(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", m.Symbol)
	assert.Equal(t, int64(3), m.Rows)
	assert.Equal(t, day("2024-01-02"), m.MinDate)
	assert.Equal(t, day("2024-01-04"), m.MaxDate)
}

func TestStoreUpsertOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	d := day("2024-01-02")
	_, err = store.InsertCandles(ctx, "MSFT", []Candle{{Date: d, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}})
	require.NoError(t, err)
	_, err = store.InsertCandles(ctx, "MSFT", []Candle{{Date: d, Open: 200, High: 201, Low: 199, Close: 200.5, Volume: 20}})
	require.NoError(t, err)

	got, err := store.ListAllCandles(ctx, "MSFT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 200.0, got[0].Open)
}

type fakeSource struct {
	data map[string][]Candle
	errs map[string]error
}

func (f *fakeSource) RangeCandles(_ context.Context, symbol string, start, end int64) ([]Candle, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	var out []Candle
	for _, c := range f.data[symbol] {
		if c.Date >= start && c.Date <= end {
			out = append(out, c)
		}
	}
	return out, nil
}

func TestLoaderLoadMultiple(t *testing.T) {
	src := &fakeSource{data: map[string][]Candle{
		"AAPL": makeCandles("2024-01-02", "2024-01-03"),
		"MSFT": makeCandles("2024-01-02", "2024-01-03", "2024-01-04"),
	}}
	loader := NewLoader(src)

	start, _ := time.Parse("2006-01-02", "2024-01-01")
	end, _ := time.Parse("2006-01-02", "2024-01-31")
	got, err := loader.LoadMultiple(context.Background(), []string{"aapl", "msft"}, start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got["AAPL"], 2)
	assert.Len(t, got["MSFT"], 3)
}

func TestLoaderFailsOnMissingSymbol(t *testing.T) {
	src := &fakeSource{
		data: map[string][]Candle{"AAPL": makeCandles("2024-01-02")},
		errs: map[string]error{"BAD": fmt.Errorf("no such table")},
	}
	loader := NewLoader(src)

	start, _ := time.Parse("2006-01-02", "2024-01-01")
	end, _ := time.Parse("2006-01-02", "2024-01-31")

	_, err := loader.LoadMultiple(context.Background(), []string{"AAPL", "BAD"}, start, end)
	assert.Error(t, err)

	// 区间内无数据同样视为失败
	_, err = loader.LoadMultiple(context.Background(), []string{"AAPL", "MSFT"}, start, end)
	assert.Error(t, err)

	_, err = loader.LoadMultiple(context.Background(), nil, start, end)
	assert.Error(t, err)
}

func TestCommonDates(t *testing.T) {
	data := map[string][]Candle{
		"AAPL": makeCandles("2024-01-02", "2024-01-03", "2024-01-05"),
		"MSFT": makeCandles("2024-01-03", "2024-01-04", "2024-01-05"),
	}
	dates := CommonDates(data)
	require.Len(t, dates, 2)
	assert.Equal(t, day("2024-01-03"), dates[0])
	assert.Equal(t, day("2024-01-05"), dates[1])

	assert.Nil(t, CommonDates(nil))
}

func TestIndexByDate(t *testing.T) {
	candles := makeCandles("2024-01-02", "2024-01-03")
	idx := IndexByDate(candles)
	require.Len(t, idx, 2)
	assert.Equal(t, candles[1], idx[day("2024-01-03")])
}
