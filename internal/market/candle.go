package market

import "time"

// Candle 是一根日线：Date 为交易日零点的 Unix 毫秒（UTC）。
type Candle struct {
	Date   int64   `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Day 返回该根 K 线的交易日（UTC 零点）。
func (c Candle) Day() time.Time {
	return time.UnixMilli(c.Date).UTC().Truncate(24 * time.Hour)
}

// DayKey 格式化为 YYYY-MM-DD，供日期交集与日志使用。
func (c Candle) DayKey() string {
	return time.UnixMilli(c.Date).UTC().Format("2006-01-02")
}
