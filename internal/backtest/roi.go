package backtest

// roiRequirement 按持仓时长（分钟）查 ROI 表：取不超过 elapsed 的
// 最大阈值对应的最低收益率。没有可用档位时返回 false。
func roiRequirement(table map[int]float64, elapsedMins int64) (float64, bool) {
	best := -1
	for mins := range table {
		if int64(mins) <= elapsedMins && mins > best {
			best = mins
		}
	}
	if best < 0 {
		return 0, false
	}
	return table[best], true
}
