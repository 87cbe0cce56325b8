package montecarlo

import (
	"math/rand"
	"time"
)

const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 12345
	lcgModulus    = 1 << 31
)

// sampler 抽象抽样源：固定种子时用 LCG 保证跨实现可复现，
// 未指定种子时退回 math/rand。
type sampler interface {
	// Draw 返回 [0,1) 的伪随机数。
	Draw() float64
}

// lcg 实现约定的线性同余序列：seed = (seed*1103515245 + 12345) mod 2^31。
// 同样的 (输入, 种子) 必须产生逐位一致的结果。
type lcg struct {
	state int64
}

func newLCG(seed int64) *lcg {
	return &lcg{state: seed % lcgModulus}
}

func (l *lcg) Draw() float64 {
	l.state = (l.state*lcgMultiplier + lcgIncrement) % lcgModulus
	if l.state < 0 {
		l.state += lcgModulus
	}
	return float64(l.state) / float64(lcgModulus)
}

type stdSampler struct {
	rng *rand.Rand
}

func newStdSampler() *stdSampler {
	return &stdSampler{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *stdSampler) Draw() float64 { return s.rng.Float64() }
