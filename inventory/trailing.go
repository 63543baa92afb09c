package inventory

// TrailingPrices 记录开仓以来的价格极值，供追踪平仓判定回撤。
// MaxSinceOpen/MinSinceMax 服务多头；MinSinceOpen/MaxSinceMin 服务空头。
// 由状态跟踪方随行情单调更新，平仓计算只读。
type TrailingPrices struct {
	MaxSinceOpen float64
	MinSinceMax  float64
	MinSinceOpen float64
	MaxSinceMin  float64
}

// NewTrailingPrices 以开仓价初始化极值。
func NewTrailingPrices(price float64) TrailingPrices {
	return TrailingPrices{
		MaxSinceOpen: price,
		MinSinceMax:  price,
		MinSinceOpen: price,
		MaxSinceMin:  price,
	}
}

// Update 用一根 K 线的最高/最低价推进极值。
// 刷新极值的同时重置对应的回撤起点。
func (t *TrailingPrices) Update(high, low float64) {
	if high > t.MaxSinceOpen {
		t.MaxSinceOpen = high
		t.MinSinceMax = low
	} else if low < t.MinSinceMax {
		t.MinSinceMax = low
	}
	if low < t.MinSinceOpen {
		t.MinSinceOpen = low
		t.MaxSinceMin = high
	} else if high > t.MaxSinceMin {
		t.MaxSinceMin = high
	}
}

// Reset 持仓变化（新开仓或完全平仓）后重置极值到给定价格。
func (t *TrailingPrices) Reset(price float64) {
	*t = NewTrailingPrices(price)
}
