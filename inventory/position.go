package inventory

import "math"

// Side 表示持仓方向。多空共用同一套平仓逻辑，只有取整与比较方向不同，
// 全部由 Side 提供，避免镜像两份代码带来的符号错误。
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// Dir 返回方向符号：多头 +1，空头 -1。
func (s Side) Dir() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// Position 持仓快照。Size 为带符号数量（空头为负），Price 为加权平均开仓价。
// Size == 0 表示无持仓；否则 Price > 0。
type Position struct {
	Size  float64
	Price float64
}

// IsZero 判断是否无持仓。
func (p Position) IsZero() bool {
	return p.Size == 0
}

// SizeAbs 返回持仓数量绝对值。
func (p Position) SizeAbs() float64 {
	return math.Abs(p.Size)
}

// Book 保存所有 symbol 的多空持仓，key 为 symbol 序号，稀疏存储。
type Book struct {
	Long  map[int]Position
	Short map[int]Position
}

// NewBook 创建空持仓簿。
func NewBook() *Book {
	return &Book{
		Long:  make(map[int]Position),
		Short: make(map[int]Position),
	}
}

// Get 返回指定方向的持仓，不存在时为零值。
func (b *Book) Get(idx int, side Side) Position {
	if side == Short {
		return b.Short[idx]
	}
	return b.Long[idx]
}

// Set 写入持仓；Size 归零时移除该 symbol。
func (b *Book) Set(idx int, side Side, p Position) {
	m := b.Long
	if side == Short {
		m = b.Short
	}
	if p.Size == 0 {
		delete(m, idx)
		return
	}
	m[idx] = p
}

// WalletExposure 计算钱包敞口：持仓名义价值占账户权益的比例。
// balance 为 0 时返回 0，由调用方保证 balance > 0。
func WalletExposure(cMult, balance, size, price float64) float64 {
	if balance == 0 {
		return 0
	}
	return math.Abs(size) * price * cMult / balance
}

// PriceDiff 返回现价相对开仓价的带符号偏离，越负表示越不利：
// 多头越跌越负，空头越涨越负。仅用于排序，不做步长取整。
func PriceDiff(side Side, entryPrice, lastPrice float64) float64 {
	if entryPrice <= 0 {
		return 0
	}
	if side == Short {
		return 1 - lastPrice/entryPrice
	}
	return lastPrice/entryPrice - 1
}
