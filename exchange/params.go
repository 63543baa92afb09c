package exchange

import (
	"fmt"
	"math"
)

// Params 描述单个交易对的交易规则：价格/数量步长、最小下单限制与合约乘数。
// 每个 symbol 一份，加载后不再修改。
type Params struct {
	PriceStep   float64 `yaml:"priceStep"`
	QtyStep     float64 `yaml:"qtyStep"`
	MinQty      float64 `yaml:"minQty"`
	MaxQty      float64 `yaml:"maxQty"`
	MinNotional float64 `yaml:"minNotional"`
	CMult       float64 `yaml:"cMult"` // 合约面值乘数，数量*价格*CMult=名义价值
}

// stepDigits 控制步长取整后的小数清理位数，消除二进制浮点噪声，
// 保证同一档价格在比较时严格相等（网格塌缩与阶梯合并依赖该相等性）。
const stepDigits = 10

func roundDigits(x float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(x*pow) / pow
}

// RoundStep 将 x 取整到最接近的 step 整数倍。
func RoundStep(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return roundDigits(math.Round(x/step)*step, stepDigits)
}

// RoundUp 将 x 向上取整到 step 整数倍。
// 商先做小数清理再向上取整，否则 100*1.03/0.1 这类乘法噪声会多推一个 tick。
func RoundUp(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return roundDigits(math.Ceil(roundDigits(x/step, stepDigits))*step, stepDigits)
}

// RoundDn 将 x 向下取整到 step 整数倍。
func RoundDn(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return roundDigits(math.Floor(roundDigits(x/step, stepDigits))*step, stepDigits)
}

// CostToQty 把计价货币成本换算为合约数量。
func CostToQty(cost, price, cMult float64) float64 {
	if price <= 0 || cMult <= 0 {
		return 0
	}
	return cost / (price * cMult)
}

// QtyToCost 把合约数量换算为名义价值。
func QtyToCost(qty, price, cMult float64) float64 {
	return math.Abs(qty) * price * cMult
}

// MinEntryQty 返回在 price 价位可成交的最小数量：
// 同时满足交易所 minQty 与 minNotional，且对齐到 qtyStep。
func (p Params) MinEntryQty(price float64) float64 {
	return math.Max(p.MinQty, RoundUp(CostToQty(p.MinNotional, price, p.CMult), p.QtyStep))
}

// ValidateOrder 检查价格/数量是否符合精度与最小名义限制。
func (p Params) ValidateOrder(price, qty float64) error {
	absQty := math.Abs(qty)
	if p.PriceStep > 0 && !isMultiple(price, p.PriceStep) {
		return fmt.Errorf("price %.10f not aligned to priceStep %.10f", price, p.PriceStep)
	}
	if p.QtyStep > 0 && !isMultiple(absQty, p.QtyStep) {
		return fmt.Errorf("qty %.10f not aligned to qtyStep %.10f", absQty, p.QtyStep)
	}
	if p.MinQty > 0 && absQty < p.MinQty {
		return fmt.Errorf("qty %.10f < minQty %.10f", absQty, p.MinQty)
	}
	if p.MaxQty > 0 && absQty > p.MaxQty {
		return fmt.Errorf("qty %.10f > maxQty %.10f", absQty, p.MaxQty)
	}
	if p.MinNotional > 0 && QtyToCost(absQty, price, p.CMult) < p.MinNotional {
		return fmt.Errorf("notional %.10f < minNotional %.10f", QtyToCost(absQty, price, p.CMult), p.MinNotional)
	}
	return nil
}

// Validate 检查交易规则本身是否可用。
func (p Params) Validate() error {
	if p.PriceStep <= 0 {
		return fmt.Errorf("priceStep must be > 0, got %v", p.PriceStep)
	}
	if p.QtyStep <= 0 {
		return fmt.Errorf("qtyStep must be > 0, got %v", p.QtyStep)
	}
	if p.CMult <= 0 {
		return fmt.Errorf("cMult must be > 0, got %v", p.CMult)
	}
	if p.MinQty < 0 || p.MaxQty < 0 || p.MinNotional < 0 {
		return fmt.Errorf("min/max limits must be >= 0")
	}
	return nil
}

func isMultiple(value, step float64) bool {
	if step <= 0 {
		return true
	}
	ratio := value / step
	return math.Abs(ratio-math.Round(ratio)) <= 1e-8
}
