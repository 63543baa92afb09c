package strategy

import (
	"fmt"

	"github.com/A1doranM/passivbot/inventory"
)

// OrderType 标记平仓订单来源：网格 / 追踪 / 解套，区分多空。
type OrderType int

const (
	TypeNone OrderType = iota
	TypeCloseGridLong
	TypeCloseGridShort
	TypeCloseTrailingLong
	TypeCloseTrailingShort
	TypeCloseUnstuckLong
	TypeCloseUnstuckShort
)

func (t OrderType) String() string {
	switch t {
	case TypeCloseGridLong:
		return "close_grid_long"
	case TypeCloseGridShort:
		return "close_grid_short"
	case TypeCloseTrailingLong:
		return "close_trailing_long"
	case TypeCloseTrailingShort:
		return "close_trailing_short"
	case TypeCloseUnstuckLong:
		return "close_unstuck_long"
	case TypeCloseUnstuckShort:
		return "close_unstuck_short"
	}
	return "none"
}

// GridType 返回对应方向的网格平仓类型。
func GridType(side inventory.Side) OrderType {
	if side == inventory.Short {
		return TypeCloseGridShort
	}
	return TypeCloseGridLong
}

// TrailingType 返回对应方向的追踪平仓类型。
func TrailingType(side inventory.Side) OrderType {
	if side == inventory.Short {
		return TypeCloseTrailingShort
	}
	return TypeCloseTrailingLong
}

// UnstuckType 返回对应方向的解套平仓类型。
func UnstuckType(side inventory.Side) OrderType {
	if side == inventory.Short {
		return TypeCloseUnstuckShort
	}
	return TypeCloseUnstuckLong
}

// Order 是平仓决策结果。Qty 带符号：负数减多仓，正数减空仓。
// 零值 Order 表示"无动作"。
type Order struct {
	Qty   float64
	Price float64
	Type  OrderType
}

// IsZero 判断是否为无动作订单。
func (o Order) IsZero() bool {
	return o.Qty == 0
}

// OrderBookTop 当前最优买卖价。
type OrderBookTop struct {
	Bid float64
	Ask float64
}

// StateParams 每次评估传入的账户/行情快照，核心不持有、不回写。
type StateParams struct {
	Balance   float64
	OrderBook OrderBookTop
}

// Params 单方向平仓策略配置，一次运行内不变。
type Params struct {
	CloseGridMarkupRange        float64 `yaml:"closeGridMarkupRange"`
	CloseGridMinMarkup          float64 `yaml:"closeGridMinMarkup"`
	CloseGridQtyPct             float64 `yaml:"closeGridQtyPct"`
	CloseTrailingThresholdPct   float64 `yaml:"closeTrailingThresholdPct"`
	CloseTrailingRetracementPct float64 `yaml:"closeTrailingRetracementPct"`
	CloseTrailingGridRatio      float64 `yaml:"closeTrailingGridRatio"`
	WalletExposureLimit         float64 `yaml:"walletExposureLimit"`
	UnstuckThreshold            float64 `yaml:"unstuckThreshold"`
	UnstuckEMADist              float64 `yaml:"unstuckEMADist"`
	UnstuckLossAllowancePct     float64 `yaml:"unstuckLossAllowancePct"`
	UnstuckClosePct             float64 `yaml:"unstuckClosePct"`
}

// ParamsPair 多空各一份配置。
type ParamsPair struct {
	Long  Params `yaml:"long"`
	Short Params `yaml:"short"`
}

// Validate 只校验会导致除零/死循环的硬约束；
// 退化取值（markup range <= 0、qtyPct 越界等）是策略分支，不是错误。
func (p Params) Validate() error {
	if p.WalletExposureLimit <= 0 {
		return fmt.Errorf("walletExposureLimit must be > 0, got %v", p.WalletExposureLimit)
	}
	if p.CloseTrailingGridRatio < -1 || p.CloseTrailingGridRatio > 1 {
		return fmt.Errorf("closeTrailingGridRatio must be in [-1,1], got %v", p.CloseTrailingGridRatio)
	}
	return nil
}
