package strategy

import (
	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/inventory"
)

// TrailingClose 根据开仓以来的价格极值计算回撤确认平仓单。
// 两道闸门都通过才动作：先是极值越过 threshold（行情确实走出过利润），
// 再是从极值回撤超过 retracement（动能衰竭）；否则返回无动作订单。
func TrailingClose(side inventory.Side, ex exchange.Params, st StateParams, p Params,
	pos inventory.Position, tp inventory.TrailingPrices) Order {

	sizeAbs := pos.SizeAbs()
	if sizeAbs == 0 {
		return Order{}
	}
	if p.CloseTrailingRetracementPct <= 0 {
		// 无回撤要求：价格一越过 threshold 即全仓平掉
		return Order{
			Qty:   exchange.RoundStep(closeQty(side, sizeAbs), ex.QtyStep),
			Price: clampBook(side, bookClose(side, st), markupPrice(side, pos.Price, p.CloseTrailingThresholdPct, ex.PriceStep)),
			Type:  TrailingType(side),
		}
	}

	dir := side.Dir()
	// 闸门一：开仓以来的有利极值必须越过 entry*(1±threshold)
	extreme := tp.MaxSinceOpen
	if side == inventory.Short {
		extreme = tp.MinSinceOpen
	}
	if dir*(extreme-pos.Price*(1+dir*p.CloseTrailingThresholdPct)) < 0 {
		return Order{Type: TrailingType(side)}
	}
	// 闸门二：自极值回撤幅度必须达到 retracement
	pullback := tp.MinSinceMax
	if side == inventory.Short {
		pullback = tp.MaxSinceMin
	}
	if dir*(pullback-extreme*(1-dir*p.CloseTrailingRetracementPct)) > 0 {
		return Order{Type: TrailingType(side)}
	}

	return Order{
		Qty:   exchange.RoundStep(closeQty(side, sizeAbs), ex.QtyStep),
		Price: clampBook(side, bookClose(side, st), markupPrice(side, pos.Price, p.CloseTrailingThresholdPct-p.CloseTrailingRetracementPct, ex.PriceStep)),
		Type:  TrailingType(side),
	}
}
