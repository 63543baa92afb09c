package strategy

import (
	"math"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/inventory"
)

// roundOut 沿获利方向取整：多头向上、空头向下，保证挂价不劣于目标加价。
func roundOut(side inventory.Side, x, step float64) float64 {
	if side == inventory.Short {
		return exchange.RoundDn(x, step)
	}
	return exchange.RoundUp(x, step)
}

// bookClose 返回平仓侧最优价：多头平仓吃 ask，空头平仓吃 bid。
func bookClose(side inventory.Side, st StateParams) float64 {
	if side == inventory.Short {
		return st.OrderBook.Bid
	}
	return st.OrderBook.Ask
}

// clampBook 把挂价夹到不差于盘口，保证订单可成交而不是挂在已失效的价位。
func clampBook(side inventory.Side, book, price float64) float64 {
	if side == inventory.Short {
		return math.Min(book, price)
	}
	return math.Max(book, price)
}

// closeQty 把数量绝对值转成交易所侧的带符号增量：减多为负，减空为正。
func closeQty(side inventory.Side, qty float64) float64 {
	return -side.Dir() * qty
}

// markupPrice 计算开仓价加价 markup 后的目标价（多加空减），并沿获利方向取整。
func markupPrice(side inventory.Side, entry, markup, step float64) float64 {
	return roundOut(side, entry*(1+side.Dir()*markup), step)
}

// GridClose 计算分段加价网格的下一张平仓单。
// 挂价位于 [minMarkup, minMarkup+markupRange] 区间内，按钱包敞口比例
// 线性插值：敞口越满越贴近近端，优先出货；敞口越轻越贴近远端，多拿利润。
func GridClose(side inventory.Side, ex exchange.Params, st StateParams, p Params, pos inventory.Position) Order {
	sizeAbs := pos.SizeAbs()
	if sizeAbs == 0 {
		return Order{}
	}
	if p.CloseGridMarkupRange <= 0 || p.CloseGridQtyPct < 0 || p.CloseGridQtyPct >= 1 {
		// 退化配置：单张全仓平仓单，挂在 minMarkup，且不差于盘口
		return Order{
			Qty:   exchange.RoundStep(closeQty(side, sizeAbs), ex.QtyStep),
			Price: clampBook(side, bookClose(side, st), markupPrice(side, pos.Price, p.CloseGridMinMarkup, ex.PriceStep)),
			Type:  GridType(side),
		}
	}
	priceStart := markupPrice(side, pos.Price, p.CloseGridMinMarkup, ex.PriceStep)
	priceEnd := markupPrice(side, pos.Price, p.CloseGridMinMarkup+p.CloseGridMarkupRange, ex.PriceStep)
	if priceStart == priceEnd {
		// 区间收敛到同一个 tick，没有展开网格的空间
		return Order{
			Qty:   exchange.RoundStep(closeQty(side, sizeAbs), ex.QtyStep),
			Price: clampBook(side, bookClose(side, st), priceStart),
			Type:  GridType(side),
		}
	}
	// 两个端点都已对齐 price step，差值必是整数倍
	nSteps := math.Round(math.Abs(priceEnd-priceStart) / ex.PriceStep)
	qtyPctMod := math.Max(p.CloseGridQtyPct, 1/nSteps)

	we := inventory.WalletExposure(ex.CMult, st.Balance, pos.Size, pos.Price)
	weRatio := math.Min(1, we/p.WalletExposureLimit)
	closePrice := markupPrice(side, pos.Price,
		p.CloseGridMinMarkup+p.CloseGridMarkupRange*(1-weRatio), ex.PriceStep)

	// fullPsize 是恰好打满敞口上限的仓位；超出部分强制并入本张平仓单
	fullPsize := exchange.CostToQty(st.Balance*p.WalletExposureLimit, pos.Price, ex.CMult)
	leftover := math.Max(0, sizeAbs-fullPsize)
	qty := math.Min(sizeAbs, math.Max(
		ex.MinEntryQty(closePrice),
		exchange.RoundUp(fullPsize*qtyPctMod+leftover, ex.QtyStep),
	))
	return Order{
		Qty:   exchange.RoundStep(closeQty(side, qty), ex.QtyStep),
		Price: closePrice,
		Type:  GridType(side),
	}
}
