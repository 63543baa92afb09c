package strategy

import (
	"math"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/inventory"
)

// NextClose 按 closeTrailingGridRatio 在网格与追踪之间分配仓位并给出下一张平仓单。
// ratio > 0 表示追踪优先占用前段仓位，ratio < 0 表示网格优先；
// 被委托的计算器收到的是一个只改 Size 不改 Price 的替身持仓，
// 加价/回撤的数学不受拆分影响。
func NextClose(side inventory.Side, ex exchange.Params, st StateParams, p Params,
	pos inventory.Position, tp inventory.TrailingPrices) Order {

	sizeAbs := pos.SizeAbs()
	if sizeAbs == 0 {
		return Order{}
	}
	if p.CloseTrailingGridRatio >= 1 || p.CloseTrailingGridRatio <= -1 {
		return TrailingClose(side, ex, st, p, pos, tp)
	}
	if p.CloseTrailingGridRatio == 0 {
		return GridClose(side, ex, st, p, pos)
	}

	weRatio := inventory.WalletExposure(ex.CMult, st.Balance, pos.Size, pos.Price) / p.WalletExposureLimit
	if p.CloseTrailingGridRatio > 0 {
		// 追踪优先：敞口还在追踪保留带内时整仓交给追踪
		if weRatio < p.CloseTrailingGridRatio {
			return TrailingClose(side, ex, st, p, pos, tp)
		}
		// 超出部分交给网格，预留 fullPsize*ratio 给追踪
		trailingAlloc := exchange.CostToQty(
			st.Balance*p.WalletExposureLimit*p.CloseTrailingGridRatio, pos.Price, ex.CMult)
		gridAlloc := exchange.RoundStep(sizeAbs-trailingAlloc, ex.QtyStep)
		posMod := substitute(side, ex, pos, gridAlloc)
		return GridClose(side, ex, st, p, posMod)
	}

	// 网格优先：敞口未超过网格保留带时整仓交给网格
	if weRatio < 1+p.CloseTrailingGridRatio {
		return GridClose(side, ex, st, p, pos)
	}
	gridAlloc := exchange.CostToQty(
		st.Balance*p.WalletExposureLimit*(1+p.CloseTrailingGridRatio), pos.Price, ex.CMult)
	trailingAlloc := exchange.RoundStep(sizeAbs-gridAlloc, ex.QtyStep)
	posMod := substitute(side, ex, pos, trailingAlloc)
	return TrailingClose(side, ex, st, p, posMod, tp)
}

// substitute 构造缩减到 alloc 的替身持仓：下限为最小可成交量，上限为真实仓位。
func substitute(side inventory.Side, ex exchange.Params, pos inventory.Position, alloc float64) inventory.Position {
	size := math.Min(pos.SizeAbs(), math.Max(alloc, ex.MinEntryQty(pos.Price)))
	return inventory.Position{Size: side.Dir() * size, Price: pos.Price}
}
