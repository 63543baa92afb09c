package risk

import (
	"math"
	"sort"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/inventory"
	"github.com/A1doranM/passivbot/strategy"
)

// EMABands EMA 通道上下沿，由外部指标模块计算后传入。
type EMABands struct {
	Upper float64
	Lower float64
}

// Candidate 被选中的解套目标。
type Candidate struct {
	Index int
	Side  inventory.Side
}

type stuckPosition struct {
	idx  int
	side inventory.Side
	diff float64
}

// SelectUnstuck 在所有持仓中找出最需要强制减仓的一个。
// 多头要求敞口超过阈值且现价低于开仓价（确实浮亏）；空头只看敞口阈值，
// 与源策略行为保持一致。排序键为 PriceDiff，最负（最不利）者胜出，
// 平键时保持插入顺序：多头先于空头，symbol 序号升序。
// lastCloses 为各 symbol 最新收盘价，必须与持仓簿取自同一快照。
func SelectUnstuck(book *inventory.Book, exParams []exchange.Params, balance float64,
	pair strategy.ParamsPair, lastCloses []float64) (Candidate, bool) {

	var stuck []stuckPosition
	for _, idx := range sortedKeys(book.Long) {
		pos := book.Long[idx]
		we := inventory.WalletExposure(exParams[idx].CMult, balance, pos.Size, pos.Price)
		if we/pair.Long.WalletExposureLimit > pair.Long.UnstuckThreshold && lastCloses[idx] < pos.Price {
			stuck = append(stuck, stuckPosition{
				idx:  idx,
				side: inventory.Long,
				diff: inventory.PriceDiff(inventory.Long, pos.Price, lastCloses[idx]),
			})
		}
	}
	for _, idx := range sortedKeys(book.Short) {
		pos := book.Short[idx]
		we := inventory.WalletExposure(exParams[idx].CMult, balance, pos.Size, pos.Price)
		if we/pair.Short.WalletExposureLimit > pair.Short.UnstuckThreshold {
			stuck = append(stuck, stuckPosition{
				idx:  idx,
				side: inventory.Short,
				diff: inventory.PriceDiff(inventory.Short, pos.Price, lastCloses[idx]),
			})
		}
	}
	if len(stuck) == 0 {
		return Candidate{Index: -1}, false
	}
	sort.SliceStable(stuck, func(i, j int) bool {
		return stuck[i].diff < stuck[j].diff
	})
	return Candidate{Index: stuck[0].idx, Side: stuck[0].side}, true
}

func sortedKeys(m map[int]inventory.Position) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// UnstuckClose 为选中的持仓计算一张保本减仓单。
// 亏损额度耗尽时返回无动作订单；否则价格挂在 EMA 通道沿外推
// unstuckEMADist 的位置，且不差于最新价（通道滞后时跟随现价保证可成交）。
// 数量为敞口上限名义的 unstuckClosePct，下限最小可成交量，上限实际仓位。
func UnstuckClose(side inventory.Side, ex exchange.Params, p strategy.Params,
	lastClose, balance, emaBand float64, pos inventory.Position,
	pnlCumsumMax, pnlCumsumLast float64) strategy.Order {

	allowance := AutoUnstuckAllowance(balance, p.UnstuckLossAllowancePct, pnlCumsumMax, pnlCumsumLast)
	if allowance <= 0 {
		return strategy.Order{}
	}
	dir := side.Dir()
	var price float64
	if side == inventory.Short {
		price = math.Min(lastClose, exchange.RoundDn(emaBand*(1+dir*p.UnstuckEMADist), ex.PriceStep))
	} else {
		price = math.Max(lastClose, exchange.RoundUp(emaBand*(1+dir*p.UnstuckEMADist), ex.PriceStep))
	}
	qty := math.Min(pos.SizeAbs(), math.Max(
		ex.MinEntryQty(price),
		exchange.RoundDn(exchange.CostToQty(balance*p.WalletExposureLimit*p.UnstuckClosePct, price, ex.CMult), ex.QtyStep),
	))
	return strategy.Order{
		Qty:   -dir * qty,
		Price: price,
		Type:  strategy.UnstuckType(side),
	}
}
