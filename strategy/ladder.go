package strategy

import (
	"math"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/inventory"
)

// ladderMaxSteps 限制阶梯展开次数，防止病态配置产生无穷小步长。
const ladderMaxSteps = 500

// CloseLadder 展开完整的平仓阶梯：对一个本地模拟的持仓反复调用 NextClose，
// 每次把订单成交掉（缩减仓位、把模拟盘口推进到该价位），直到仓位归零或出现
// 无动作订单。同价订单合并；追踪单一旦出现即为最后一张（剩余仓位一次性平掉）。
// 所有模拟状态都是本地变量，调用方传入的快照不会被修改。
func CloseLadder(side inventory.Side, ex exchange.Params, st StateParams, p Params,
	pos inventory.Position, tp inventory.TrailingPrices) []Order {

	var closes []Order
	psize := pos.Size
	book := bookClose(side, st)
	for i := 0; i < ladderMaxSteps; i++ {
		posMod := inventory.Position{Size: psize, Price: pos.Price}
		stMod := st
		if side == inventory.Short {
			stMod.OrderBook.Bid = book
		} else {
			stMod.OrderBook.Ask = book
		}
		close := NextClose(side, ex, stMod, p, posMod, tp)
		if close.IsZero() {
			break
		}
		psize = exchange.RoundStep(psize+close.Qty, ex.QtyStep)
		if side == inventory.Short {
			book = math.Min(book, close.Price)
		} else {
			book = math.Max(book, close.Price)
		}
		if close.Type == TrailingType(side) {
			// 追踪单触发即平掉剩余全部仓位，阶梯到此为止
			closes = append(closes, close)
			break
		}
		if n := len(closes); n > 0 && closes[n-1].Price == close.Price {
			// 离散化伪影：同价位订单合并数量而不是重复档位
			closes[n-1] = Order{
				Qty:   closes[n-1].Qty + close.Qty,
				Price: close.Price,
				Type:  close.Type,
			}
			continue
		}
		closes = append(closes, close)
	}
	return closes
}
