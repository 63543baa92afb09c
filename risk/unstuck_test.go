package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/inventory"
	"github.com/A1doranM/passivbot/strategy"
)

func unstuckExchange() exchange.Params {
	return exchange.Params{PriceStep: 0.1, QtyStep: 0.001, MinQty: 0.001, CMult: 1}
}

func unstuckPair() strategy.ParamsPair {
	p := strategy.Params{WalletExposureLimit: 0.2, UnstuckThreshold: 0.4}
	return strategy.ParamsPair{Long: p, Short: p}
}

func TestSelectUnstuckDeepestUnderwaterWins(t *testing.T) {
	ex := unstuckExchange()
	book := inventory.NewBook()
	book.Set(0, inventory.Long, inventory.Position{Size: 1, Price: 100})
	book.Set(1, inventory.Long, inventory.Position{Size: 1, Price: 100})

	// 两个 symbol 都超阈值，idx 1 偏离 -0.10 比 idx 0 的 -0.05 更不利
	c, ok := SelectUnstuck(book, []exchange.Params{ex, ex}, 1000, unstuckPair(), []float64{95, 90})
	require.True(t, ok)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, inventory.Long, c.Side)
}

func TestSelectUnstuckLongRequiresUnderwater(t *testing.T) {
	ex := unstuckExchange()
	book := inventory.NewBook()
	// 敞口比 1.0 远超阈值，但现价高于开仓价，多头浮盈不解套
	book.Set(0, inventory.Long, inventory.Position{Size: 2, Price: 100})

	c, ok := SelectUnstuck(book, []exchange.Params{ex}, 1000, unstuckPair(), []float64{101})
	assert.False(t, ok)
	assert.Equal(t, -1, c.Index)
}

func TestSelectUnstuckShortIgnoresUnderwater(t *testing.T) {
	ex := unstuckExchange()
	book := inventory.NewBook()
	// 空头浮盈（现价低于开仓价）也参与解套，只看敞口阈值
	book.Set(0, inventory.Short, inventory.Position{Size: -2, Price: 100})

	c, ok := SelectUnstuck(book, []exchange.Params{ex}, 1000, unstuckPair(), []float64{95})
	require.True(t, ok)
	assert.Equal(t, 0, c.Index)
	assert.Equal(t, inventory.Short, c.Side)
}

func TestSelectUnstuckBelowThreshold(t *testing.T) {
	ex := unstuckExchange()
	book := inventory.NewBook()
	// we/limit = 0.25 低于阈值 0.4，即便深度浮亏也不选
	book.Set(0, inventory.Long, inventory.Position{Size: 0.5, Price: 100})

	_, ok := SelectUnstuck(book, []exchange.Params{ex}, 1000, unstuckPair(), []float64{90})
	assert.False(t, ok)
}

func TestSelectUnstuckTieBreakLongFirst(t *testing.T) {
	ex := unstuckExchange()
	book := inventory.NewBook()
	book.Set(0, inventory.Short, inventory.Position{Size: -1, Price: 100})
	book.Set(1, inventory.Long, inventory.Position{Size: 1, Price: 100})

	// 两边偏离同为 -0.10，稳定排序下多头先入队者胜
	c, ok := SelectUnstuck(book, []exchange.Params{ex, ex}, 1000, unstuckPair(), []float64{110, 90})
	require.True(t, ok)
	assert.Equal(t, 1, c.Index)
	assert.Equal(t, inventory.Long, c.Side)
}

func TestUnstuckCloseLong(t *testing.T) {
	ex := unstuckExchange()
	p := strategy.Params{
		WalletExposureLimit:     0.2,
		UnstuckEMADist:          0.01,
		UnstuckLossAllowancePct: 0.01,
		UnstuckClosePct:         0.1,
	}
	pos := inventory.Position{Size: 1, Price: 100}

	// 上沿 95 外推 1% 得 95.95，向上取整 96.0 且高于现价 94
	// 数量 = 1000*0.2*0.1/96 向下取整 = 0.208
	o := UnstuckClose(inventory.Long, ex, p, 94.0, 1000, 95.0, pos, 50, 50)
	assert.InDelta(t, -0.208, o.Qty, 1e-12)
	assert.InDelta(t, 96.0, o.Price, 1e-12)
	assert.Equal(t, strategy.TypeCloseUnstuckLong, o.Type)
}

func TestUnstuckCloseLongFollowsLastClose(t *testing.T) {
	ex := unstuckExchange()
	p := strategy.Params{
		WalletExposureLimit:     0.2,
		UnstuckEMADist:          0.01,
		UnstuckLossAllowancePct: 0.01,
		UnstuckClosePct:         0.1,
	}
	pos := inventory.Position{Size: 1, Price: 100}

	// 通道滞后时价格跟随现价，保证不以低于市场的价格减仓
	o := UnstuckClose(inventory.Long, ex, p, 98.0, 1000, 95.0, pos, 50, 50)
	assert.InDelta(t, 98.0, o.Price, 1e-12)
	assert.InDelta(t, -0.204, o.Qty, 1e-12)
}

func TestUnstuckCloseQtyCappedByPosition(t *testing.T) {
	ex := unstuckExchange()
	p := strategy.Params{
		WalletExposureLimit:     0.2,
		UnstuckEMADist:          0.01,
		UnstuckLossAllowancePct: 0.01,
		UnstuckClosePct:         0.1,
	}
	pos := inventory.Position{Size: 0.1, Price: 100}

	o := UnstuckClose(inventory.Long, ex, p, 94.0, 1000, 95.0, pos, 50, 50)
	assert.InDelta(t, -0.1, o.Qty, 1e-12)
}

func TestUnstuckCloseShort(t *testing.T) {
	ex := unstuckExchange()
	p := strategy.Params{
		WalletExposureLimit:     0.2,
		UnstuckEMADist:          0.01,
		UnstuckLossAllowancePct: 0.01,
		UnstuckClosePct:         0.1,
	}
	pos := inventory.Position{Size: -1, Price: 100}

	// 下沿 105 外推 1% 得 103.95，向下取整 103.9 且低于现价 106
	o := UnstuckClose(inventory.Short, ex, p, 106.0, 1000, 105.0, pos, 50, 50)
	assert.InDelta(t, 0.192, o.Qty, 1e-12)
	assert.InDelta(t, 103.9, o.Price, 1e-12)
	assert.Equal(t, strategy.TypeCloseUnstuckShort, o.Type)
}

func TestUnstuckCloseAllowanceExhausted(t *testing.T) {
	ex := unstuckExchange()
	p := strategy.Params{
		WalletExposureLimit:     0.2,
		UnstuckEMADist:          0.01,
		UnstuckLossAllowancePct: 0.01,
		UnstuckClosePct:         0.1,
	}
	pos := inventory.Position{Size: 1, Price: 100}

	// 峰值回撤 10 = 1000*1% 的预算，额度归零不再减仓
	o := UnstuckClose(inventory.Long, ex, p, 94.0, 1000, 95.0, pos, 50, 40)
	assert.True(t, o.IsZero())
}
