package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrailingPricesUpdate(t *testing.T) {
	tp := NewTrailingPrices(100)

	// 上涨刷新 MaxSinceOpen，并把 MinSinceMax 重置到当根 low
	tp.Update(110, 105)
	assert.Equal(t, 110.0, tp.MaxSinceOpen)
	assert.Equal(t, 105.0, tp.MinSinceMax)

	// 回撤只压低 MinSinceMax
	tp.Update(108, 102)
	assert.Equal(t, 110.0, tp.MaxSinceOpen)
	assert.Equal(t, 102.0, tp.MinSinceMax)

	// 创新高后回撤起点重新开始
	tp.Update(115, 112)
	assert.Equal(t, 115.0, tp.MaxSinceOpen)
	assert.Equal(t, 112.0, tp.MinSinceMax)
}

func TestTrailingPricesShortSide(t *testing.T) {
	tp := NewTrailingPrices(100)

	tp.Update(95, 90)
	assert.Equal(t, 90.0, tp.MinSinceOpen)
	assert.Equal(t, 95.0, tp.MaxSinceMin)

	tp.Update(97, 92)
	assert.Equal(t, 90.0, tp.MinSinceOpen)
	assert.Equal(t, 97.0, tp.MaxSinceMin)

	// 创新低后反弹起点重置
	tp.Update(89, 85)
	assert.Equal(t, 85.0, tp.MinSinceOpen)
	assert.Equal(t, 89.0, tp.MaxSinceMin)
}

func TestTrailingPricesReset(t *testing.T) {
	tp := NewTrailingPrices(100)
	tp.Update(120, 80)
	tp.Reset(105)
	assert.Equal(t, NewTrailingPrices(105), tp)
}
