package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalletExposure(t *testing.T) {
	tests := []struct {
		name    string
		cMult   float64
		balance float64
		size    float64
		price   float64
		want    float64
	}{
		{"多头基础用例", 1, 1000, 1, 100, 0.1},
		{"空头取绝对值", 1, 1000, -1, 100, 0.1},
		{"合约乘数放大名义", 10, 1000, 1, 100, 1.0},
		{"balance为0返回0", 1, 0, 1, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WalletExposure(tt.cMult, tt.balance, tt.size, tt.price), 1e-12)
		})
	}
}

func TestPriceDiff(t *testing.T) {
	// 多头：价格越低于开仓价越负
	assert.InDelta(t, -0.10, PriceDiff(Long, 100, 90), 1e-12)
	assert.InDelta(t, 0.05, PriceDiff(Long, 100, 105), 1e-12)
	// 空头：价格越高于开仓价越负
	assert.InDelta(t, -0.10, PriceDiff(Short, 100, 110), 1e-12)
	assert.InDelta(t, 0.05, PriceDiff(Short, 100, 95), 1e-12)
	// 开仓价异常时返回 0
	assert.Equal(t, 0.0, PriceDiff(Long, 0, 90))
}

func TestBookGetSet(t *testing.T) {
	b := NewBook()
	b.Set(3, Long, Position{Size: 1.5, Price: 100})
	b.Set(3, Short, Position{Size: -0.5, Price: 110})

	assert.Equal(t, Position{Size: 1.5, Price: 100}, b.Get(3, Long))
	assert.Equal(t, Position{Size: -0.5, Price: 110}, b.Get(3, Short))
	assert.True(t, b.Get(7, Long).IsZero(), "未知 symbol 返回零值")

	// Size 归零时移除，Book 保持稀疏
	b.Set(3, Long, Position{})
	_, ok := b.Long[3]
	assert.False(t, ok)
}

func TestSide(t *testing.T) {
	assert.Equal(t, 1.0, Long.Dir())
	assert.Equal(t, -1.0, Short.Dir())
	assert.Equal(t, "long", Long.String())
	assert.Equal(t, "short", Short.String())
}
