package risk

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPnLTracker(t *testing.T) {
	tr := &PnLTracker{}
	tr.Add(10)
	tr.Add(5)
	assert.Equal(t, 15.0, tr.Cumsum())
	assert.Equal(t, 15.0, tr.Peak())

	// 回撤只降 cumsum，峰值保持
	tr.Add(-7)
	assert.Equal(t, 8.0, tr.Cumsum())
	assert.Equal(t, 15.0, tr.Peak())

	peak, last := tr.Snapshot()
	assert.Equal(t, 15.0, peak)
	assert.Equal(t, 8.0, last)

	// 创新高后峰值跟上
	tr.Add(10)
	assert.Equal(t, 18.0, tr.Peak())
}

func TestPnLTrackerConcurrent(t *testing.T) {
	tr := &PnLTracker{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tr.Add(1)
				tr.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8000.0, tr.Cumsum())
}

func TestAutoUnstuckAllowance(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		pct     float64
		max     float64
		last    float64
		want    float64
	}{
		{"无回撤时全额可用", 1000, 0.01, 50, 50, 10},
		{"回撤吃掉部分预算", 1000, 0.01, 50, 44, 4},
		{"回撤恰好等于预算", 1000, 0.01, 50, 40, 0},
		{"回撤超过预算下限为0", 1000, 0.01, 50, 20, 0},
		{"pct为0没有预算", 1000, 0, 50, 50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AutoUnstuckAllowance(tt.balance, tt.pct, tt.max, tt.last), 1e-12)
		})
	}
}
