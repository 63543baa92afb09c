package risk

import (
	"math"
	"sync"
)

// PnLTracker 维护已实现盈亏的累计值与历史峰值，解套允许亏损额度由
// 峰值回撤推导。跨 symbol 共享一个实例，带锁保证并发安全。
type PnLTracker struct {
	mu     sync.RWMutex
	cumsum float64
	peak   float64
}

// Add 记入一笔已实现盈亏。
func (t *PnLTracker) Add(pnl float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cumsum += pnl
	if t.cumsum > t.peak {
		t.peak = t.cumsum
	}
}

// Cumsum 返回当前累计已实现盈亏。
func (t *PnLTracker) Cumsum() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cumsum
}

// Peak 返回累计已实现盈亏的历史峰值。
func (t *PnLTracker) Peak() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.peak
}

// Snapshot 原子地取出 (峰值, 当前值)，解套排序需要一致快照。
func (t *PnLTracker) Snapshot() (peak, last float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.peak, t.cumsum
}

// AutoUnstuckAllowance 计算强制减仓还可以实现多少亏损（计价货币）：
// 总预算 balance*lossAllowancePct 减去已经从峰值回撤掉的部分，下限 0。
func AutoUnstuckAllowance(balance, lossAllowancePct, pnlCumsumMax, pnlCumsumLast float64) float64 {
	return math.Max(0, balance*lossAllowancePct-(pnlCumsumMax-pnlCumsumLast))
}
