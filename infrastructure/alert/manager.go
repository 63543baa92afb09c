package alert

import (
	"fmt"
	"sync"
	"time"
)

// 告警级别
const (
	LevelInfo     = "INFO"
	LevelWarning  = "WARNING"
	LevelError    = "ERROR"
	LevelCritical = "CRITICAL"
)

// Alert 告警信息
type Alert struct {
	Level     string
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Manager 把风险事件扇出到多个通道，并按 (级别,消息) 限流去重。
type Manager struct {
	channels []Channel
	throttle *throttler
	mu       sync.RWMutex
}

// throttler 记录每个 key 最近一次投递时间，窗口内重复告警丢弃。
type throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	mu       sync.Mutex
}

func (t *throttler) allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

func (t *throttler) clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// NewManager 创建告警管理器
func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: &throttler{
			lastSent: make(map[string]time.Time),
			interval: throttleInterval,
		},
	}
}

// SendAlert 发送告警。窗口内同级别同消息只投递一次；
// 只有在所有通道都失败时才返回错误。
func (m *Manager) SendAlert(alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	if !m.throttle.allow(alert.Level + ":" + alert.Message) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	delivered := 0
	for _, ch := range m.channels {
		if err := ch.Send(alert); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
			continue
		}
		delivered++
	}
	if delivered == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// UnstuckTriggered 解套减仓触发告警
func (m *Manager) UnstuckTriggered(symbol, side string, allowance float64) error {
	return m.SendAlert(Alert{
		Level:   LevelWarning,
		Message: fmt.Sprintf("unstuck close triggered: %s %s", symbol, side),
		Fields: map[string]interface{}{
			"symbol":    symbol,
			"side":      side,
			"allowance": allowance,
		},
	})
}

// AllowanceExhausted 亏损额度耗尽告警：仓位仍卡住但无法继续减仓
func (m *Manager) AllowanceExhausted(symbol string, drawdown, budget float64) error {
	return m.SendAlert(Alert{
		Level:   LevelError,
		Message: fmt.Sprintf("unstuck allowance exhausted: %s", symbol),
		Fields: map[string]interface{}{
			"symbol":   symbol,
			"drawdown": drawdown,
			"budget":   budget,
		},
	})
}

// DrawdownExceeded 权益回撤超限告警
func (m *Manager) DrawdownExceeded(drawdown, limit float64) error {
	return m.SendAlert(Alert{
		Level:   LevelCritical,
		Message: "equity drawdown exceeded limit",
		Fields: map[string]interface{}{
			"drawdown": drawdown,
			"limit":    limit,
		},
	})
}

// SendError 发送ERROR级别告警
func (m *Manager) SendError(message string, fields map[string]interface{}) error {
	return m.SendAlert(Alert{
		Level:   LevelError,
		Message: message,
		Fields:  fields,
	})
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// RemoveChannel 移除告警通道
func (m *Manager) RemoveChannel(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	filtered := m.channels[:0]
	for _, ch := range m.channels {
		if ch.Name() != name {
			filtered = append(filtered, ch)
		}
	}
	m.channels = filtered
}

// GetChannels 获取所有通道名
func (m *Manager) GetChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// ResetThrottle 清空限流记录
func (m *Manager) ResetThrottle() {
	m.throttle.clear()
}
