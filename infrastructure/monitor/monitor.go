package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 平仓决策指标
	closeOrders     *prometheus.CounterVec
	closeLadderSize *prometheus.GaugeVec

	// 成交指标
	fillsTotal   *prometheus.CounterVec
	filledVolume *prometheus.CounterVec

	// 仓位指标
	walletExposure *prometheus.GaugeVec
	positionSize   *prometheus.GaugeVec

	// 账户指标
	balance    prometheus.Gauge
	pnlCumsum  prometheus.Gauge
	pnlPeak    prometheus.Gauge
	pnlDrawdwn prometheus.Gauge

	// 解套指标
	unstuckTriggers  *prometheus.CounterVec
	unstuckAllowance prometheus.Gauge
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "pb",
		Subsystem: "closes",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()

	// 创建factory
	factory := promauto.With(reg)

	m := &Monitor{
		registry: reg,

		// 平仓决策指标
		closeOrders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "close_orders_total",
			Help:      "平仓订单生成总数，按订单类型分",
		}, []string{"type"}),
		closeLadderSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "close_ladder_size",
			Help:      "最近一次生成的平仓档位数",
		}, []string{"symbol", "side"}),

		// 成交指标
		fillsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fills_total",
			Help:      "平仓成交笔数，按订单类型分",
		}, []string{"type"}),
		filledVolume: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "filled_volume_total",
			Help:      "平仓成交名义价值累计",
		}, []string{"type"}),

		// 仓位指标
		walletExposure: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "wallet_exposure",
			Help:      "持仓名义价值占账户权益比例",
		}, []string{"symbol", "side"}),
		positionSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "position_size",
			Help:      "当前持仓数量（带符号）",
		}, []string{"symbol", "side"}),

		// 账户指标
		balance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "balance",
			Help:      "账户权益",
		}),
		pnlCumsum: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pnl_cumsum",
			Help:      "已实现盈亏累计",
		}),
		pnlPeak: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pnl_cumsum_peak",
			Help:      "已实现盈亏累计峰值",
		}),
		pnlDrawdwn: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "pnl_drawdown",
			Help:      "已实现盈亏峰值回撤",
		}),

		// 解套指标
		unstuckTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "unstuck_triggers_total",
			Help:      "解套减仓触发次数，按方向分",
		}, []string{"side"}),
		unstuckAllowance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "unstuck_allowance",
			Help:      "剩余可用亏损额度",
		}),
	}

	return m
}

// RecordCloseOrder 记录一张平仓订单的生成
func (m *Monitor) RecordCloseOrder(orderType string) {
	m.closeOrders.WithLabelValues(orderType).Inc()
}

// UpdateLadderSize 更新平仓档位数
func (m *Monitor) UpdateLadderSize(symbol, side string, n int) {
	m.closeLadderSize.WithLabelValues(symbol, side).Set(float64(n))
}

// RecordFill 记录一笔平仓成交
func (m *Monitor) RecordFill(orderType string, notional float64) {
	m.fillsTotal.WithLabelValues(orderType).Inc()
	m.filledVolume.WithLabelValues(orderType).Add(notional)
}

// UpdateWalletExposure 更新钱包敞口
func (m *Monitor) UpdateWalletExposure(symbol, side string, value float64) {
	m.walletExposure.WithLabelValues(symbol, side).Set(value)
}

// UpdatePositionSize 更新持仓数量
func (m *Monitor) UpdatePositionSize(symbol, side string, size float64) {
	m.positionSize.WithLabelValues(symbol, side).Set(size)
}

// UpdateBalance 更新账户权益
func (m *Monitor) UpdateBalance(value float64) {
	m.balance.Set(value)
}

// UpdatePnL 更新盈亏累计/峰值/回撤
func (m *Monitor) UpdatePnL(cumsum, peak float64) {
	m.pnlCumsum.Set(cumsum)
	m.pnlPeak.Set(peak)
	m.pnlDrawdwn.Set(peak - cumsum)
}

// RecordUnstuckTrigger 记录一次解套触发
func (m *Monitor) RecordUnstuckTrigger(side string) {
	m.unstuckTriggers.WithLabelValues(side).Inc()
}

// UpdateUnstuckAllowance 更新剩余亏损额度
func (m *Monitor) UpdateUnstuckAllowance(value float64) {
	m.unstuckAllowance.Set(value)
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Serve 在指定地址暴露 /metrics
func (m *Monitor) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}
