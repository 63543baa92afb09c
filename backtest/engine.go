package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/infrastructure/alert"
	"github.com/A1doranM/passivbot/infrastructure/logger"
	"github.com/A1doranM/passivbot/infrastructure/monitor"
	"github.com/A1doranM/passivbot/inventory"
	"github.com/A1doranM/passivbot/risk"
	"github.com/A1doranM/passivbot/strategy"
)

// Candle 历史K线数据
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Fill 回测成交记录
type Fill struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"`
	Type      string    `json:"type"`
	Qty       float64   `json:"qty"`   // 带符号：负减多，正减空
	Price     float64   `json:"price"`
	PnL       float64   `json:"pnl"` // 已实现盈亏（扣除手续费）
}

// Result 回测结果
type Result struct {
	RunID          string    `json:"runId"`
	StartTime      time.Time `json:"startTime"`
	EndTime        time.Time `json:"endTime"`
	InitialBalance float64   `json:"initialBalance"`
	FinalBalance   float64   `json:"finalBalance"`
	TotalPnL       float64   `json:"totalPnl"`
	TotalReturn    float64   `json:"totalReturn"` // 总收益率

	TotalFills   int     `json:"totalFills"`
	UnstuckFills int     `json:"unstuckFills"`
	WinningFills int     `json:"winningFills"`
	LosingFills  int     `json:"losingFills"`
	WinRate      float64 `json:"winRate"`

	MaxDrawdown float64 `json:"maxDrawdown"`

	Fills       []Fill    `json:"fills"`
	EquityCurve []float64 `json:"equityCurve"`
}

// SymbolSeries 单个 symbol 的回测输入：精度参数、K线与初始持仓。
// 引擎只平仓不开仓，初始持仓就是全部可供平掉的仓位。
type SymbolSeries struct {
	Name         string
	Exchange     exchange.Params
	Candles      []Candle
	InitialLong  inventory.Position
	InitialShort inventory.Position
}

// Config 回测配置
type Config struct {
	StartingBalance float64             // 初始资金
	TakerFee        float64             // 手续费率（如0.001 = 0.1%）
	EMASpan         float64             // 解套价带 EMA 周期（bar 数）
	Bot             strategy.ParamsPair // 策略配置
}

// Engine 平仓回测引擎：逐 bar 重放K线，展开平仓阶梯并模拟成交，
// 盈亏进入 PnL 追踪器，亏损额度约束下触发解套减仓。
type Engine struct {
	config  Config
	symbols []SymbolSeries

	book      *inventory.Book
	trailLong []*inventory.TrailingPrices
	trailShrt []*inventory.TrailingPrices
	emas      []float64
	tracker   *risk.PnLTracker

	balance     float64
	fills       []Fill
	equityCurve []float64
	peakEquity  float64
	maxDrawdown float64

	log    *logger.Logger
	mon    *monitor.Monitor
	alerts *alert.Manager
}

// NewEngine 创建回测引擎
func NewEngine(config Config, symbols []SymbolSeries) *Engine {
	// 设置默认值
	if config.StartingBalance <= 0 {
		config.StartingBalance = 10000.0
	}
	if config.TakerFee < 0 {
		config.TakerFee = 0
	}
	if config.EMASpan <= 0 {
		config.EMASpan = 60
	}

	e := &Engine{
		config:      config,
		symbols:     symbols,
		book:        inventory.NewBook(),
		trailLong:   make([]*inventory.TrailingPrices, len(symbols)),
		trailShrt:   make([]*inventory.TrailingPrices, len(symbols)),
		emas:        make([]float64, len(symbols)),
		tracker:     &risk.PnLTracker{},
		balance:     config.StartingBalance,
		fills:       make([]Fill, 0),
		equityCurve: make([]float64, 0),
		peakEquity:  config.StartingBalance,
	}
	for i, s := range symbols {
		if !s.InitialLong.IsZero() {
			e.book.Set(i, inventory.Long, s.InitialLong)
		}
		if !s.InitialShort.IsZero() {
			e.book.Set(i, inventory.Short, s.InitialShort)
		}
	}
	return e
}

// SetLogger 可选注入结构化日志器
func (e *Engine) SetLogger(l *logger.Logger) { e.log = l }

// SetMonitor 可选注入指标收集器
func (e *Engine) SetMonitor(m *monitor.Monitor) { e.mon = m }

// SetAlerts 可选注入告警管理器
func (e *Engine) SetAlerts(a *alert.Manager) { e.alerts = a }

// Run 运行回测
func (e *Engine) Run() (*Result, error) {
	if len(e.symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}
	bars := 0
	for i, s := range e.symbols {
		if len(s.Candles) == 0 {
			return nil, fmt.Errorf("symbol %s: no candle data provided", s.Name)
		}
		if err := s.Exchange.Validate(); err != nil {
			return nil, fmt.Errorf("symbol %s: %w", s.Name, err)
		}
		if len(s.Candles) > bars {
			bars = len(s.Candles)
		}
		// 极值追踪与 EMA 从首 bar 起步
		e.trailLong[i] = trailingFor(s.Candles[0].Open)
		e.trailShrt[i] = trailingFor(s.Candles[0].Open)
		e.emas[i] = s.Candles[0].Close
	}

	for t := 0; t < bars; t++ {
		e.processBar(t)
	}

	start := e.symbols[0].Candles[0].Timestamp
	end := e.lastCandle(0).Timestamp
	return e.calculateResult(start, end), nil
}

func trailingFor(price float64) *inventory.TrailingPrices {
	tp := inventory.NewTrailingPrices(price)
	return &tp
}

// processBar 处理单个时间点：先按阶梯模拟常规平仓，再评估解套。
func (e *Engine) processBar(t int) {
	for i, s := range e.symbols {
		if t >= len(s.Candles) {
			continue
		}
		c := s.Candles[t]
		e.processSide(t, i, inventory.Long, c)
		e.processSide(t, i, inventory.Short, c)
	}

	e.processUnstuck(t)

	// EMA 滞后一拍：本 bar 决策用的是上一 bar 收盘前的值
	alpha := 2 / (e.config.EMASpan + 1)
	for i, s := range e.symbols {
		if t < len(s.Candles) {
			e.emas[i] += alpha * (s.Candles[t].Close - e.emas[i])
		}
	}

	e.recordEquity(t)
}

func (e *Engine) processSide(t, idx int, side inventory.Side, c Candle) {
	pos := e.book.Get(idx, side)
	if pos.IsZero() {
		return
	}
	tp := e.trailing(idx, side)
	tp.Update(c.High, c.Low)

	s := e.symbols[idx]
	st := strategy.StateParams{
		Balance:   e.balance,
		OrderBook: strategy.OrderBookTop{Bid: c.Open, Ask: c.Open},
	}
	params := e.sideParams(side)
	ladder := strategy.CloseLadder(side, s.Exchange, st, params, pos, *tp)
	if e.mon != nil {
		e.mon.UpdateLadderSize(s.Name, side.String(), len(ladder))
	}
	if e.log != nil && len(ladder) > 0 {
		e.log.LogClose("close_ladder", map[string]interface{}{
			"symbol": s.Name,
			"type":   ladder[0].Type.String(),
			"qty":    ladder[0].Qty,
			"price":  ladder[0].Price,
			"levels": len(ladder),
		})
	}
	for _, o := range ladder {
		if !crossed(side, o.Price, c) {
			break
		}
		e.applyFill(c.Timestamp, idx, side, o)
		if e.book.Get(idx, side).IsZero() {
			break
		}
	}
}

// processUnstuck 每 bar 至多触发一次解套减仓，目标由选择器给出。
func (e *Engine) processUnstuck(t int) {
	lastCloses := make([]float64, len(e.symbols))
	exParams := make([]exchange.Params, len(e.symbols))
	for i, s := range e.symbols {
		lastCloses[i] = e.candleAt(i, t).Close
		exParams[i] = s.Exchange
	}

	cand, ok := risk.SelectUnstuck(e.book, exParams, e.balance, e.config.Bot, lastCloses)
	if !ok {
		return
	}
	i := cand.Index
	s := e.symbols[i]
	c := e.candleAt(i, t)
	pos := e.book.Get(i, cand.Side)
	peak, last := e.tracker.Snapshot()
	params := e.sideParams(cand.Side)

	if e.mon != nil {
		e.mon.UpdateUnstuckAllowance(
			risk.AutoUnstuckAllowance(e.balance, params.UnstuckLossAllowancePct, peak, last))
	}

	order := risk.UnstuckClose(cand.Side, s.Exchange, params,
		c.Close, e.balance, e.emas[i], pos, peak, last)
	if order.IsZero() {
		// 仓位卡住但额度耗尽：告警后保持不动
		if e.alerts != nil {
			e.alerts.AllowanceExhausted(s.Name, peak-last,
				e.balance*params.UnstuckLossAllowancePct)
		}
		return
	}
	if !crossed(cand.Side, order.Price, c) {
		return
	}
	if e.mon != nil {
		e.mon.RecordUnstuckTrigger(cand.Side.String())
	}
	if e.alerts != nil {
		e.alerts.UnstuckTriggered(s.Name, cand.Side.String(),
			risk.AutoUnstuckAllowance(e.balance, params.UnstuckLossAllowancePct, peak, last))
	}
	if e.log != nil {
		e.log.LogUnstuck("unstuck_close", map[string]interface{}{
			"symbol":    s.Name,
			"side":      cand.Side.String(),
			"allowance": risk.AutoUnstuckAllowance(e.balance, params.UnstuckLossAllowancePct, peak, last),
		})
	}
	e.applyFill(c.Timestamp, i, cand.Side, order)
}

// applyFill 把一张平仓单按挂价成交：实现盈亏入账、缩减持仓、
// 仓位归零时重置极值追踪。
func (e *Engine) applyFill(ts time.Time, idx int, side inventory.Side, o strategy.Order) {
	s := e.symbols[idx]
	pos := e.book.Get(idx, side)
	qtyAbs := math.Min(math.Abs(o.Qty), pos.SizeAbs())
	if qtyAbs == 0 {
		return
	}

	pnl := side.Dir() * (o.Price - pos.Price) * qtyAbs * s.Exchange.CMult
	fee := exchange.QtyToCost(qtyAbs, o.Price, s.Exchange.CMult) * e.config.TakerFee
	realized := pnl - fee

	e.balance += realized
	e.tracker.Add(realized)

	newSize := exchange.RoundStep(pos.Size+o.Qty, s.Exchange.QtyStep)
	e.book.Set(idx, side, inventory.Position{Size: newSize, Price: pos.Price})
	if newSize == 0 {
		e.trailing(idx, side).Reset(o.Price)
	}

	e.fills = append(e.fills, Fill{
		Timestamp: ts,
		Symbol:    s.Name,
		Side:      side.String(),
		Type:      o.Type.String(),
		Qty:       o.Qty,
		Price:     o.Price,
		PnL:       realized,
	})

	if e.mon != nil {
		e.mon.RecordFill(o.Type.String(), exchange.QtyToCost(qtyAbs, o.Price, s.Exchange.CMult))
		e.mon.UpdateBalance(e.balance)
		peak, last := e.tracker.Snapshot()
		e.mon.UpdatePnL(last, peak)
		e.mon.UpdatePositionSize(s.Name, side.String(), newSize)
	}
	if e.log != nil {
		e.log.LogFill("backtest_fill", map[string]interface{}{
			"symbol": s.Name,
			"type":   o.Type.String(),
			"qty":    o.Qty,
			"price":  o.Price,
			"pnl":    realized,
		})
	}
}

// recordEquity 用收盘价计算权益（余额+浮动盈亏）并更新回撤
func (e *Engine) recordEquity(t int) {
	equity := e.balance
	for i := range e.symbols {
		c := e.candleAt(i, t)
		cm := e.symbols[i].Exchange.CMult
		if pos := e.book.Get(i, inventory.Long); !pos.IsZero() {
			equity += (c.Close - pos.Price) * pos.SizeAbs() * cm
		}
		if pos := e.book.Get(i, inventory.Short); !pos.IsZero() {
			equity += (pos.Price - c.Close) * pos.SizeAbs() * cm
		}
	}
	e.equityCurve = append(e.equityCurve, equity)
	if equity > e.peakEquity {
		e.peakEquity = equity
	}
	if e.peakEquity > 0 {
		dd := (e.peakEquity - equity) / e.peakEquity
		if dd > e.maxDrawdown {
			e.maxDrawdown = dd
		}
	}
	if e.mon != nil {
		for i := range e.symbols {
			c := e.candleAt(i, t)
			name := e.symbols[i].Name
			cm := e.symbols[i].Exchange.CMult
			if pos := e.book.Get(i, inventory.Long); !pos.IsZero() {
				e.mon.UpdateWalletExposure(name, "long",
					inventory.WalletExposure(cm, e.balance, pos.Size, c.Close))
			}
			if pos := e.book.Get(i, inventory.Short); !pos.IsZero() {
				e.mon.UpdateWalletExposure(name, "short",
					inventory.WalletExposure(cm, e.balance, pos.Size, c.Close))
			}
		}
	}
}

func (e *Engine) calculateResult(start, end time.Time) *Result {
	r := &Result{
		RunID:          uuid.New().String(),
		StartTime:      start,
		EndTime:        end,
		InitialBalance: e.config.StartingBalance,
		FinalBalance:   e.balance,
		TotalPnL:       e.balance - e.config.StartingBalance,
		TotalFills:     len(e.fills),
		MaxDrawdown:    e.maxDrawdown,
		Fills:          e.fills,
		EquityCurve:    e.equityCurve,
	}
	if e.config.StartingBalance > 0 {
		r.TotalReturn = r.TotalPnL / e.config.StartingBalance
	}
	for _, f := range e.fills {
		switch {
		case f.PnL > 0:
			r.WinningFills++
		case f.PnL < 0:
			r.LosingFills++
		}
		if f.Type == strategy.TypeCloseUnstuckLong.String() ||
			f.Type == strategy.TypeCloseUnstuckShort.String() {
			r.UnstuckFills++
		}
	}
	if r.TotalFills > 0 {
		r.WinRate = float64(r.WinningFills) / float64(r.TotalFills)
	}
	return r
}

func (e *Engine) sideParams(side inventory.Side) strategy.Params {
	if side == inventory.Short {
		return e.config.Bot.Short
	}
	return e.config.Bot.Long
}

func (e *Engine) trailing(idx int, side inventory.Side) *inventory.TrailingPrices {
	if side == inventory.Short {
		return e.trailShrt[idx]
	}
	return e.trailLong[idx]
}

// candleAt 返回 t 时刻的K线；序列短于 t 时停在最后一根。
func (e *Engine) candleAt(i, t int) Candle {
	cs := e.symbols[i].Candles
	if t >= len(cs) {
		return cs[len(cs)-1]
	}
	return cs[t]
}

func (e *Engine) lastCandle(i int) Candle {
	cs := e.symbols[i].Candles
	return cs[len(cs)-1]
}

// crossed 判断限价单在该 bar 内是否触价：减多为卖单须触 High，减空为买单须触 Low。
func crossed(side inventory.Side, price float64, c Candle) bool {
	if side == inventory.Short {
		return c.Low <= price
	}
	return c.High >= price
}
