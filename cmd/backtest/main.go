package main

import (
	"flag"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/A1doranM/passivbot/backtest"
	"github.com/A1doranM/passivbot/config"
	"github.com/A1doranM/passivbot/infrastructure/alert"
	"github.com/A1doranM/passivbot/infrastructure/logger"
	"github.com/A1doranM/passivbot/infrastructure/monitor"
	"github.com/A1doranM/passivbot/inventory"
)

// 配置驱动的平仓回测脚本。
// 用法：
//
//	go run ./cmd/backtest -config configs/config.yaml \
//	  -candles BTCUSDT:data/btc.csv,ETHUSDT:data/eth.csv \
//	  -positions BTCUSDT:long:1.0:64000 \
//	  -out report.json
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	candleFiles := flag.String("candles", "", "symbol:csv 列表，逗号分隔")
	positions := flag.String("positions", "", "symbol:side:size:price 列表，逗号分隔")
	takerFee := flag.Float64("takerFee", 0.00055, "手续费率")
	maxDD := flag.Float64("maxDrawdown", 0.3, "最大回撤告警阈值，<=0 关闭")
	outPath := flag.String("out", "", "报告输出路径，留空用配置里的 reportPath")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，留空则关闭")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf(".env 未找到，使用环境变量/配置文件")
	}

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Close() }()

	symIdx := cfg.SymbolIndex()
	series := make(map[string]*backtest.SymbolSeries)
	for _, entry := range splitList(*candleFiles) {
		items := strings.SplitN(entry, ":", 2)
		if len(items) != 2 {
			log.Fatalf("无法解析 candles 项: %s", entry)
		}
		sym := strings.ToUpper(strings.TrimSpace(items[0]))
		i, ok := symIdx[sym]
		if !ok {
			log.Fatalf("symbol %s 不在配置中", sym)
		}
		candles, err := backtest.LoadCandlesCSV(strings.TrimSpace(items[1]))
		if err != nil {
			log.Fatalf("symbol %s 读取K线失败: %v", sym, err)
		}
		series[sym] = &backtest.SymbolSeries{
			Name:     sym,
			Exchange: cfg.Symbols[i].Exchange,
			Candles:  candles,
		}
	}
	if len(series) == 0 {
		log.Fatal("未指定任何 symbol:csv")
	}

	for _, entry := range splitList(*positions) {
		sym, side, pos, err := parsePosition(entry)
		if err != nil {
			log.Fatalf("无法解析 positions 项 %q: %v", entry, err)
		}
		s, ok := series[sym]
		if !ok {
			log.Fatalf("持仓 symbol %s 没有对应K线数据", sym)
		}
		if side == inventory.Short {
			s.InitialShort = pos
		} else {
			s.InitialLong = pos
		}
	}

	input := make([]backtest.SymbolSeries, 0, len(series))
	for _, sym := range cfg.Symbols {
		if s, ok := series[sym.Name]; ok {
			input = append(input, *s)
		}
	}

	engine := backtest.NewEngine(backtest.Config{
		StartingBalance: cfg.Backtest.StartingBalance,
		TakerFee:        *takerFee,
		EMASpan:         cfg.Backtest.EMASpan,
		Bot:             cfg.Bot,
	}, input)
	engine.SetLogger(zlog)
	alerts := alert.NewManager(
		[]alert.Channel{alert.NewZapChannel("zap", zlog)}, 5*time.Minute)
	engine.SetAlerts(alerts)

	if *metricsAddr != "" {
		mon := monitor.New(monitor.DefaultConfig())
		mon.Serve(*metricsAddr)
		engine.SetMonitor(mon)
	}

	result, err := engine.Run()
	if err != nil {
		log.Fatalf("回测失败: %v", err)
	}

	log.Printf("run=%s fills=%d unstuck=%d pnl=%.4f return=%.4f%% winRate=%.2f maxDD=%.4f%%",
		result.RunID, result.TotalFills, result.UnstuckFills, result.TotalPnL,
		result.TotalReturn*100, result.WinRate, result.MaxDrawdown*100)

	if *maxDD > 0 && result.MaxDrawdown > *maxDD {
		_ = alerts.DrawdownExceeded(result.MaxDrawdown, *maxDD)
	}
	zlog.LogSummary(map[string]interface{}{
		"runId":        result.RunID,
		"finalBalance": result.FinalBalance,
		"pnlCumsum":    result.TotalPnL,
	})

	report := *outPath
	if report == "" {
		report = cfg.Backtest.ReportPath
	}
	if report != "" {
		if err := backtest.WriteReport(report, result); err != nil {
			log.Fatalf("写入报告失败: %v", err)
		}
		log.Printf("已写入报告: %s", report)
	}
}

func splitList(arg string) []string {
	var out []string
	for _, p := range strings.Split(arg, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePosition 解析 symbol:side:size:price。size 为绝对值，方向由 side 决定。
func parsePosition(entry string) (string, inventory.Side, inventory.Position, error) {
	items := strings.Split(entry, ":")
	if len(items) != 4 {
		return "", 0, inventory.Position{}, strconv.ErrSyntax
	}
	sym := strings.ToUpper(strings.TrimSpace(items[0]))
	var side inventory.Side
	switch strings.ToLower(strings.TrimSpace(items[1])) {
	case "long":
		side = inventory.Long
	case "short":
		side = inventory.Short
	default:
		return "", 0, inventory.Position{}, strconv.ErrSyntax
	}
	size, err := strconv.ParseFloat(items[2], 64)
	if err != nil {
		return "", 0, inventory.Position{}, err
	}
	price, err := strconv.ParseFloat(items[3], 64)
	if err != nil {
		return "", 0, inventory.Position{}, err
	}
	return sym, side, inventory.Position{Size: side.Dir() * size, Price: price}, nil
}
