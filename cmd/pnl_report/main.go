package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/A1doranM/passivbot/backtest"
)

type stats struct {
	fills       int
	notional    float64
	realizedPnL float64
}

func (s *stats) add(price, qtyAbs, pnl float64) {
	if qtyAbs <= 0 || price <= 0 {
		return
	}
	s.fills++
	s.notional += price * qtyAbs
	s.realizedPnL += pnl
}

// 回测报告 PnL 汇总：按订单类型拆分成交笔数/名义/已实现盈亏。
// 用法：
//
//	go run ./cmd/pnl_report -report report.json -symbol BTCUSDT -since 2024-01-01T00:00:00Z
func main() {
	reportPath := flag.String("report", "report.json", "回测报告路径")
	symbol := flag.String("symbol", "", "仅统计指定交易对 (默认全量)")
	sinceStr := flag.String("since", "", "仅统计此时间之后的成交 (RFC3339)")
	flag.Parse()

	var since time.Time
	var err error
	if *sinceStr != "" {
		since, err = time.Parse(time.RFC3339Nano, *sinceStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析 since 参数失败: %v\n", err)
			os.Exit(1)
		}
	}

	result, err := backtest.ReadReport(*reportPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法读取报告: %v\n", err)
		os.Exit(1)
	}

	byType := make(map[string]*stats)
	total := stats{}
	for _, f := range result.Fills {
		if *symbol != "" && f.Symbol != *symbol {
			continue
		}
		if !since.IsZero() && f.Timestamp.Before(since) {
			continue
		}
		qtyAbs := f.Qty
		if qtyAbs < 0 {
			qtyAbs = -qtyAbs
		}
		st, ok := byType[f.Type]
		if !ok {
			st = &stats{}
			byType[f.Type] = st
		}
		st.add(f.Price, qtyAbs, f.PnL)
		total.add(f.Price, qtyAbs, f.PnL)
	}

	fmt.Printf("报告: %s (run=%s)\n", *reportPath, result.RunID)
	if *symbol != "" {
		fmt.Printf("交易对: %s\n", *symbol)
	}
	if !since.IsZero() {
		fmt.Printf("起始时间: %s\n", since.Format(time.RFC3339))
	}
	fmt.Printf("区间: %s ~ %s\n",
		result.StartTime.Format(time.RFC3339), result.EndTime.Format(time.RFC3339))

	types := make([]string, 0, len(byType))
	for k := range byType {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		st := byType[k]
		fmt.Printf("%-22s 笔数=%-5d 名义=%.4f 盈亏=%.6f\n", k, st.fills, st.notional, st.realizedPnL)
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("成交笔数: %d\n", total.fills)
	fmt.Printf("成交名义: %.4f\n", total.notional)
	fmt.Printf("Realized PnL: %.6f\n", total.realizedPnL)
	fmt.Printf("期末权益: %.4f (收益率 %.4f%%)\n", result.FinalBalance, result.TotalReturn*100)
	fmt.Printf("最大回撤: %.4f%%\n", result.MaxDrawdown*100)
}
