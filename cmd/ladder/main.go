package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"

	"github.com/A1doranM/passivbot/config"
	"github.com/A1doranM/passivbot/inventory"
	"github.com/A1doranM/passivbot/strategy"
)

// 平仓阶梯速查工具：给定持仓与行情快照，打印将要挂出的全部平仓档位。
// 用法：
//
//	go run ./cmd/ladder -config configs/config.yaml -symbol BTCUSDT \
//	  -side long -size 1.0 -entry 64000 -balance 100000 -bid 64980 -ask 65000
func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	symbol := flag.String("symbol", "", "交易对")
	sideArg := flag.String("side", "long", "持仓方向：long 或 short")
	size := flag.Float64("size", 0, "持仓数量（绝对值）")
	entry := flag.Float64("entry", 0, "开仓均价")
	balance := flag.Float64("balance", 0, "账户权益")
	bid := flag.Float64("bid", 0, "最优买价")
	ask := flag.Float64("ask", 0, "最优卖价")
	maxSinceOpen := flag.Float64("maxSinceOpen", 0, "开仓以来最高价（追踪用，0 表示未知）")
	minSinceMax := flag.Float64("minSinceMax", 0, "最高价之后的最低价")
	minSinceOpen := flag.Float64("minSinceOpen", 0, "开仓以来最低价")
	maxSinceMin := flag.Float64("maxSinceMin", 0, "最低价之后的最高价")
	asJSON := flag.Bool("json", false, "以 JSON 输出")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf(".env 未找到，使用环境变量/配置文件")
	}

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	sym := strings.ToUpper(*symbol)
	idx, ok := cfg.SymbolIndex()[sym]
	if !ok {
		log.Fatalf("symbol %s 不在配置中", sym)
	}
	if *size <= 0 || *entry <= 0 {
		log.Fatal("必须指定 -size 和 -entry")
	}

	var side inventory.Side
	var params strategy.Params
	switch strings.ToLower(*sideArg) {
	case "long":
		side = inventory.Long
		params = cfg.Bot.Long
	case "short":
		side = inventory.Short
		params = cfg.Bot.Short
	default:
		log.Fatalf("无效方向: %s", *sideArg)
	}

	pos := inventory.Position{Size: side.Dir() * *size, Price: *entry}
	st := strategy.StateParams{
		Balance:   *balance,
		OrderBook: strategy.OrderBookTop{Bid: *bid, Ask: *ask},
	}
	tp := inventory.NewTrailingPrices(*entry)
	if *maxSinceOpen > 0 {
		tp.MaxSinceOpen = *maxSinceOpen
		tp.MinSinceMax = *minSinceMax
	}
	if *minSinceOpen > 0 {
		tp.MinSinceOpen = *minSinceOpen
		tp.MaxSinceMin = *maxSinceMin
	}

	ladder := strategy.CloseLadder(side, cfg.Symbols[idx].Exchange, st, params, pos, tp)

	if *asJSON {
		var json = jsoniter.ConfigCompatibleWithStandardLibrary
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		type row struct {
			Qty   float64 `json:"qty"`
			Price float64 `json:"price"`
			Type  string  `json:"type"`
		}
		rows := make([]row, len(ladder))
		for i, o := range ladder {
			rows[i] = row{Qty: o.Qty, Price: o.Price, Type: o.Type.String()}
		}
		if err := enc.Encode(rows); err != nil {
			log.Fatalf("输出失败: %v", err)
		}
		return
	}

	if len(ladder) == 0 {
		fmt.Println("无动作：仓位为空或追踪闸门未全部通过")
		return
	}
	fmt.Printf("%-4s %-12s %-12s %s\n", "#", "qty", "price", "type")
	for i, o := range ladder {
		fmt.Printf("%-4d %-12.6g %-12.6g %s\n", i+1, o.Qty, o.Price, o.Type)
	}
}
