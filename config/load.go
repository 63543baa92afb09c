package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/A1doranM/passivbot/exchange"
	"github.com/A1doranM/passivbot/infrastructure/logger"
	"github.com/A1doranM/passivbot/strategy"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string              `yaml:"env"`
	Logger   logger.Config       `yaml:"logger"`
	Bot      strategy.ParamsPair `yaml:"bot"`
	Symbols  []SymbolConfig      `yaml:"symbols"`
	Backtest BacktestConfig      `yaml:"backtest"`
}

// SymbolConfig 保存交易对的精度/名义限制（来自 exchangeInfo）。
// symbol 在持仓簿中的序号即其在列表中的下标。
type SymbolConfig struct {
	Name     string          `yaml:"name"`
	Exchange exchange.Params `yaml:"exchange"`
}

// BacktestConfig 回测运行参数。
type BacktestConfig struct {
	StartingBalance float64 `yaml:"startingBalance"`
	CandlesPath     string  `yaml:"candlesPath"`
	ReportPath      string  `yaml:"reportPath"`
	EMASpan         float64 `yaml:"emaSpan"` // 解套价带 EMA 周期（bar 数）
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if cfg.Logger.Level == "" {
		cfg.Logger = logger.DefaultConfig()
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides selected fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("PB_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("PB_REPORT_PATH"); v != "" {
		cfg.Backtest.ReportPath = v
	}
	if v := os.Getenv("PB_STARTING_BALANCE"); v != "" {
		bal, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("parse PB_STARTING_BALANCE: %w", err)
		}
		cfg.Backtest.StartingBalance = bal
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols config is required")
	}
	for i, sc := range cfg.Symbols {
		if sc.Name == "" {
			return fmt.Errorf("symbol #%d name is required", i)
		}
		if err := sc.Exchange.Validate(); err != nil {
			return fmt.Errorf("symbol %s: %w", sc.Name, err)
		}
	}
	if err := cfg.Bot.Long.Validate(); err != nil {
		return fmt.Errorf("bot.long: %w", err)
	}
	if err := cfg.Bot.Short.Validate(); err != nil {
		return fmt.Errorf("bot.short: %w", err)
	}
	if cfg.Backtest.StartingBalance < 0 {
		return errors.New("backtest.startingBalance must be >= 0")
	}
	if cfg.Backtest.EMASpan < 0 {
		return errors.New("backtest.emaSpan must be >= 0")
	}
	return nil
}

// ExchangeParams 按 symbol 下标展开精度参数，供持仓簿/选择器索引。
func (c AppConfig) ExchangeParams() []exchange.Params {
	out := make([]exchange.Params, len(c.Symbols))
	for i, sc := range c.Symbols {
		out[i] = sc.Exchange
	}
	return out
}

// SymbolIndex 返回 symbol 名到下标的映射。
func (c AppConfig) SymbolIndex() map[string]int {
	idx := make(map[string]int, len(c.Symbols))
	for i, sc := range c.Symbols {
		idx[sc.Name] = i
	}
	return idx
}
