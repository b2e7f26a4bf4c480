package config

import (
	"fmt"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/engine"
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/KNICEX/auto-trader/internal/service/risk"
	"github.com/KNICEX/auto-trader/internal/service/strategy"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config 启动时加载一次, 之后只读
type Config struct {
	Log        LogConfig         `mapstructure:"log" yaml:"log"`
	DB         DBConfig          `mapstructure:"db" yaml:"db"`
	Exchange   ExchangeConfig    `mapstructure:"exchange" yaml:"exchange"`
	Trading    TradingConfig     `mapstructure:"trading" yaml:"trading"`
	Strategies []strategy.Config `mapstructure:"strategies" yaml:"strategies" validate:"required,min=1,dive"`
	Risk       RiskConfig        `mapstructure:"risk" yaml:"risk"`
	Dashboard  DashboardConfig   `mapstructure:"dashboard" yaml:"dashboard"`
	Notify     NotifyConfig      `mapstructure:"notify" yaml:"notify"`
	LLM        LLMConfig         `mapstructure:"llm" yaml:"llm"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	// 为空只输出到 stdout
	Path string `mapstructure:"path" yaml:"path"`
}

type DBConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
}

type ExchangeConfig struct {
	Mode         string  `mapstructure:"mode" yaml:"mode" validate:"oneof=paper binance"`
	ApiKey       string  `mapstructure:"api_key" yaml:"api_key" validate:"required_if=Mode binance"`
	ApiSecret    string  `mapstructure:"api_secret" yaml:"api_secret" validate:"required_if=Mode binance"`
	Testnet      bool    `mapstructure:"testnet" yaml:"testnet"`
	PaperBalance float64 `mapstructure:"paper_balance" yaml:"paper_balance" validate:"gte=0"`
	PaperFeeRate float64 `mapstructure:"paper_fee_rate" yaml:"paper_fee_rate" validate:"gte=0,lt=1"`
}

type TradingConfig struct {
	Pairs               []string      `mapstructure:"pairs" yaml:"pairs" validate:"required,min=1,dive,required"`
	Interval            string        `mapstructure:"interval" yaml:"interval" validate:"required"`
	CandleCount         int           `mapstructure:"candle_count" yaml:"candle_count" validate:"gte=0"`
	TickIntervalSeconds int           `mapstructure:"tick_interval_seconds" yaml:"tick_interval_seconds" validate:"gt=0"`
	Aggregation         string        `mapstructure:"aggregation" yaml:"aggregation" validate:"omitempty,oneof=majority unanimous weighted"`
	OrderAmount         float64       `mapstructure:"order_amount" yaml:"order_amount" validate:"gte=0"`
	TradingEnabled      bool          `mapstructure:"trading_enabled" yaml:"trading_enabled"`
	OrderRetries        int           `mapstructure:"order_retries" yaml:"order_retries" validate:"gte=0,lte=10"`
	OrderTimeout        time.Duration `mapstructure:"order_timeout" yaml:"order_timeout" validate:"gt=0"`
	HistorySize         int           `mapstructure:"history_size" yaml:"history_size" validate:"gt=0"`
}

type RiskConfig struct {
	MaxPositionPct float64 `mapstructure:"max_position_pct" yaml:"max_position_pct" validate:"gt=0,lte=1"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct" yaml:"stop_loss_pct" validate:"gt=0,lt=1"`
	TakeProfitPct  float64 `mapstructure:"take_profit_pct" yaml:"take_profit_pct" validate:"gt=0"`
	// 计价币金额, 0 不限制
	DailyLossLimit float64 `mapstructure:"daily_loss_limit" yaml:"daily_loss_limit" validate:"gte=0"`
	MaxDailyTrades int     `mapstructure:"max_daily_trades" yaml:"max_daily_trades" validate:"gte=0"`
	MinOrderValue  float64 `mapstructure:"min_order_value" yaml:"min_order_value" validate:"gte=0"`
	// 交易日划分时区, 例如 Asia/Shanghai
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

type DashboardConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" validate:"required_if=Enabled true"`
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url" validate:"omitempty,url"`
}

type LLMConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini" yaml:"gemini"`
}

type GeminiConfig struct {
	ApiKey []string `mapstructure:"api_key" yaml:"api_key"`
	Model  string   `mapstructure:"model" yaml:"model"`
}

// SetDefaults 默认值, 配置文件未写的键使用这里的值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.path", "logs/trading.log")
	v.SetDefault("db.dsn", "data/trading.db")
	v.SetDefault("exchange.mode", "paper")
	v.SetDefault("exchange.paper_balance", 10000)
	v.SetDefault("exchange.paper_fee_rate", 0.001)
	v.SetDefault("trading.pairs", []string{"BTC/USDT"})
	v.SetDefault("trading.interval", "1h")
	v.SetDefault("trading.candle_count", 100)
	v.SetDefault("trading.tick_interval_seconds", 60)
	v.SetDefault("trading.aggregation", string(strategy.AggregationMajority))
	v.SetDefault("trading.order_amount", 0)
	v.SetDefault("trading.trading_enabled", true)
	v.SetDefault("trading.order_retries", 3)
	v.SetDefault("trading.order_timeout", "10s")
	v.SetDefault("trading.history_size", 100)
	v.SetDefault("strategies", []map[string]any{
		{"name": "sma", "params": map[string]any{"fast": 5, "slow": 20}},
		{"name": "rsi", "params": map[string]any{"period": 14, "oversold": 30, "overbought": 70}},
		{"name": "bollinger", "params": map[string]any{"period": 20, "k": 2}},
	})
	v.SetDefault("risk.max_position_pct", 0.1)
	v.SetDefault("risk.stop_loss_pct", 0.05)
	v.SetDefault("risk.take_profit_pct", 0.1)
	v.SetDefault("risk.daily_loss_limit", 0)
	v.SetDefault("risk.max_daily_trades", 10)
	v.SetDefault("risk.min_order_value", 5)
	v.SetDefault("risk.timezone", "UTC")
	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.addr", ":8050")
	v.SetDefault("llm.gemini.model", "gemini-2.0-flash")
}

// Load 从 viper 解析并校验
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Trading.TradingPairs(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !exchange.Interval(c.Trading.Interval).IsValid() {
		return fmt.Errorf("invalid config: unsupported interval %q", c.Trading.Interval)
	}
	if _, err := c.Risk.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if lo.ContainsBy(c.Strategies, func(s strategy.Config) bool { return s.Name == "llm" }) && len(c.LLM.Gemini.ApiKey) == 0 {
		return fmt.Errorf("invalid config: llm strategy requires llm.gemini.api_key")
	}
	return nil
}

func (c TradingConfig) TradingPairs() ([]exchange.TradingPair, error) {
	res := make([]exchange.TradingPair, 0, len(c.Pairs))
	for _, s := range c.Pairs {
		pair, err := exchange.ParseTradingPair(s)
		if err != nil {
			return nil, err
		}
		res = append(res, pair)
	}
	return res, nil
}

// EngineConfig 转成引擎配置
func (c TradingConfig) EngineConfig() (engine.Config, error) {
	pairs, err := c.TradingPairs()
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		Pairs:          pairs,
		Interval:       exchange.Interval(c.Interval),
		CandleCount:    c.CandleCount,
		TickInterval:   time.Duration(c.TickIntervalSeconds) * time.Second,
		OrderAmount:    decimal.NewFromFloat(c.OrderAmount),
		TradingEnabled: c.TradingEnabled,
		OrderRetries:   c.OrderRetries,
		OrderTimeout:   c.OrderTimeout,
		HistorySize:    c.HistorySize,
	}, nil
}

func (c RiskConfig) ManagerConfig() risk.Config {
	return risk.Config{
		MaxPositionPct: decimal.NewFromFloat(c.MaxPositionPct),
		StopLossPct:    decimal.NewFromFloat(c.StopLossPct),
		TakeProfitPct:  decimal.NewFromFloat(c.TakeProfitPct),
		MaxDailyTrades: c.MaxDailyTrades,
		MinOrderValue:  decimal.NewFromFloat(c.MinOrderValue),
	}
}

func (c RiskConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
