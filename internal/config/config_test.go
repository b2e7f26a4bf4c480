package config

import (
	"strings"
	"testing"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func load(t *testing.T, content string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(content)))
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "")
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Exchange.Mode)
	assert.Equal(t, []string{"BTC/USDT"}, cfg.Trading.Pairs)
	assert.Equal(t, 10*time.Second, cfg.Trading.OrderTimeout)
	require.Len(t, cfg.Strategies, 3)
	assert.Equal(t, "sma", cfg.Strategies[0].Name)
	assert.Equal(t, 20, cfg.Strategies[0].Params.Int("slow", 0))
	assert.Equal(t, 2.0, cfg.Strategies[2].Params.Float("k", 0))
}

func TestLoad_File(t *testing.T) {
	cfg, err := load(t, `
trading:
  pairs: ["BTC/USDT", "ETHUSDT"]
  interval: 15m
  tick_interval_seconds: 30
  order_amount: 200
  order_timeout: 3s
strategies:
  - name: sma
    params: {fast: 3, slow: 10}
risk:
  max_position_pct: 0.2
  stop_loss_pct: 0.03
  take_profit_pct: 0.06
  daily_loss_limit: 50
  timezone: Asia/Shanghai
`)
	require.NoError(t, err)

	engineCfg, err := cfg.Trading.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, []exchange.TradingPair{{Base: "BTC", Quote: "USDT"}, {Base: "ETH", Quote: "USDT"}}, engineCfg.Pairs)
	assert.Equal(t, exchange.Interval15m, engineCfg.Interval)
	assert.Equal(t, 30*time.Second, engineCfg.TickInterval)
	assert.True(t, engineCfg.OrderAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, 3*time.Second, engineCfg.OrderTimeout)
	require.NoError(t, engineCfg.Validate())

	riskCfg := cfg.Risk.ManagerConfig()
	assert.True(t, riskCfg.MaxPositionPct.Equal(decimal.NewFromFloat(0.2)))
	require.NoError(t, riskCfg.Validate())

	loc, err := cfg.Risk.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "未知交易所模式", content: "exchange: {mode: kraken}"},
		{name: "币安缺少密钥", content: "exchange: {mode: binance}"},
		{name: "交易对格式错误", content: "trading: {pairs: [BTC]}"},
		{name: "不支持的周期", content: "trading: {interval: 7m}"},
		{name: "止损比例超过 1", content: "risk: {stop_loss_pct: 1.5}"},
		{name: "未知策略", content: "strategies: [{name: macd}]"},
		{name: "未知聚合方式", content: "trading: {aggregation: random}"},
		{name: "llm 策略缺少密钥", content: "strategies: [{name: llm}]"},
		{name: "时区错误", content: "risk: {timezone: Mars/Base}"},
		{name: "webhook 地址错误", content: "notify: {webhook_url: not-a-url}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.content)
			assert.Error(t, err)
		})
	}
}

func TestDump_MasksSecrets(t *testing.T) {
	cfg, err := load(t, `
exchange: {mode: binance, api_key: abcdefgh1234, api_secret: secretvalue9876}
llm: {gemini: {api_key: [gemini-key-5555]}}
`)
	require.NoError(t, err)

	out, err := Dump(cfg)
	require.NoError(t, err)
	text := string(out)
	assert.NotContains(t, text, "abcdefgh1234")
	assert.NotContains(t, text, "secretvalue9876")
	assert.Contains(t, text, "********1234")
	assert.Contains(t, text, "order_timeout: 10s")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Contains(t, back, "risk")
	// 原配置不受影响
	assert.Equal(t, "abcdefgh1234", cfg.Exchange.ApiKey)
}
