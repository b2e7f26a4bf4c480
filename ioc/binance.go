package ioc

import (
	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/adshao/go-binance/v2"
)

func InitBinanceCli(cfg config.ExchangeConfig) *binance.Client {
	// 必须在创建 client 之前设置
	binance.UseTestnet = cfg.Testnet
	return binance.NewClient(cfg.ApiKey, cfg.ApiSecret)
}
