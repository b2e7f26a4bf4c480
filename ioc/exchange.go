package ioc

import (
	"log/slog"

	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/KNICEX/auto-trader/internal/service/exchange/binance"
	"github.com/KNICEX/auto-trader/internal/service/exchange/paper"
	"github.com/shopspring/decimal"
)

// InitExchange paper 模式行情仍然来自币安公开接口, 只模拟成交
func InitExchange(cfg config.Config) exchange.Service {
	binanceSvc := binance.NewService(InitBinanceCli(cfg.Exchange))
	if cfg.Exchange.Mode == "binance" {
		slog.Info("live trading on binance", "testnet", cfg.Exchange.Testnet)
		return binanceSvc
	}

	pairs, err := cfg.Trading.TradingPairs()
	if err != nil {
		panic(err)
	}
	quote := pairs[0].Quote
	slog.Info("paper trading", "balance", cfg.Exchange.PaperBalance, "asset", quote)
	return paper.NewExchangeService(binanceSvc.MarketService(),
		paper.WithBalance(quote, decimal.NewFromFloat(cfg.Exchange.PaperBalance)),
		paper.WithFeeRate(decimal.NewFromFloat(cfg.Exchange.PaperFeeRate)),
	)
}
