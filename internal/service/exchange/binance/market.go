package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
)

var _ exchange.MarketService = (*MarketService)(nil)

type MarketService struct {
	cli *binance.Client
}

// NewMarketService 创建市场数据服务
func NewMarketService(cli *binance.Client) *MarketService {
	return &MarketService{cli: cli}
}

func (m *MarketService) convertKlines(klines []*binance.Kline) ([]exchange.Kline, error) {
	kls := make([]exchange.Kline, len(klines))
	for i, k := range klines {
		fields := [...]string{k.Open, k.Close, k.High, k.Low, k.Volume, k.QuoteAssetVolume}
		var parsed [len(fields)]decimal.Decimal
		for j, f := range fields {
			d, err := decimal.NewFromString(f)
			if err != nil {
				return nil, fmt.Errorf("%w: bad kline value %q", exchange.ErrDataUnavailable, f)
			}
			parsed[j] = d
		}
		kls[i] = exchange.Kline{
			OpenTime:         time.UnixMilli(k.OpenTime),
			CloseTime:        time.UnixMilli(k.CloseTime),
			Open:             parsed[0],
			Close:            parsed[1],
			High:             parsed[2],
			Low:              parsed[3],
			Volume:           parsed[4],
			QuoteAssetVolume: parsed[5],
		}
	}
	return kls, nil
}

func (m *MarketService) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	svc := m.cli.NewKlinesService().Symbol(req.TradingPair.ToString()) // 币安使用 BTCUSDT 格式
	if req.Interval.ToString() != "" {
		svc.Interval(req.Interval.ToString())
	}
	if req.Limit > 0 {
		svc.Limit(req.Limit)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get klines %s: %w", exchange.ErrDataUnavailable, req.TradingPair, err)
	}
	return m.convertKlines(res)
}

func (m *MarketService) Ticker(ctx context.Context, tradingPair exchange.TradingPair) (decimal.Decimal, error) {
	prices, err := m.cli.NewListPricesService().Symbol(tradingPair.ToString()).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: ticker %s: %w", exchange.ErrDataUnavailable, tradingPair, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("%w: empty ticker for %s", exchange.ErrDataUnavailable, tradingPair)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad ticker price %q for %s", exchange.ErrDataUnavailable, prices[0].Price, tradingPair)
	}
	return price, nil
}
