package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
)

// KlineProvider K线数据提供者
// 可以是币安公开行情, 也可以是测试用的模拟数据
type KlineProvider interface {
	GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error)
}

// MockKlineProvider 模拟K线数据提供者（用于测试和离线演示）
type MockKlineProvider struct {
	mu     sync.RWMutex
	klines map[string][]exchange.Kline // key: tradingPair_interval
}

// NewMockKlineProvider 创建模拟K线提供者
func NewMockKlineProvider() *MockKlineProvider {
	return &MockKlineProvider{
		klines: make(map[string][]exchange.Kline),
	}
}

func klineKey(tradingPair exchange.TradingPair, interval exchange.Interval) string {
	return tradingPair.ToString() + "_" + interval.ToString()
}

// SetKlines 覆盖模拟K线数据
func (p *MockKlineProvider) SetKlines(tradingPair exchange.TradingPair, interval exchange.Interval, klines []exchange.Kline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.klines[klineKey(tradingPair, interval)] = klines
}

// AppendKline 追加一根新K线, 模拟行情推进
func (p *MockKlineProvider) AppendKline(tradingPair exchange.TradingPair, interval exchange.Interval, kline exchange.Kline) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := klineKey(tradingPair, interval)
	p.klines[key] = append(p.klines[key], kline)
}

// SetCloses 按收盘价序列生成K线
func (p *MockKlineProvider) SetCloses(tradingPair exchange.TradingPair, interval exchange.Interval, startTime time.Time, closes ...float64) {
	p.SetKlines(tradingPair, interval, KlinesFromCloses(startTime, interval, closes...))
}

// GetKlines 返回最近 Limit 根
func (p *MockKlineProvider) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	all, exists := p.klines[klineKey(req.TradingPair, req.Interval)]
	if !exists || len(all) == 0 {
		return nil, fmt.Errorf("%w: no klines for %s %s", exchange.ErrDataUnavailable, req.TradingPair, req.Interval)
	}
	start := 0
	if req.Limit > 0 && len(all) > req.Limit {
		start = len(all) - req.Limit
	}
	res := make([]exchange.Kline, len(all)-start)
	copy(res, all[start:])
	return res, nil
}

// KlinesFromCloses 用收盘价生成连续K线, 开盘价取上一根收盘价
func KlinesFromCloses(startTime time.Time, interval exchange.Interval, closes ...float64) []exchange.Kline {
	klines := make([]exchange.Kline, len(closes))
	for i, c := range closes {
		openPrice := c
		if i > 0 {
			openPrice = closes[i-1]
		}
		openTime := startTime.Add(time.Duration(i) * interval.Duration())
		closePrice := decimal.NewFromFloat(c)
		klines[i] = exchange.Kline{
			OpenTime:         openTime,
			CloseTime:        openTime.Add(interval.Duration() - time.Millisecond),
			Open:             decimal.NewFromFloat(openPrice),
			Close:            closePrice,
			High:             decimal.Max(closePrice, decimal.NewFromFloat(openPrice)),
			Low:              decimal.Min(closePrice, decimal.NewFromFloat(openPrice)),
			Volume:           decimal.NewFromInt(1000),
			QuoteAssetVolume: closePrice.Mul(decimal.NewFromInt(1000)),
		}
	}
	return klines
}
