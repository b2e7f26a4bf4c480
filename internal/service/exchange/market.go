package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradingPair 交易对
type TradingPair struct {
	Base  string
	Quote string
}

// ParseTradingPair 解析 "BTC/USDT" / "KRW-BTC" / "BTCUSDT" 等写法
func ParseTradingPair(s string) (TradingPair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if base, quote, ok := strings.Cut(s, "/"); ok {
		return newTradingPair(base, quote, s)
	}
	if quote, base, ok := strings.Cut(s, "-"); ok {
		// upbit 风格, 计价币在前
		return newTradingPair(base, quote, s)
	}
	base, quote := SplitSymbol(s)
	return newTradingPair(base, quote, s)
}

func newTradingPair(base, quote, raw string) (TradingPair, error) {
	pair := TradingPair{Base: base, Quote: quote}
	if pair.IsZero() {
		return TradingPair{}, fmt.Errorf("invalid trading pair %q", raw)
	}
	return pair, nil
}

func SplitSymbol(s string) (string, string) {
	s = strings.ToUpper(s)
	// 常见 Quote 列表
	quotes := []string{"USDT", "BUSD", "USDC", "FDUSD", "KRW", "BTC", "ETH"}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	// fallback
	return s, ""
}

func (s TradingPair) IsZero() bool {
	return s.Base == "" || s.Quote == ""
}

func (s TradingPair) ToString() string {
	return fmt.Sprintf("%s%s", s.Base, s.Quote)
}

func (s TradingPair) ToSlashString() string {
	return fmt.Sprintf("%s/%s", s.Base, s.Quote)
}

func (s TradingPair) String() string {
	return s.ToSlashString()
}

type Interval string

func (i Interval) ToString() string {
	return string(i)
}

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval3m:  3 * time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval3d:  72 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

// Duration K线周期时长, 未知周期返回 0
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

func (i Interval) IsValid() bool {
	_, ok := intervalDurations[i]
	return ok
}

// Kline 一根K线, 记录后不可变
type Kline struct {
	OpenTime         time.Time
	CloseTime        time.Time
	Open             decimal.Decimal
	Close            decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Volume           decimal.Decimal // 成交量
	QuoteAssetVolume decimal.Decimal // 成交额
}

// IsClosed 收盘时间已过; 币安的 CloseTime 是下一根开盘前 1ms
func (k Kline) IsClosed(now time.Time) bool {
	return now.After(k.CloseTime)
}

type MarketService interface {
	// Ticker 最新成交价
	Ticker(ctx context.Context, tradingPair TradingPair) (decimal.Decimal, error)
	// GetKlines 最近 Limit 根K线, 按开盘时间升序; 行情源不可用时返回 ErrDataUnavailable
	GetKlines(ctx context.Context, req GetKlinesReq) ([]Kline, error)
}

type GetKlinesReq struct {
	TradingPair TradingPair
	Interval    Interval
	Limit       int
}
