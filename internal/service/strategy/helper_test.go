package strategy

import (
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var btcusdt = exchange.TradingPair{Base: "BTC", Quote: "USDT"}

// snapshotOf 用收盘价序列构造快照
func snapshotOf(closes ...float64) Snapshot {
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]exchange.Kline, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		klines[i] = exchange.Kline{
			OpenTime:  baseTime.Add(time.Duration(i) * time.Minute),
			CloseTime: baseTime.Add(time.Duration(i+1)*time.Minute - time.Millisecond),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1000),
		}
	}
	return Snapshot{
		TradingPair: btcusdt,
		Interval:    exchange.Interval1m,
		Klines:      klines,
		FetchedAt:   baseTime.Add(time.Duration(len(closes)) * time.Minute),
	}
}

func repeat(v float64, n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = v
	}
	return res
}
