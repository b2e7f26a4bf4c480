package paper

import (
	"context"
	"testing"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var btcusdt = exchange.TradingPair{Base: "BTC", Quote: "USDT"}

// createTestExchange 创建测试用的模拟盘, 最新价 100
func createTestExchange(t *testing.T, opts ...Option) (*ExchangeService, *MockKlineProvider) {
	provider := NewMockKlineProvider()
	provider.SetCloses(btcusdt, exchange.Interval1m, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 98, 99, 100)
	opts = append([]Option{WithBalance("USDT", decimal.NewFromInt(1000))}, opts...)
	svc := NewExchangeService(provider, opts...)

	_, err := svc.GetKlines(context.Background(), exchange.GetKlinesReq{
		TradingPair: btcusdt,
		Interval:    exchange.Interval1m,
		Limit:       10,
	})
	require.NoError(t, err)
	return svc, provider
}

func TestGetKlines_Limit(t *testing.T) {
	svc, _ := createTestExchange(t)
	klines, err := svc.GetKlines(context.Background(), exchange.GetKlinesReq{
		TradingPair: btcusdt,
		Interval:    exchange.Interval1m,
		Limit:       2,
	})
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, "99", klines[0].Close.String())
	assert.Equal(t, "100", klines[1].Close.String())

	_, err = svc.GetKlines(context.Background(), exchange.GetKlinesReq{
		TradingPair: exchange.TradingPair{Base: "ETH", Quote: "USDT"},
		Interval:    exchange.Interval1m,
	})
	assert.ErrorIs(t, err, exchange.ErrDataUnavailable)
}

func TestPlaceOrder_BuyThenSell(t *testing.T) {
	svc, provider := createTestExchange(t)
	ctx := context.Background()

	buy, err := svc.PlaceOrder(ctx, exchange.PlaceOrderReq{
		TradingPair:   btcusdt,
		Side:          exchange.OrderSideBuy,
		QuoteAmount:   decimal.NewFromInt(100),
		ClientOrderId: "buy-1",
	})
	require.NoError(t, err)
	assert.True(t, buy.IsConfirmed())
	assert.True(t, buy.FilledQuantity.Equal(decimal.NewFromInt(1)))

	usdt, _ := svc.GetBalance(ctx, "USDT")
	btc, _ := svc.GetBalance(ctx, "btc")
	assert.True(t, usdt.Equal(decimal.NewFromInt(900)))
	assert.True(t, btc.Equal(decimal.NewFromInt(1)))

	// 价格涨到 110 后卖出
	provider.AppendKline(btcusdt, exchange.Interval1m, KlinesFromCloses(time.Date(2024, 1, 1, 0, 3, 0, 0, time.UTC), exchange.Interval1m, 110)[0])
	_, err = svc.GetKlines(ctx, exchange.GetKlinesReq{TradingPair: btcusdt, Interval: exchange.Interval1m, Limit: 1})
	require.NoError(t, err)

	sell, err := svc.PlaceOrder(ctx, exchange.PlaceOrderReq{
		TradingPair:   btcusdt,
		Side:          exchange.OrderSideSell,
		Quantity:      buy.FilledQuantity,
		ClientOrderId: "sell-1",
	})
	require.NoError(t, err)
	assert.True(t, sell.FilledPrice.Equal(decimal.NewFromInt(110)))

	usdt, _ = svc.GetBalance(ctx, "USDT")
	assert.True(t, usdt.Equal(decimal.NewFromInt(1010)))
}

func TestPlaceOrder_IdempotentClientOrderId(t *testing.T) {
	svc, _ := createTestExchange(t)
	ctx := context.Background()
	req := exchange.PlaceOrderReq{
		TradingPair:   btcusdt,
		Side:          exchange.OrderSideBuy,
		QuoteAmount:   decimal.NewFromInt(100),
		ClientOrderId: "dup",
	}

	first, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	second, err := svc.PlaceOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ExchangeId, second.ExchangeId)

	// 只扣一次款
	usdt, _ := svc.GetBalance(ctx, "USDT")
	assert.True(t, usdt.Equal(decimal.NewFromInt(900)))

	got, err := svc.GetOrder(ctx, btcusdt, "dup")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestPlaceOrder_Rejected(t *testing.T) {
	testCases := []struct {
		name string
		req  exchange.PlaceOrderReq
	}{
		{
			name: "余额不足",
			req:  exchange.PlaceOrderReq{TradingPair: btcusdt, Side: exchange.OrderSideBuy, QuoteAmount: decimal.NewFromInt(5000)},
		},
		{
			name: "没有持币",
			req:  exchange.PlaceOrderReq{TradingPair: btcusdt, Side: exchange.OrderSideSell, Quantity: decimal.NewFromInt(1)},
		},
		{
			name: "金额为零",
			req:  exchange.PlaceOrderReq{TradingPair: btcusdt, Side: exchange.OrderSideBuy, QuoteAmount: decimal.Zero},
		},
		{
			name: "没有行情",
			req:  exchange.PlaceOrderReq{TradingPair: exchange.TradingPair{Base: "ETH", Quote: "USDT"}, Side: exchange.OrderSideBuy, QuoteAmount: decimal.NewFromInt(10)},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := createTestExchange(t)
			_, err := svc.PlaceOrder(context.Background(), tc.req)
			assert.ErrorIs(t, err, exchange.ErrOrderRejected)
		})
	}
}

func TestPlaceOrder_FeeRate(t *testing.T) {
	svc, _ := createTestExchange(t, WithFeeRate(decimal.NewFromFloat(0.001)))
	res, err := svc.PlaceOrder(context.Background(), exchange.PlaceOrderReq{
		TradingPair: btcusdt,
		Side:        exchange.OrderSideBuy,
		QuoteAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, res.FilledQuantity.Equal(decimal.NewFromFloat(0.999)))
}

func TestGetOrder_NotFound(t *testing.T) {
	svc, _ := createTestExchange(t)
	_, err := svc.GetOrder(context.Background(), btcusdt, "nope")
	assert.ErrorIs(t, err, exchange.ErrOrderNotFound)
}

func TestPlaceOrder_CancelledContext(t *testing.T) {
	svc, _ := createTestExchange(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.PlaceOrder(ctx, exchange.PlaceOrderReq{TradingPair: btcusdt, Side: exchange.OrderSideBuy, QuoteAmount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, exchange.ErrNetwork)
}
