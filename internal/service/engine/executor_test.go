package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	btcusdt = exchange.TradingPair{Base: "BTC", Quote: "USDT"}
	ethusdt = exchange.TradingPair{Base: "ETH", Quote: "USDT"}

	errTimeout = fmt.Errorf("%w: %w", exchange.ErrNetwork, context.DeadlineExceeded)
)

// MockOrderService 模拟下单接口
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, req exchange.PlaceOrderReq) (exchange.OrderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.OrderResult), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, tradingPair exchange.TradingPair, clientOrderId string) (exchange.OrderResult, error) {
	args := m.Called(ctx, tradingPair, clientOrderId)
	return args.Get(0).(exchange.OrderResult), args.Error(1)
}

func filled(price, qty int64) exchange.OrderResult {
	return exchange.OrderResult{
		ExchangeId:     "1",
		FilledPrice:    decimal.NewFromInt(price),
		FilledQuantity: decimal.NewFromInt(qty),
		Status:         exchange.OrderStatusFilled,
	}
}

func newTestExecutor(orderSvc exchange.OrderService, retries int) *Executor {
	return NewExecutor(orderSvc,
		WithRetries(retries),
		WithOrderTimeout(time.Second),
		WithBackoff(time.Millisecond, 2*time.Millisecond),
	)
}

func buyReq() exchange.PlaceOrderReq {
	return exchange.PlaceOrderReq{
		TradingPair: btcusdt,
		Side:        exchange.OrderSideBuy,
		QuoteAmount: decimal.NewFromInt(100),
	}
}

func TestExecutor_Submit(t *testing.T) {
	testCases := []struct {
		name       string
		setup      func(m *MockOrderService)
		retries    int
		wantErr    bool
		wantErrIs  error
		wantPlaces int
	}{
		{
			name: "首次成功",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(filled(100, 1), nil).Once()
			},
			retries:    3,
			wantPlaces: 1,
		},
		{
			name: "超时后重试成功",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{}, errTimeout).Once()
				m.On("GetOrder", mock.Anything, btcusdt, mock.Anything).Return(exchange.OrderResult{}, exchange.ErrOrderNotFound).Once()
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(filled(100, 1), nil).Once()
			},
			retries:    3,
			wantPlaces: 2,
		},
		{
			name: "超时但交易所已成交",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{}, errTimeout).Once()
				m.On("GetOrder", mock.Anything, btcusdt, mock.Anything).Return(filled(100, 1), nil).Once()
			},
			retries:    3,
			wantPlaces: 1,
		},
		{
			name: "重试耗尽",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{}, errTimeout)
				m.On("GetOrder", mock.Anything, btcusdt, mock.Anything).Return(exchange.OrderResult{}, exchange.ErrOrderNotFound)
			},
			retries:    2,
			wantErr:    true,
			wantErrIs:  exchange.ErrNetwork,
			wantPlaces: 3,
		},
		{
			name: "不可重试的错误",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{}, errors.New("invalid api key"))
				m.On("GetOrder", mock.Anything, btcusdt, mock.Anything).Return(exchange.OrderResult{}, exchange.ErrOrderNotFound)
			},
			retries:    3,
			wantErr:    true,
			wantPlaces: 1,
		},
		{
			name: "过期前部分成交",
			setup: func(m *MockOrderService) {
				res := filled(100, 1)
				res.Status = exchange.OrderStatusExpired
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(res, nil).Once()
			},
			retries:    3,
			wantPlaces: 1,
		},
		{
			name: "查询到过期但部分成交",
			setup: func(m *MockOrderService) {
				res := filled(100, 1)
				res.Status = exchange.OrderStatusExpired
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{}, errTimeout).Once()
				m.On("GetOrder", mock.Anything, btcusdt, mock.Anything).Return(res, nil).Once()
			},
			retries:    3,
			wantPlaces: 1,
		},
		{
			name: "过期且没有成交",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{Status: exchange.OrderStatusExpired}, nil).Once()
			},
			retries:    3,
			wantErr:    true,
			wantErrIs:  exchange.ErrOrderRejected,
			wantPlaces: 1,
		},
		{
			name: "未成交",
			setup: func(m *MockOrderService) {
				m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{Status: exchange.OrderStatusCancelled}, nil).Once()
			},
			retries:    3,
			wantErr:    true,
			wantErrIs:  exchange.ErrOrderRejected,
			wantPlaces: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &MockOrderService{}
			tc.setup(m)

			res, err := newTestExecutor(m, tc.retries).Submit(context.Background(), buyReq())
			if tc.wantErr {
				require.Error(t, err)
				if tc.wantErrIs != nil {
					assert.ErrorIs(t, err, tc.wantErrIs)
				}
			} else {
				require.NoError(t, err)
				assert.True(t, res.IsConfirmed())
			}
			m.AssertNumberOfCalls(t, "PlaceOrder", tc.wantPlaces)
		})
	}
}

func TestExecutor_ReusesClientOrderId(t *testing.T) {
	m := &MockOrderService{}
	var ids []string
	record := func(args mock.Arguments) {
		ids = append(ids, args.Get(1).(exchange.PlaceOrderReq).ClientOrderId)
	}
	m.On("PlaceOrder", mock.Anything, mock.Anything).Return(exchange.OrderResult{}, errTimeout).Run(record).Twice()
	m.On("GetOrder", mock.Anything, btcusdt, mock.Anything).Return(exchange.OrderResult{}, exchange.ErrOrderNotFound).Twice()
	m.On("PlaceOrder", mock.Anything, mock.Anything).Return(filled(100, 1), nil).Run(record).Once()

	_, err := newTestExecutor(m, 3).Submit(context.Background(), buyReq())
	require.NoError(t, err)

	require.Len(t, ids, 3)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])
	m.AssertExpectations(t)
}

func TestExecutor_DetachedFromCancel(t *testing.T) {
	m := &MockOrderService{}
	m.On("PlaceOrder", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(filled(100, 1), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestExecutor(m, 0).Submit(ctx, buyReq())
	require.NoError(t, err)
	m.AssertExpectations(t)
}
