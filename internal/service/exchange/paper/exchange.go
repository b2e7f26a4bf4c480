package paper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
)

// 编译时检查接口实现
var (
	_ exchange.Service        = (*ExchangeService)(nil)
	_ exchange.MarketService  = (*ExchangeService)(nil)
	_ exchange.OrderService   = (*ExchangeService)(nil)
	_ exchange.AccountService = (*ExchangeService)(nil)
)

// ExchangeService 模拟盘: 行情来自 KlineProvider, 市价单按最新价立即成交
type ExchangeService struct {
	provider KlineProvider
	feeRate  decimal.Decimal

	priceMu       sync.RWMutex
	currentPrices map[string]decimal.Decimal // key: tradingPair symbol

	// 订单和余额共用一把锁, 保证成交与扣款原子
	mu          sync.Mutex
	balances    map[string]decimal.Decimal // key: asset
	orders      map[string]exchange.OrderResult
	nextOrderId int64
}

type Option func(*ExchangeService)

// WithFeeRate 手续费率, 始终以计价币扣除
func WithFeeRate(rate decimal.Decimal) Option {
	return func(svc *ExchangeService) {
		svc.feeRate = rate
	}
}

// WithBalance 初始余额
func WithBalance(asset string, amount decimal.Decimal) Option {
	return func(svc *ExchangeService) {
		svc.balances[strings.ToUpper(asset)] = amount
	}
}

func NewExchangeService(provider KlineProvider, opts ...Option) *ExchangeService {
	svc := &ExchangeService{
		provider:      provider,
		feeRate:       decimal.Zero,
		currentPrices: make(map[string]decimal.Decimal),
		balances:      make(map[string]decimal.Decimal),
		orders:        make(map[string]exchange.OrderResult),
		nextOrderId:   1,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *ExchangeService) MarketService() exchange.MarketService {
	return svc
}

func (svc *ExchangeService) OrderService() exchange.OrderService {
	return svc
}

func (svc *ExchangeService) AccountService() exchange.AccountService {
	return svc
}

// GetKlines 透传行情, 并用最后一根收盘价更新模拟成交价
func (svc *ExchangeService) GetKlines(ctx context.Context, req exchange.GetKlinesReq) ([]exchange.Kline, error) {
	klines, err := svc.provider.GetKlines(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(klines) > 0 {
		svc.updatePrice(req.TradingPair, klines[len(klines)-1].Close)
	}
	return klines, nil
}

func (svc *ExchangeService) Ticker(ctx context.Context, tradingPair exchange.TradingPair) (decimal.Decimal, error) {
	svc.priceMu.RLock()
	defer svc.priceMu.RUnlock()

	price, exists := svc.currentPrices[tradingPair.ToString()]
	if !exists {
		return decimal.Zero, fmt.Errorf("%w: no price data for %s", exchange.ErrDataUnavailable, tradingPair)
	}
	return price, nil
}

// updatePrice 更新交易对的当前价格（由K线数据驱动）
func (svc *ExchangeService) updatePrice(tradingPair exchange.TradingPair, price decimal.Decimal) {
	svc.priceMu.Lock()
	defer svc.priceMu.Unlock()
	svc.currentPrices[tradingPair.ToString()] = price
}

func (svc *ExchangeService) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.balances[strings.ToUpper(asset)], nil
}

// PlaceOrder 市价单立即全部成交; 相同 ClientOrderId 重复提交返回首次结果
func (svc *ExchangeService) PlaceOrder(ctx context.Context, req exchange.PlaceOrderReq) (exchange.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return exchange.OrderResult{}, fmt.Errorf("%w: %w", exchange.ErrNetwork, err)
	}
	price, err := svc.Ticker(ctx, req.TradingPair)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("%w: %w", exchange.ErrOrderRejected, err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if req.ClientOrderId != "" {
		if existing, ok := svc.orders[req.ClientOrderId]; ok {
			return existing, nil
		}
	}

	base, quote := req.TradingPair.Base, req.TradingPair.Quote
	var qty decimal.Decimal
	switch req.Side {
	case exchange.OrderSideBuy:
		if !req.QuoteAmount.IsPositive() {
			return exchange.OrderResult{}, fmt.Errorf("%w: quote amount must be positive", exchange.ErrOrderRejected)
		}
		if svc.balances[quote].LessThan(req.QuoteAmount) {
			return exchange.OrderResult{}, fmt.Errorf("%w: insufficient %s balance", exchange.ErrOrderRejected, quote)
		}
		// 手续费从花费的计价币中扣, 成交数量即到账数量
		qty = req.QuoteAmount.Mul(decimal.NewFromInt(1).Sub(svc.feeRate)).Div(price)
		svc.balances[quote] = svc.balances[quote].Sub(req.QuoteAmount)
		svc.balances[base] = svc.balances[base].Add(qty)
	case exchange.OrderSideSell:
		if !req.Quantity.IsPositive() {
			return exchange.OrderResult{}, fmt.Errorf("%w: quantity must be positive", exchange.ErrOrderRejected)
		}
		if svc.balances[base].LessThan(req.Quantity) {
			return exchange.OrderResult{}, fmt.Errorf("%w: insufficient %s balance", exchange.ErrOrderRejected, base)
		}
		qty = req.Quantity
		proceeds := qty.Mul(price)
		svc.balances[base] = svc.balances[base].Sub(qty)
		svc.balances[quote] = svc.balances[quote].Add(proceeds.Mul(decimal.NewFromInt(1).Sub(svc.feeRate)))
	default:
		return exchange.OrderResult{}, fmt.Errorf("%w: unknown side %q", exchange.ErrOrderRejected, req.Side)
	}

	res := exchange.OrderResult{
		ClientOrderId:  req.ClientOrderId,
		ExchangeId:     strconv.FormatInt(svc.nextOrderId, 10),
		FilledPrice:    price,
		FilledQuantity: qty,
		Status:         exchange.OrderStatusFilled,
	}
	svc.nextOrderId++
	if req.ClientOrderId != "" {
		svc.orders[req.ClientOrderId] = res
	}
	return res, nil
}

func (svc *ExchangeService) GetOrder(ctx context.Context, tradingPair exchange.TradingPair, clientOrderId string) (exchange.OrderResult, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	res, ok := svc.orders[clientOrderId]
	if !ok {
		return exchange.OrderResult{}, fmt.Errorf("%w: %s", exchange.ErrOrderNotFound, clientOrderId)
	}
	return res, nil
}
