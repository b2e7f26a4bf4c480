package exchange

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRejected        OrderStatus = "rejected"
	// 市价单吃不满深度时会过期, 过期前可能已部分成交
	OrderStatusExpired OrderStatus = "expired"
)

// IsFilled 判断订单是否已完全成交
func (s OrderStatus) IsFilled() bool {
	return s == OrderStatusFilled
}

// NewClientOrderId 生成客户端订单号, 同一笔决策的所有重试共用一个
func NewClientOrderId() string {
	return "at-" + uuid.NewString()
}

// PlaceOrderReq 市价单请求
type PlaceOrderReq struct {
	TradingPair TradingPair
	Side        OrderSide
	// 买单按计价币金额下单 (例如 100 USDT)
	QuoteAmount decimal.Decimal
	// 卖单按基础币数量下单
	Quantity      decimal.Decimal
	ClientOrderId string
}

type OrderResult struct {
	ClientOrderId  string
	ExchangeId     string
	FilledPrice    decimal.Decimal // 成交均价
	FilledQuantity decimal.Decimal // 已成交基础币数量
	Status         OrderStatus
}

// IsConfirmed 有成交量即确认, 不看最终状态; 过期或撤销前成交的部分同样要记入持仓
func (r OrderResult) IsConfirmed() bool {
	return r.FilledQuantity.IsPositive()
}

// IsPartial 已确认但没有全部成交
func (r OrderResult) IsPartial() bool {
	return r.IsConfirmed() && r.Status != OrderStatusFilled
}

// FilledValue 成交额
func (r OrderResult) FilledValue() decimal.Decimal {
	return r.FilledPrice.Mul(r.FilledQuantity)
}

type OrderService interface {
	// PlaceOrder 下市价单, 失败返回 ErrOrderRejected / ErrNetwork
	PlaceOrder(ctx context.Context, req PlaceOrderReq) (OrderResult, error)
	// GetOrder 按客户端订单号查询, 不存在返回 ErrOrderNotFound
	GetOrder(ctx context.Context, tradingPair TradingPair, clientOrderId string) (OrderResult, error)
}
