package binance

import (
	"context"
	"strconv"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
)

var _ exchange.OrderService = (*OrderService)(nil)

type OrderService struct {
	cli *binance.Client
}

func NewOrderService(cli *binance.Client) *OrderService {
	return &OrderService{cli: cli}
}

// PlaceOrder 现货市价单; 买单用 quoteOrderQty, 卖单用 quantity
func (svc *OrderService) PlaceOrder(ctx context.Context, req exchange.PlaceOrderReq) (exchange.OrderResult, error) {
	s := svc.cli.NewCreateOrderService().
		Symbol(req.TradingPair.ToString()).
		Side(binanceSide(req.Side)).
		Type(binance.OrderTypeMarket).
		NewOrderRespType(binance.NewOrderRespTypeFULL)
	if req.ClientOrderId != "" {
		s.NewClientOrderID(req.ClientOrderId)
	}
	if req.Side == exchange.OrderSideBuy {
		s.QuoteOrderQty(req.QuoteAmount.String())
	} else {
		s.Quantity(req.Quantity.String())
	}

	resp, err := s.Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, convertErr(err)
	}
	price, qty, err := avgFillPrice(resp.ExecutedQuantity, resp.CummulativeQuoteQuantity)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	return exchange.OrderResult{
		ClientOrderId:  resp.ClientOrderID,
		ExchangeId:     strconv.FormatInt(resp.OrderID, 10),
		FilledPrice:    price,
		FilledQuantity: qty,
		Status:         fromBinanceOrderStatus(resp.Status),
	}, nil
}

func (svc *OrderService) GetOrder(ctx context.Context, tradingPair exchange.TradingPair, clientOrderId string) (exchange.OrderResult, error) {
	order, err := svc.cli.NewGetOrderService().
		Symbol(tradingPair.ToString()).
		OrigClientOrderID(clientOrderId).
		Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, convertErr(err)
	}
	return svc.parseOrder(order)
}

func (svc *OrderService) parseOrder(order *binance.Order) (exchange.OrderResult, error) {
	price, qty, err := avgFillPrice(order.ExecutedQuantity, order.CummulativeQuoteQuantity)
	if err != nil {
		return exchange.OrderResult{}, err
	}
	return exchange.OrderResult{
		ClientOrderId:  order.ClientOrderID,
		ExchangeId:     strconv.FormatInt(order.OrderID, 10),
		FilledPrice:    price,
		FilledQuantity: qty,
		Status:         fromBinanceOrderStatus(order.Status),
	}, nil
}
