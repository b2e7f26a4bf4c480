package binance

import (
	"errors"
	"fmt"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

// 币安错误码: Order does not exist
const codeUnknownOrder = -2013

// STP 触发时的过期状态, sdk 未定义该常量
const orderStatusExpiredInMatch binance.OrderStatusType = "EXPIRED_IN_MATCH"

func binanceSide(side exchange.OrderSide) binance.SideType {
	switch side {
	case exchange.OrderSideBuy:
		return binance.SideTypeBuy
	case exchange.OrderSideSell:
		return binance.SideTypeSell
	default:
		return ""
	}
}

func fromBinanceOrderStatus(status binance.OrderStatusType) exchange.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePendingCancel:
		return exchange.OrderStatusPending
	case binance.OrderStatusTypePartiallyFilled:
		return exchange.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return exchange.OrderStatusFilled
	case binance.OrderStatusTypeCanceled:
		return exchange.OrderStatusCancelled
	case binance.OrderStatusTypeExpired, orderStatusExpiredInMatch:
		return exchange.OrderStatusExpired
	case binance.OrderStatusTypeRejected:
		return exchange.OrderStatusRejected
	default:
		return exchange.OrderStatus(status)
	}
}

// convertErr 把 sdk 错误归类到 exchange 的哨兵错误
func convertErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == codeUnknownOrder {
			return fmt.Errorf("%w: %s", exchange.ErrOrderNotFound, apiErr.Message)
		}
		return fmt.Errorf("%w: code=%d %s", exchange.ErrOrderRejected, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", exchange.ErrNetwork, err)
}

// avgFillPrice 成交均价 = 累计成交额 / 成交数量
func avgFillPrice(executedQty, cumQuote string) (price, qty decimal.Decimal, err error) {
	qty, err = decimal.NewFromString(executedQty)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse executed qty %q: %w", executedQty, err)
	}
	quote, err := decimal.NewFromString(cumQuote)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse cummulative quote qty %q: %w", cumQuote, err)
	}
	if qty.IsZero() {
		return decimal.Zero, qty, nil
	}
	return quote.Div(qty), qty, nil
}
