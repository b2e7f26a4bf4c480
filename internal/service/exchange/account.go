package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

type AccountService interface {
	// GetBalance 某资产的可用余额
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
}

// Service 交易所聚合服务
type Service interface {
	MarketService() MarketService
	OrderService() OrderService
	AccountService() AccountService
}
