package binance

import (
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
)

var _ exchange.Service = (*Service)(nil)

type Service struct {
	marketSvc  exchange.MarketService
	orderSvc   exchange.OrderService
	accountSvc exchange.AccountService
}

// NewService 币安现货
func NewService(cli *binance.Client) *Service {
	return &Service{
		marketSvc:  NewMarketService(cli),
		orderSvc:   NewOrderService(cli),
		accountSvc: NewAccountService(cli),
	}
}

func (s *Service) MarketService() exchange.MarketService {
	return s.marketSvc
}

func (s *Service) OrderService() exchange.OrderService {
	return s.orderSvc
}

func (s *Service) AccountService() exchange.AccountService {
	return s.accountSvc
}
