package binance

import (
	"context"
	"fmt"
	"strings"

	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/adshao/go-binance/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ exchange.AccountService = (*AccountService)(nil)

type AccountService struct {
	cli *binance.Client
}

func NewAccountService(cli *binance.Client) *AccountService {
	return &AccountService{cli: cli}
}

// GetBalance 可用余额 (不含冻结), 没有该资产视为 0
func (s *AccountService) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	account, err := s.cli.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, convertErr(err)
	}
	balance, ok := lo.Find(account.Balances, func(b binance.Balance) bool {
		return strings.EqualFold(b.Asset, asset)
	})
	if !ok {
		return decimal.Zero, nil
	}
	free, err := decimal.NewFromString(balance.Free)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad %s balance %q", exchange.ErrDataUnavailable, asset, balance.Free)
	}
	return free, nil
}
