package portfolio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/auto-trader/internal/entity"
	"github.com/KNICEX/auto-trader/internal/repo"
	"github.com/shopspring/decimal"
)

// AccountState 账户状态快照
type AccountState struct {
	Balance          decimal.Decimal // 计价币可用余额
	DailyRealizedPnl decimal.Decimal
	DailyLossLimit   decimal.Decimal // 正数, 单位为计价币
	DailyTrades      int
	Day              string // 2006-01-02
}

// DailyLossReached 当日亏损是否已达上限
func (s AccountState) DailyLossReached() bool {
	return s.DailyLossLimit.IsPositive() && s.DailyRealizedPnl.LessThanOrEqual(s.DailyLossLimit.Neg())
}

// Account 维护 AccountState, 只有引擎在确认成交后和换日时修改
type Account struct {
	mu    sync.RWMutex
	state AccountState

	loc    *time.Location
	repo   repo.AccountRepo
	logger *slog.Logger
}

type AccountOption func(*Account)

func WithAccountRepo(r repo.AccountRepo) AccountOption {
	return func(a *Account) {
		a.repo = r
	}
}

// WithLocation 按该时区划分交易日
func WithLocation(loc *time.Location) AccountOption {
	return func(a *Account) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithAccountLogger(l *slog.Logger) AccountOption {
	return func(a *Account) {
		a.logger = l
	}
}

func NewAccount(dailyLossLimit decimal.Decimal, opts ...AccountOption) *Account {
	a := &Account{
		state:  AccountState{DailyLossLimit: dailyLossLimit},
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "account")
	return a
}

func (a *Account) State() AccountState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Roll 跨日时清零当日盈亏和交易次数, 并尝试从数据库恢复当日记录; 返回是否换日
func (a *Account) Roll(ctx context.Context, now time.Time) bool {
	day := dayKey(now, a.loc)

	a.mu.Lock()
	if a.state.Day == day {
		a.mu.Unlock()
		return false
	}
	prev := a.state.Day
	a.state.Day = day
	a.state.DailyRealizedPnl = decimal.Zero
	a.state.DailyTrades = 0
	a.mu.Unlock()

	if a.repo != nil {
		record, err := a.repo.FindByDay(ctx, day)
		switch {
		case err == nil:
			a.mu.Lock()
			if a.state.Day == day {
				a.state.DailyRealizedPnl = parseDecimal(record.RealizedPnl)
				a.state.DailyTrades = record.Trades
			}
			a.mu.Unlock()
		case errors.Is(err, repo.ErrNotFound):
		default:
			a.logger.Error("load account day failed", "day", day, "error", err)
		}
	}

	state := a.State()
	a.logger.Info("trading day rolled", "from", prev, "to", day,
		"daily_pnl", state.DailyRealizedPnl, "daily_trades", state.DailyTrades)
	return true
}

func (a *Account) SetBalance(balance decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Balance = balance
}

// RecordFill 确认成交后记账, pnl 仅平仓时非零
func (a *Account) RecordFill(ctx context.Context, pnl decimal.Decimal) AccountState {
	a.mu.Lock()
	a.state.DailyRealizedPnl = a.state.DailyRealizedPnl.Add(pnl)
	a.state.DailyTrades++
	state := a.state
	a.mu.Unlock()

	if state.DailyLossReached() {
		a.logger.Warn("daily loss limit reached", "daily_pnl", state.DailyRealizedPnl, "limit", state.DailyLossLimit)
	}
	if a.repo != nil {
		err := a.repo.Upsert(ctx, entity.AccountDay{
			Day:         state.Day,
			RealizedPnl: state.DailyRealizedPnl.String(),
			Trades:      state.DailyTrades,
		})
		if err != nil {
			a.logger.Error("persist account day failed", "day", state.Day, "error", err)
		}
	}
	return state
}
