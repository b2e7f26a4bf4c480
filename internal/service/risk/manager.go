package risk

import (
	"fmt"

	"github.com/KNICEX/auto-trader/internal/service/portfolio"
	"github.com/KNICEX/auto-trader/internal/service/strategy"
	"github.com/moznion/go-optional"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Config struct {
	// 单笔最大仓位占可用余额比例
	MaxPositionPct decimal.Decimal
	StopLossPct    decimal.Decimal
	TakeProfitPct  decimal.Decimal
	// 当日最多成交次数, 0 不限制
	MaxDailyTrades int
	// 最小下单金额 (计价币)
	MinOrderValue decimal.Decimal
}

// Validate 检查比例参数范围
func (c Config) Validate() error {
	if !c.MaxPositionPct.IsPositive() || c.MaxPositionPct.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("max_position_pct 必须在 (0, 1] 之间，当前值: %s", c.MaxPositionPct)
	}
	if !c.StopLossPct.IsPositive() || c.StopLossPct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("stop_loss_pct 必须在 (0, 1) 之间，当前值: %s", c.StopLossPct)
	}
	if !c.TakeProfitPct.IsPositive() {
		return fmt.Errorf("take_profit_pct 必须大于 0，当前值: %s", c.TakeProfitPct)
	}
	if c.MaxDailyTrades < 0 {
		return fmt.Errorf("max_daily_trades 必须大于等于 0，当前值: %d", c.MaxDailyTrades)
	}
	if c.MinOrderValue.IsNegative() {
		return fmt.Errorf("min_order_value 必须大于等于 0，当前值: %s", c.MinOrderValue)
	}
	return nil
}

type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectHold            RejectReason = "hold"
	RejectPositionExists  RejectReason = "position_exists"
	RejectNoPosition      RejectReason = "no_position"
	RejectDailyLossLimit  RejectReason = "daily_loss_limit"
	RejectDailyTradeLimit RejectReason = "daily_trade_limit"
	RejectBelowMinOrder   RejectReason = "below_min_order"
)

// Order 风控通过后需要执行的订单
type Order struct {
	Decision strategy.Decision
	// 买单为计价币金额, 卖单为基础币数量
	Size       decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	// 卖单对应的持仓
	PositionId string
}

type Result struct {
	Approved bool
	Order    Order
	Reason   RejectReason
	Detail   string
}

func reject(reason RejectReason, format string, args ...any) Result {
	return Result{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Manager 开平仓审批和止盈止损扫描, 无状态
type Manager struct {
	cfg Config
}

func NewManager(cfg Config) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

func (m *Manager) Config() Config {
	return m.cfg
}

// Evaluate 按顺序检查规则, 第一条不满足即拒绝
func (m *Manager) Evaluate(decision strategy.Decision, account portfolio.AccountState, openPositions []portfolio.Position) Result {
	open, hasOpen := lo.Find(openPositions, func(p portfolio.Position) bool {
		return p.TradingPair == decision.TradingPair && p.IsOpen()
	})

	switch decision.Direction {
	case strategy.DirectionSell:
		if !hasOpen {
			return reject(RejectNoPosition, "no open position for %s", decision.TradingPair)
		}
		// 现货只能全部卖出
		return Result{
			Approved: true,
			Order: Order{
				Decision:   decision,
				Size:       open.Size,
				PositionId: open.Id,
			},
		}
	case strategy.DirectionBuy:
		return m.evaluateBuy(decision, account, hasOpen, open)
	default:
		return reject(RejectHold, "nothing to do")
	}
}

func (m *Manager) evaluateBuy(decision strategy.Decision, account portfolio.AccountState, hasOpen bool, open portfolio.Position) Result {
	if hasOpen {
		return reject(RejectPositionExists, "%s already has open position %s", decision.TradingPair, open.Id)
	}
	if account.DailyLossReached() {
		return reject(RejectDailyLossLimit, "daily pnl %s reached limit -%s", account.DailyRealizedPnl, account.DailyLossLimit)
	}
	if m.cfg.MaxDailyTrades > 0 && account.DailyTrades >= m.cfg.MaxDailyTrades {
		return reject(RejectDailyTradeLimit, "%d trades today, limit %d", account.DailyTrades, m.cfg.MaxDailyTrades)
	}

	size := decimal.Min(decision.RequestedSize, account.Balance.Mul(m.cfg.MaxPositionPct))
	if !size.IsPositive() || size.LessThan(m.cfg.MinOrderValue) {
		return reject(RejectBelowMinOrder, "order value %s below minimum %s", size, m.cfg.MinOrderValue)
	}

	stopLoss, takeProfit := m.Levels(decision.ReferencePrice)
	return Result{
		Approved: true,
		Order: Order{
			Decision:   decision,
			Size:       size,
			StopLoss:   stopLoss,
			TakeProfit: takeProfit,
		},
	}
}

// Levels 由开仓价计算止损止盈价
func (m *Manager) Levels(entry decimal.Decimal) (stopLoss, takeProfit decimal.Decimal) {
	one := decimal.NewFromInt(1)
	return entry.Mul(one.Sub(m.cfg.StopLossPct)), entry.Mul(one.Add(m.cfg.TakeProfitPct))
}

// TriggerScan 价格触及止损或止盈时生成强制卖出
func (m *Manager) TriggerScan(position portfolio.Position, price decimal.Decimal) optional.Option[strategy.Decision] {
	if !position.IsOpen() || !price.IsPositive() {
		return optional.None[strategy.Decision]()
	}

	var reason portfolio.ExitReason
	switch {
	case position.StopLoss.IsPositive() && price.LessThanOrEqual(position.StopLoss):
		reason = portfolio.ExitReasonStopLoss
	case position.TakeProfit.IsPositive() && price.GreaterThanOrEqual(position.TakeProfit):
		reason = portfolio.ExitReasonTakeProfit
	default:
		return optional.None[strategy.Decision]()
	}

	return optional.Some(strategy.Decision{
		TradingPair:    position.TradingPair,
		Direction:      strategy.DirectionSell,
		RequestedSize:  position.Size,
		ReferencePrice: price,
		Forced:         true,
		Reason:         string(reason),
	})
}
