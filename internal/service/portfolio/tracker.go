package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/auto-trader/internal/entity"
	"github.com/KNICEX/auto-trader/internal/repo"
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/moznion/go-optional"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Tracker 持仓的唯一所有者; 内存为准, 数据库用于重启恢复
type Tracker struct {
	mu     sync.RWMutex
	open   map[string]Position // key: tradingPair symbol
	closed []Position          // 按平仓时间升序, 最多 historySize 条

	historySize int
	repo        repo.PositionRepo
	logger      *slog.Logger
}

type TrackerOption func(*Tracker)

// WithPositionRepo 持久化持仓, 不设置则只在内存
func WithPositionRepo(r repo.PositionRepo) TrackerOption {
	return func(t *Tracker) {
		t.repo = r
	}
}

func WithHistorySize(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.historySize = n
		}
	}
}

func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = l
	}
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		open:        make(map[string]Position),
		historySize: 500,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tracker")
	return t
}

// Load 从数据库恢复未平仓持仓和最近的历史
func (t *Tracker) Load(ctx context.Context) error {
	if t.repo == nil {
		return nil
	}
	openRows, err := t.repo.FindByStatus(ctx, entity.PositionStatusOpen)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	closedRows, err := t.repo.FindClosed(ctx, t.historySize)
	if err != nil {
		return fmt.Errorf("load closed positions: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.open = make(map[string]Position, len(openRows))
	for _, row := range openRows {
		p := fromEntity(row)
		key := p.TradingPair.ToString()
		if existing, ok := t.open[key]; ok {
			// 按开仓时间升序, 保留最早的一个
			t.logger.Warn("duplicate open position in store, ignored",
				"pair", p.TradingPair, "kept", existing.Id, "ignored", p.Id)
			continue
		}
		t.open[key] = p
	}

	t.closed = lo.Map(closedRows, func(row entity.Position, _ int) Position {
		return fromEntity(row)
	})
	slices.Reverse(t.closed)

	t.logger.Info("positions loaded", "open", len(t.open), "closed", len(t.closed))
	return nil
}

// Open 开仓, 同一交易对已有持仓返回 ErrPositionExists
func (t *Tracker) Open(ctx context.Context, req OpenReq) (Position, error) {
	t.mu.Lock()
	key := req.TradingPair.ToString()
	if existing, ok := t.open[key]; ok {
		t.mu.Unlock()
		return Position{}, fmt.Errorf("%s (id=%s): %w", req.TradingPair, existing.Id, ErrPositionExists)
	}
	p := Position{
		Id:          ulid.Make().String(),
		TradingPair: req.TradingPair,
		EntryPrice:  req.Price,
		Size:        req.Size,
		EntryTime:   req.At,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
		Status:      PositionStatusOpen,
	}
	t.open[key] = p
	t.mu.Unlock()

	t.persist(ctx, p)
	t.logger.Info("position opened", "id", p.Id, "pair", p.TradingPair,
		"entry", p.EntryPrice, "size", p.Size, "stop_loss", p.StopLoss, "take_profit", p.TakeProfit)
	return p, nil
}

// Close 平仓并归档, 返回已实现盈亏 (exit - entry) * size
func (t *Tracker) Close(ctx context.Context, id string, exitPrice decimal.Decimal, reason ExitReason, at time.Time) (decimal.Decimal, error) {
	t.mu.Lock()
	p, ok := lo.Find(lo.Values(t.open), func(p Position) bool {
		return p.Id == id
	})
	if !ok {
		t.mu.Unlock()
		return decimal.Zero, fmt.Errorf("%s: %w", id, ErrPositionNotFound)
	}
	p.Status = PositionStatusClosed
	p.ExitPrice = exitPrice
	p.ExitTime = at
	p.ExitReason = reason
	p.RealizedPnl = exitPrice.Sub(p.EntryPrice).Mul(p.Size)

	delete(t.open, p.TradingPair.ToString())
	t.archive(p)
	t.mu.Unlock()

	t.persist(ctx, p)
	t.logger.Info("position closed", "id", p.Id, "pair", p.TradingPair,
		"exit", exitPrice, "reason", reason, "pnl", p.RealizedPnl)
	return p.RealizedPnl, nil
}

// Reduce 部分平仓: 卖出的 qty 拆成一条新的已平仓记录归档, 剩余数量继续持有并保留止盈止损.
// qty 不小于持仓数量时等同于 Close.
func (t *Tracker) Reduce(ctx context.Context, id string, qty, exitPrice decimal.Decimal, reason ExitReason, at time.Time) (decimal.Decimal, error) {
	if !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("reduce %s: quantity must be positive, got %s", id, qty)
	}
	t.mu.Lock()
	p, ok := lo.Find(lo.Values(t.open), func(p Position) bool {
		return p.Id == id
	})
	if !ok {
		t.mu.Unlock()
		return decimal.Zero, fmt.Errorf("%s: %w", id, ErrPositionNotFound)
	}
	if qty.GreaterThanOrEqual(p.Size) {
		t.mu.Unlock()
		return t.Close(ctx, id, exitPrice, reason, at)
	}

	part := p
	part.Id = ulid.Make().String()
	part.Size = qty
	part.Status = PositionStatusClosed
	part.ExitPrice = exitPrice
	part.ExitTime = at
	part.ExitReason = reason
	part.RealizedPnl = exitPrice.Sub(p.EntryPrice).Mul(qty)

	p.Size = p.Size.Sub(qty)
	t.open[p.TradingPair.ToString()] = p
	t.archive(part)
	t.mu.Unlock()

	t.persist(ctx, part)
	t.persist(ctx, p)
	t.logger.Info("position reduced", "id", p.Id, "pair", p.TradingPair,
		"sold", qty, "remaining", p.Size, "exit", exitPrice, "reason", reason, "pnl", part.RealizedPnl)
	return part.RealizedPnl, nil
}

// archive 追加已平仓记录, 调用方持有锁
func (t *Tracker) archive(p Position) {
	t.closed = append(t.closed, p)
	if len(t.closed) > t.historySize {
		t.closed = slices.Clone(t.closed[len(t.closed)-t.historySize:])
	}
}

// persist 落库失败只记日志, 内存中的记录不回滚
func (t *Tracker) persist(ctx context.Context, p Position) {
	if t.repo == nil {
		return
	}
	if err := t.repo.Save(ctx, toEntity(p)); err != nil {
		t.logger.Error("persist position failed", "id", p.Id, "status", p.Status, "error", err)
	}
}

func (t *Tracker) GetOpen(tradingPair exchange.TradingPair) optional.Option[Position] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.open[tradingPair.ToString()]; ok {
		return optional.Some(p)
	}
	return optional.None[Position]()
}

// OpenPositions 按开仓时间排序的副本
func (t *Tracker) OpenPositions() []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := lo.Values(t.open)
	slices.SortFunc(res, func(a, b Position) int {
		if c := a.EntryTime.Compare(b.EntryTime); c != 0 {
			return c
		}
		return strings.Compare(a.Id, b.Id)
	})
	return res
}

// ClosedPositions 最近 limit 条已平仓, 新的在前; limit<=0 返回全部
func (t *Tracker) ClosedPositions(limit int) []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := len(t.closed)
	if limit > 0 && limit < n {
		n = limit
	}
	res := make([]Position, 0, n)
	for i := len(t.closed) - 1; i >= 0 && len(res) < n; i-- {
		res = append(res, t.closed[i])
	}
	return res
}
