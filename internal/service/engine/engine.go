package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/auto-trader/internal/entity"
	"github.com/KNICEX/auto-trader/internal/metrics"
	"github.com/KNICEX/auto-trader/internal/repo"
	"github.com/KNICEX/auto-trader/internal/schedule"
	"github.com/KNICEX/auto-trader/internal/service/analytics"
	"github.com/KNICEX/auto-trader/internal/service/dashboard"
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/KNICEX/auto-trader/internal/service/notification"
	"github.com/KNICEX/auto-trader/internal/service/portfolio"
	"github.com/KNICEX/auto-trader/internal/service/risk"
	"github.com/KNICEX/auto-trader/internal/service/strategy"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

var _ Engine = (*TradingEngine)(nil)

const rejectTradingDisabled = "trading_disabled"

// TradingEngine 轮询式交易循环: 拉行情 -> 跑策略 -> 聚合 -> 风控 -> 下单 -> 更新持仓.
// tracker 和 account 只在 EXECUTING 阶段顺序修改.
type TradingEngine struct {
	cfg Config

	exchangeSvc exchange.Service
	strategies  []strategy.Strategy
	aggregator  *strategy.Aggregator
	riskMgr     *risk.Manager
	tracker     *portfolio.Tracker
	account     *portfolio.Account
	executor    *Executor

	decisionRepo repo.DecisionRepo
	notifier     notification.Notifier
	metrics      *metrics.Metrics
	hub          *dashboard.Hub
	logger       *slog.Logger
	now          func() time.Time

	stateMu        sync.RWMutex
	state          State
	tradingEnabled atomic.Bool

	// 以下只在 tick 所在 goroutine 读写
	tick            uint64
	recentSignals   []strategy.Signal
	recentDecisions []dashboard.DecisionRecord
	// 每个交易对最近一次跑过策略的已收盘K线开盘时间, 同一根K线只出一次信号
	evaluatedAt map[string]time.Time
}

type Option func(*TradingEngine)

func WithDecisionRepo(r repo.DecisionRepo) Option {
	return func(e *TradingEngine) {
		e.decisionRepo = r
	}
}

func WithNotifier(n notification.Notifier) Option {
	return func(e *TradingEngine) {
		e.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *TradingEngine) {
		e.metrics = m
	}
}

func WithHub(h *dashboard.Hub) Option {
	return func(e *TradingEngine) {
		e.hub = h
	}
}

func WithExecutor(executor *Executor) Option {
	return func(e *TradingEngine) {
		e.executor = executor
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *TradingEngine) {
		e.logger = l
	}
}

// WithClock 测试用
func WithClock(now func() time.Time) Option {
	return func(e *TradingEngine) {
		e.now = now
	}
}

func NewTradingEngine(
	cfg Config,
	exchangeSvc exchange.Service,
	strategies []strategy.Strategy,
	aggregator *strategy.Aggregator,
	riskMgr *risk.Manager,
	tracker *portfolio.Tracker,
	account *portfolio.Account,
	opts ...Option,
) (*TradingEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(strategies) == 0 {
		return nil, errors.New("no strategy configured")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}

	e := &TradingEngine{
		cfg:         cfg,
		exchangeSvc: exchangeSvc,
		strategies:  strategies,
		aggregator:  aggregator,
		riskMgr:     riskMgr,
		tracker:     tracker,
		account:     account,
		notifier:    notification.Multi{},
		logger:      slog.Default(),
		now:         time.Now,
		state:       StateIdle,
		evaluatedAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	if e.executor == nil {
		e.executor = NewExecutor(exchangeSvc.OrderService(),
			WithRetries(cfg.OrderRetries),
			WithOrderTimeout(cfg.OrderTimeout),
			WithExecutorLogger(e.logger),
		)
	}
	e.tradingEnabled.Store(cfg.TradingEnabled)
	return e, nil
}

func (e *TradingEngine) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *TradingEngine) setState(s State) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.state == StateTerminated {
		return
	}
	e.state = s
}

func (e *TradingEngine) SetTradingEnabled(enabled bool) {
	if e.tradingEnabled.Swap(enabled) != enabled {
		e.logger.Info("trading toggled", "enabled", enabled)
	}
}

func (e *TradingEngine) TradingEnabled() bool {
	return e.tradingEnabled.Load()
}

// Run 恢复持仓后按固定间隔执行 tick, ctx 取消后在 tick 边界停止
func (e *TradingEngine) Run(ctx context.Context) error {
	if e.State() == StateTerminated {
		return ErrTerminated
	}
	if err := e.tracker.Load(ctx); err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	e.logger.Info("engine started",
		"pairs", lo.Map(e.cfg.Pairs, func(p exchange.TradingPair, _ int) string { return p.String() }),
		"strategies", lo.Map(e.strategies, func(s strategy.Strategy, _ int) string { return s.Name() }),
		"policy", e.aggregator.Policy(),
		"tick_interval", e.cfg.TickInterval,
		"trading_enabled", e.TradingEnabled(),
	)

	schedule.Every(ctx, e.cfg.TickInterval, tickTask{engine: e})

	e.stateMu.Lock()
	e.state = StateTerminated
	e.stateMu.Unlock()
	e.publish(e.now())
	e.logger.Info("engine terminated", "ticks", e.tick)
	return nil
}

type tickTask struct {
	engine *TradingEngine
}

func (t tickTask) Name() string {
	return "engine-tick"
}

func (t tickTask) Run(ctx context.Context) error {
	return t.engine.Tick(ctx)
}

// pairSnapshot 本轮某交易对的行情, ok=false 表示拉取失败跳过.
// snapshot 只含已收盘K线, price 取未收盘K线的最新价, 用于止盈止损和下单参考价.
type pairSnapshot struct {
	snapshot strategy.Snapshot
	price    decimal.Decimal
	ok       bool
}

// Tick 执行一轮完整流程
func (e *TradingEngine) Tick(ctx context.Context) error {
	if e.State() == StateTerminated {
		return ErrTerminated
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := e.now()
	began := time.Now()
	e.tick++
	defer func() {
		e.setState(StateIdle)
		if e.metrics != nil {
			e.metrics.TickDuration.Observe(time.Since(began).Seconds())
		}
	}()

	e.setState(StateFetching)
	snapshots, err := e.fetch(ctx, start)
	if err != nil {
		e.countTick("skipped")
		e.publish(start)
		return fmt.Errorf("tick %d skipped: %w", e.tick, err)
	}

	e.setState(StateEvaluating)
	signals := e.evaluate(ctx, snapshots)

	e.setState(StateDeciding)
	decisions := e.decide(ctx, snapshots, signals)

	// 下单不受关闭信号影响, 本轮执行完再停
	e.setState(StateExecuting)
	execCtx := context.WithoutCancel(ctx)
	for _, d := range decisions {
		e.execute(execCtx, d, start)
	}

	e.countTick("ok")
	e.publish(start)
	return nil
}

func (e *TradingEngine) countTick(result string) {
	if e.metrics != nil {
		e.metrics.TicksTotal.WithLabelValues(result).Inc()
	}
}

// fetch 换日, 同步余额, 拉取各交易对K线; 余额失败跳过整轮, 单个交易对失败只跳过该交易对
func (e *TradingEngine) fetch(ctx context.Context, now time.Time) ([]pairSnapshot, error) {
	e.account.Roll(ctx, now)

	// 所有交易对共用同一计价币余额
	quote := e.cfg.Pairs[0].Quote
	balance, err := e.exchangeSvc.AccountService().GetBalance(ctx, quote)
	if err != nil {
		e.logger.Error("sync balance failed", "asset", quote, "error", err)
		return nil, fmt.Errorf("sync %s balance: %w", quote, err)
	}
	e.account.SetBalance(balance)

	// 多取一根, 去掉未收盘的那根后仍满足回看长度
	limit := max(e.cfg.CandleCount, strategy.MaxLookback(e.strategies)) + 1
	res := make([]pairSnapshot, len(e.cfg.Pairs))
	for i, pair := range e.cfg.Pairs {
		klines, err := e.exchangeSvc.MarketService().GetKlines(ctx, exchange.GetKlinesReq{
			TradingPair: pair,
			Interval:    e.cfg.Interval,
			Limit:       limit,
		})
		if err != nil {
			e.logger.Warn("fetch klines failed, skip pair", "pair", pair, "error", err)
			continue
		}
		var price decimal.Decimal
		if len(klines) > 0 {
			price = klines[len(klines)-1].Close
		}
		res[i] = pairSnapshot{
			snapshot: strategy.Snapshot{
				TradingPair: pair,
				Interval:    e.cfg.Interval,
				Klines:      closedKlines(klines, now),
				FetchedAt:   now,
			},
			price: price,
			ok:    true,
		}
	}
	return res, nil
}

// closedKlines 去掉末尾尚未收盘的K线
func closedKlines(klines []exchange.Kline, now time.Time) []exchange.Kline {
	n := len(klines)
	for n > 0 && !klines[n-1].IsClosed(now) {
		n--
	}
	return klines[:n]
}

type evalResult struct {
	signal strategy.Signal
	err    error
}

// evaluate 并发跑所有 (交易对, 策略), 结果按下标写入, 顺序与配置一致
func (e *TradingEngine) evaluate(ctx context.Context, snapshots []pairSnapshot) [][]strategy.Signal {
	slots := make([][]evalResult, len(snapshots))
	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i, ps := range snapshots {
		if !ps.ok {
			continue
		}
		last, ok := ps.snapshot.Last()
		key := ps.snapshot.TradingPair.ToString()
		if !ok || last.OpenTime.Equal(e.evaluatedAt[key]) {
			// 没有新收盘的K线, 信号不变, 不再重复决策
			e.logger.Debug("no new closed kline, skip strategies", "pair", ps.snapshot.TradingPair)
			continue
		}
		e.evaluatedAt[key] = last.OpenTime
		slots[i] = make([]evalResult, len(e.strategies))
		for j, s := range e.strategies {
			p.Go(func() {
				sig, err := s.GenerateSignal(ctx, ps.snapshot)
				slots[i][j] = evalResult{signal: sig, err: err}
			})
		}
	}
	p.Wait()

	res := make([][]strategy.Signal, len(snapshots))
	for i, results := range slots {
		for j, r := range results {
			name := e.strategies[j].Name()
			if r.err != nil {
				level := slog.LevelWarn
				if errors.Is(r.err, strategy.ErrInsufficientData) {
					level = slog.LevelDebug
				}
				e.logger.Log(ctx, level, "strategy excluded", "strategy", name,
					"pair", snapshots[i].snapshot.TradingPair, "error", r.err)
				if e.metrics != nil {
					e.metrics.StrategyErrors.WithLabelValues(name).Inc()
				}
				continue
			}
			if e.metrics != nil {
				e.metrics.SignalsTotal.WithLabelValues(name, string(r.signal.Direction)).Inc()
			}
			res[i] = append(res[i], r.signal)
		}
		e.recentSignals = appendRecent(e.recentSignals, e.cfg.HistorySize, res[i]...)
	}
	return res
}

// decide 先做止盈止损扫描, 触发的交易对不再看策略信号
func (e *TradingEngine) decide(ctx context.Context, snapshots []pairSnapshot, signals [][]strategy.Signal) []strategy.Decision {
	var decisions []strategy.Decision
	balance := e.account.State().Balance

	for i, pair := range e.cfg.Pairs {
		ps := snapshots[i]
		open := e.tracker.GetOpen(pair)
		if open.IsSome() {
			position := open.Unwrap()
			price := ps.price
			if !price.IsPositive() {
				ticker, err := e.exchangeSvc.MarketService().Ticker(ctx, pair)
				if err != nil {
					e.logger.Warn("no price for trigger scan", "pair", pair, "position", position.Id, "error", err)
				}
				price = ticker
			}
			if forced := e.riskMgr.TriggerScan(position, price); forced.IsSome() {
				d := forced.Unwrap()
				e.logger.Info("exit triggered", "pair", pair, "position", position.Id, "reason", d.Reason,
					"price", price, "stop_loss", position.StopLoss, "take_profit", position.TakeProfit)
				decisions = append(decisions, d)
				continue
			}
		}

		if !ps.ok || len(signals[i]) == 0 {
			continue
		}
		direction, reason := e.aggregator.Aggregate(signals[i])
		if direction == strategy.DirectionHold {
			continue
		}

		d := strategy.Decision{
			TradingPair:    pair,
			Direction:      direction,
			ReferencePrice: ps.price,
			Signals:        signals[i],
			Reason:         reason,
		}
		switch direction {
		case strategy.DirectionBuy:
			d.RequestedSize = e.cfg.OrderAmount
			if !d.RequestedSize.IsPositive() {
				d.RequestedSize = balance
			}
		case strategy.DirectionSell:
			if open.IsSome() {
				d.RequestedSize = open.Unwrap().Size
			}
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// execute 风控审批后下单, 只有确认成交才修改持仓和账户
func (e *TradingEngine) execute(ctx context.Context, d strategy.Decision, now time.Time) {
	record := dashboard.DecisionRecord{At: now, Decision: d}
	var approvedSize decimal.Decimal
	var clientOrderId string
	defer func() {
		e.journal(ctx, record, approvedSize, clientOrderId)
	}()
	if e.metrics != nil {
		e.metrics.DecisionsTotal.WithLabelValues(d.TradingPair.ToString(), string(d.Direction)).Inc()
	}

	if !d.Forced && !e.TradingEnabled() {
		record.RejectReason = rejectTradingDisabled
		record.Detail = "signal only mode"
		e.logger.Info("decision not executed, trading disabled", "pair", d.TradingPair, "direction", d.Direction)
		return
	}

	result := e.riskMgr.Evaluate(d, e.account.State(), e.tracker.OpenPositions())
	if !result.Approved {
		record.RejectReason = string(result.Reason)
		record.Detail = result.Detail
		e.logger.Info("decision rejected", "pair", d.TradingPair, "direction", d.Direction,
			"reason", result.Reason, "detail", result.Detail)
		if e.metrics != nil {
			e.metrics.RejectionsTotal.WithLabelValues(string(result.Reason)).Inc()
		}
		return
	}
	record.Approved = true
	approvedSize = result.Order.Size

	req := exchange.PlaceOrderReq{
		TradingPair:   d.TradingPair,
		ClientOrderId: exchange.NewClientOrderId(),
	}
	if d.Direction == strategy.DirectionBuy {
		req.Side = exchange.OrderSideBuy
		req.QuoteAmount = result.Order.Size
	} else {
		req.Side = exchange.OrderSideSell
		req.Quantity = result.Order.Size
	}
	clientOrderId = req.ClientOrderId

	res, err := e.executor.Submit(ctx, req)
	if err != nil {
		e.countOrder(req, "failed")
		record.Detail = err.Error()
		e.logger.Error("order failed", "pair", d.TradingPair, "side", req.Side,
			"client_order_id", req.ClientOrderId, "error", err)
		e.notify(ctx, notification.Event{
			Kind:    notification.EventOrderFailed,
			Pair:    d.TradingPair.String(),
			Message: fmt.Sprintf("%s order failed: %v", req.Side, err),
			Fields:  map[string]any{"client_order_id": req.ClientOrderId},
			At:      now,
		})
		return
	}
	e.countOrder(req, "filled")
	record.Executed = true
	record.Detail = fmt.Sprintf("filled %s at %s", res.FilledQuantity, res.FilledPrice)

	if req.Side == exchange.OrderSideBuy {
		e.onBuyFilled(ctx, d, req, res, now)
	} else {
		e.onSellFilled(ctx, d, result.Order, res, now)
	}
}

func (e *TradingEngine) onBuyFilled(ctx context.Context, d strategy.Decision, req exchange.PlaceOrderReq, res exchange.OrderResult, now time.Time) {
	// 止盈止损按实际成交价计算
	stopLoss, takeProfit := e.riskMgr.Levels(res.FilledPrice)
	position, err := e.tracker.Open(ctx, portfolio.OpenReq{
		TradingPair: d.TradingPair,
		Price:       res.FilledPrice,
		Size:        res.FilledQuantity,
		StopLoss:    stopLoss,
		TakeProfit:  takeProfit,
		At:          now,
	})
	if err != nil {
		e.logger.Error("open position after fill failed", "pair", d.TradingPair, "client_order_id", req.ClientOrderId, "error", err)
		return
	}

	// 部分成交只扣实际成交额, 下一轮同步余额时校正
	spent := req.QuoteAmount
	if res.IsPartial() {
		spent = decimal.Min(res.FilledValue(), req.QuoteAmount)
		e.logger.Warn("buy partially filled", "pair", d.TradingPair, "client_order_id", req.ClientOrderId,
			"status", res.Status, "filled_value", res.FilledValue(), "requested", req.QuoteAmount)
	}
	state := e.account.State()
	e.account.SetBalance(decimal.Max(state.Balance.Sub(spent), decimal.Zero))
	e.account.RecordFill(ctx, decimal.Zero)

	e.logger.Info("position opened", "pair", d.TradingPair, "position", position.Id,
		"price", position.EntryPrice, "size", position.Size, "stop_loss", stopLoss, "take_profit", takeProfit)
	e.notify(ctx, notification.Event{
		Kind:    notification.EventPositionOpened,
		Pair:    d.TradingPair.String(),
		Message: fmt.Sprintf("bought %s %s at %s", position.Size, d.TradingPair.Base, position.EntryPrice),
		Fields: map[string]any{
			"position_id": position.Id,
			"stop_loss":   stopLoss.String(),
			"take_profit": takeProfit.String(),
			"reason":      d.Reason,
		},
		At: now,
	})
}

func (e *TradingEngine) onSellFilled(ctx context.Context, d strategy.Decision, order risk.Order, res exchange.OrderResult, now time.Time) {
	positionId := order.PositionId
	reason := portfolio.ExitReasonSignal
	if d.Forced {
		reason = portfolio.ExitReason(d.Reason)
		if e.metrics != nil {
			e.metrics.ForcedExits.WithLabelValues(d.TradingPair.ToString(), d.Reason).Inc()
		}
	}

	// 部分成交只减仓, 剩余数量仍由止盈止损看管
	partial := res.FilledQuantity.LessThan(order.Size)
	var pnl decimal.Decimal
	var err error
	if partial {
		e.logger.Warn("sell partially filled, position reduced", "pair", d.TradingPair, "position", positionId,
			"status", res.Status, "filled", res.FilledQuantity, "size", order.Size)
		pnl, err = e.tracker.Reduce(ctx, positionId, res.FilledQuantity, res.FilledPrice, reason, now)
	} else {
		pnl, err = e.tracker.Close(ctx, positionId, res.FilledPrice, reason, now)
	}
	if err != nil {
		e.logger.Error("close position after fill failed", "pair", d.TradingPair, "position", positionId, "error", err)
		return
	}

	before := e.account.State()
	e.account.SetBalance(before.Balance.Add(res.FilledValue()))
	after := e.account.RecordFill(ctx, pnl)

	e.logger.Info("position closed", "pair", d.TradingPair, "position", positionId, "partial", partial,
		"price", res.FilledPrice, "pnl", pnl, "reason", reason, "daily_pnl", after.DailyRealizedPnl)
	e.notify(ctx, notification.Event{
		Kind:    notification.EventPositionClosed,
		Pair:    d.TradingPair.String(),
		Message: fmt.Sprintf("sold %s %s at %s, pnl %s", res.FilledQuantity, d.TradingPair.Base, res.FilledPrice, pnl),
		Fields: map[string]any{
			"position_id": positionId,
			"reason":      string(reason),
			"pnl":         pnl.String(),
			"partial":     partial,
		},
		At: now,
	})

	if !before.DailyLossReached() && after.DailyLossReached() {
		e.notify(ctx, notification.Event{
			Kind:    notification.EventDailyLossLimit,
			Pair:    d.TradingPair.String(),
			Message: fmt.Sprintf("daily loss limit reached: %s / -%s, new buys blocked until %s ends", after.DailyRealizedPnl, after.DailyLossLimit, after.Day),
			At:      now,
		})
	}
}

func (e *TradingEngine) countOrder(req exchange.PlaceOrderReq, result string) {
	if e.metrics != nil {
		e.metrics.OrdersTotal.WithLabelValues(req.TradingPair.ToString(), string(req.Side), result).Inc()
	}
}

func (e *TradingEngine) notify(ctx context.Context, event notification.Event) {
	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Warn("notify failed", "kind", event.Kind, "error", err)
	}
}

// journal 决策写入看板缓存和数据库, 落库失败只记日志
func (e *TradingEngine) journal(ctx context.Context, record dashboard.DecisionRecord, approvedSize decimal.Decimal, clientOrderId string) {
	e.recentDecisions = appendRecent(e.recentDecisions, e.cfg.HistorySize, record)
	if e.decisionRepo == nil {
		return
	}

	d := record.Decision
	signals, err := json.Marshal(d.Signals)
	if err != nil {
		e.logger.Warn("marshal signals failed", "error", err)
	}
	row := entity.Decision{
		Base:           d.TradingPair.Base,
		Quote:          d.TradingPair.Quote,
		Direction:      string(d.Direction),
		Forced:         d.Forced,
		RequestedSize:  d.RequestedSize.String(),
		ReferencePrice: d.ReferencePrice.String(),
		Approved:       record.Approved,
		RejectReason:   record.RejectReason,
		Executed:       record.Executed,
		ClientOrderId:  clientOrderId,
		Reason:         d.Reason,
		Signals:        string(signals),
		CreatedAt:      record.At,
	}
	if record.Approved {
		row.ApprovedSize = approvedSize.String()
	}
	if _, err := e.decisionRepo.Create(ctx, row); err != nil {
		e.logger.Error("journal decision failed", "pair", d.TradingPair, "error", err)
	}
}

// publish 刷新指标并把当前状态推给看板
func (e *TradingEngine) publish(now time.Time) {
	account := e.account.State()
	open := e.tracker.OpenPositions()
	if e.metrics != nil {
		e.metrics.OpenPositions.Set(float64(len(open)))
		e.metrics.Balance.Set(account.Balance.InexactFloat64())
		e.metrics.DailyPnl.Set(account.DailyRealizedPnl.InexactFloat64())
	}
	if e.hub == nil {
		return
	}
	e.hub.Publish(dashboard.State{
		EngineState:     string(e.State()),
		TradingEnabled:  e.TradingEnabled(),
		Tick:            e.tick,
		UpdatedAt:       now,
		Account:         account,
		OpenPositions:   open,
		ClosedPositions: e.tracker.ClosedPositions(e.cfg.HistorySize),
		Signals:         e.recentSignals,
		Decisions:       e.recentDecisions,
		Report:          analytics.Analyze(e.tracker.ClosedPositions(0), now),
	})
}

// appendRecent 追加并只保留最后 size 条
func appendRecent[T any](s []T, size int, items ...T) []T {
	s = append(s, items...)
	if len(s) > size {
		s = append(s[:0:0], s[len(s)-size:]...)
	}
	return s
}
