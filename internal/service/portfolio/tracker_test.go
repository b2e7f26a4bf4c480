package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KNICEX/auto-trader/internal/entity"
	"github.com/KNICEX/auto-trader/internal/repo"
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	btcusdt = exchange.TradingPair{Base: "BTC", Quote: "USDT"}
	ethusdt = exchange.TradingPair{Base: "ETH", Quote: "USDT"}
	t0      = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
)

func d(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func openReq(pair exchange.TradingPair, price float64) OpenReq {
	return OpenReq{
		TradingPair: pair,
		Price:       d(price),
		Size:        d(1),
		StopLoss:    d(price * 0.95),
		TakeProfit:  d(price * 1.1),
		At:          t0,
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.InitTables(db))
	return db
}

// MockPositionRepo 模拟持仓仓库
type MockPositionRepo struct {
	mock.Mock
}

func (m *MockPositionRepo) Save(ctx context.Context, position entity.Position) error {
	return m.Called(ctx, position).Error(0)
}

func (m *MockPositionRepo) FindById(ctx context.Context, id string) (entity.Position, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(entity.Position), args.Error(1)
}

func (m *MockPositionRepo) FindByStatus(ctx context.Context, status string) ([]entity.Position, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Position), args.Error(1)
}

func (m *MockPositionRepo) FindClosed(ctx context.Context, limit int) ([]entity.Position, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Position), args.Error(1)
}

func TestTracker_OpenClose(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker()

	p, err := tracker.Open(ctx, openReq(btcusdt, 100))
	require.NoError(t, err)
	assert.NotEmpty(t, p.Id)
	assert.True(t, p.IsOpen())

	got := tracker.GetOpen(btcusdt)
	require.True(t, got.IsSome())
	assert.Equal(t, p.Id, got.Unwrap().Id)
	assert.True(t, tracker.GetOpen(ethusdt).IsNone())

	// 同一交易对只能有一个持仓
	_, err = tracker.Open(ctx, openReq(btcusdt, 101))
	assert.ErrorIs(t, err, ErrPositionExists)

	pnl, err := tracker.Close(ctx, p.Id, d(94), ExitReasonStopLoss, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, pnl.Equal(d(-6)), pnl.String())
	assert.True(t, tracker.GetOpen(btcusdt).IsNone())

	closed := tracker.ClosedPositions(10)
	require.Len(t, closed, 1)
	assert.Equal(t, ExitReasonStopLoss, closed[0].ExitReason)
	assert.Equal(t, PositionStatusClosed, closed[0].Status)

	_, err = tracker.Close(ctx, p.Id, d(94), ExitReasonStopLoss, t0)
	assert.ErrorIs(t, err, ErrPositionNotFound)

	// 平仓后可以再次开仓
	_, err = tracker.Open(ctx, openReq(btcusdt, 95))
	assert.NoError(t, err)
}

func TestTracker_Reduce(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(WithPositionRepo(repo.NewPositionRepo(newTestDB(t))))

	p, err := tracker.Open(ctx, OpenReq{
		TradingPair: btcusdt,
		Price:       d(100),
		Size:        d(2),
		StopLoss:    d(95),
		TakeProfit:  d(110),
		At:          t0,
	})
	require.NoError(t, err)

	// 只卖出一半, 剩余部分继续持有
	pnl, err := tracker.Reduce(ctx, p.Id, d(0.5), d(104), ExitReasonSignal, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, pnl.Equal(d(2)), pnl.String())

	open := tracker.GetOpen(btcusdt)
	require.True(t, open.IsSome())
	assert.Equal(t, p.Id, open.Unwrap().Id)
	assert.True(t, open.Unwrap().Size.Equal(d(1.5)), open.Unwrap().Size.String())
	assert.True(t, open.Unwrap().StopLoss.Equal(d(95)))

	closed := tracker.ClosedPositions(0)
	require.Len(t, closed, 1)
	assert.NotEqual(t, p.Id, closed[0].Id)
	assert.True(t, closed[0].Size.Equal(d(0.5)))
	assert.True(t, closed[0].RealizedPnl.Equal(d(2)))

	// 数量不小于剩余持仓时全部平掉
	pnl, err = tracker.Reduce(ctx, p.Id, d(1.5), d(98), ExitReasonStopLoss, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, pnl.Equal(d(-3)), pnl.String())
	assert.True(t, tracker.GetOpen(btcusdt).IsNone())
	assert.Len(t, tracker.ClosedPositions(0), 2)

	_, err = tracker.Reduce(ctx, p.Id, d(1), d(98), ExitReasonSignal, t0)
	assert.ErrorIs(t, err, ErrPositionNotFound)
	_, err = tracker.Reduce(ctx, p.Id, d(0), d(98), ExitReasonSignal, t0)
	assert.Error(t, err)
}

func TestTracker_ClosedPositionsOrderAndCap(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(WithHistorySize(2))

	for i, exit := range []float64{101, 102, 103} {
		p, err := tracker.Open(ctx, openReq(btcusdt, 100))
		require.NoError(t, err)
		_, err = tracker.Close(ctx, p.Id, d(exit), ExitReasonSignal, t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}

	closed := tracker.ClosedPositions(0)
	require.Len(t, closed, 2)
	assert.True(t, closed[0].ExitPrice.Equal(d(103)))
	assert.True(t, closed[1].ExitPrice.Equal(d(102)))

	assert.Len(t, tracker.ClosedPositions(1), 1)
}

func TestTracker_OpenPositionsSorted(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker()

	later := openReq(btcusdt, 100)
	later.At = t0.Add(time.Minute)
	_, err := tracker.Open(ctx, later)
	require.NoError(t, err)
	_, err = tracker.Open(ctx, openReq(ethusdt, 10))
	require.NoError(t, err)

	positions := tracker.OpenPositions()
	require.Len(t, positions, 2)
	assert.Equal(t, ethusdt, positions[0].TradingPair)
	assert.Equal(t, btcusdt, positions[1].TradingPair)
}

func TestTracker_LoadAfterRestart(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	before := NewTracker(WithPositionRepo(repo.NewPositionRepo(db)))
	open, err := before.Open(ctx, openReq(btcusdt, 100))
	require.NoError(t, err)
	closed, err := before.Open(ctx, openReq(ethusdt, 10))
	require.NoError(t, err)
	_, err = before.Close(ctx, closed.Id, d(12), ExitReasonTakeProfit, t0.Add(time.Hour))
	require.NoError(t, err)

	after := NewTracker(WithPositionRepo(repo.NewPositionRepo(db)))
	require.NoError(t, after.Load(ctx))

	got := after.GetOpen(btcusdt)
	require.True(t, got.IsSome())
	assert.Equal(t, open.Id, got.Unwrap().Id)
	assert.True(t, got.Unwrap().StopLoss.Equal(d(95)))

	// 重启后仍然不能重复开仓
	_, err = after.Open(ctx, openReq(btcusdt, 100))
	assert.ErrorIs(t, err, ErrPositionExists)

	history := after.ClosedPositions(0)
	require.Len(t, history, 1)
	assert.True(t, history[0].RealizedPnl.Equal(d(2)))
	assert.Equal(t, ExitReasonTakeProfit, history[0].ExitReason)
}

func TestTracker_PersistFailureKeepsMemory(t *testing.T) {
	r := new(MockPositionRepo)
	r.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	tracker := NewTracker(WithPositionRepo(r))

	p, err := tracker.Open(context.Background(), openReq(btcusdt, 100))
	require.NoError(t, err)
	assert.True(t, tracker.GetOpen(btcusdt).IsSome())
	assert.Equal(t, p.Id, tracker.GetOpen(btcusdt).Unwrap().Id)
	r.AssertNumberOfCalls(t, "Save", 1)
}

func TestTracker_LoadError(t *testing.T) {
	r := new(MockPositionRepo)
	r.On("FindByStatus", mock.Anything, entity.PositionStatusOpen).Return(nil, errors.New("db down"))
	tracker := NewTracker(WithPositionRepo(r))
	assert.Error(t, tracker.Load(context.Background()))
}
