package strategy

import (
	"context"
	"fmt"

	"github.com/KNICEX/auto-trader/pkg/decimalx"
)

var _ Strategy = (*SMACrossStrategy)(nil)

// SMACrossStrategy 双均线交叉: 短期均线上穿长期均线买入, 下穿卖出
type SMACrossStrategy struct {
	name        string
	shortPeriod int // 短期均线周期
	longPeriod  int // 长期均线周期
}

// NewSMACrossStrategy 创建双均线策略, shortPeriod 必须小于 longPeriod
func NewSMACrossStrategy(shortPeriod, longPeriod int) (*SMACrossStrategy, error) {
	if shortPeriod <= 0 || shortPeriod >= longPeriod {
		return nil, fmt.Errorf("sma: invalid periods fast=%d slow=%d", shortPeriod, longPeriod)
	}
	return &SMACrossStrategy{
		name:        fmt.Sprintf("sma(%d,%d)", shortPeriod, longPeriod),
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
	}, nil
}

func (s *SMACrossStrategy) Name() string {
	return s.name
}

// Lookback 需要前一根K线的长期均线来判断交叉
func (s *SMACrossStrategy) Lookback() int {
	return s.longPeriod + 1
}

func (s *SMACrossStrategy) GenerateSignal(ctx context.Context, snapshot Snapshot) (Signal, error) {
	if snapshot.Len() < s.Lookback() {
		return Signal{}, fmt.Errorf("%s: need %d klines, got %d: %w", s.name, s.Lookback(), snapshot.Len(), ErrInsufficientData)
	}

	closes := snapshot.Closes()
	shortMA, _ := decimalx.RollingMean(closes, s.shortPeriod)
	longMA, _ := decimalx.RollingMean(closes, s.longPeriod)

	last := len(closes) - 1
	fast, slow := shortMA[last], longMA[last]
	prevFast, prevSlow := shortMA[last-1], longMA[last-1]

	var direction Direction
	var reason string
	switch {
	case prevFast.LessThanOrEqual(prevSlow) && fast.GreaterThan(slow):
		// 金叉
		direction = DirectionBuy
		reason = fmt.Sprintf("golden cross: short MA(%s) crosses above long MA(%s)", fast.StringFixed(4), slow.StringFixed(4))
	case prevFast.GreaterThanOrEqual(prevSlow) && fast.LessThan(slow):
		// 死叉
		direction = DirectionSell
		reason = fmt.Sprintf("death cross: short MA(%s) crosses below long MA(%s)", fast.StringFixed(4), slow.StringFixed(4))
	default:
		direction = DirectionHold
		reason = fmt.Sprintf("no cross: short MA(%s), long MA(%s)", fast.StringFixed(4), slow.StringFixed(4))
	}

	strength := 0.0
	if direction != DirectionHold && !slow.IsZero() {
		// 均线差 1% 即满强度
		gap := fast.Sub(slow).Abs().Div(slow).Mul(decimalx.Hundred)
		strength = decimalx.Clamp01(gap).InexactFloat64()
	}

	sig := newSignal(s.name, snapshot, direction, strength, reason)
	sig.Metadata = map[string]any{
		"short_ma":    fast.String(),
		"long_ma":     slow.String(),
		"close_price": closes[last].String(),
	}
	return sig, nil
}

// smaParams 默认参数 5/20
func smaParams(p Params) (int, int) {
	return p.Int("fast", 5), p.Int("slow", 20)
}
