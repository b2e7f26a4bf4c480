package strategy

import (
	"fmt"

	"github.com/samber/lo"
)

type AggregationPolicy string

const (
	// AggregationMajority 非 HOLD 信号多数票, 平票 HOLD
	AggregationMajority AggregationPolicy = "majority"
	// AggregationUnanimous 所有信号方向一致才行动
	AggregationUnanimous AggregationPolicy = "unanimous"
	// AggregationWeighted 按强度加权
	AggregationWeighted AggregationPolicy = "weighted"
)

type Aggregator struct {
	policy AggregationPolicy
}

func NewAggregator(policy AggregationPolicy) (*Aggregator, error) {
	switch policy {
	case "":
		policy = AggregationMajority
	case AggregationMajority, AggregationUnanimous, AggregationWeighted:
	default:
		return nil, fmt.Errorf("unknown aggregation policy %q", policy)
	}
	return &Aggregator{policy: policy}, nil
}

func (a *Aggregator) Policy() AggregationPolicy {
	return a.policy
}

// Aggregate 合并同一交易对本轮的信号, 结果只取决于信号本身
func (a *Aggregator) Aggregate(signals []Signal) (Direction, string) {
	if len(signals) == 0 {
		return DirectionHold, "no signals"
	}
	buys := lo.Filter(signals, func(s Signal, _ int) bool { return s.Direction == DirectionBuy })
	sells := lo.Filter(signals, func(s Signal, _ int) bool { return s.Direction == DirectionSell })

	switch a.policy {
	case AggregationUnanimous:
		if len(buys) == len(signals) {
			return DirectionBuy, fmt.Sprintf("unanimous buy (%d)", len(buys))
		}
		if len(sells) == len(signals) {
			return DirectionSell, fmt.Sprintf("unanimous sell (%d)", len(sells))
		}
		return DirectionHold, fmt.Sprintf("not unanimous: buy=%d sell=%d total=%d", len(buys), len(sells), len(signals))
	case AggregationWeighted:
		strength := func(s Signal, _ int) float64 { return s.Strength }
		buyWeight := lo.Sum(lo.Map(buys, strength))
		sellWeight := lo.Sum(lo.Map(sells, strength))
		reason := fmt.Sprintf("weighted: buy=%.4f sell=%.4f", buyWeight, sellWeight)
		switch {
		case buyWeight > sellWeight:
			return DirectionBuy, reason
		case sellWeight > buyWeight:
			return DirectionSell, reason
		default:
			return DirectionHold, reason
		}
	default:
		reason := fmt.Sprintf("majority: buy=%d sell=%d hold=%d", len(buys), len(sells), len(signals)-len(buys)-len(sells))
		switch {
		case len(buys) > len(sells):
			return DirectionBuy, reason
		case len(sells) > len(buys):
			return DirectionSell, reason
		default:
			return DirectionHold, reason
		}
	}
}
