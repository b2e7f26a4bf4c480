package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sig(direction Direction, strength float64) Signal {
	return Signal{TradingPair: btcusdt, Direction: direction, Strength: strength}
}

func TestAggregator_Majority(t *testing.T) {
	a, err := NewAggregator("")
	require.NoError(t, err)
	assert.Equal(t, AggregationMajority, a.Policy())

	testCases := []struct {
		name    string
		signals []Signal
		want    Direction
	}{
		{name: "两买一卖", signals: []Signal{sig(DirectionBuy, 0.5), sig(DirectionBuy, 0.5), sig(DirectionSell, 1)}, want: DirectionBuy},
		{name: "一买一卖一观望", signals: []Signal{sig(DirectionBuy, 1), sig(DirectionSell, 1), sig(DirectionHold, 0)}, want: DirectionHold},
		{name: "一卖两观望", signals: []Signal{sig(DirectionSell, 0.1), sig(DirectionHold, 0), sig(DirectionHold, 0)}, want: DirectionSell},
		{name: "全部观望", signals: []Signal{sig(DirectionHold, 0), sig(DirectionHold, 0)}, want: DirectionHold},
		{name: "没有信号", signals: nil, want: DirectionHold},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := a.Aggregate(tc.signals)
			assert.Equal(t, tc.want, got, reason)
		})
	}
}

func TestAggregator_Unanimous(t *testing.T) {
	a, err := NewAggregator(AggregationUnanimous)
	require.NoError(t, err)

	got, _ := a.Aggregate([]Signal{sig(DirectionBuy, 1), sig(DirectionBuy, 1)})
	assert.Equal(t, DirectionBuy, got)

	got, _ = a.Aggregate([]Signal{sig(DirectionBuy, 1), sig(DirectionBuy, 1), sig(DirectionHold, 0)})
	assert.Equal(t, DirectionHold, got)

	got, _ = a.Aggregate([]Signal{sig(DirectionSell, 1)})
	assert.Equal(t, DirectionSell, got)
}

func TestAggregator_Weighted(t *testing.T) {
	a, err := NewAggregator(AggregationWeighted)
	require.NoError(t, err)

	// 一个强卖信号压过两个弱买信号
	got, _ := a.Aggregate([]Signal{sig(DirectionBuy, 0.2), sig(DirectionBuy, 0.3), sig(DirectionSell, 0.9)})
	assert.Equal(t, DirectionSell, got)

	got, _ = a.Aggregate([]Signal{sig(DirectionBuy, 0.5), sig(DirectionSell, 0.5)})
	assert.Equal(t, DirectionHold, got)
}

func TestNewAggregator_Unknown(t *testing.T) {
	_, err := NewAggregator("random")
	assert.Error(t, err)
}
