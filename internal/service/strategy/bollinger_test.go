package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBollingerStrategy_GenerateSignal(t *testing.T) {
	s, err := NewBollingerStrategy(3, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Lookback())

	testCases := []struct {
		name         string
		closes       []float64
		want         Direction
		wantStrength float64
	}{
		// 前一根 7 <= 下轨 7.268, 当前 9 > 下轨 7.139
		{name: "回到下轨之上", closes: []float64{10, 10, 10, 7, 9}, want: DirectionBuy, wantStrength: 0.2182},
		{name: "回到上轨之下", closes: []float64{10, 10, 10, 13, 11}, want: DirectionSell, wantStrength: 0.2182},
		{name: "带宽为零", closes: repeat(10, 5), want: DirectionHold},
		{name: "仍在下轨之下", closes: []float64{10, 10, 10, 7, 4}, want: DirectionHold},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sig, err := s.GenerateSignal(context.Background(), snapshotOf(tc.closes...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, sig.Direction, sig.Reason)
			assert.InDelta(t, tc.wantStrength, sig.Strength, 0.001)
		})
	}
}

func TestNewBollingerStrategy_Invalid(t *testing.T) {
	_, err := NewBollingerStrategy(1, 2)
	assert.Error(t, err)
	_, err = NewBollingerStrategy(20, 0)
	assert.Error(t, err)
}

func TestBollingerStrategy_InsufficientData(t *testing.T) {
	s, err := NewBollingerStrategy(20, 2)
	require.NoError(t, err)
	_, err = s.GenerateSignal(context.Background(), snapshotOf(repeat(10, 20)...))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBollingerStrategy_Idempotent(t *testing.T) {
	s, err := NewBollingerStrategy(3, 1)
	require.NoError(t, err)
	snapshot := snapshotOf(10, 10, 10, 7, 9)

	first, err := s.GenerateSignal(context.Background(), snapshot)
	require.NoError(t, err)
	second, err := s.GenerateSignal(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
