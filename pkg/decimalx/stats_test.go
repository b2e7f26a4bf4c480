package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ints(vs ...int64) []decimal.Decimal {
	res := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		res[i] = decimal.NewFromInt(v)
	}
	return res
}

func TestRollingMean(t *testing.T) {
	values := ints(1, 2, 3, 4, 5, 6)

	means, ok := RollingMean(values, 3)
	require.Len(t, means, len(values))

	assert.Equal(t, []bool{false, false, true, true, true, true}, ok)
	assert.True(t, means[2].Equal(decimal.NewFromInt(2)))
	assert.True(t, means[5].Equal(decimal.NewFromInt(5)))

	// 滚动和与逐窗口重算一致
	for i := 2; i < len(values); i++ {
		assert.True(t, means[i].Equal(Mean(values[i-2:i+1])), "index %d", i)
	}
}

func TestRollingMean_InvalidPeriod(t *testing.T) {
	means, ok := RollingMean(ints(1, 2), 0)
	assert.Len(t, means, 2)
	assert.Equal(t, []bool{false, false}, ok)
}

func TestSampleStdDev(t *testing.T) {
	testCases := []struct {
		name   string
		values []decimal.Decimal
		want   float64
	}{
		{name: "空", values: nil, want: 0},
		{name: "单个值", values: ints(5), want: 0},
		{name: "常数序列", values: ints(3, 3, 3, 3), want: 0},
		{name: "2 4 4 4 5 5 7 9", values: ints(2, 4, 4, 4, 5, 5, 7, 9), want: 2.138},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SampleStdDev(tc.values)
			assert.InDelta(t, tc.want, got.InexactFloat64(), 0.001)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.True(t, Clamp01(decimal.NewFromFloat(1.7)).Equal(One))
	assert.True(t, Clamp01(decimal.NewFromFloat(-0.2)).IsZero())
	assert.True(t, Clamp01(decimal.NewFromFloat(0.25)).Equal(decimal.NewFromFloat(0.25)))
}
