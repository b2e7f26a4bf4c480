package decimalx

import (
	"github.com/shopspring/decimal"
)

// RollingMean 计算滑动平均, 结果与 values 对齐, 前 period-1 个位置为零值且 ok=false.
// 使用滚动和, 加减在十进制下是精确的, 所以与逐窗口重算结果完全一致.
func RollingMean(values []decimal.Decimal, period int) (means []decimal.Decimal, ok []bool) {
	means = make([]decimal.Decimal, len(values))
	ok = make([]bool, len(values))
	if period <= 0 {
		return means, ok
	}

	n := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, v := range values {
		sum = sum.Add(v)
		if i >= period {
			sum = sum.Sub(values[i-period])
		}
		if i >= period-1 {
			means[i] = sum.Div(n)
			ok[i] = true
		}
	}
	return means, ok
}

// Mean 平均值
func Mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// SampleStdDev 样本标准差 (n-1)
func SampleStdDev(values []decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}
	avg := Mean(values)

	var variance decimal.Decimal
	for _, v := range values {
		diff := v.Sub(avg)
		variance = variance.Add(diff.Mul(diff))
	}
	variance = variance.Div(decimal.NewFromInt(int64(len(values) - 1)))
	return Sqrt(variance)
}
