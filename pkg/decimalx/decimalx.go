package decimalx

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	One     = decimal.NewFromInt(1)
	Hundred = decimal.NewFromInt(100)
)

func MustFromString(s string) decimal.Decimal {
	f, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Clamp 把 d 限制在 [lo, hi] 区间
func Clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Max(lo, decimal.Min(hi, d))
}

// Clamp01 强度类数值统一归一到 [0, 1]
func Clamp01(d decimal.Decimal) decimal.Decimal {
	return Clamp(d, decimal.Zero, One)
}

// Sqrt 十进制没有开方, 借用 float64
func Sqrt(d decimal.Decimal) decimal.Decimal {
	if !d.IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Sqrt(d.InexactFloat64()))
}
