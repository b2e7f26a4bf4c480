package exchange

import "errors"

var (
	// ErrDataUnavailable 行情源不可用, 下个 tick 重试
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrOrderRejected 交易所拒单
	ErrOrderRejected = errors.New("order rejected")
	// ErrNetwork 网络错误或超时
	ErrNetwork = errors.New("network error")
	// ErrOrderNotFound 按客户端订单号查不到
	ErrOrderNotFound = errors.New("order not found")
)

// IsRetryable 下单失败是否可以重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrOrderRejected)
}
