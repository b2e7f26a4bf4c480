package schedule

import (
	"context"
	"log/slog"
	"time"
)

type Task interface {
	Run(ctx context.Context) error
	Name() string
}

// Every 按固定间隔运行 task, 直到 ctx 取消.
// 同一时间只有一次 Run; 某次超过间隔时下一次在它结束后立即开始, 不会并发也不会补跑.
// Run 返回的错误只记录日志.
func Every(ctx context.Context, interval time.Duration, task Task) {
	logger := slog.Default().With("task", task.Name())
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("task stopped", "reason", context.Cause(ctx))
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := task.Run(ctx); err != nil {
			logger.Error("task run failed", "error", err)
		}
		elapsed := time.Since(start)
		if elapsed > interval {
			logger.Warn("task overran interval", "elapsed", elapsed, "interval", interval)
		}
		timer.Reset(max(interval-elapsed, 0))
	}
}
