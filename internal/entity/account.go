package entity

import (
	"time"
)

// AccountDay 每日已实现盈亏和交易次数, Day 为配置时区下的日期 2006-01-02
type AccountDay struct {
	Day         string `gorm:"primaryKey;size:10"`
	RealizedPnl string
	Trades      int
	UpdatedAt   time.Time
}
