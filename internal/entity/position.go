package entity

import (
	"time"
)

// Position 持仓, 平仓后保留作为历史
type Position struct {
	Id          string `gorm:"primaryKey;size:26"` // ULID
	Base        string `gorm:"index:position_pair_idx"`
	Quote       string `gorm:"index:position_pair_idx"`
	EntryPrice  string
	Size        string // 基础币数量
	EntryTime   time.Time
	StopLoss    string
	TakeProfit  string
	Status      string `gorm:"index"`
	ExitPrice   string
	ExitTime    *time.Time `gorm:"index"`
	ExitReason  string
	RealizedPnl string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	PositionStatusOpen   = "OPEN"
	PositionStatusClosed = "CLOSED"
)
