package entity

import (
	"time"
)

// Decision 每个交易对每轮的非观望决策, 包括被风控拒绝的
type Decision struct {
	Id             int64  `gorm:"primaryKey;autoIncrement"`
	Base           string `gorm:"index:decision_pair_idx"`
	Quote          string `gorm:"index:decision_pair_idx"`
	Direction      string
	Forced         bool
	RequestedSize  string
	ReferencePrice string
	Approved       bool
	RejectReason   string
	ApprovedSize   string
	Executed       bool
	ClientOrderId  string
	Reason         string
	Signals        string    // json
	CreatedAt      time.Time `gorm:"index"`
}
