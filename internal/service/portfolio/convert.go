package portfolio

import (
	"time"

	"github.com/KNICEX/auto-trader/internal/entity"
	"github.com/KNICEX/auto-trader/internal/service/exchange"
	"github.com/shopspring/decimal"
)

func toEntity(p Position) entity.Position {
	e := entity.Position{
		Id:         p.Id,
		Base:       p.TradingPair.Base,
		Quote:      p.TradingPair.Quote,
		EntryPrice: p.EntryPrice.String(),
		Size:       p.Size.String(),
		EntryTime:  p.EntryTime,
		StopLoss:   p.StopLoss.String(),
		TakeProfit: p.TakeProfit.String(),
		Status:     string(p.Status),
	}
	if p.Status == PositionStatusClosed {
		exitTime := p.ExitTime
		e.ExitPrice = p.ExitPrice.String()
		e.ExitTime = &exitTime
		e.ExitReason = string(p.ExitReason)
		e.RealizedPnl = p.RealizedPnl.String()
	}
	return e
}

func fromEntity(e entity.Position) Position {
	p := Position{
		Id:          e.Id,
		TradingPair: exchange.TradingPair{Base: e.Base, Quote: e.Quote},
		EntryPrice:  parseDecimal(e.EntryPrice),
		Size:        parseDecimal(e.Size),
		EntryTime:   e.EntryTime,
		StopLoss:    parseDecimal(e.StopLoss),
		TakeProfit:  parseDecimal(e.TakeProfit),
		Status:      PositionStatus(e.Status),
		ExitPrice:   parseDecimal(e.ExitPrice),
		ExitReason:  ExitReason(e.ExitReason),
		RealizedPnl: parseDecimal(e.RealizedPnl),
	}
	if e.ExitTime != nil {
		p.ExitTime = *e.ExitTime
	}
	return p
}

// parseDecimal 空串视为 0
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
