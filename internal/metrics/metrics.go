package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trader"

// Metrics 交易引擎指标, 注册到传入的 Registry
type Metrics struct {
	reg *prometheus.Registry

	TicksTotal      *prometheus.CounterVec // result: ok / skipped
	TickDuration    prometheus.Histogram
	SignalsTotal    *prometheus.CounterVec // strategy, direction
	StrategyErrors  *prometheus.CounterVec // strategy
	DecisionsTotal  *prometheus.CounterVec // pair, direction
	RejectionsTotal *prometheus.CounterVec // reason
	OrdersTotal     *prometheus.CounterVec // pair, side, result
	ForcedExits     *prometheus.CounterVec // pair, reason
	OpenPositions   prometheus.Gauge
	Balance         prometheus.Gauge
	DailyPnl        prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		TicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "ticks_total", Help: "Engine ticks by result"},
			[]string{"result"},
		),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "tick_duration_seconds", Help: "Wall time of one engine tick",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SignalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "signals_total", Help: "Signals generated by strategies"},
			[]string{"strategy", "direction"},
		),
		StrategyErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "strategy_errors_total", Help: "Strategy evaluations excluded from aggregation"},
			[]string{"strategy"},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "decisions_total", Help: "Non-hold aggregated decisions"},
			[]string{"pair", "direction"},
		),
		RejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "risk_rejections_total", Help: "Decisions rejected by the risk manager"},
			[]string{"reason"},
		),
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "orders_total", Help: "Orders submitted"},
			[]string{"pair", "side", "result"},
		),
		ForcedExits: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: namespace, Name: "forced_exits_total", Help: "Stop-loss and take-profit exits"},
			[]string{"pair", "reason"},
		),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "open_positions", Help: "Open positions"}),
		Balance:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "balance", Help: "Available quote balance"}),
		DailyPnl:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "daily_realized_pnl", Help: "Realized pnl of the current trading day"}),
	}
	reg.MustRegister(
		m.TicksTotal, m.TickDuration, m.SignalsTotal, m.StrategyErrors, m.DecisionsTotal,
		m.RejectionsTotal, m.OrdersTotal, m.ForcedExits, m.OpenPositions, m.Balance, m.DailyPnl,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
