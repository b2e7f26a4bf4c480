package ioc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/KNICEX/auto-trader/internal/metrics"
	"github.com/KNICEX/auto-trader/internal/repo"
	"github.com/KNICEX/auto-trader/internal/service/dashboard"
	"github.com/KNICEX/auto-trader/internal/service/engine"
	"github.com/KNICEX/auto-trader/internal/service/portfolio"
	"github.com/KNICEX/auto-trader/internal/service/risk"
	"github.com/KNICEX/auto-trader/internal/service/strategy"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

// App 一个进程内的全部组件
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	DB        *gorm.DB
	Engine    *engine.TradingEngine
	Hub       *dashboard.Hub
	Metrics   *metrics.Metrics
	Dashboard *dashboard.Server
}

func InitApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	db := InitDB(cfg.DB)
	exchangeSvc := InitExchange(cfg)

	strategies, err := strategy.NewAll(cfg.Strategies, InitLLM(cfg))
	if err != nil {
		return nil, err
	}
	aggregator, err := strategy.NewAggregator(strategy.AggregationPolicy(cfg.Trading.Aggregation))
	if err != nil {
		return nil, err
	}
	riskMgr, err := risk.NewManager(cfg.Risk.ManagerConfig())
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Risk.Location()
	if err != nil {
		return nil, err
	}
	engineCfg, err := cfg.Trading.EngineConfig()
	if err != nil {
		return nil, err
	}

	tracker := portfolio.NewTracker(
		portfolio.WithPositionRepo(repo.NewPositionRepo(db)),
		portfolio.WithHistorySize(cfg.Trading.HistorySize),
		portfolio.WithTrackerLogger(logger),
	)
	account := portfolio.NewAccount(decimal.NewFromFloat(cfg.Risk.DailyLossLimit),
		portfolio.WithAccountRepo(repo.NewAccountRepo(db)),
		portfolio.WithLocation(loc),
		portfolio.WithAccountLogger(logger),
	)

	hub := dashboard.NewHub()
	m := metrics.New()
	eng, err := engine.NewTradingEngine(engineCfg, exchangeSvc, strategies, aggregator, riskMgr, tracker, account,
		engine.WithDecisionRepo(repo.NewDecisionRepo(db)),
		engine.WithNotifier(InitNotifier(cfg.Notify, logger)),
		engine.WithMetrics(m),
		engine.WithHub(hub),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Engine:    eng,
		Hub:       hub,
		Metrics:   m,
		Dashboard: dashboard.NewServer(hub, m.Handler(), logger),
	}, nil
}

// Run 运行引擎和看板, 任意一个出错都会让另一个退出
func (a *App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(a.Engine.Run)
	if a.Config.Dashboard.Enabled {
		p.Go(func(ctx context.Context) error {
			return a.Dashboard.Run(ctx, a.Config.Dashboard.Addr)
		})
	}
	return p.Wait()
}
