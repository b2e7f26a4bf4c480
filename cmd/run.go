package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KNICEX/auto-trader/ioc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop and the dashboard",
	Long: `Start the engine. It ticks every trading.tick_interval_seconds until SIGINT / SIGTERM,
finishing the current tick before exiting.

Examples:
  trader run --config ./config/config.dev.yaml
  trader run --signal-only`,
	RunE: runTrader,
}

func init() {
	bindRunFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

// bindRunFlags 命令行参数优先于配置文件
func bindRunFlags(fs *pflag.FlagSet) {
	fs.Bool("signal-only", false, "journal strategy decisions without placing orders")
	fs.String("dashboard-addr", "", "dashboard listen address, overrides dashboard.addr")
	fs.String("mode", "", "exchange mode: paper or binance")

	_ = viper.BindPFlag("dashboard.addr", fs.Lookup("dashboard-addr"))
	_ = viper.BindPFlag("exchange.mode", fs.Lookup("mode"))
}

func runTrader(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if signalOnly, _ := cmd.Flags().GetBool("signal-only"); signalOnly {
		cfg.Trading.TradingEnabled = false
	}

	logger, closeLog := ioc.InitLogger(cfg.Log)
	defer closeLog()

	app, err := ioc.InitApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("trader starting", "mode", cfg.Exchange.Mode, "pairs", cfg.Trading.Pairs, "trading_enabled", cfg.Trading.TradingEnabled)
	return app.Run(ctx)
}
