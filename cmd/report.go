package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/auto-trader/internal/repo"
	"github.com/KNICEX/auto-trader/internal/service/analytics"
	"github.com/KNICEX/auto-trader/internal/service/portfolio"
	"github.com/KNICEX/auto-trader/ioc"
	"github.com/spf13/cobra"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the performance report of closed positions",
	Long: `Read the position archive from the database and print trade statistics,
open positions and the max drawdown of realized pnl.

Example:
  trader report --limit 200`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportLimit, "limit", 500, "number of most recent closed positions to analyze")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db := ioc.InitDB(cfg.DB)

	tracker := portfolio.NewTracker(
		portfolio.WithPositionRepo(repo.NewPositionRepo(db)),
		portfolio.WithHistorySize(reportLimit),
	)
	if err := tracker.Load(context.Background()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report := analytics.Analyze(tracker.ClosedPositions(0), time.Now())
	fmt.Fprintln(out, report.String())

	open := tracker.OpenPositions()
	fmt.Fprintf(out, "open positions: %d\n", len(open))
	for _, p := range open {
		fmt.Fprintf(out, "  %s %s size=%s entry=%s stop=%s take=%s since %s\n",
			p.Id, p.TradingPair, p.Size, p.EntryPrice, p.StopLoss, p.TakeProfit, p.EntryTime.Format(time.DateTime))
	}
	return nil
}
