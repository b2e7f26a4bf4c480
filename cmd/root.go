package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/KNICEX/auto-trader/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Automated spot crypto trading engine",
	Long: `trader polls market data, runs SMA / RSI / Bollinger strategies, aggregates their
signals, gates every order through a risk manager and tracks positions for
stop-loss / take-profit exits.

Paper trading is the default; set exchange.mode=binance to trade live.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// --config=./config/xxx.yaml
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "./config/config.dev.yaml", "specify config file")
}

// loadConfig 读取配置文件, 环境变量 TRADER_XXX_YYY 覆盖 xxx.yyy
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viper.GetViper()
	config.SetDefaults(v)
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		// 未显式指定且默认文件不存在时只用默认值
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return config.Config{}, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return config.Load(v)
}
