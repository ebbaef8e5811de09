package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gopgrid",
	Short: "GOP-grid experiment driver for streaming video compression training",
	Long: `gopgrid plans a (scene x rate-point x GOP-segment) experiment grid,
resolves checkpoint dependencies between segments, and drives an external
training program over the grid, one train and evaluate phase per cell.`,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "grid.yaml", "grid configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
}

// initConfig reads environment variables that match
func initConfig() {
	viper.SetEnvPrefix("GOPGRID")
	viper.AutomaticEnv()

	viper.BindEnv("data_root", "GOPGRID_DATA_ROOT")
	viper.BindEnv("results_root", "GOPGRID_RESULTS_ROOT")
}
