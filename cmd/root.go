package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/b0bbywan/go-odio-players/config"
)

var cfgFile string

// rootCmd runs the service when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Aggregates the MPRIS2 media players of the session bus",
	Long: `odio-players follows every MPRIS2 media player on the D-Bus session bus,
tracks their state, track lists and playlists, elects an active player and
serves all of it over an HTTP API with a server-sent events stream.`,
	SilenceUsage: true,
	RunE:         doServeCmd,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default /etc/odio-players/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("LogLevel", rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the command line.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies its log levels.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	cfg.ApplyLogging()
	return cfg, nil
}
