package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/b0bbywan/go-odio-players/api"
	"github.com/b0bbywan/go-odio-players/backend"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the players service and its HTTP API (default)",
	RunE:  doServeCmd,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func doServeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("[%s] Failed to load config: %v", config.AppName, err)
		return err
	}
	config.Watch(viper.GetViper())

	// Global context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.New(ctx, cfg.MPRIS, cfg.Artwork, cfg.Zeroconf)
	if err != nil {
		logger.Error("[%s] Backend initialization failed: %v", config.AppName, err)
		return err
	}
	defer b.Close()

	if err := b.Start(); err != nil {
		logger.Error("[%s] Backend start failed: %v", config.AppName, err)
		return err
	}

	server := api.NewServer(cfg.Api, b)

	sdNotify(daemon.SdNotifyReady)
	logger.Info("[%s] started", config.AppName)

	if server != nil {
		err = server.Run(ctx)
		if err != nil {
			logger.Error("[%s] http server error: %v", config.AppName, err)
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("[%s] stopping...", config.AppName)
	sdNotify(daemon.SdNotifyStopping)
	stop()
	b.Close()
	logger.Info("[%s] stopped", config.AppName)
	return err
}

// sdNotify reports state to systemd when running as a notify unit.
func sdNotify(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		logger.Warn("[systemd] notify %q failed: %v", state, err)
	case sent:
		logger.Debug("[systemd] notified %q", state)
	}
}
