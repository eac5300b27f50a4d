package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/b0bbywan/go-odio-players/backend/mpris"
	"github.com/b0bbywan/go-odio-players/events"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the active player until interrupted",
	RunE:  doWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func doWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := playersBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	ch := b.Events().SubscribeFunc(events.FilterTypes([]string{events.TypePlayerActive}))
	defer b.Events().Unsubscribe(ch)

	if err := b.Start(); err != nil {
		return err
	}
	return watchActive(ctx, ch, cmd.OutOrStdout())
}

// watchActive prints one line per active-player change.
func watchActive(ctx context.Context, ch <-chan events.Event, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			s, isSummary := e.Data.(mpris.Summary)
			if !isSummary {
				continue
			}
			if _, err := fmt.Fprintln(w, renderSummary(s)); err != nil {
				return err
			}
		}
	}
}
