package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/b0bbywan/go-odio-players/backend"
	"github.com/b0bbywan/go-odio-players/config"
	"github.com/b0bbywan/go-odio-players/events"
	"github.com/b0bbywan/go-odio-players/logger"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print a snapshot of the players on the session bus",
	RunE:  doListCmd,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Duration("settle", 500*time.Millisecond, "quiet period ending discovery")
	listCmd.Flags().Duration("timeout", 5*time.Second, "maximum time spent discovering players")
	listCmd.Flags().Bool("json", false, "print players as JSON")
}

// playersBackend builds a backend running only the players service.
func playersBackend(ctx context.Context, cfg *config.Config) (*backend.Backend, error) {
	if cfg.MPRIS == nil || !cfg.MPRIS.Enabled {
		return nil, errors.New("mpris backend is disabled")
	}
	return backend.New(ctx, cfg.MPRIS, nil, nil)
}

func doListCmd(cmd *cobra.Command, args []string) error {
	settle, err := cmd.Flags().GetDuration("settle")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b, err := playersBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	updates := b.Events().Subscribe()
	defer b.Events().Unsubscribe(updates)
	if err := b.Start(); err != nil {
		return err
	}
	waitSettled(ctx, updates, settle, timeout)

	players := b.MPRIS.ListPlayers()
	logger.Debug("[cli] %d players after discovery", len(players))

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(players)
	}
	_, err = fmt.Fprintln(out, renderPlayers(players))
	return err
}

// waitSettled drains ch until it stays quiet for the quiet period, limit
// elapses, or ctx is done.
func waitSettled(ctx context.Context, ch <-chan events.Event, quiet, limit time.Duration) {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	idle := time.NewTimer(quiet)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-idle.C:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			idle.Reset(quiet)
		}
	}
}
