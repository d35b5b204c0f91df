package main

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/metalagman/taskdeck/internal/board"
	"github.com/metalagman/taskdeck/internal/logging"
	"github.com/metalagman/taskdeck/internal/push"
	"github.com/metalagman/taskdeck/internal/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// The TUI owns the terminal, logs go to a file.
			logPath := cfg.LogFile
			if logPath == "" {
				logPath = filepath.Join(".taskdeck", "board.log")
			}
			closeLog, err := logging.InitFile(logPath, debug)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			client := newClient(cfg)
			window := time.Duration(cfg.DebounceMS) * time.Millisecond
			store := board.NewStore(client, cfg.Project, window)
			if err := store.Load(ctx); err != nil {
				return err
			}

			p := tea.NewProgram(ui.NewModel(store), tea.WithAltScreen())
			store.Subscribe(func() { p.Send(ui.RefreshMsg{}) })

			sub := push.NewSubscriber(cfg.EventsURL(), store.Enqueue, store.SetConnected)
			go store.Run(ctx)
			go func() {
				if err := sub.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("event subscription stopped")
				}
			}()

			_, err = p.Run()
			cancel()

			// Push out whatever the debounce window still holds.
			store.Flush()
			store.Close()
			return err
		},
	}
	return cmd
}
