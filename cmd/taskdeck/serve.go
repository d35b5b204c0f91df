package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/metalagman/taskdeck/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveCmd() *cobra.Command {
	var addr, dbPath, seedPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference task server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(
				fx.NopLogger,
				fx.Provide(
					func() (*sql.DB, error) {
						conn, _, err := openDB(dbPath)
						return conn, err
					},
					server.NewStore,
					server.NewHub,
					server.NewServer,
				),
				fx.Invoke(func(lc fx.Lifecycle, conn *sql.DB, store *server.Store, srv *server.Server) {
					httpSrv := &http.Server{Addr: addr, Handler: srv.Routes()}
					lc.Append(fx.Hook{
						OnStart: func(ctx context.Context) error {
							if seedPath != "" {
								if err := server.Seed(ctx, store, seedPath); err != nil {
									return err
								}
							}
							log.Info().Str("addr", addr).Msg("task server listening")
							go func() {
								if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
									log.Error().Err(err).Msg("http server stopped")
								}
							}()
							return nil
						},
						OnStop: func(ctx context.Context) error {
							sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
							defer cancel()
							if err := httpSrv.Shutdown(sctx); err != nil {
								return err
							}
							return conn.Close()
						},
					})
				}),
			)
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8484", "listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (default .taskdeck/taskdeck.db)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML fixture to load at startup")
	return cmd
}
