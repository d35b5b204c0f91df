package main

import (
	mcpserver "github.com/metalagman/taskdeck/internal/mcp"
	"github.com/spf13/cobra"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task board as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			srv := mcpserver.NewServer(newClient(cfg), cfg.Project, version)
			return srv.Run(cmd.Context())
		},
	}
	return cmd
}
