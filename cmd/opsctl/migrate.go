package main

import (
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

func newMigrateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withRepositories(cmd.Context(), func(cfg *config.Config, _ repomanager.RepositoryManager) error {
				if cfg.Memory {
					fmt.Fprintln(cmd.OutOrStdout(), "memory mode: nothing to migrate")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}
