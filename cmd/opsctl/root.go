package main

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/server"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// openRepositories is a test seam for server.OpenRepositories.
var openRepositories = func(ctx context.Context, cfg *config.Config) (repomanager.RepositoryManager, func() error, error) {
	return server.OpenRepositories(ctx, cfg)
}

type globalFlags struct {
	configFile string
	dsn        string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:          "opsctl",
		Short:        "Administer a fileshare deployment",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&g.configFile, "config", "c", "", "JSON config file (default: $FILESHARE_CONFIG)")
	root.PersistentFlags().StringVarP(&g.dsn, "dsn", "d", "", "PostgreSQL DSN, overrides the config")

	root.AddCommand(newMigrateCmd(g))
	root.AddCommand(newCreateOpsUserCmd(g))

	root.CompletionOptions.DisableDefaultCmd = true
	return root
}

// loadConfig reuses the server's config layering, with the persistent
// flags translated into the server's short flags.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	var args []string
	if g.configFile != "" {
		args = append(args, "-c", g.configFile)
	}
	if g.dsn != "" {
		args = append(args, "-d", g.dsn)
	}
	return config.Load(args)
}

// withRepositories opens the configured database, which also brings the
// schema up to date, and hands it to fn.
func (g *globalFlags) withRepositories(ctx context.Context, fn func(*config.Config, repomanager.RepositoryManager) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	rm, closeFn, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(cfg, rm)
}
