package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/fileshare/internal/flagx"
)

// parseFlags overlays the supported command-line flags:
//
//	-a string   HTTP bind address
//	-g string   gRPC bind address
//	-d string   PostgreSQL DSN
//	-m          in-memory repositories (no database)
//	-s string   signing secret
//	-u string   public base URL used in emailed and returned links
//	-l string   log level
//
// Arguments belonging to other components are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-m", "-s", "-u", "-l"})

	fs := flag.NewFlagSet("fileshare", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC listen address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.BoolVar(&cfg.Memory, "m", cfg.Memory, "use in-memory repositories")
	fs.StringVar(&cfg.SigningSecret, "s", cfg.SigningSecret, "token signing secret")
	fs.StringVar(&cfg.BaseURL, "u", cfg.BaseURL, "public base URL")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(args)
}
