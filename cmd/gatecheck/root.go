package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/gatecheck/internal/config"
	"github.com/abrezinsky/gatecheck/internal/logger"
)

// cli holds the flags shared by every subcommand
type cli struct {
	envFile    string
	noBanner   bool
	noKeyboard bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "gatecheck",
		Short: "Event check-in kiosk: scan ticket QR codes and validate them",
		Long: `Gatecheck runs a check-in kiosk. A tablet opens the kiosk page, its camera
scans ticket QR codes and every code is validated against the check-in endpoint.

Every flag can also be set in the environment (GATECHECK_<KEY>) or in a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          c.runServe,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file to load if present")
	flags.BoolVar(&c.noBanner, "no-banner", false, "skip the startup logo")
	flags.BoolVar(&c.noKeyboard, "no-keyboard", false, "disable keyboard shortcuts")
	config.RegisterFlags(flags)

	root.AddCommand(
		c.newServeCmd(),
		c.newCheckCmd(),
		c.newQRCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig merges defaults, the env file, the environment and cmd's flags
func (c *cli) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(c.envFile, cmd.Flags())
}

// newLogger builds the process logger from cfg
func newLogger(cfg *config.Config, out io.Writer) *logger.SlogLogger {
	if out == nil {
		out = os.Stderr
	}
	return logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: out,
	})
}
