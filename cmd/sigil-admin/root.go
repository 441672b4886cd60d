package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prn-tf/sigil/internal/config"
	"github.com/prn-tf/sigil/internal/pkg/logging"
)

// cli holds state shared by every command of one invocation.
type cli struct {
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "sigil-admin",
		Short: "Sigil administration CLI",
		Long: `sigil-admin manages the Sigil admin session and object store settings.

Example usage:
  sigil-admin secret generate            # Print a new ADMIN_PASSWORD value
  sigil-admin token mint                 # Exchange the admin password for a session token
  sigil-admin token inspect <token>      # Check whether a token is valid
  sigil-admin sign GET reports/q1.csv    # Show how a request is signed
  sigil-admin r2 check                   # Run the object store health check`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSecretCmd(),
		newTokenCmd(c),
		newSignCmd(c),
		newR2Cmd(c),
	)

	return rootCmd
}

// load reads the configuration. Commands that need it call load from
// PreRunE so that "version" and "secret" work without a valid config.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(cfg.Logging, cmd.ErrOrStderr())
	return nil
}

func (c *cli) preRun(cmd *cobra.Command, args []string) error {
	return c.load(cmd)
}
