package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/prn-tf/sigil/internal/lock"
	"github.com/prn-tf/sigil/internal/service"
	"github.com/prn-tf/sigil/internal/sigv4"
	"github.com/prn-tf/sigil/internal/storage"
)

var errCheckFailed = errors.New("r2 health check failed")

func newR2Cmd(c *cli) *cobra.Command {
	r2Cmd := &cobra.Command{
		Use:   "r2",
		Short: "Object store commands",
	}

	var timeout time.Duration
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Run the list, put, get and delete health check",
		Long: `Run the same health check as GET /api/health/r2 and print its JSON report.

When redis is enabled the check takes the shared diagnostic lock, so it
does not overlap a check started by the server.`,
		Args:    cobra.NoArgs,
		PreRunE: c.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var locker lock.Locker = lock.NewMemoryLocker()
			if c.cfg.Redis.Enabled {
				client, err := lock.NewRedisClient(ctx, c.cfg.Redis.Addr(), c.cfg.Redis.Password, c.cfg.Redis.DB, c.cfg.Redis.DialTimeout)
				if err != nil {
					return err
				}
				defer client.Close()
				locker = lock.NewRedisLocker(client)
			}

			store := storage.NewClient(
				sigv4.NewSigner(c.cfg.R2),
				c.logger,
				storage.WithHTTPClient(&http.Client{Timeout: timeout}),
			)
			diagnostics := service.NewDiagnosticService(store, locker, c.cfg.R2.DiagnosticPrefix, c.logger)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			report, err := diagnostics.Run(ctx)
			if err != nil {
				if encErr := enc.Encode(diagnostics.NewDiagnosticFailure(err)); encErr != nil {
					return encErr
				}
				return errCheckFailed
			}
			return enc.Encode(report)
		},
	}
	checkCmd.Flags().DurationVar(&timeout, "timeout", storage.DefaultRequestTimeout, "per-request timeout")

	r2Cmd.AddCommand(checkCmd)
	return r2Cmd
}
