package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"version":   Version,
					"commit":    GitCommit,
					"built":     BuildTime,
					"goVersion": runtime.Version(),
				})
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "sigil-admin version %s\n", Version)
			fmt.Fprintf(w, "  commit:     %s\n", GitCommit)
			fmt.Fprintf(w, "  built:      %s\n", BuildTime)
			fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
