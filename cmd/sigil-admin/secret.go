package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prn-tf/sigil/internal/pkg/crypto"
)

func newSecretCmd() *cobra.Command {
	secretCmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the admin secret",
	}

	var length int
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random value for ADMIN_PASSWORD",
		Long: `Generate a random value for ADMIN_PASSWORD.

The same value is the admin login password and the key that signs session
tokens, so changing it logs every admin out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := crypto.GenerateSecret(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	generateCmd.Flags().IntVar(&length, "length", 32, "number of characters")

	secretCmd.AddCommand(generateCmd)
	return secretCmd
}
