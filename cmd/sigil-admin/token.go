package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/service"
	"github.com/prn-tf/sigil/internal/session"
)

var errTokenInvalid = errors.New("token is not valid")

func newTokenCmd(c *cli) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and inspect admin session tokens",
	}

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Exchange the admin password for a session token",
		Long: `Prompt for the admin password and print a session token.

The token is the value of the admin_session cookie. When stdin is not a
terminal the password is read from its first line.`,
		Args:    cobra.NoArgs,
		PreRunE: c.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}

			out, err := c.sessionService().Login(cmd.Context(), service.LoginInput{Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Token)
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:     "inspect <token>",
		Short:   "Check whether a session token is valid",
		Args:    cobra.ExactArgs(1),
		PreRunE: c.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			claim := c.sessionService().GetAdminSession(strings.TrimSpace(args[0]))

			result := struct {
				Valid bool `json:"valid"`
				domain.AdminClaim
			}{}
			if claim != nil {
				result.Valid = true
				result.AdminClaim = *claim
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(result); err != nil {
				return err
			}
			if !result.Valid {
				return errTokenInvalid
			}
			return nil
		},
	}

	tokenCmd.AddCommand(mintCmd, inspectCmd)
	return tokenCmd
}

func (c *cli) sessionService() *service.SessionService {
	secret := c.cfg.Auth.AdminPassword
	return service.NewSessionService(
		session.NewVerifier(secret),
		session.NewCodec(secret, c.logger),
		c.logger,
	)
}

// readPassword prompts on the terminal without echo, or reads one line
// when stdin is redirected.
func readPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Admin password: ")
		password, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
