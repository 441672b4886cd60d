package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/prn-tf/sigil/internal/sigv4"
)

type signOptions struct {
	query    []string
	headers  []string
	body     string
	bodyFile string
	at       string
}

func newSignCmd(c *cli) *cobra.Command {
	var opts signOptions

	cmd := &cobra.Command{
		Use:   "sign <METHOD> <key>",
		Short: "Sign an object store request and print each signing stage",
		Long: `Sign a request with the configured R2 credentials and print the
canonical request, the string to sign and the resulting headers.

Nothing is sent. Use --at to reproduce a signature for a fixed instant.`,
		Example: `  sigil-admin sign GET "" --query list-type=2 --query prefix=diag/
  sigil-admin sign PUT reports/q1.csv --header content-type:text/csv --body-file q1.csv`,
		Args:    cobra.ExactArgs(2),
		PreRunE: c.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, at, err := opts.request(args[0], args[1])
			if err != nil {
				return err
			}

			signer := sigv4.NewSigner(c.cfg.R2)
			var signed *sigv4.SignedRequest
			if at.IsZero() {
				signed, err = signer.Sign(req)
			} else {
				signed, err = signer.SignAt(req, at)
			}
			if err != nil {
				return err
			}

			printSigned(cmd, signed)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.query, "query", nil, "query parameter as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.headers, "header", nil, "extra signed header as name:value (repeatable)")
	cmd.Flags().StringVar(&opts.body, "body", "", "request body")
	cmd.Flags().StringVar(&opts.bodyFile, "body-file", "", "read the request body from a file")
	cmd.Flags().StringVar(&opts.at, "at", "", "signing time in RFC 3339 (default now)")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")

	return cmd
}

func (o signOptions) request(method, key string) (sigv4.SignRequest, time.Time, error) {
	req := sigv4.SignRequest{
		Method: strings.ToUpper(method),
		Key:    key,
	}

	if len(o.query) > 0 {
		req.Query = make(map[string]string, len(o.query))
		for _, q := range o.query {
			name, value, ok := strings.Cut(q, "=")
			if !ok || name == "" {
				return req, time.Time{}, fmt.Errorf("invalid --query %q: want key=value", q)
			}
			req.Query[name] = value
		}
	}

	if len(o.headers) > 0 {
		req.Headers = make(map[string]string, len(o.headers))
		for _, h := range o.headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return req, time.Time{}, fmt.Errorf("invalid --header %q: want name:value", h)
			}
			req.Headers[strings.TrimSpace(name)] = value
		}
	}

	switch {
	case o.bodyFile != "":
		body, err := os.ReadFile(o.bodyFile)
		if err != nil {
			return req, time.Time{}, fmt.Errorf("failed to read body: %w", err)
		}
		req.Body = body
	case o.body != "":
		req.Body = []byte(o.body)
	}

	var at time.Time
	if o.at != "" {
		t, err := time.Parse(time.RFC3339, o.at)
		if err != nil {
			return req, time.Time{}, fmt.Errorf("invalid --at: %w", err)
		}
		at = t
	}

	return req, at, nil
}

func printSigned(cmd *cobra.Command, signed *sigv4.SignedRequest) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "%s %s\n\n", signed.Method, signed.URL)
	fmt.Fprintln(w, "Canonical request:")
	fmt.Fprintln(w, signed.Canonical.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "String to sign:")
	fmt.Fprintln(w, signed.StringToSign)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Headers:")
	for _, name := range signed.SignedHeaders {
		fmt.Fprintf(w, "  %s: %s\n", name, signed.Headers[name])
	}
	fmt.Fprintf(w, "  %s: %s\n", sigv4.HeaderAuthorization, signed.Authorization())
}
