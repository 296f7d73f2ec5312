// Package tokencmd implements the command line tool that issues and checks
// the identity tokens accepted by the weeklog client.
package tokencmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/weeklog/internal/client/auth"
	"github.com/spf13/cobra"
)

// DefaultValidity is how long issued tokens stay valid unless overridden.
const DefaultValidity = 30 * 24 * time.Hour

// RootOptions holds flags shared by all commands.
type RootOptions struct {
	Secret string
}

func (o *RootOptions) secret() ([]byte, error) {
	if o.Secret == "" {
		return nil, errors.New("signing secret is required (--secret or WEEKLOG_TOKEN_SECRET)")
	}
	return []byte(o.Secret), nil
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "weeklog-token",
		Short: "Issue and verify weeklog identity tokens",
	}
	cmd.PersistentFlags().StringVar(&opts.Secret, "secret", os.Getenv("WEEKLOG_TOKEN_SECRET"), "signing secret")

	cmd.AddCommand(NewIssueCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	return cmd
}

// NewIssueCommand creates the issue command.
func NewIssueCommand(rootOpts *RootOptions) *cobra.Command {
	var validity time.Duration

	cmd := &cobra.Command{
		Use:           "issue <owner-id>",
		Short:         "Print a signed token for an owner",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := rootOpts.secret()
			if err != nil {
				return err
			}
			if validity <= 0 {
				return fmt.Errorf("validity must be positive, got %s", validity)
			}
			tok, err := auth.GenerateToken(args[0], secret, validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&validity, "validity", DefaultValidity, "token lifetime")
	return cmd
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "verify <token>",
		Short:         "Check a token and print the owner it names",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := rootOpts.secret()
			if err != nil {
				return err
			}
			owner, err := auth.GetUserIDFromToken(args[0], secret)
			if err != nil {
				return fmt.Errorf("invalid token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), owner)
			return nil
		},
	}
}
