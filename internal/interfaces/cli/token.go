package cli

import (
	"github.com/spf13/cobra"

	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
)

// NewTokenCmd creates the "token" command group for issuing bearer tokens.
// There is no interactive login flow; identity is established out of band and
// tokens are minted for service accounts and scheduler integrations.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect bearer tokens",
	}

	cmd.AddCommand(newTokenIssueCmd(), newTokenInspectCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var (
		userID     string
		providerID string
		role       string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			codec, err := token.NewCodec(cc.Config.Auth.TokenSecret, cc.Config.Auth.TokenTTL)
			if err != nil {
				return err
			}
			raw, err := codec.Issue(userID, providerID, token.Role(role))
			if err != nil {
				return err
			}
			cmd.Println(raw)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user identifier (required)")
	cmd.Flags().StringVar(&providerID, "provider", "", "provider identifier (required for the provider role)")
	cmd.Flags().StringVar(&role, "role", "", "role: provider, operator, auditor or admin (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newTokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			codec, err := token.NewCodec(cc.Config.Auth.TokenSecret, cc.Config.Auth.TokenTTL)
			if err != nil {
				return err
			}
			claims, err := codec.Verify(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, claims)
		},
	}
}
