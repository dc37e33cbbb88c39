package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizdesk/internal/config"
	transport "quizdesk/internal/transport/http"
)

// NewTokenCmd mints a signed bearer token for an identity/role pair, for
// local testing and account bootstrap.
func NewTokenCmd(configPath *string) *cobra.Command {
	var subject, role string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an identity and role",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			secret := cfg.Auth.JWTSecret
			if secret == "" {
				secret = devSecret
			}
			token, err := transport.NewAuthService(secret).IssueToken(subject, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "identity the token is issued for")
	cmd.Flags().StringVar(&role, "role", transport.RoleStudent, "role claim (admin, teacher, student)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
