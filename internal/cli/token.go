package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"gitlab.com/testhub.net/internal/adapter/crypto"
)

func newTokenCommand(st *state) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the API with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := crypto.NewJWTService(st.cfg.JwtConfig).GenerateTokenHMAC(cmd.Context(), subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
