package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wpkernel/wpkgen/internal/web/auth"
)

func newTokenCommand(a *app) *cobra.Command {
	var (
		subject string
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the compile service",
		Long: `Print a signed token for "wpkgen serve". The token is signed with
server.jwt_secret and expires after server.token_ttl (0 never expires).

Scopes:
  compile   POST /v1/compile and the websocket stream
  history   GET /v1/builds
  debug     /debug/pprof and /debug/stats when server.pprof is on`,
		Example: `  wpkgen token --subject ci
  wpkgen token --subject dashboard --scope history --ttl 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range scopes {
				if !auth.KnownScope(s) {
					return fmt.Errorf("unknown scope %q", s)
				}
			}

			svc := auth.NewAuthService(a.cfg.Server.JWTSecret, a.cfg.Server.TokenTTL)
			token, err := svc.GenerateToken(subject, scopes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "wpkgen-cli", "Token subject")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeCompile, auth.ScopeHistory}, "Granted scopes")
	cmd.Flags().String("secret", "", "Signing secret (default: server.jwt_secret)")
	cmd.Flags().Duration("ttl", 0, "Lifetime (default: server.token_ttl)")

	return cmd
}
