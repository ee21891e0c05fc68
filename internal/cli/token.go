package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/aidanlsb/tabula/internal/server"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTenants []int64
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the export API",
	Long: `Issue an HS256 bearer token signed with auth.jwt_secret.

Examples:
  tbl token --subject ada --tenant 7
  tbl token --subject ops --role admin --ttl 1h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, ok := server.NewAuthorizer(getConfig().Auth.JWTSecret, clockwork.NewRealClock()).(*server.TokenAuthorizer)
		if !ok {
			return handleError(ErrConfigInvalid, errors.New("auth.jwt_secret is not set"), "Set [auth] jwt_secret in the config file")
		}
		if tokenRole != server.RoleAdmin && len(tokenTenants) == 0 {
			return handleError(ErrMissingArgument, errors.New("at least one --tenant is required unless --role admin"), "")
		}

		token, err := auth.Issue(tokenSubject, tokenRole, tokenTenants, tokenTTL)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"token": token, "expires_in": tokenTTL.String()}, nil)
			return nil
		}
		fmt.Fprintln(stdout, token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "Role (admin may export from any tenant)")
	tokenCmd.Flags().Int64SliceVar(&tokenTenants, "tenant", nil, "Tenant id the token grants (repeatable)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}
