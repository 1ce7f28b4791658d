package main

import (
	"fmt"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/spf13/cobra"
)

var (
	tokenUser string
	tokenName string
	tokenRole string
	tokenSite string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token signed with SAFETYHUB_JWT_SECRET",
	Long: `Issue a short-lived bearer token for local testing against a server
configured with the same jwt_secret and jwt_issuer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig()
		if cfg.JWTSecret == "" {
			return fmt.Errorf("SAFETYHUB_JWT_SECRET is not set")
		}
		roles, err := authz.LoadTable(cfg.RolesFile)
		if err != nil {
			return err
		}
		role, ok := roles.Lookup(tokenRole)
		if !ok {
			return fmt.Errorf("unknown role %q (known: %v)", tokenRole, roles.IDs())
		}
		if _, err := inputval.ObjectID("user", tokenUser); err != nil {
			return err
		}
		if role.IsTenantScoped() {
			if _, err := inputval.ObjectID("employer", employerID); err != nil {
				return err
			}
		}

		v, err := auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return err
		}
		tok, err := v.Issue(&auth.SessionUser{
			ID:         tokenUser,
			Name:       tokenName,
			Role:       role.ID,
			EmployerID: employerID,
			SiteID:     tokenSite,
		}, tokenTTL, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id (24-character hex)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "analyst", "role id")
	tokenCmd.Flags().StringVar(&tokenSite, "site", "", "site id for site-bound roles")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
