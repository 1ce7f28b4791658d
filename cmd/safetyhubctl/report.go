package main

import (
	"context"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/bootstrap"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch or generate an employer's narrative report",
	Long: `Fetch the cached narrative for --employer and --month, generating it
through the same single-writer path the server uses when it is missing
or stale.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := inputval.MonthOr("month", month, inputval.LastCompleteMonth(time.Now()))
		if err != nil {
			return err
		}
		d, err := staffScope()
		if err != nil {
			return err
		}
		if _, err := d.RequireEmployer(); err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services) error {
			rep, err := svc.Reports.GetOrGenerate(ctx, d, m)
			if err != nil {
				return err
			}
			return printJSON(rep)
		})
	},
}

func init() {
	reportCmd.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default: last complete month)")
	rootCmd.AddCommand(reportCmd)
}
