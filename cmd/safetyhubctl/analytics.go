package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	"github.com/dalemusser/safetyhub/internal/app/bootstrap"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/spf13/cobra"
)

var (
	month     string
	withSites bool
	from      string
	to        string
	months    int
	metric    string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print LTIFR, TRIFR and MTIFR for one month",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := inputval.MonthOr("month", month, inputval.LastCompleteMonth(time.Now()))
		if err != nil {
			return err
		}
		d, err := staffScope()
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services) error {
			if !withSites {
				metrics, err := svc.Aggregator.Compute(ctx, d, m)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"scope": d, "metrics": metrics})
			}
			metrics, sites, err := svc.Aggregator.ComputeWithSites(ctx, d, m)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"scope": d, "metrics": metrics, "sites": sites})
		})
	},
}

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print a monthly series and its average",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := url.Values{}
		q.Set("from", from)
		q.Set("to", to)
		if months > 0 {
			q.Set("months", strconv.Itoa(months))
		}
		w, err := inputval.Window(q, time.Now())
		if err != nil {
			return err
		}
		pick, ok := series.MetricByName(metric)
		if !ok {
			return fmt.Errorf("unknown metric %q (want ltifr, trifr or mtifr)", metric)
		}
		d, err := staffScope()
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services) error {
			points, err := svc.Series.Build(ctx, d, w)
			if err != nil {
				return err
			}
			out := map[string]any{"scope": d, "window": w.String(), "points": points}
			if avg, used, ok := series.Average(points, pick); ok {
				out["average"] = map[string]any{"metric": metric, "value": avg, "months": used}
			}
			return printJSON(out)
		})
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank an employer's sites for one month",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := inputval.MonthOr("month", month, inputval.LastCompleteMonth(time.Now()))
		if err != nil {
			return err
		}
		d, err := staffScope()
		if err != nil {
			return err
		}
		return withServices(cmd.Context(), func(ctx context.Context, svc *bootstrap.Services) error {
			rk, err := svc.Ranking.Rank(ctx, d, m)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"scope": d, "weights": svc.Ranking.Weights().String(), "rankings": rk})
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{metricsCmd, rankCmd} {
		c.Flags().StringVarP(&month, "month", "m", "", "month as YYYY-MM (default: last complete month)")
	}
	metricsCmd.Flags().BoolVar(&withSites, "sites", false, "include per-site metrics")

	seriesCmd.Flags().StringVar(&from, "from", "", "first month (YYYY-MM)")
	seriesCmd.Flags().StringVar(&to, "to", "", "last month (default: last complete month)")
	seriesCmd.Flags().IntVar(&months, "months", 0, "trailing months ending at --to")
	seriesCmd.Flags().StringVar(&metric, "metric", "ltifr", "metric to average: ltifr, trifr or mtifr")

	rootCmd.AddCommand(metricsCmd, seriesCmd, rankCmd)
}
