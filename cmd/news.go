package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Sync the news feed and print digests",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		articles, err := env.Feeds.News(ctx)
		if err != nil {
			return eris.Wrap(err, "sync news")
		}
		zap.L().Info("news synced", zap.Int("articles", len(articles)))

		limit := len(articles)
		if limit == 0 {
			limit = 25
		}
		summaries, err := env.Store.ListNewsSummaries(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "list summaries")
		}
		for _, s := range summaries {
			fmt.Printf("%s — %s\n  %s\n\n", s.PublishedAt.Format("2006-01-02"), s.Title, s.Summary)
		}
		return nil
	},
}

var earningsCmd = &cobra.Command{
	Use:   "earnings",
	Short: "Sync the earnings feed and print reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		reports, err := env.Feeds.Earnings(ctx)
		if err != nil {
			return eris.Wrap(err, "sync earnings")
		}
		for _, r := range reports {
			fmt.Printf("%-6s %-10s EPS %s  revenue %s\n",
				r.Ticker, r.Period, r.EPS.StringFixed(2), r.Revenue.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(earningsCmd)
}
