package main

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a one-shot question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		query := strings.Join(args, " ")
		msg, err := env.Assistant.Ask(ctx, env.Assistant.NewSessionID(), query)
		if err != nil {
			return eris.Wrap(err, "ask")
		}

		fmt.Println(msg.Content)
		if msg.Meta != nil && !msg.Meta.Failed {
			fmt.Printf("\n[%s | %d in / %d out tokens | %.1fs | $%.4f]\n",
				msg.Meta.Intent,
				msg.Meta.Usage.InputTokens, msg.Meta.Usage.OutputTokens,
				float64(msg.Meta.LatencyMS)/1000, msg.Meta.CostUSD)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
