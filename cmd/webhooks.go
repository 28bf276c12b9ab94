package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Inspect and replay archived webhook deliveries",
}

var webhooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the archive index, most recent first",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		withApplication(func(a *application) {
			index, err := a.archive.Index()
			exitOnError(a.logger, "listing webhooks", err)
			printJSON(a.logger, index)
		})
	},
}

var webhooksUnidentifiedCmd = &cobra.Command{
	Use:   "unidentified",
	Short: "Print deliveries that carried no execution id",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		withApplication(func(a *application) {
			entries, err := a.unidentified.List()
			exitOnError(a.logger, "listing unidentified webhooks", err)
			printJSON(a.logger, entries)
		})
	},
}

var webhooksReplayCmd = &cobra.Command{
	Use:   "replay <execution-id>",
	Short: "Process an archived delivery again",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(a *application) {
			res, err := a.dispatcher.Replay(context.Background(), args[0])
			exitOnError(a.logger, "replaying webhook", err)
			a.logger.Info("webhook replayed",
				zap.String("execution_id", res.ExecutionID),
				zap.Int("candidate_id", res.CandidateID),
				zap.String("stage", string(res.Stage)),
				zap.String("status", string(res.Status)),
			)
		})
	},
}

func init() {
	rootCmd.AddCommand(webhooksCmd)
	webhooksCmd.AddCommand(webhooksListCmd, webhooksUnidentifiedCmd, webhooksReplayCmd)
}
