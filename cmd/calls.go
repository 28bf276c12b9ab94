package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spigell/interview-caller/internal/calls"
	"go.uber.org/zap"
)

var errNoProvider = errors.New("call provider is not configured (set BOLNA_API_KEY and AGENT_ID)")

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place calls and check on them",
}

var callPlaceCmd = &cobra.Command{
	Use:   "place <candidate-id>",
	Short: "Call a candidate to confirm the scheduled interview",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(a *application) {
			placer := a.placer()
			if placer == nil {
				exitOnError(a.logger, "placing call", errNoProvider)
			}

			placement, err := placer.Place(context.Background(), calls.Request{CandidateID: parseID(a, args[0])})
			exitOnError(a.logger, "placing call", err)
			printJSON(a.logger, placement)
		})
	},
}

var callCheckCmd = &cobra.Command{
	Use:   "check <execution-id>",
	Short: "Fetch an execution from the provider and apply its outcome",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(a *application) {
			checker := a.checker()
			if checker == nil {
				exitOnError(a.logger, "checking call", errNoProvider)
			}

			res, err := checker.Check(context.Background(), args[0])
			exitOnError(a.logger, "checking call", err)
			a.logger.Info("call checked",
				zap.String("execution_id", res.ExecutionID),
				zap.String("call_status", res.CallStatus),
				zap.String("status", string(res.Status)),
			)
		})
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.AddCommand(callPlaceCmd, callCheckCmd)
}
