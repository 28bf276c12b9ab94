package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spigell/interview-caller/internal/candidates"
	"go.uber.org/zap"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"candidate"},
	Short:   "Inspect and edit candidates.json",
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all candidates and available slots",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		withApplication(func(a *application) {
			doc, err := a.candidates.Snapshot()
			exitOnError(a.logger, "listing candidates", err)
			printJSON(a.logger, doc)
		})
	},
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a candidate",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		withApplication(func(a *application) {
			draft := candidates.Draft{
				ScheduledInterview: &candidates.Interview{},
			}
			draft.Name, _ = cmd.Flags().GetString("name")
			draft.Phone, _ = cmd.Flags().GetString("phone")
			draft.Email, _ = cmd.Flags().GetString("email")
			draft.Position, _ = cmd.Flags().GetString("position")
			draft.ScheduledInterview.Date, _ = cmd.Flags().GetString("date")
			draft.ScheduledInterview.Time, _ = cmd.Flags().GetString("time")
			draft.ReschedulingSlots, _ = cmd.Flags().GetIntSlice("slots")

			id, err := a.candidates.Add(draft)
			exitOnError(a.logger, "adding candidate", err)
			a.logger.Info("candidate added", zap.Int("candidate_id", id))
		})
	},
}

var candidatesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a candidate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApplication(func(a *application) {
			id := parseID(a, args[0])
			c, err := a.candidates.Get(id)
			exitOnError(a.logger, "deleting candidate", err)

			if !confirmed(cmd, a, fmt.Sprintf("Delete %s (%d)?", c.Name, c.ID)) {
				return
			}
			exitOnError(a.logger, "deleting candidate", a.candidates.Delete(id))
		})
	},
}

var candidatesResetCmd = &cobra.Command{
	Use:   "reset <id>",
	Short: "Set a candidate back to pending",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withApplication(func(a *application) {
			restore, _ := cmd.Flags().GetBool("restore")
			exitOnError(a.logger, "resetting candidate", a.candidates.ResetToPending(parseID(a, args[0]), restore))
		})
	},
}

var candidatesResetAllCmd = &cobra.Command{
	Use:   "reset-all",
	Short: "Set every candidate back to pending and restore original interviews",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		withApplication(func(a *application) {
			if !confirmed(cmd, a, "Reset all candidates to pending?") {
				return
			}
			_, err := a.candidates.ResetAllToPending()
			exitOnError(a.logger, "resetting candidates", err)
		})
	},
}

var candidatesSlotsCmd = &cobra.Command{
	Use:   "set-slots <id> [slot-id...]",
	Short: "Choose which available slots a candidate may be offered",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(a *application) {
			id := parseID(a, args[0])
			slots := make([]int, 0, len(args)-1)
			for _, arg := range args[1:] {
				slots = append(slots, parseID(a, arg))
			}
			exitOnError(a.logger, "setting rescheduling slots", a.candidates.SetReschedulingSlots(id, slots))
			a.logger.Info("rescheduling slots updated", zap.Int("candidate_id", id), zap.Ints("slots", slots))
		})
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.AddCommand(candidatesListCmd, candidatesAddCmd, candidatesDeleteCmd, candidatesResetCmd, candidatesResetAllCmd, candidatesSlotsCmd)

	candidatesAddCmd.Flags().String("name", "", "candidate name")
	candidatesAddCmd.Flags().String("phone", "", "phone number in E.164 format")
	candidatesAddCmd.Flags().String("email", "", "email address")
	candidatesAddCmd.Flags().String("position", "", "position applied for")
	candidatesAddCmd.Flags().String("date", "", `interview date, e.g. "Thursday, the 12th of December"`)
	candidatesAddCmd.Flags().String("time", "", `interview time, e.g. "10:00 A.M."`)
	candidatesAddCmd.Flags().IntSlice("slots", nil, "available slot ids offered for rescheduling")

	candidatesResetCmd.Flags().Bool("restore", false, "restore the original interview if it was rescheduled")

	for _, c := range []*cobra.Command{candidatesDeleteCmd, candidatesResetAllCmd} {
		c.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
	}
}

// withApplication builds the application for one-shot commands.
func withApplication(fn func(a *application)) {
	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	a, err := newApplication(context.Background(), config, logger)
	if err != nil {
		logger.Fatal("initializing", zap.Error(err))
	}

	fn(a)
}

func parseID(a *application, s string) int {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		a.logger.Error("invalid id", zap.String("value", s))
		osExit(1)
	}
	return id
}

func confirmed(cmd *cobra.Command, a *application, label string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}

	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		a.logger.Fatal("exiting", zap.Error(err))
	}
	return answer == PromptYes
}

func printJSON(logger *zap.Logger, v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Fatal("writing output", zap.Error(err))
	}
}
