package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	logLevel   string
	jsonLogs   bool
	storeKind  string
	storePath  string
	journeyLog string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "stepwise",
		Short:         "Stepwise runs conditional, validated onboarding wizards",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.jsonLogs, "json-logs", false, "Emit logs as JSON instead of console output")
	cmd.PersistentFlags().StringVar(&flags.storeKind, "store", storeKindFile, "Session store backend (file or sqlite)")
	cmd.PersistentFlags().StringVar(&flags.storePath, "store-path", "", "Session store location (defaults to ~/.stepwise)")
	cmd.PersistentFlags().StringVar(&flags.journeyLog, "journey-log", "", "Append journey events as JSON lines to this file")

	cmd.AddCommand(newValidateCmd(flags))
	cmd.AddCommand(newStepsCmd(flags))
	cmd.AddCommand(newSessionCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
