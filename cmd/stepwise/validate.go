package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/alexisbeaulieu97/stepwise/internal/infrastructure/config"
)

func newValidateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <flow-file>",
		Short: "Check a wizard flow and the schemas it references",
		Long: `Validate parses a flow file, compiles every schema it references and
builds the step registry without starting a session. Configuration errors
exit with code 2.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, flags, args[0])
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, flags *rootFlags, flowPath string) error {
	logger, err := newLogger(cmd, flags)
	if err != nil {
		return newCommandError("validate flow", "configuring logger", err, "Use one of debug, info, warn or error for --log-level.")
	}
	ctx := commandContext(cmd)
	loader := infraconfig.NewYAMLLoader(logger.With("component", "loader", "layer", "infrastructure"))

	if err := loader.Validate(ctx, flowPath); err != nil {
		return newCommandError("validate flow", flowPath, err, "Fix the reported field and run 'stepwise validate' again.")
	}

	return printFlowSummary(ctx, cmd, loader, flowPath)
}

func printFlowSummary(ctx context.Context, cmd *cobra.Command, loader *infraconfig.YAMLLoader, flowPath string) error {
	flow, err := loader.Load(ctx, flowPath)
	if err != nil {
		return newCommandError("validate flow", flowPath, err, "Fix the reported field and run 'stepwise validate' again.")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Flow %s (%s) is valid\n", valueOrFallback(flow.Name, "(no name)"), valueOrFallback(flow.Version, "unversioned"))
	fmt.Fprintf(out, "Steps: %d\n", flow.Registry.Len())
	if flow.InitialStep != "" {
		fmt.Fprintf(out, "Initial step: %s\n", flow.InitialStep)
	}
	return nil
}
