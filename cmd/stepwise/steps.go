package main

import (
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	infraconfig "github.com/alexisbeaulieu97/stepwise/internal/infrastructure/config"
)

type stepsOptions struct {
	assignments []string
	jsonOutput  bool
}

func newStepsCmd(flags *rootFlags) *cobra.Command {
	opts := &stepsOptions{}

	cmd := &cobra.Command{
		Use:   "steps <flow-file>",
		Short: "List the steps that apply to some form data",
		Long: `Steps evaluates every step's visibility rule against the form data given
with --set and prints the applicable steps in order.`,
		Example: `  stepwise steps onboarding.yaml --set business.entity_type=LLC`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(cmd, flags, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.assignments, "set", nil, "Form data as path=value (path:=value decodes YAML)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output steps as JSON")

	return cmd
}

type stepJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	SchemaRef string `json:"schema_ref,omitempty"`
	Optional  bool   `json:"optional,omitempty"`
}

type stepsJSONPayload struct {
	Flow       string     `json:"flow"`
	Registered int        `json:"registered"`
	Count      int        `json:"count"`
	Steps      []stepJSON `json:"steps"`
}

func runSteps(cmd *cobra.Command, flags *rootFlags, flowPath string, opts *stepsOptions) error {
	patch, err := parseAssignments(opts.assignments)
	if err != nil {
		return newCommandError("evaluate steps", "parsing --set values", err, "Use --set path=value, for example --set owners[0].name=Ada.")
	}

	logger, err := newLogger(cmd, flags)
	if err != nil {
		return newCommandError("evaluate steps", "configuring logger", err, "Use one of debug, info, warn or error for --log-level.")
	}
	ctx := commandContext(cmd)
	loader := infraconfig.NewYAMLLoader(logger.With("component", "loader", "layer", "infrastructure"))

	flow, err := loader.Load(ctx, flowPath)
	if err != nil {
		return newCommandError("evaluate steps", flowPath, err, "Run 'stepwise validate' on the flow for details.")
	}

	data := domain.FormData{}
	if _, err := data.Apply(patch); err != nil {
		return newCommandError("evaluate steps", "applying --set values", err, "Check the field paths you passed.")
	}

	steps, err := domain.ComputeApplicable(flow.Registry, data)
	if err != nil {
		return newCommandError("evaluate steps", "computing applicable steps", err, "Check the visibility rules in the flow.")
	}

	if opts.jsonOutput {
		payload := stepsJSONPayload{
			Flow:       flow.Name,
			Registered: flow.Registry.Len(),
			Count:      len(steps),
			Steps:      make([]stepJSON, len(steps)),
		}
		for i, step := range steps {
			payload.Steps[i] = stepJSON{
				ID:        step.ID,
				Title:     step.Label(),
				Order:     step.Order,
				SchemaRef: string(step.SchemaRef),
				Optional:  step.Optional,
			}
		}
		return writeJSON(cmd.OutOrStdout(), payload)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d of %d steps apply:\n", len(steps), flow.Registry.Len())
	for i, step := range steps {
		suffix := ""
		if step.Optional {
			suffix = " (optional)"
		}
		fmt.Fprintf(out, "  %d. %-20s %s%s\n", i+1, step.ID, step.Label(), suffix)
	}
	return nil
}
