package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/stepwise/internal/application/session"
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

func newSessionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Short:   "Drive wizard sessions step by step",
		Long:    "Start, inspect and navigate persisted wizard sessions without the interactive UI.",
		Aliases: []string{"s"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newSessionStartCmd(flags))
	cmd.AddCommand(newSessionShowCmd(flags))
	cmd.AddCommand(newSessionSetCmd(flags))
	cmd.AddCommand(newSessionValidateCmd(flags))
	cmd.AddCommand(newSessionNextCmd(flags))
	cmd.AddCommand(newSessionBackCmd(flags))
	cmd.AddCommand(newSessionJumpCmd(flags))
	cmd.AddCommand(newSessionListCmd(flags))
	cmd.AddCommand(newSessionDeleteCmd(flags))

	return cmd
}

type sessionStartOptions struct {
	initialStep string
	assignments []string
	jsonOutput  bool
}

func newSessionStartCmd(flags *rootFlags) *cobra.Command {
	opts := &sessionStartOptions{}

	cmd := &cobra.Command{
		Use:   "start <flow-file>",
		Short: "Start a new session on a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(opts.assignments)
			if err != nil {
				return newCommandError("start session", "parsing --set values", err, "Use --set path=value.")
			}
			return withApp(cmd, flags, func(ctx context.Context, app *appContext) error {
				sess, err := app.Sessions.Start(ctx, args[0], opts.initialStep)
				if err != nil {
					return newCommandError("start session", args[0], err, "Run 'stepwise validate' on the flow for details.")
				}
				if len(patch) > 0 {
					if err := sess.Update(ctx, patch); err != nil {
						return newCommandError("start session", "applying --set values", err, "Check the field paths you passed.")
					}
				}
				return renderSession(ctx, cmd, sess, opts.jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&opts.initialStep, "initial-step", "", "Start at this step instead of the flow's first applicable step")
	cmd.Flags().StringArrayVar(&opts.assignments, "set", nil, "Initial form data as path=value (path:=value decodes YAML)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the session as JSON")

	return cmd
}

func newSessionShowCmd(flags *rootFlags) *cobra.Command {
	jsonOutput := false

	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's position, status and form data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, args[0], "show session", func(ctx context.Context, sess *session.Session) error {
				return renderSession(ctx, cmd, sess, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the session as JSON")

	return cmd
}

func newSessionSetCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set <session-id> <path=value>...",
		Short:   "Update form data; an empty value clears the field",
		Example: `  stepwise session set 3f2a... business.name=Acme owners[0].ssn=212345678 employees:=12`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseAssignments(args[1:])
			if err != nil {
				return newCommandError("update session", "parsing assignments", err, "Use path=value, for example owners[0].name=Ada.")
			}
			return withSession(cmd, flags, args[0], "update session", func(ctx context.Context, sess *session.Session) error {
				if err := sess.Update(ctx, patch); err != nil {
					return newCommandError("update session", args[0], err, "Check the field paths you passed.")
				}
				return renderSession(ctx, cmd, sess, false)
			})
		},
	}

	return cmd
}

func newSessionValidateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <session-id>",
		Short: "Validate the current step without moving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, args[0], "validate step", func(ctx context.Context, sess *session.Session) error {
				result, err := sess.Validate(ctx)
				if err != nil {
					return newCommandError("validate step", args[0], err, "")
				}
				renderValidation(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	return cmd
}

func newSessionNextCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next <session-id>",
		Short: "Validate the current step and advance",
		Long: `Next runs the current step's schema. When it passes the session moves to
the next applicable step, or completes after the last one. When it fails the
field errors are printed and the command exits with code 3.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, args[0], "advance session", func(ctx context.Context, sess *session.Session) error {
				result, err := sess.Next(ctx)
				var blocked *domain.GateBlockedError
				if errors.As(err, &blocked) {
					renderValidation(cmd.OutOrStdout(), result)
					return err
				}
				if err != nil {
					return newCommandError("advance session", args[0], err, "Run 'stepwise session show' to inspect the session.")
				}
				return renderSession(ctx, cmd, sess, false)
			})
		},
	}

	return cmd
}

func newSessionBackCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "back <session-id>",
		Short: "Move back to the previous applicable step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, args[0], "move back", func(ctx context.Context, sess *session.Session) error {
				if err := sess.Previous(ctx); err != nil {
					return newCommandError("move back", args[0], err, "The session is already on its first step.")
				}
				return renderSession(ctx, cmd, sess, false)
			})
		},
	}

	return cmd
}

func newSessionJumpCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jump <session-id> <step-id>",
		Short: "Jump to a visited step or the next one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, args[0], "jump", func(ctx context.Context, sess *session.Session) error {
				if err := sess.JumpTo(ctx, args[1]); err != nil {
					return newCommandError("jump", fmt.Sprintf("to step %q", args[1]), err, "Only visited steps and the immediate next step can be targeted.")
				}
				return renderSession(ctx, cmd, sess, false)
			})
		},
	}

	return cmd
}

type sessionListJSON struct {
	ID        string       `json:"id"`
	Flow      string       `json:"flow"`
	FlowPath  string       `json:"flow_path"`
	StepID    string       `json:"step_id"`
	Phase     domain.Phase `json:"phase"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newSessionListCmd(flags *rootFlags) *cobra.Command {
	jsonOutput := false

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *appContext) error {
				records, err := app.Sessions.List(ctx)
				if err != nil {
					return newCommandError("list sessions", "reading the session store", err, "Check the store file permissions.")
				}

				if jsonOutput {
					payload := make([]sessionListJSON, len(records))
					for i, record := range records {
						payload[i] = sessionListJSON{
							ID:        record.ID,
							Flow:      record.FlowName,
							FlowPath:  record.FlowPath,
							StepID:    record.Snapshot.CurrentStepID,
							Phase:     record.Snapshot.Phase,
							CreatedAt: record.CreatedAt,
							UpdatedAt: record.UpdatedAt,
						}
					}
					return writeJSON(cmd.OutOrStdout(), payload)
				}

				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sessions stored yet.")
					fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'stepwise session start <flow-file>' to begin one.")
					return nil
				}

				writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(writer, "ID\tFLOW\tSTEP\tPHASE\tUPDATED")
				for _, record := range records {
					fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
						record.ID,
						valueOrFallback(record.FlowName, "(no name)"),
						record.Snapshot.CurrentStepID,
						record.Snapshot.Phase,
						formatRelativeTime(record.UpdatedAt),
					)
				}
				return writer.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output sessions as JSON")

	return cmd
}

func newSessionDeleteCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <session-id>",
		Short:   "Delete a stored session",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, app *appContext) error {
				if err := app.Sessions.Delete(ctx, args[0]); err != nil {
					return newCommandError("delete session", args[0], err, "Run 'stepwise session list' to see stored sessions.")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
				return nil
			})
		},
	}

	return cmd
}

// withSession resumes id and runs fn against it.
func withSession(cmd *cobra.Command, flags *rootFlags, id, operation string, fn func(ctx context.Context, sess *session.Session) error) error {
	return withApp(cmd, flags, func(ctx context.Context, app *appContext) error {
		sess, err := app.Sessions.Resume(ctx, id)
		if err != nil {
			return newCommandError(operation, fmt.Sprintf("resuming session %q", id), err, "Run 'stepwise session list' to see stored sessions.")
		}
		return fn(ctx, sess)
	})
}

type sessionJSON struct {
	ID          string                       `json:"id"`
	Flow        string                       `json:"flow"`
	FlowPath    string                       `json:"flow_path"`
	CurrentStep string                       `json:"current_step"`
	Phase       domain.Phase                 `json:"phase"`
	Progress    domain.Progress              `json:"progress"`
	Steps       []string                     `json:"applicable_steps"`
	Status      map[string]domain.StepStatus `json:"step_status"`
	FormData    map[string]any               `json:"form_data"`
}

func renderSession(ctx context.Context, cmd *cobra.Command, sess *session.Session, jsonOutput bool) error {
	state := sess.State()
	steps, err := sess.Applicable(ctx)
	if err != nil {
		return newCommandError("render session", sess.ID(), err, "Check the visibility rules in the flow.")
	}
	progress, err := sess.Progress(ctx)
	if err != nil {
		return newCommandError("render session", sess.ID(), err, "Check the visibility rules in the flow.")
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), sessionJSON{
			ID:          sess.ID(),
			Flow:        sess.Flow().Name,
			FlowPath:    sess.FlowPath(),
			CurrentStep: state.CurrentStepID,
			Phase:       state.Phase,
			Progress:    progress,
			Steps:       steps.IDs(),
			Status:      state.StepStatus,
			FormData:    map[string]any(state.FormData),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Session:  %s\n", sess.ID())
	fmt.Fprintf(out, "Flow:     %s (%s)\n", valueOrFallback(sess.Flow().Name, "(no name)"), sess.FlowPath())
	if progress.Completed {
		fmt.Fprintf(out, "Progress: completed (%d/%d steps)\n", progress.Total, progress.Total)
	} else {
		current := sess.CurrentStep()
		fmt.Fprintf(out, "Step:     %s [%d/%d]\n", current.Label(), progress.Position, progress.Total)
	}
	fmt.Fprintln(out, "Steps:")
	renderStepEntries(out, steps, state)

	paths := state.FormData.Paths()
	if len(paths) > 0 {
		fmt.Fprintln(out, "Form data:")
		for _, path := range paths {
			value, _ := state.FormData.Lookup(path)
			fmt.Fprintf(out, "  %s = %v\n", path, value)
		}
	}
	return nil
}
