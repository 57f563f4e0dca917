package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/stepwise/internal/application/session"
	domain "github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/stepwise/internal/tui"
)

type runOptions struct {
	resume      string
	initialStep string
}

var runProgram = func(ctx context.Context, cmd *cobra.Command, model tui.Model) (tui.Model, error) {
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := program.Run()
	if err != nil {
		return model, err
	}
	if m, ok := final.(tui.Model); ok {
		return m, nil
	}
	return model, nil
}

var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [flow-file]",
		Short: "Fill in a wizard interactively",
		Long: `Run opens the interactive wizard on a new session for flow-file, or on a
stored session with --resume. Progress is saved after every step, so an
interrupted run can be resumed later.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.resume == "" && len(args) == 0 {
				return newCommandError("run wizard", "no flow given", errors.New("a flow file or --resume is required"), "Pass a flow file or --resume <session-id>.")
			}
			if !isInteractive() {
				return newCommandError("run wizard", "stdin/stdout is not a terminal", errors.New("interactive mode unavailable"), "Use the 'stepwise session' commands in scripts.")
			}
			flowPath := ""
			if len(args) == 1 {
				flowPath = args[0]
			}
			return runWizard(cmd, flags, flowPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.resume, "resume", "", "Resume a stored session instead of starting a new one")
	cmd.Flags().StringVar(&opts.initialStep, "initial-step", "", "Start at this step instead of the flow's first applicable step")

	return cmd
}

func runWizard(cmd *cobra.Command, flags *rootFlags, flowPath string, opts *runOptions) error {
	logger, err := newLogger(cmd, flags)
	if err != nil {
		return newCommandError("run wizard", "configuring logger", err, "Use one of debug, info, warn or error for --log-level.")
	}

	// The terminal belongs to the TUI while it runs; buffer logs until it exits.
	buffer := logging.NewMemory(0)
	defer buffer.Replay(logger)

	ctx := commandContext(cmd)
	app, err := newAppContext(ctx, flags, buffer.Logger())
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	var sess *session.Session
	if opts.resume != "" {
		sess, err = app.Sessions.Resume(ctx, opts.resume)
	} else {
		sess, err = app.Sessions.Start(ctx, flowPath, opts.initialStep)
	}
	if err != nil {
		return newCommandError("run wizard", "opening session", err, "Run 'stepwise validate' on the flow or 'stepwise session list' to check the session id.")
	}

	model := tui.NewModel(ctx, sess.Flow().Name, sess)
	final, err := runProgram(ctx, cmd, model)
	if err != nil {
		return newCommandError("run wizard", "running the interactive UI", err, "Use the 'stepwise session' commands instead.")
	}

	out := cmd.OutOrStdout()
	switch {
	case sess.State().Phase == domain.PhaseCompleted:
		fmt.Fprintf(out, "Wizard completed. Session %s saved.\n", sess.ID())
	case final.Cancelled():
		fmt.Fprintf(out, "Wizard cancelled. Resume with: stepwise run --resume %s\n", sess.ID())
	default:
		fmt.Fprintf(out, "Progress saved. Resume with: stepwise run --resume %s\n", sess.ID())
	}
	return nil
}
