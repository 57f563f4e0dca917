package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/stepwise/internal/application/session"
	infraconfig "github.com/alexisbeaulieu97/stepwise/internal/infrastructure/config"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/stepwise/internal/infrastructure/store"
	"github.com/alexisbeaulieu97/stepwise/internal/ports"
)

// appContext bundles the services one command invocation needs.
type appContext struct {
	Logger    ports.Logger
	Loader    *infraconfig.YAMLLoader
	Publisher *events.LoggingPublisher
	Sessions  *session.Service

	closers []func() error
}

// newLogger builds the zerolog adapter writing to the command's stderr.
func newLogger(cmd *cobra.Command, flags *rootFlags) (ports.Logger, error) {
	logger, err := logging.New(logging.Options{
		Writer:        cmd.ErrOrStderr(),
		Level:         flags.logLevel,
		HumanReadable: !flags.jsonLogs,
		Layer:         "application",
		Component:     "cli",
	})
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// commandContext returns the command's context tagged with a fresh
// correlation id.
func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ports.WithCorrelationID(ctx, ports.GenerateCorrelationID())
}

// newAppContext wires the loader, store, publisher and journey sink into a
// session service. Call Close when done.
func newAppContext(ctx context.Context, flags *rootFlags, logger ports.Logger) (*appContext, error) {
	app := &appContext{
		Logger:    logger,
		Loader:    infraconfig.NewYAMLLoader(logger.With("component", "loader", "layer", "infrastructure")),
		Publisher: events.NewLoggingPublisher(logger.With("component", "events", "layer", "infrastructure")),
	}

	snapshots, err := app.openStore(ctx, flags)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(flags.journeyLog) != "" {
		if err := app.openJourneyLog(flags.journeyLog); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	sink := events.NewPublisherSink(app.Publisher, logger.With("component", "journey", "layer", "infrastructure"))
	sessions, err := session.NewService(session.Options{
		Loader:    app.Loader,
		Store:     snapshots,
		Sink:      sink,
		Publisher: app.Publisher,
		Logger:    logger.With("component", "session"),
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Sessions = sessions

	return app, nil
}

func (a *appContext) openStore(ctx context.Context, flags *rootFlags) (ports.SnapshotStore, error) {
	kind := strings.ToLower(strings.TrimSpace(flags.storeKind))
	if kind == "" {
		kind = storeKindFile
	}

	path := flags.storePath
	if path == "" {
		var err error
		path, err = defaultStorePath(kind)
		if err != nil {
			return nil, newCommandError("open session store", "determining store path", err, "Pass --store file|sqlite and make sure HOME is set, or use --store-path.")
		}
	}

	switch kind {
	case storeKindFile:
		fileStore, err := store.NewFileStore(path)
		if err != nil {
			return nil, newCommandError("open session store", fmt.Sprintf("loading %s", path), err, "Check the store file permissions or remove a corrupt file.")
		}
		return fileStore, nil
	case storeKindSQLite:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, newCommandError("open session store", "creating store directory", err, "Check directory permissions.")
		}
		sqliteStore, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, newCommandError("open session store", fmt.Sprintf("opening %s", path), err, "Check the database file permissions.")
		}
		a.closers = append(a.closers, sqliteStore.Close)
		return sqliteStore, nil
	default:
		return nil, newCommandError("open session store", fmt.Sprintf("unknown store kind %q", kind), errors.New("unsupported store"), "Use --store file or --store sqlite.")
	}
}

func (a *appContext) openJourneyLog(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newCommandError("open journey log", "creating log directory", err, "Check directory permissions.")
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return newCommandError("open journey log", path, err, "Check file permissions or choose another --journey-log path.")
	}

	writer := events.NewJSONLinesWriter(file, nil)
	sub, err := a.Publisher.Subscribe(events.AllEvents, writer.Handle)
	if err != nil {
		_ = file.Close()
		return err
	}
	a.closers = append(a.closers, func() error {
		sub.Unsubscribe()
		return file.Close()
	})
	return nil
}

// Close releases the store and journey log in reverse order.
func (a *appContext) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// withApp runs fn with a fully wired appContext.
func withApp(cmd *cobra.Command, flags *rootFlags, fn func(ctx context.Context, app *appContext) error) error {
	logger, err := newLogger(cmd, flags)
	if err != nil {
		return newCommandError("start", "configuring logger", err, "Use one of debug, info, warn or error for --log-level.")
	}
	ctx := commandContext(cmd)
	app, err := newAppContext(ctx, flags, logger)
	if err != nil {
		return err
	}
	defer app.Close() //nolint:errcheck

	return fn(ctx, app)
}
