// Package cli implements the todo command-line interface on top of the SDK.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/maumercado/todo-client-go/internal/config"
	"github.com/maumercado/todo-client-go/internal/exitcode"
	"github.com/maumercado/todo-client-go/internal/logger"
	"github.com/maumercado/todo-client-go/internal/metrics"
	"github.com/maumercado/todo-client-go/pkg/client"
)

// Factory builds the task service from configuration.
// Tests inject a fake; DefaultFactory builds the real client.
type Factory func(cfg *config.Config) (TaskService, error)

// DefaultFactory creates a client for the configured backend.
func DefaultFactory(cfg *config.Config) (TaskService, error) {
	c, err := client.New(cfg.API.URL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithUserAgent(cfg.API.UserAgent),
		client.WithLogger(logger.WithComponent("client")),
		client.WithMetrics(metrics.ClientRecorder{}),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// App parses arguments and dispatches to the matching command.
type App struct {
	registry *Registry
	factory  Factory
	out      io.Writer
	errOut   io.Writer
}

// New creates an App backed by the real client.
func New(out, errOut io.Writer) *App {
	return NewWithFactory(out, errOut, DefaultFactory)
}

// NewWithFactory creates an App with a custom service factory.
func NewWithFactory(out, errOut io.Writer, factory Factory) *App {
	a := &App{
		registry: NewRegistry(),
		factory:  factory,
		out:      out,
		errOut:   errOut,
	}
	for _, c := range []Command{
		&ListCmd{},
		&AddCmd{},
		&UpdateCmd{},
		&RemoveCmd{},
		&DoneCmd{},
		&HelpCmd{registry: a.registry},
	} {
		if err := a.registry.Register(c); err != nil {
			panic(err)
		}
	}
	return a
}

// Run executes args (without the program name) and returns the exit code.
// With no command, tasks are listed.
func (a *App) Run(ctx context.Context, args []string) int {
	var configFile string
	var verbose bool

	globals := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	globals.SetOutput(io.Discard)
	globals.SetInterspersed(false)
	globals.StringVar(&configFile, "config", "", "path to a config file")
	globals.String("api-url", "", "base URL of the todo API")
	globals.String("token", "", "bearer token")
	globals.Duration("timeout", 0, "request timeout")
	globals.BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	if err := globals.Parse(args); err != nil {
		return a.flagError(err)
	}

	rest := globals.Args()
	name := "list"
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}

	cmd, ok := a.registry.Find(name)
	if !ok {
		fmt.Fprintf(a.errOut, "error: unknown command: %s\n", name)
		return exitcode.UserError
	}

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cmd.RegisterFlags(fs)
	fs.AddFlagSet(globals)
	if err := fs.Parse(rest); err != nil {
		return a.flagError(err)
	}

	cfg, err := config.LoadFrom(configFile, fs)
	if err != nil {
		fmt.Fprintf(a.errOut, "error: %s\n", err)
		return exitcode.AuthError
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	logger.Init(level, cfg.LogPretty)

	env := &Env{
		Config: cfg,
		Out:    a.out,
		ErrOut: a.errOut,
	}

	if cmd.NeedsAPI() {
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(a.errOut, "error: %s\n", err)
			return exitcode.AuthError
		}
		svc, err := a.factory(cfg)
		if err != nil {
			fmt.Fprintf(a.errOut, "error: %s\n", err)
			return exitcode.AuthError
		}
		env.Service = svc
	}

	return cmd.Run(ctx, env, fs.Args())
}

func (a *App) flagError(err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		printUsage(a.out, a.registry)
		return exitcode.Success
	}
	fmt.Fprintf(a.errOut, "error: %s\n", err)
	return exitcode.UserError
}

// fail prints the operation error and maps it to an exit code.
func fail(env *Env, err error) int {
	fmt.Fprintf(env.ErrOut, "error: %s\n", err)
	if errors.Is(err, client.ErrEmptyToken) || client.IsUnauthorized(err) {
		return exitcode.AuthError
	}
	return exitcode.BackendError
}

func printUsage(w io.Writer, r *Registry) {
	fmt.Fprintln(w, "usage: todo [--api-url URL] [--token TOKEN] [--config FILE] [-v] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, c := range r.All() {
		fmt.Fprintf(w, "  %-8s %s\n", c.Name(), c.Synopsis())
	}
}
