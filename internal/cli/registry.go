package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/pflag"

	"github.com/maumercado/todo-client-go/internal/config"
	"github.com/maumercado/todo-client-go/pkg/client"
)

// TaskService is the subset of the SDK the commands use.
// *client.TodoClient satisfies it.
type TaskService interface {
	FetchTasks(ctx context.Context, token string) ([]client.Task, error)
	AddTask(ctx context.Context, token, title, description string) error
	UpdateTask(ctx context.Context, token string, task client.Task) error
	DeleteTask(ctx context.Context, token string, taskID int64) error
	ChangeTaskStatus(ctx context.Context, token string, taskID int64) error
}

// Env is what a command runs against.
type Env struct {
	Config  *config.Config
	Service TaskService // nil when the command does not need the API
	Out     io.Writer
	ErrOut  io.Writer
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAPI returns true if the command talks to the backend.
	NeedsAPI() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command and returns the exit code.
	Run(ctx context.Context, env *Env, args []string) int
}

// Registry holds registered commands.
type Registry struct {
	cmds map[string]Command // name and aliases map to command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds: make(map[string]Command),
	}
}

// Register adds a command to the registry.
// Returns an error if the name or any alias is already registered.
func (r *Registry) Register(c Command) error {
	name := c.Name()
	if _, exists := r.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}
	for _, alias := range c.Aliases() {
		if _, exists := r.cmds[alias]; exists {
			return fmt.Errorf("command alias already registered: %s", alias)
		}
	}

	r.cmds[name] = c
	for _, alias := range c.Aliases() {
		r.cmds[alias] = c
	}
	return nil
}

// Find looks up a command by name or alias.
func (r *Registry) Find(name string) (Command, bool) {
	cmd, ok := r.cmds[name]
	return cmd, ok
}

// All returns all unique commands sorted by name.
func (r *Registry) All() []Command {
	seen := make(map[string]Command)
	for _, cmd := range r.cmds {
		seen[cmd.Name()] = cmd
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Command, len(names))
	for i, name := range names {
		result[i] = seen[name]
	}
	return result
}
