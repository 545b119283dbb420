package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/maumercado/todo-client-go/internal/exitcode"
	"github.com/maumercado/todo-client-go/internal/output"
	"github.com/maumercado/todo-client-go/pkg/client"
)

// ListCmd implements the list command.
type ListCmd struct {
	openOnly bool
	asJSON   bool
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "todo list [--open] [--json]" }
func (c *ListCmd) NeedsAPI() bool    { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&c.openOnly, "open", false, "only show tasks that are not completed")
	fs.BoolVar(&c.asJSON, "json", false, "print tasks as JSON")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		fmt.Fprintf(env.ErrOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	tasks, err := env.Service.FetchTasks(ctx, env.Config.API.Token)
	if err != nil {
		return fail(env, err)
	}

	if c.openOnly {
		open := tasks[:0]
		for _, t := range tasks {
			if !t.Completed {
				open = append(open, t)
			}
		}
		tasks = open
	}

	if c.asJSON {
		enc := json.NewEncoder(env.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tasks); err != nil {
			fmt.Fprintf(env.ErrOut, "error: %s\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}

	output.FormatTasks(env.Out, tasks)
	return exitcode.Success
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string     { return "todo add [-d <description>] <title...>" }
func (c *AddCmd) NeedsAPI() bool    { return true }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.description, "description", "d", "", "task description")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(env.ErrOut, "error: title required")
		return exitcode.UserError
	}

	if err := env.Service.AddTask(ctx, env.Config.API.Token, title, c.description); err != nil {
		return fail(env, err)
	}

	fmt.Fprintln(env.Out, "ok")
	return exitcode.Success
}

// UpdateCmd implements the update command. The backend replaces the whole
// task, so unchanged fields are taken from the current state.
type UpdateCmd struct {
	fs          *pflag.FlagSet
	title       string
	description string
	completed   bool
}

func (c *UpdateCmd) Name() string      { return "update" }
func (c *UpdateCmd) Aliases() []string { return []string{"edit"} }
func (c *UpdateCmd) Synopsis() string  { return "Change a task's title, description or state" }
func (c *UpdateCmd) Usage() string {
	return "todo update <id> [--title <title>] [--description <text>] [--completed=true|false]"
}
func (c *UpdateCmd) NeedsAPI() bool { return true }

func (c *UpdateCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.fs = fs
	fs.StringVarP(&c.title, "title", "t", "", "new title")
	fs.StringVarP(&c.description, "description", "d", "", "new description")
	fs.BoolVar(&c.completed, "completed", false, "completion state")
}

func (c *UpdateCmd) Run(ctx context.Context, env *Env, args []string) int {
	id, code, ok := singleID(env, args)
	if !ok {
		return code
	}

	changed := c.fs.Changed("title") || c.fs.Changed("description") || c.fs.Changed("completed")
	if !changed {
		fmt.Fprintln(env.ErrOut, "error: nothing to update")
		return exitcode.UserError
	}

	tasks, err := env.Service.FetchTasks(ctx, env.Config.API.Token)
	if err != nil {
		return fail(env, err)
	}

	task, found := findTask(tasks, id)
	if !found {
		fmt.Fprintf(env.ErrOut, "error: task not found: %d\n", id)
		return exitcode.UserError
	}

	if c.fs.Changed("title") {
		if strings.TrimSpace(c.title) == "" {
			fmt.Fprintln(env.ErrOut, "error: title required")
			return exitcode.UserError
		}
		task.Title = c.title
	}
	if c.fs.Changed("description") {
		task.Description = c.description
	}
	if c.fs.Changed("completed") {
		task.Completed = c.completed
	}

	if err := env.Service.UpdateTask(ctx, env.Config.API.Token, task); err != nil {
		return fail(env, err)
	}

	fmt.Fprintln(env.Out, "ok")
	return exitcode.Success
}

// RemoveCmd implements the rm command.
type RemoveCmd struct{}

func (c *RemoveCmd) Name() string                   { return "rm" }
func (c *RemoveCmd) Aliases() []string              { return []string{"delete"} }
func (c *RemoveCmd) Synopsis() string               { return "Delete a task" }
func (c *RemoveCmd) Usage() string                  { return "todo rm <id>" }
func (c *RemoveCmd) NeedsAPI() bool                 { return true }
func (c *RemoveCmd) RegisterFlags(_ *pflag.FlagSet) {}

func (c *RemoveCmd) Run(ctx context.Context, env *Env, args []string) int {
	id, code, ok := singleID(env, args)
	if !ok {
		return code
	}

	if err := env.Service.DeleteTask(ctx, env.Config.API.Token, id); err != nil {
		return fail(env, err)
	}

	fmt.Fprintln(env.Out, "ok")
	return exitcode.Success
}

// DoneCmd implements the done command, which toggles completion.
type DoneCmd struct{}

func (c *DoneCmd) Name() string                   { return "done" }
func (c *DoneCmd) Aliases() []string              { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string               { return "Toggle a task's completion state" }
func (c *DoneCmd) Usage() string                  { return "todo done <id>" }
func (c *DoneCmd) NeedsAPI() bool                 { return true }
func (c *DoneCmd) RegisterFlags(_ *pflag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string) int {
	id, code, ok := singleID(env, args)
	if !ok {
		return code
	}

	if err := env.Service.ChangeTaskStatus(ctx, env.Config.API.Token, id); err != nil {
		return fail(env, err)
	}

	fmt.Fprintln(env.Out, "ok")
	return exitcode.Success
}

// HelpCmd implements the help command.
type HelpCmd struct {
	registry *Registry
}

func (c *HelpCmd) Name() string                   { return "help" }
func (c *HelpCmd) Aliases() []string              { return nil }
func (c *HelpCmd) Synopsis() string               { return "Show help" }
func (c *HelpCmd) Usage() string                  { return "todo help [command]" }
func (c *HelpCmd) NeedsAPI() bool                 { return false }
func (c *HelpCmd) RegisterFlags(_ *pflag.FlagSet) {}

func (c *HelpCmd) Run(_ context.Context, env *Env, args []string) int {
	if len(args) == 0 {
		printUsage(env.Out, c.registry)
		return exitcode.Success
	}

	cmd, ok := c.registry.Find(args[0])
	if !ok {
		fmt.Fprintf(env.ErrOut, "error: unknown command: %s\n", args[0])
		return exitcode.UserError
	}
	fmt.Fprintf(env.Out, "usage: %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
	return exitcode.Success
}

// singleID parses the one positional task ID a command expects.
func singleID(env *Env, args []string) (int64, int, bool) {
	if len(args) != 1 {
		fmt.Fprintln(env.ErrOut, "error: exactly one task id required")
		return 0, exitcode.UserError, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintf(env.ErrOut, "error: invalid task id: %s\n", args[0])
		return 0, exitcode.UserError, false
	}
	return id, exitcode.Success, true
}

func findTask(tasks []client.Task, id int64) (client.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return client.Task{}, false
}
