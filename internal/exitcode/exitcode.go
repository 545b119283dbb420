// Package exitcode defines exit codes for the todo CLI.
package exitcode

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, unknown command, unknown task).
	UserError = 1

	// AuthError indicates missing configuration or a rejected credential.
	AuthError = 2

	// BackendError indicates a backend, network or protocol failure.
	BackendError = 3
)
