// Package client provides a Go SDK for the todo backend API.
//
// The client is stateless apart from its construction-time configuration:
// every call takes the caller's bearer token and performs exactly one HTTP
// round trip. Calls are safe for concurrent use.
//
// # Basic Usage
//
//	c, err := client.New("https://todo.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tasks, err := c.FetchTasks(ctx, token)
//	if err != nil {
//	    fmt.Println(err) // "Failed to fetch tasks"
//	}
//
//	err = c.AddTask(ctx, token, "Buy milk", "2%")
//
// # Errors
//
// Every failure is a *client.Error. Its message is the fixed, user-facing
// text of the operation ("Failed to add task", ...). The status code and the
// underlying cause stay available:
//
//	if errors.Is(err, client.ErrAddTask) && client.IsUnauthorized(err) {
//	    // ask for a new token
//	}
//
// # Configuration
//
// The client supports functional options for configuration:
//
//	c, err := client.New(baseURL,
//	    client.WithTimeout(10*time.Second),
//	    client.WithLogger(logger),
//	    client.WithHeader("X-Client", "cli"),
//	)
//
// Calls are not measured unless a Recorder is installed with WithMetrics.
package client
