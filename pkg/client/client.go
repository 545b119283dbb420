package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// API paths, relative to the base URL.
const (
	todosPath          = "/api/todos"
	todoPath           = "/api/todo"
	todoCompletionPath = "/api/todo/complete"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// TodoClient issues authenticated calls against the todo backend.
type TodoClient struct {
	baseURL string
	opts    *options
}

// New creates a new TodoClient for the given base URL.
func New(baseURL string, opts ...Option) (*TodoClient, error) {
	// Ensure URL doesn't have trailing slash for consistency
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.applyTimeout()

	return &TodoClient{
		baseURL: baseURL,
		opts:    o,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *TodoClient) BaseURL() string {
	return c.baseURL
}

// FetchTasks returns the tasks of the token's owner.
func (c *TodoClient) FetchTasks(ctx context.Context, token string) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, OpFetchTasks, token, http.MethodGet, todosPath, nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// AddTask creates a task.
func (c *TodoClient) AddTask(ctx context.Context, token, title, description string) error {
	body := addTaskRequest{
		Title:       title,
		Description: description,
	}
	return c.do(ctx, OpAddTask, token, http.MethodPost, todoPath, body, nil)
}

// UpdateTask sends the full task as the new state of the task with the same ID.
func (c *TodoClient) UpdateTask(ctx context.Context, token string, task Task) error {
	return c.do(ctx, OpUpdateTask, token, http.MethodPost, todoPath, task, nil)
}

// DeleteTask deletes a task. The ID travels in the request body.
func (c *TodoClient) DeleteTask(ctx context.Context, token string, taskID int64) error {
	return c.do(ctx, OpDeleteTask, token, http.MethodDelete, todoPath, taskIDRequest{ID: taskID}, nil)
}

// ChangeTaskStatus toggles the completion state of a task.
func (c *TodoClient) ChangeTaskStatus(ctx context.Context, token string, taskID int64) error {
	return c.do(ctx, OpChangeTaskStatus, token, http.MethodPost, todoCompletionPath, taskIDRequest{ID: taskID}, nil)
}

// do performs a single request and folds every failure into an *Error for op.
func (c *TodoClient) do(ctx context.Context, op Op, token, method, path string, body, out any) error {
	requestID := uuid.NewString()
	log := c.opts.logger.With().
		Str("operation", string(op)).
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()

	start := time.Now()
	status, err := c.roundTrip(ctx, token, requestID, method, path, body, out)
	duration := time.Since(start)
	c.opts.recorder.ObserveRequest(string(op), err == nil, status, duration)

	if err != nil {
		log.Warn().
			Err(err).
			Int("status", status).
			Dur("duration", duration).
			Msg("request failed")
		return newError(op, status, err)
	}

	log.Debug().
		Int("status", status).
		Dur("duration", duration).
		Msg("request completed")
	return nil
}

func (c *TodoClient) roundTrip(ctx context.Context, token, requestID, method, path string, body, out any) (int, error) {
	if token == "" {
		return 0, ErrEmptyToken
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	c.opts.applyHeaders(req, token, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("%w: %d%s", ErrUnexpectedStatus, resp.StatusCode, errorDetail(payload))
	}

	return decodeResponse(resp.StatusCode, payload, out)
}
