package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// backend answers every request with a fixed status and body.
type backend struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func newBackend(t *testing.T, status int, body string, opts ...Option) (*backend, *TodoClient) {
	t.Helper()
	b := &backend{status: status, body: body}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return b, c
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.requests = append(b.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.status)
	_, _ = io.WriteString(w, b.body)
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func (b *backend) last(t *testing.T) recorded {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests, "no request received")
	return b.requests[len(b.requests)-1]
}

type opCall struct {
	name     string
	op       Op
	sentinel error
	call     func(ctx context.Context, c *TodoClient, token string) error
}

var allOps = []opCall{
	{"fetch", OpFetchTasks, ErrFetchTasks, func(ctx context.Context, c *TodoClient, token string) error {
		_, err := c.FetchTasks(ctx, token)
		return err
	}},
	{"add", OpAddTask, ErrAddTask, func(ctx context.Context, c *TodoClient, token string) error {
		return c.AddTask(ctx, token, "Buy milk", "2%")
	}},
	{"update", OpUpdateTask, ErrUpdateTask, func(ctx context.Context, c *TodoClient, token string) error {
		return c.UpdateTask(ctx, token, Task{ID: 1, Title: "Buy oat milk"})
	}},
	{"delete", OpDeleteTask, ErrDeleteTask, func(ctx context.Context, c *TodoClient, token string) error {
		return c.DeleteTask(ctx, token, 42)
	}},
	{"change status", OpChangeTaskStatus, ErrChangeTaskStatus, func(ctx context.Context, c *TodoClient, token string) error {
		return c.ChangeTaskStatus(ctx, token, 7)
	}},
}

func TestNew_MissingBaseURL(t *testing.T) {
	for _, in := range []string{"", "   ", "/"} {
		_, err := New(in)
		assert.ErrorIs(t, err, ErrMissingBaseURL, "input %q", in)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, in := range []string{"localhost:8080", "ftp://example.com", "http://", "://nope"} {
		_, err := New(in)
		assert.ErrorIs(t, err, ErrInvalidBaseURL, "input %q", in)
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("https://todo.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://todo.example.com", c.BaseURL())
}

func TestFetchTasks_Envelope(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success","data":[
		{"id":1,"title":"Buy milk","description":"2%","completed":false},
		{"id":2,"title":"Walk dog","description":"","completed":true}]}`)

	tasks, err := c.FetchTasks(context.Background(), "t1")
	require.NoError(t, err)

	assert.Equal(t, []Task{
		{ID: 1, Title: "Buy milk", Description: "2%"},
		{ID: 2, Title: "Walk dog", Completed: true},
	}, tasks)

	req := b.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/todos", req.Path)
	assert.Equal(t, "Bearer t1", req.Header.Get("Authorization"))
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestFetchTasks_BareArray(t *testing.T) {
	_, c := newBackend(t, http.StatusOK, `[{"id":3,"title":"x","description":"y","completed":true}]`)

	tasks, err := c.FetchTasks(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(3), tasks[0].ID)
	assert.True(t, tasks[0].Completed)
}

func TestFetchTasks_NoData(t *testing.T) {
	_, c := newBackend(t, http.StatusOK, `{"status":"success","data":null}`)

	tasks, err := c.FetchTasks(context.Background(), "t1")
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestAddTask_Request(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success","data":{"id":1}}`)

	err := c.AddTask(context.Background(), "t1", "Buy milk", "2%")
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/todo", req.Path)
	assert.Equal(t, "Bearer t1", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"title":"Buy milk","description":"2%"}`, string(req.Body))
}

func TestUpdateTask_Request(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success","message":"updated"}`)

	task := Task{ID: 5, Title: "Buy oat milk", Description: "1L", Completed: true}
	err := c.UpdateTask(context.Background(), "t1", task)
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/todo", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"id":5,"title":"Buy oat milk","description":"1L","completed":true}`, string(req.Body))
}

func TestDeleteTask_Request(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success"}`)

	err := c.DeleteTask(context.Background(), "t1", 42)
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/api/todo", req.Path)
	assert.Equal(t, "Bearer t1", req.Header.Get("Authorization"))
	assert.JSONEq(t, `{"id":42}`, string(req.Body))
}

func TestChangeTaskStatus_Request(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success"}`)

	err := c.ChangeTaskStatus(context.Background(), "t1", 7)
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/todo/complete", req.Path)
	assert.JSONEq(t, `{"id":7}`, string(req.Body))
}

func TestOperations_Success(t *testing.T) {
	for _, tc := range allOps {
		t.Run(tc.name, func(t *testing.T) {
			_, c := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`)
			assert.NoError(t, tc.call(context.Background(), c, "t1"))
		})
	}
}

func TestOperations_VoidAcceptsNonJSONBody(t *testing.T) {
	for _, tc := range allOps[1:] {
		t.Run(tc.name, func(t *testing.T) {
			_, c := newBackend(t, http.StatusNoContent, "")
			assert.NoError(t, tc.call(context.Background(), c, "t1"))
		})
	}
}

func TestOperations_Failures(t *testing.T) {
	modes := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantCause  error
	}{
		{"http 500", http.StatusInternalServerError, `{"error":"Internal Server Error","message":"db down"}`, 500, ErrUnexpectedStatus},
		{"http 401", http.StatusUnauthorized, "Unauthorized", 401, ErrUnexpectedStatus},
		{"http 404", http.StatusNotFound, "404 Not Found", 404, ErrUnexpectedStatus},
		{"envelope 401", http.StatusOK, `{"status":"401 Unauthorized","message":"db down"}`, 401, ErrBackendFailure},
		{"envelope 500", http.StatusOK, `{"status":"500 Internal Server Error","message":"db down"}`, 500, ErrBackendFailure},
		{"malformed json", http.StatusOK, `{"status":`, 200, nil},
	}

	for _, tc := range allOps {
		for _, mode := range modes {
			t.Run(tc.name+"/"+mode.name, func(t *testing.T) {
				_, c := newBackend(t, mode.status, mode.body)

				err := tc.call(context.Background(), c, "t1")
				require.Error(t, err)

				assert.Equal(t, tc.sentinel.Error(), err.Error())
				assert.NotContains(t, err.Error(), "db down")
				assert.ErrorIs(t, err, tc.sentinel)
				assert.Equal(t, mode.wantStatus, StatusCode(err))
				if mode.wantCause != nil {
					assert.ErrorIs(t, err, mode.wantCause)
				}

				var apiErr *Error
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tc.op, apiErr.Op)
				assert.NotNil(t, apiErr.Unwrap())
			})
		}
	}
}

func TestOperations_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, WithTimeout(2*time.Second))
	require.NoError(t, err)

	for _, tc := range allOps {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call(context.Background(), c, "t1")
			require.Error(t, err)
			assert.Equal(t, tc.sentinel.Error(), err.Error())
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, 0, StatusCode(err))
			assert.False(t, IsUnauthorized(err))
		})
	}
}

func TestOperations_ErrorsDoNotMatchOtherOps(t *testing.T) {
	_, c := newBackend(t, http.StatusInternalServerError, "")

	err := c.DeleteTask(context.Background(), "t1", 1)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrDeleteTask)
	assert.NotErrorIs(t, err, ErrFetchTasks)
	assert.NotErrorIs(t, err, ErrAddTask)
	assert.NotErrorIs(t, err, ErrUpdateTask)
	assert.NotErrorIs(t, err, ErrChangeTaskStatus)
}

func TestOperations_EmptyTokenSendsNothing(t *testing.T) {
	for _, tc := range allOps {
		t.Run(tc.name, func(t *testing.T) {
			b, c := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`)

			err := tc.call(context.Background(), c, "")
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.ErrorIs(t, err, ErrEmptyToken)
			assert.Equal(t, 0, b.count())
		})
	}
}

func TestFetchTasks_EnvelopeWithoutStatus(t *testing.T) {
	_, c := newBackend(t, http.StatusOK, `{"data":[]}`)

	_, err := c.FetchTasks(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrFetchTasks)
}

func TestFetchTasks_EmptyBody(t *testing.T) {
	_, c := newBackend(t, http.StatusOK, "")

	_, err := c.FetchTasks(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrFetchTasks)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestIsUnauthorized(t *testing.T) {
	_, c := newBackend(t, http.StatusOK, `{"status":"401 Unauthorized","message":"unknown user"}`)

	err := c.AddTask(context.Background(), "expired", "a", "b")
	assert.True(t, IsUnauthorized(err))

	assert.False(t, IsUnauthorized(nil))
	assert.False(t, IsUnauthorized(errors.New("other")))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestRequestHeaders(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`,
		WithHeader("X-Client", "cli"),
		WithHeader("Authorization", "Basic nope"),
		WithUserAgent("todo-test/1.0"),
	)

	_, err := c.FetchTasks(context.Background(), "t1")
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, "cli", req.Header.Get("X-Client"))
	assert.Equal(t, "Bearer t1", req.Header.Get("Authorization"))
	assert.Equal(t, "todo-test/1.0", req.Header.Get("User-Agent"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))

	_, err = uuid.Parse(req.Header.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRequestIDsAreUnique(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success"}`)

	require.NoError(t, c.ChangeTaskStatus(context.Background(), "t1", 1))
	first := b.last(t).Header.Get("X-Request-ID")
	require.NoError(t, c.ChangeTaskStatus(context.Background(), "t1", 1))
	second := b.last(t).Header.Get("X-Request-ID")

	assert.NotEqual(t, first, second)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithHTTPClient(t *testing.T) {
	var seen *http.Request
	doer := doerFunc(func(r *http.Request) (*http.Response, error) {
		seen = r
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"status":"success","data":[{"id":9,"title":"z"}]}`)),
			Header:     make(http.Header),
		}, nil
	})

	c, err := New("http://todo.internal", WithHTTPClient(doer))
	require.NoError(t, err)

	tasks, err := c.FetchTasks(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "z", tasks[0].Title)
	assert.Equal(t, "http://todo.internal/api/todos", seen.URL.String())
}

func TestWithHTTPClient_Error(t *testing.T) {
	boom := errors.New("boom")
	c, err := New("http://todo.internal", WithHTTPClient(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	})))
	require.NoError(t, err)

	err = c.AddTask(context.Background(), "t1", "a", "b")
	assert.EqualError(t, err, "Failed to add task")
	assert.ErrorIs(t, err, boom)
}

func TestWithTimeout(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}

	for _, opts := range [][]Option{
		{WithHTTPClient(hc), WithTimeout(3 * time.Second)},
		{WithTimeout(3 * time.Second), WithHTTPClient(hc)},
	} {
		c, err := New("http://todo.internal", opts...)
		require.NoError(t, err)

		used, ok := c.opts.httpClient.(*http.Client)
		require.True(t, ok)
		assert.Equal(t, 3*time.Second, used.Timeout)
		assert.NotSame(t, hc, used)
	}

	assert.Equal(t, time.Minute, hc.Timeout)
}

func TestWithTimeout_Default(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}
	c, err := New("http://todo.internal", WithHTTPClient(hc))
	require.NoError(t, err)

	assert.Same(t, hc, c.opts.httpClient)
	assert.Equal(t, time.Minute, hc.Timeout)
}

func TestContextCancelled(t *testing.T) {
	_, c := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchTasks(ctx, "t1")
	assert.ErrorIs(t, err, ErrFetchTasks)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailureIsLoggedWithCause(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	_, c := newBackend(t, http.StatusBadGateway, `{"message":"upstream timeout"}`, WithLogger(log))

	err := c.DeleteTask(context.Background(), "t1", 3)
	require.Error(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "delete_task", entry["operation"])
	assert.Equal(t, float64(502), entry["status"])
	assert.Contains(t, entry["error"], "upstream timeout")
	assert.NotEmpty(t, entry["request_id"])
}

type observation struct {
	operation string
	ok        bool
	status    int
}

type recorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recorder) ObserveRequest(operation string, ok bool, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{operation, ok, status})
}

func TestWithMetrics(t *testing.T) {
	rec := &recorder{}
	_, failing := newBackend(t, http.StatusInternalServerError, "", WithMetrics(rec))
	_, ok := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`, WithMetrics(rec))

	_ = failing.ChangeTaskStatus(context.Background(), "t1", 1)
	_, _ = ok.FetchTasks(context.Background(), "t1")
	_ = ok.AddTask(context.Background(), "", "no token", "")

	assert.Equal(t, []observation{
		{"change_task_status", false, 500},
		{"fetch_tasks", true, 200},
		{"add_task", false, 0},
	}, rec.obs)
}

func TestConcurrentCalls(t *testing.T) {
	b, c := newBackend(t, http.StatusOK, `{"status":"success","data":[]}`)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := c.FetchTasks(context.Background(), "t1")
				errs <- err
				return
			}
			errs <- c.ChangeTaskStatus(context.Background(), "t1", int64(i))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 20, b.count())
}
