package client

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultUserAgent = "todo-client-go"

// HTTPDoer sends HTTP requests. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder observes every completed call. status is 0 when no response was
// received. The default recorder discards everything.
type Recorder interface {
	ObserveRequest(operation string, ok bool, status int, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, bool, int, time.Duration) {}

// Option configures the todo client.
type Option func(*options)

type options struct {
	httpClient HTTPDoer
	timeout    time.Duration
	userAgent  string
	headers    map[string]string
	logger     zerolog.Logger
	recorder   Recorder
}

func defaultOptions() *options {
	return &options{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: defaultUserAgent,
		headers:   make(map[string]string),
		logger:    zerolog.Nop(),
		recorder:  nopRecorder{},
	}
}

// WithHTTPClient allows providing a custom HTTP client or transport.
func WithHTTPClient(client HTTPDoer) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTimeout sets the timeout for HTTP requests. It only applies when the
// underlying client is an *http.Client, which is copied rather than modified.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithHeader adds a custom header to all requests.
func WithHeader(key, value string) Option {
	return func(o *options) {
		o.headers[key] = value
	}
}

// WithLogger sets the logger used for per-request logging.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics sets the recorder that observes every call.
func WithMetrics(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// applyTimeout installs the configured timeout on a copy of the HTTP client.
func (o *options) applyTimeout() {
	if o.timeout <= 0 {
		return
	}
	if hc, ok := o.httpClient.(*http.Client); ok {
		withTimeout := *hc
		withTimeout.Timeout = o.timeout
		o.httpClient = &withTimeout
	}
}

// applyHeaders sets the headers every request carries. The bearer header is
// set last so custom headers cannot override it.
func (o *options) applyHeaders(req *http.Request, token, requestID string) {
	for k, v := range o.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", o.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Authorization", "Bearer "+token)
}
