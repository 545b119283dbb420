// Package exporter periodically fetches tasks from the todo backend and
// publishes their counts as prometheus gauges.
package exporter

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/maumercado/todo-client-go/internal/logger"
	"github.com/maumercado/todo-client-go/internal/metrics"
	"github.com/maumercado/todo-client-go/pkg/client"
)

// TaskFetcher is satisfied by *client.TodoClient.
type TaskFetcher interface {
	FetchTasks(ctx context.Context, token string) ([]client.Task, error)
}

// Status describes the last scrape.
type Status struct {
	LastScrape  time.Time `json:"last_scrape"`
	LastSuccess time.Time `json:"last_success"`
	Open        int       `json:"open"`
	Completed   int       `json:"completed"`
	Error       string    `json:"error,omitempty"`
}

// Exporter scrapes the backend on a fixed interval.
type Exporter struct {
	fetcher  TaskFetcher
	token    string
	interval time.Duration
	log      zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// New creates an exporter that fetches with token every interval.
func New(fetcher TaskFetcher, token string, interval time.Duration) *Exporter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Exporter{
		fetcher:  fetcher,
		token:    token,
		interval: interval,
		log:      logger.WithComponent("exporter"),
	}
}

// Run scrapes immediately and then on every tick until ctx is cancelled.
func (e *Exporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.log.Info().Dur("interval", e.interval).Msg("exporter started")

	_ = e.Scrape(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("exporter stopped")
			return
		case <-ticker.C:
			_ = e.Scrape(ctx)
		}
	}
}

// Scrape fetches the tasks once and updates the gauges. On failure the
// gauges keep their previous values.
func (e *Exporter) Scrape(ctx context.Context) error {
	now := time.Now().UTC()

	tasks, err := e.fetcher.FetchTasks(ctx, e.token)
	if err != nil {
		metrics.RecordScrape(false)
		e.log.Error().
			Err(err).
			AnErr("cause", errors.Unwrap(err)).
			Int("status", client.StatusCode(err)).
			Msg("scrape failed")

		e.mu.Lock()
		e.status.LastScrape = now
		e.status.Error = err.Error()
		e.mu.Unlock()
		return err
	}

	var open, completed int
	for _, t := range tasks {
		if t.Completed {
			completed++
		} else {
			open++
		}
	}
	metrics.SetTaskCounts(open, completed)
	metrics.RecordScrape(true)

	e.mu.Lock()
	e.status = Status{
		LastScrape:  now,
		LastSuccess: now,
		Open:        open,
		Completed:   completed,
	}
	e.mu.Unlock()

	e.log.Debug().
		Int("open", open).
		Int("completed", completed).
		Msg("scrape completed")
	return nil
}

// Status returns a snapshot of the last scrape.
func (e *Exporter) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// Ready reports whether the most recent scrape succeeded.
func (e *Exporter) Ready() bool {
	s := e.Status()
	return !s.LastSuccess.IsZero() && s.Error == ""
}
