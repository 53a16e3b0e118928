// Package scheduler runs recurring jobs, such as the listing crawl, on cron expressions.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"enhancer/internal/logger"

	"github.com/robfig/cron/v3"
)

// JobFunc is the body of a scheduled job
type JobFunc func(ctx context.Context) error

// JobStats is a snapshot of one job's history
type JobStats struct {
	Name      string
	CronExpr  string
	Running   bool
	RunCount  int
	LastRun   time.Time
	LastError string
	NextRun   time.Time
}

type job struct {
	fn      JobFunc
	entryID cron.EntryID
	stats   JobStats
}

// Scheduler wraps a seconds-precision cron runner. Overlapping runs of the same job
// are skipped.
type Scheduler struct {
	cron       *cron.Cron
	jobTimeout time.Duration
	log        *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// New creates a scheduler. jobTimeout bounds a single run; zero means 30 minutes.
func New(jobTimeout time.Duration) *Scheduler {
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobTimeout: jobTimeout,
		log:        logger.With("component", "scheduler"),
		jobs:       make(map[string]*job),
	}
}

// AddJob registers fn under name on a six-field cron expression.
func (s *Scheduler) AddJob(name, cronExpr string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	j := &job{fn: fn, stats: JobStats{Name: name, CronExpr: cronExpr}}
	entryID, err := s.cron.AddFunc(cronExpr, func() { s.run(name) })
	if err != nil {
		return fmt.Errorf("invalid cron expression %q for job %s: %w", cronExpr, name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	_, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	return s.run(name)
}

func (s *Scheduler) run(name string) error {
	s.mu.Lock()
	j := s.jobs[name]
	j.stats.Running = true
	j.stats.RunCount++
	j.stats.LastRun = time.Now()
	s.mu.Unlock()

	s.log.Info("Starting scheduled job", "job", name)

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()
	err := j.fn(ctx)

	s.mu.Lock()
	j.stats.Running = false
	j.stats.LastError = ""
	if err != nil {
		j.stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		logger.Error("Scheduled job failed", err, "job", name)
		return err
	}
	s.log.Info("Scheduled job finished", "job", name)
	return nil
}

// Stats returns a snapshot of a job's history
func (s *Scheduler) Stats(name string) (JobStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return JobStats{}, false
	}
	stats := j.stats
	stats.NextRun = s.cron.Entry(j.entryID).Next
	return stats, true
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Scheduler started", "jobs", len(s.jobs))
}

// Stop halts the schedule and waits for running jobs, up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out with jobs still running")
	}
}
