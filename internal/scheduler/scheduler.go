package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Job is one periodic unit of work. Errors are logged, never fatal; the
// next tick always runs.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler drives the game's fixed cadences: attack announcements,
// situation pushes, and stats recalculation each run on their own ticker.
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

func New() *Scheduler {
	return &Scheduler{
		logger: slog.With("component", "scheduler"),
	}
}

func (s *Scheduler) Add(job Job) {
	s.jobs = append(s.jobs, job)
}

// Start launches one goroutine per job. All goroutines exit when the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.logger.Info("Scheduling job", "job", job.Name, "interval", job.Interval)
		go s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping job", "job", job.Name)
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				s.logger.Error("Job run failed", "job", job.Name, "error", err)
			}
		}
	}
}
