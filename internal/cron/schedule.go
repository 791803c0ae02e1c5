package cron

import (
	"context"
	"fmt"
	"time"
)

// Job is one maintenance pass. Run reports how many rows it changed.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// Paced jobs run at most once per Every, regardless of the worker tick.
type Paced interface {
	Every() time.Duration
}

type scheduled struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Schedule holds the worker's jobs in registration order.
type Schedule struct {
	entries []*scheduled
	names   map[string]struct{}
}

func NewSchedule(jobs ...Job) (*Schedule, error) {
	s := &Schedule{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if err := s.Add(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers job. Names must be unique; they label logs and metrics.
func (s *Schedule) Add(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("job name required")
	}
	if _, dup := s.names[name]; dup {
		return fmt.Errorf("job %q registered twice", name)
	}
	entry := &scheduled{job: job}
	if paced, ok := job.(Paced); ok {
		entry.every = paced.Every()
	}
	s.names[name] = struct{}{}
	s.entries = append(s.entries, entry)
	return nil
}

// Due returns the jobs whose pace allows a run at now.
func (s *Schedule) Due(now time.Time) []Job {
	due := make([]Job, 0, len(s.entries))
	for _, e := range s.entries {
		if e.every > 0 && !e.lastRun.IsZero() && now.Sub(e.lastRun) < e.every {
			continue
		}
		due = append(due, e.job)
	}
	return due
}

func (s *Schedule) markRan(name string, at time.Time) {
	for _, e := range s.entries {
		if e.job.Name() == name {
			e.lastRun = at
			return
		}
	}
}

func (s *Schedule) Len() int { return len(s.entries) }
