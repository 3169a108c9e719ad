package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler owns the periodic maintenance jobs: error-log retention pruning
// and role-simulation expiry sweeps.
type Scheduler struct {
	sched          gocron.Scheduler
	errorLogs      *ErrorLogService
	roles          *RoleService
	errorRetention time.Duration
}

func NewScheduler(errorLogs *ErrorLogService, roles *RoleService, errorRetention time.Duration) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		sched:          sched,
		errorLogs:      errorLogs,
		roles:          roles,
		errorRetention: errorRetention,
	}, nil
}

// Start registers the jobs and begins running them
func (s *Scheduler) Start() error {
	// Daily: prune error logs past retention
	_, err := s.sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := s.errorLogs.Prune(ctx, s.errorRetention); err != nil {
				log.Printf("[Scheduler] Error log prune failed: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	// Every minute: sweep expired role simulations
	_, err = s.sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := s.roles.SweepExpired(ctx); err != nil {
				log.Printf("[Scheduler] Role simulation sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return err
	}

	s.sched.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs
func (s *Scheduler) Stop() {
	if err := s.sched.Shutdown(); err != nil {
		log.Printf("[Scheduler] Shutdown error: %v", err)
	}
}
