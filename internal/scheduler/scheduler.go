package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"bookbridge-backend/internal/jobs"
	"bookbridge-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler. Job
// failures are logged and counted by the runner itself.
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	schedules := []struct {
		name string
		spec string
		run  func() error
	}{
		{jobs.JobAssessOverdueFines, cfg.AssessOverdueFines, s.jobs.AssessOverdueFines},
		{jobs.JobSendFineReminders, cfg.SendFineReminders, s.jobs.SendFineReminders},
		{jobs.JobPurgeReadNotifications, cfg.PurgeReadNotifications, s.jobs.PurgeReadNotifications},
	}

	registered := 0
	for _, job := range schedules {
		if job.spec == "" {
			logger.Info("Cron job disabled", "job", job.name)
			continue
		}
		run := job.run
		if _, err := s.cron.AddFunc(job.spec, func() { _ = run() }); err != nil {
			logger.Error("Failed to register cron job", "job", job.name, "spec", job.spec, "error", err)
			continue
		}
		registered++
	}

	logger.Info("Cron jobs registered", "count", registered)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
