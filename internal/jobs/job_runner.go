package jobs

import (
	"context"
	"fmt"
	"time"

	"bookbridge-backend/internal/config"
	"bookbridge-backend/internal/logger"
	"bookbridge-backend/internal/metrics"
	"bookbridge-backend/internal/service"
)

const (
	JobAssessOverdueFines     = "assess-overdue-fines"
	JobSendFineReminders      = "send-fine-reminders"
	JobPurgeReadNotifications = "purge-read-notifications"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	fines  service.FineService
	notes  service.NotificationService
	config *config.Config
	now    func() time.Time
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(cfg *config.Config, fines service.FineService, notes service.NotificationService) *JobRunner {
	return &JobRunner{
		fines:  fines,
		notes:  notes,
		config: cfg,
		now:    time.Now,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery, timing and metrics
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		logger.JobRun(jobName, time.Since(start), err)
		metrics.RecordJobRun(jobName, err)
	}()

	logger.Info("Starting job", "job", jobName)
	return jobFunc(context.Background())
}

// AssessOverdueFines creates or refreshes fines for every overdue order
func (jr *JobRunner) AssessOverdueFines() error {
	return jr.runWithRecovery(JobAssessOverdueFines, func(ctx context.Context) error {
		report, err := jr.fines.AssessOverdueFines(ctx, jr.now())
		if err != nil {
			return err
		}
		logger.Info("Overdue fines assessed", "created", report.Created, "updated", report.Updated, "skipped", report.Skipped)
		return nil
	})
}

// SendFineReminders nudges users whose fines have been pending too long
func (jr *JobRunner) SendFineReminders() error {
	return jr.runWithRecovery(JobSendFineReminders, func(ctx context.Context) error {
		sent, err := jr.fines.SendFineReminders(ctx, jr.now())
		if err != nil {
			return err
		}
		logger.Info("Fine reminders sent", "count", sent)
		return nil
	})
}

// PurgeReadNotifications removes read notifications past the retention window
func (jr *JobRunner) PurgeReadNotifications() error {
	return jr.runWithRecovery(JobPurgeReadNotifications, func(ctx context.Context) error {
		cutoff := jr.now().AddDate(0, 0, -jr.config.Fines.PurgeReadAfterDays)
		n, err := jr.notes.PurgeRead(ctx, cutoff)
		if err != nil {
			return err
		}
		logger.Info("Read notifications purged", "count", n, "cutoff", cutoff)
		return nil
	})
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() error {
	var firstErr error
	for _, name := range Names() {
		if err := jr.Run(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Run executes a single job by name
func (jr *JobRunner) Run(name string) error {
	fn, ok := jr.registry()[name]
	if !ok {
		return fmt.Errorf("unknown job %q (known: %v)", name, Names())
	}
	return fn()
}

func (jr *JobRunner) registry() map[string]func() error {
	return map[string]func() error{
		JobAssessOverdueFines:     jr.AssessOverdueFines,
		JobSendFineReminders:      jr.SendFineReminders,
		JobPurgeReadNotifications: jr.PurgeReadNotifications,
	}
}

// Names lists the jobs Run accepts in execution order
func Names() []string {
	return []string{JobAssessOverdueFines, JobSendFineReminders, JobPurgeReadNotifications}
}
