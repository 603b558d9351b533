package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// JobScheduler runs one-shot auction deadlines and periodic jobs on gocron
type JobScheduler struct {
	scheduler gocron.Scheduler
	now       func() time.Time
}

// NewJobScheduler creates a scheduler in UTC. Call Start to begin running jobs.
func NewJobScheduler() (*JobScheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &JobScheduler{scheduler: s, now: time.Now}, nil
}

// Schedule runs fn once at the given time. A time not in the future runs
// immediately. The returned cancel is safe to call after the job ran.
func (j *JobScheduler) Schedule(at time.Time, fn func()) (func(), error) {
	start := gocron.OneTimeJobStartImmediately()
	if at.After(j.now()) {
		start = gocron.OneTimeJobStartDateTime(at)
	}

	job, err := j.scheduler.NewJob(gocron.OneTimeJob(start), gocron.NewTask(fn))
	if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
		// The deadline passed between the check and registration
		job, err = j.scheduler.NewJob(gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()), gocron.NewTask(fn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job at %s: %w", at.Format(time.RFC3339), err)
	}

	id := job.ID()
	return func() {
		if err := j.scheduler.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
			log.WithError(err).WithField("jobID", id).Warn("Failed to remove scheduled job")
		}
	}, nil
}

// Every runs fn on a fixed interval. A run still in progress skips the next tick.
func (j *JobScheduler) Every(interval time.Duration, name string, fn func()) error {
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	log.WithFields(log.Fields{
		"job":      name,
		"interval": interval,
	}).Info("Scheduled periodic job")
	return nil
}

// Start begins executing jobs
func (j *JobScheduler) Start() {
	j.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs
func (j *JobScheduler) Shutdown() error {
	return j.scheduler.Shutdown()
}
