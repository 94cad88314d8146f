package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/guardian-nexus/sqlfw-auditor/pkg/logger"
	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Job is invoked on every tick with the scheduler's context.
type Job func(ctx context.Context)

// Scheduler triggers a job on a six-field cron expression (seconds first).
// A tick that arrives while the previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	job      Job
}

func New(spec string, job Job) (*Scheduler, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, schedule: schedule, job: job}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run blocks until ctx is cancelled, then waits for a running job to finish.
func (s *Scheduler) Run(ctx context.Context) {
	l := cronLogger{}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.job(ctx) }))

	logger.Log().WithField("schedule", s.spec).WithField("next", s.Next(time.Now())).Info("Scheduler started")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Log().Info("Scheduler stopped")
}

// cronLogger adapts the process logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Log().WithFields(fields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Log().WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return out
}
