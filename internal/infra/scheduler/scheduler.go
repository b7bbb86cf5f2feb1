// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"lexcourt/config"
	"lexcourt/internal/domain/lifecycle"
	"lexcourt/internal/errors"
)

// defaultSpec runs jobs every 30 seconds. Specs carry a seconds field.
const defaultSpec = "*/30 * * * * *"

// Job is a unit of periodic work. An empty Spec uses the configured sweeper schedule.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Params holds dependencies for the Scheduler, injected by Fx.
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
	Jobs   []Job `group:"jobs"`
}

// Scheduler wraps a seconds-enabled cron runner.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	jobs   []Job
	logger *slog.Logger
}

// New registers every job and ties the runner to the Fx lifecycle.
func New(params Params) (*Scheduler, error) {
	spec := defaultSpec
	if params.Config != nil && params.Config.Sweeper != nil && params.Config.Sweeper.Schedule != "" {
		spec = params.Config.Sweeper.Schedule
	}

	s := &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		spec:   spec,
		jobs:   params.Jobs,
		logger: params.Logger,
	}

	for _, job := range params.Jobs {
		if err := s.add(job); err != nil {
			return nil, err
		}
	}

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.cron.Start()
			s.logger.Info("Scheduler started", slog.Int("jobs", len(s.jobs)), slog.String("schedule", s.spec))

			return nil
		},
		OnStop: func(ctx context.Context) error {
			done := s.cron.Stop()
			select {
			case <-done.Done():
				return nil
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "scheduler stop")
			}
		},
	})

	return s, nil
}

func (s *Scheduler) add(job Job) error {
	spec := job.Spec
	if spec == "" {
		spec = s.spec
	}

	if _, err := s.cron.AddFunc(spec, func() { s.run(job) }); err != nil {
		return errors.Wrapf(err, "invalid schedule %q for job %s", spec, job.Name)
	}

	return nil
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	if err := job.Run(ctx); err != nil {
		s.logger.Error("Scheduled job failed", slog.String("job", job.Name), slog.Any("error", err))
	}
}
