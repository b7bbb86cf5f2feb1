package scheduler

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"lexcourt/config"
)

func TestNewRejectsInvalidSchedule(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	_, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{Sweeper: &config.SweeperConfig{Schedule: "not a schedule"}},
		Logger:    slog.Default(),
		Jobs:      []Job{{Name: "noop", Run: func(context.Context) error { return nil }}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "noop")
}

func TestSchedulerRunsJobs(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	var runs atomic.Int32
	_, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{},
		Logger:    slog.Default(),
		Jobs: []Job{{
			Name: "count",
			Spec: "* * * * * *",
			Run: func(context.Context) error {
				runs.Add(1)

				return nil
			},
		}},
	})
	require.NoError(t, err)

	lc.RequireStart()
	defer lc.RequireStop()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
