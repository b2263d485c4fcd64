package queue

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, spec string) *Scheduler {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewScheduler(asynq.RedisClientOpt{Addr: mr.Addr()}, spec)
	return s
}

func TestScheduler_RegisterJobs(t *testing.T) {
	s := newTestScheduler(t, "@every 5m")
	assert.NoError(t, s.RegisterJobs())
}

func TestScheduler_RegisterJobs_Disabled(t *testing.T) {
	s := newTestScheduler(t, "")
	assert.NoError(t, s.RegisterJobs())
}

func TestScheduler_RegisterJobs_BadSpec(t *testing.T) {
	s := newTestScheduler(t, "not a cron spec")
	err := s.RegisterJobs()
	require.Error(t, err)
}
