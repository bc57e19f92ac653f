package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaykit/relay/core/clock"
	"github.com/relaykit/relay/core/scheduler"
)

func TestNewActorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewActorMetrics(reg)

	require.NotNil(t, m)

	timer := m.MessageDuration("MyMessage")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.MessageProcessed("MyMessage", true)
	m.MessageProcessed("MyMessage", false)
	m.MessagePanic("MyMessage")
	m.MailboxDepth("actor-123", 10)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["relay_actor_message_duration_seconds"])
	assert.True(t, names["relay_actor_messages_total"])
	assert.True(t, names["relay_actor_mailbox_depth"])
}

func TestNewSchedulerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	require.NotNil(t, m)

	m.QueueDepth(3)

	timer := m.ResumeDuration()
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.Resumed(scheduler.Done)
	m.Resumed(scheduler.ResumeLater)
	m.StealAttempt(true)
	m.StealAttempt(false)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["relay_scheduler_queue_depth"])
	assert.True(t, names["relay_scheduler_resumed_total"])
	assert.True(t, names["relay_scheduler_steal_attempts_total"])
}

func TestNewClockMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClockMetrics(reg)

	require.NotNil(t, m)

	m.ScheduledCount(7)
	m.PeriodicStalled(clock.StallSkip)
	m.PeriodicFailed()

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["relay_clock_scheduled_count"])
	assert.True(t, names["relay_clock_periodic_stalls_total"])
	assert.True(t, names["relay_clock_periodic_failures_total"])
}

func TestNewTransportMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTransportMetrics(reg)

	require.NotNil(t, m)

	timer := m.RequestDuration("spawn")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.RequestCompleted("spawn", true)
	m.NotifyCompleted("forward", true)

	timer = m.HandlerDuration("deliver")
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	m.HandlerCompleted("deliver", true)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	assert.True(t, names["relay_transport_request_duration_seconds"])
	assert.True(t, names["relay_transport_handled_total"])
}

func TestNewAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAllMetrics(reg)

	require.NotNil(t, m)
	require.NotNil(t, m.Actor)
	require.NotNil(t, m.Scheduler)
	require.NotNil(t, m.Clock)
	require.NotNil(t, m.Transport)

	m.Actor.MessageProcessed("test", true)
	m.Scheduler.StealAttempt(true)
	m.Clock.ScheduledCount(1)
	m.Transport.NotifyCompleted("forward", true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
