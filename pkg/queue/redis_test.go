package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"SolPulse/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type refreshPayload struct {
	Reason string `json:"reason"`
	Limit  int    `json:"limit"`
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[refreshPayload](json.RawMessage(`{"reason":"manual","limit":50}`))
	require.NoError(t, err)
	assert.Equal(t, refreshPayload{Reason: "manual", Limit: 50}, *p)

	p, err = ParsePayload[refreshPayload](nil)
	require.NoError(t, err)
	assert.Equal(t, refreshPayload{}, *p)

	_, err = ParsePayload[refreshPayload](json.RawMessage(`{"limit":"x"}`))
	assert.Error(t, err)
}

func TestQueueModeString(t *testing.T) {
	assert.Equal(t, "producer-only", ModeProducerOnly.String())
	assert.Equal(t, "consumer-only", ModeConsumerOnly.String())
	assert.Equal(t, "producer-consumer", ModeProducerConsumer.String())
}

type countingJob struct {
	calls atomic.Int32
	last  atomic.Value
	fail  bool
}

func (j *countingJob) Name() string { return "counting" }
func (j *countingJob) Type() string { return "rankings.refresh" }
func (j *countingJob) Handle(_ context.Context, payload json.RawMessage) error {
	j.calls.Add(1)
	p, err := ParsePayload[refreshPayload](payload)
	if err != nil {
		return err
	}
	j.last.Store(*p)
	if j.fail {
		return errors.New("snapshot failed")
	}
	return nil
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisQueueDeliversAndDeadLetters(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	ok := &countingJob{}
	q := NewRedisQueue(logger.Nop(), QueueConfig{Workers: 1}, client, ModeProducerConsumer,
		WithKeyPrefix("test:queue"), WithPollWait(100*time.Millisecond))
	q.RegisterJobs(ok)
	require.NoError(t, q.Start())

	require.NoError(t, q.PublishMessage(ctx, "rankings.refresh", refreshPayload{Reason: "manual", Limit: 10}))
	require.Eventually(t, func() bool { return ok.calls.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, refreshPayload{Reason: "manual", Limit: 10}, ok.last.Load())

	assert.Error(t, q.PublishMessage(ctx, "unknown.type", nil))

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))
	assert.Error(t, q.PublishMessage(ctx, "rankings.refresh", nil), "stopped queue rejects messages")

	failing := &countingJob{fail: true}
	dq := NewRedisQueue(logger.Nop(), QueueConfig{Workers: 1, RetryLimit: 0}, client, ModeProducerConsumer,
		WithKeyPrefix("test:dlq"), WithPollWait(100*time.Millisecond))
	dq.RegisterJobs(failing)
	require.NoError(t, dq.Start())
	t.Cleanup(func() { _ = dq.Stop(context.Background()) })

	require.NoError(t, dq.Enqueue(ctx, "rankings.refresh", refreshPayload{Reason: "cron"}))
	require.Eventually(t, func() bool {
		n, err := dq.DeadLetterCount(ctx)
		return err == nil && n == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.EqualValues(t, 1, failing.calls.Load())
}
