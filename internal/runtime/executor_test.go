package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameronsjo/stevedore/internal/compose"
)

const executorDoc = `
services:
  app:
    image: app:1
    ports:
      - "8080:8080"
    depends_on:
      - db
      - redis
    healthcheck:
      test: ["CMD", "true"]
      interval: 1s
  db:
    image: postgres:15
  redis:
    image: redis:7
    healthcheck:
      disable: true
`

func executorTopology(t *testing.T) *compose.Topology {
	t.Helper()

	topo, err := compose.ComposeSources(compose.Options{}, compose.Source{
		Name: "topology.yml",
		Data: []byte(executorDoc),
	})
	require.NoError(t, err)
	return topo
}

func TestExecutorUpStartsInDependencyOrder(t *testing.T) {
	mock := newMockDocker()
	exec := NewExecutor(mock, "test", "")
	exec.ReadyTimeout = 5 * time.Second

	topo := executorTopology(t)
	require.NoError(t, exec.Up(context.Background(), topo))

	assert.Equal(t, []string{"test-db", "test-redis", "test-app"}, mock.callsFor("start"))
	assert.Equal(t, []string{"postgres:15", "redis:7", "app:1"}, mock.callsFor("pull"))
}

func TestExecutorUpWaitsForHealth(t *testing.T) {
	mock := newMockDocker()
	mock.healthyAfter["test-app"] = 2

	exec := NewExecutor(mock, "test", "")
	exec.ReadyTimeout = 5 * time.Second
	exec.pollInterval = 10 * time.Millisecond

	topo := executorTopology(t)
	require.NoError(t, exec.Up(context.Background(), topo))

	// The app has a probe, so readiness required extra inspects.
	assert.GreaterOrEqual(t, len(mock.callsFor("inspect")), 3)
}

func TestExecutorUpFailsFast(t *testing.T) {
	mock := newMockDocker()
	mock.failCreate = "test-db"

	exec := NewExecutor(mock, "test", "")

	err := exec.Up(context.Background(), executorTopology(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start db")

	// Nothing past the failed service was started.
	assert.Empty(t, mock.callsFor("start"))
}

func TestExecutorDownStopsInReverseOrder(t *testing.T) {
	mock := newMockDocker()
	exec := NewExecutor(mock, "test", "")
	exec.ReadyTimeout = 5 * time.Second

	topo := executorTopology(t)
	require.NoError(t, exec.Up(context.Background(), topo))
	require.NoError(t, exec.Down(context.Background(), topo))

	assert.Equal(t, []string{"test-app", "test-redis", "test-db"}, mock.callsFor("stop"))
	assert.Equal(t, []string{"test-app", "test-redis", "test-db"}, mock.callsFor("remove"))
}

func TestExecutorDownSkipsMissingContainers(t *testing.T) {
	mock := newMockDocker()
	exec := NewExecutor(mock, "test", "")

	// Nothing was ever started; Down must not fail.
	require.NoError(t, exec.Down(context.Background(), executorTopology(t)))
	assert.Empty(t, mock.callsFor("stop"))
}

func TestExecutorProgressEvents(t *testing.T) {
	mock := newMockDocker()
	exec := NewExecutor(mock, "test", "")
	exec.ReadyTimeout = 5 * time.Second

	var events []string
	exec.OnProgress = func(service, phase string) {
		events = append(events, service+":"+phase)
	}

	require.NoError(t, exec.Up(context.Background(), executorTopology(t)))
	assert.Contains(t, events, "db:create")
	assert.Contains(t, events, "app:wait")
}
