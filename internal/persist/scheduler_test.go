package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/metalagman/taskdeck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu      sync.Mutex
	updates []update
	lists   int
	failing bool
	remote  []model.Task
}

type update struct {
	id    string
	patch TaskPatch
}

func (c *fakeClient) ListTasks(_ context.Context, _ string) ([]model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists++
	return append([]model.Task{}, c.remote...), nil
}

func (c *fakeClient) CreateTask(_ context.Context, t model.Task) (model.Task, error) {
	return t, nil
}

func (c *fakeClient) UpdateTask(_ context.Context, id string, patch TaskPatch) (model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return model.Task{}, errors.New("backend rejected write")
	}
	c.updates = append(c.updates, update{id: id, patch: patch})
	return model.Task{ID: id}, nil
}

func (c *fakeClient) DeleteTask(_ context.Context, _ string) error { return nil }

func (c *fakeClient) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func task(id string, status model.Status, ord int) model.Task {
	return model.Task{ID: id, Status: status, Order: ord}
}

func TestScheduleCoalescesBursts(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	s := NewScheduler(client, "p1", 30*time.Millisecond, nil)

	baseline := []model.Task{
		task("t1", model.StatusBacklog, 1),
		task("t2", model.StatusBacklog, 2),
		task("t3", model.StatusBacklog, 3),
	}
	s.Baseline(baseline)

	// Rapid intermediate states from a drag in flight; only the last
	// one may reach the backend.
	s.Schedule([]model.Task{
		task("t1", model.StatusBacklog, 2),
		task("t2", model.StatusBacklog, 1),
		task("t3", model.StatusBacklog, 3),
	})
	s.Schedule([]model.Task{
		task("t1", model.StatusBacklog, 3),
		task("t2", model.StatusBacklog, 1),
		task("t3", model.StatusBacklog, 2),
	})
	s.Schedule([]model.Task{
		task("t1", model.StatusBacklog, 3),
		task("t2", model.StatusBacklog, 2),
		task("t3", model.StatusBacklog, 1),
	})
	s.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.updates, 2, "only t1 and t3 changed against the baseline")
	seen := map[string]int{}
	for _, u := range client.updates {
		require.NotNil(t, u.patch.Order)
		assert.Nil(t, u.patch.Status, "pure reorder must not send status")
		seen[u.id] = *u.patch.Order
	}
	assert.Equal(t, map[string]int{"t1": 3, "t3": 1}, seen)
}

func TestScheduleResetsWindow(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	s := NewScheduler(client, "p1", 50*time.Millisecond, nil)
	s.Baseline([]model.Task{task("t1", model.StatusBacklog, 1)})

	for i := 0; i < 4; i++ {
		s.Schedule([]model.Task{task("t1", model.StatusBacklog, 2)})
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 0, client.updateCount(), "window must restart on every call")
	}
	s.Wait()
	assert.Equal(t, 1, client.updateCount())
}

func TestCrossColumnMoveSendsStatus(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	s := NewScheduler(client, "p1", 10*time.Millisecond, nil)
	s.Baseline([]model.Task{task("t1", model.StatusBacklog, 1)})

	s.Schedule([]model.Task{task("t1", model.StatusReview, 1)})
	s.Wait()

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.updates, 1)
	require.NotNil(t, client.updates[0].patch.Status)
	assert.Equal(t, model.StatusReview, *client.updates[0].patch.Status)
}

func TestFailedBatchTriggersAuthoritativeReload(t *testing.T) {
	t.Parallel()

	authoritative := []model.Task{
		task("t1", model.StatusBacklog, 1),
		task("t2", model.StatusBacklog, 2),
	}
	client := &fakeClient{failing: true, remote: authoritative}

	var mu sync.Mutex
	var reloaded []model.Task
	s := NewScheduler(client, "p1", 10*time.Millisecond, func(tasks []model.Task) {
		mu.Lock()
		defer mu.Unlock()
		reloaded = tasks
	})
	s.Baseline(authoritative)

	// Local optimistic state the backend will never accept.
	s.Schedule([]model.Task{
		task("t1", model.StatusBacklog, 2),
		task("t2", model.StatusBacklog, 1),
	})
	s.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, authoritative, reloaded, "local order must be replaced verbatim")

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 1, client.lists)
}

func TestUnchangedStateWritesNothing(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	s := NewScheduler(client, "p1", 10*time.Millisecond, nil)

	state := []model.Task{task("t1", model.StatusBacklog, 1)}
	s.Baseline(state)
	s.Schedule(state)
	s.Wait()

	assert.Equal(t, 0, client.updateCount())
}

func TestStopCancelsPendingWindow(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	s := NewScheduler(client, "p1", 20*time.Millisecond, nil)
	s.Baseline([]model.Task{task("t1", model.StatusBacklog, 1)})

	s.Schedule([]model.Task{task("t1", model.StatusBacklog, 2)})
	s.Stop()
	s.Wait()
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, 0, client.updateCount())
}
