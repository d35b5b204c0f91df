package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/metalagman/taskdeck/internal/merge"
	"github.com/metalagman/taskdeck/internal/model"
	"github.com/metalagman/taskdeck/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu      sync.Mutex
	remote  []model.Task
	updates int
	fail    bool
	nextID  int
}

func (c *fakeClient) ListTasks(_ context.Context, _ string) ([]model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Task{}, c.remote...), nil
}

func (c *fakeClient) CreateTask(_ context.Context, t model.Task) (model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t.ID = "srv-" + string(rune('a'+c.nextID-1))
	c.remote = append(c.remote, t)
	return t, nil
}

func (c *fakeClient) UpdateTask(_ context.Context, id string, patch persist.TaskPatch) (model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates++
	if c.fail {
		return model.Task{}, errors.New("backend rejected write")
	}
	for i := range c.remote {
		if c.remote[i].ID != id {
			continue
		}
		if patch.Order != nil {
			c.remote[i].Order = *patch.Order
		}
		if patch.Status != nil {
			c.remote[i].Status = *patch.Status
		}
		if patch.Title != nil {
			c.remote[i].Title = *patch.Title
		}
		return c.remote[i], nil
	}
	return model.Task{}, errors.New("not found")
}

func (c *fakeClient) DeleteTask(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.remote {
		if c.remote[i].ID == id {
			c.remote = append(c.remote[:i], c.remote[i+1:]...)
			return nil
		}
	}
	return nil
}

func task(id string, status model.Status, ord int) model.Task {
	return model.Task{ID: id, Status: status, Order: ord}
}

func newLoadedStore(t *testing.T, remote []model.Task) (*Store, *fakeClient) {
	t.Helper()
	client := &fakeClient{remote: remote}
	s := NewStore(client, "p1", 10*time.Millisecond)
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(context.Background()))
	return s, client
}

func TestCrossPartitionMove(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{
		task("a1", model.StatusBacklog, 1),
		task("a2", model.StatusBacklog, 2),
		task("a3", model.StatusBacklog, 3),
		task("b1", model.StatusReview, 1),
		task("b2", model.StatusReview, 2),
	})

	s.Move("a2", model.StatusReview)

	backlog := s.OrderedTasks(model.StatusBacklog)
	review := s.OrderedTasks(model.StatusReview)
	require.Len(t, backlog, 2)
	require.Len(t, review, 3)
	for i, item := range backlog {
		assert.Equal(t, i+1, item.Order)
	}
	for i, item := range review {
		assert.Equal(t, i+1, item.Order)
	}
	assert.Equal(t, "a2", review[2].ID, "moved task lands last in destination")
}

func TestReorderIsOptimistic(t *testing.T) {
	t.Parallel()

	client := &fakeClient{remote: []model.Task{
		task("t1", model.StatusBacklog, 1),
		task("t2", model.StatusBacklog, 2),
		task("t3", model.StatusBacklog, 3),
	}}
	s := NewStore(client, "p1", 100*time.Millisecond)
	t.Cleanup(s.Close)
	require.NoError(t, s.Load(context.Background()))

	s.Reorder("t3", 0, model.StatusBacklog)

	// Local state reflects the move before any write lands.
	got := s.OrderedTasks(model.StatusBacklog)
	assert.Equal(t, "t3", got[0].ID)

	client.mu.Lock()
	pending := client.updates
	client.mu.Unlock()
	assert.Equal(t, 0, pending, "write is debounced, not synchronous")

	s.Flush()
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, 2, client.updates, "t3 and t1 changed order")
}

func TestFailedWriteRestoresServerTruth(t *testing.T) {
	t.Parallel()

	remote := []model.Task{
		task("t1", model.StatusBacklog, 1),
		task("t2", model.StatusBacklog, 2),
	}
	s, client := newLoadedStore(t, remote)
	client.mu.Lock()
	client.fail = true
	client.mu.Unlock()

	s.Reorder("t2", 0, model.StatusBacklog)
	s.Flush()

	got := s.OrderedTasks(model.StatusBacklog)
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].ID, "optimistic order discarded for server truth")
	assert.Equal(t, "t2", got[1].ID)
}

func TestPushEventsAreDeferredToDispatchTick(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{task("t1", model.StatusBacklog, 1)})

	s.Enqueue(merge.Event{Kind: merge.KindCreated, Task: task("t2", model.StatusBacklog, 2)})
	assert.Len(t, s.OrderedTasks(model.StatusBacklog), 1, "not applied at receipt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return len(s.OrderedTasks(model.StatusBacklog)) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSubscriberNotifiedOnceForChange(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{task("t1", model.StatusBacklog, 1)})

	var mu sync.Mutex
	notifications := 0
	s.Subscribe(func() {
		mu.Lock()
		notifications++
		mu.Unlock()
	})

	// Identical echo: suppressed, no notification.
	s.Enqueue(merge.Event{Kind: merge.KindUpdated, Task: task("t1", model.StatusBacklog, 1)})
	// Real change: one notification.
	s.Enqueue(merge.Event{Kind: merge.KindUpdated, Task: task("t1", model.StatusReview, 1)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		got, ok := s.Task("t1")
		return ok && got.Status == model.StatusReview
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, notifications)
}

func TestCreateAssignsNextOrder(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{
		task("t1", model.StatusBacklog, 1),
		task("t2", model.StatusBacklog, 2),
	})

	created, err := s.Create(context.Background(), model.Task{
		Title:  "new one",
		Status: model.StatusBacklog,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, created.Order)

	// The push echo of the create is a no-op.
	before := s.All()
	s.Enqueue(merge.Event{Kind: merge.KindCreated, Task: created})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, s.All())
}

func TestSubtasksExcludedFromOrdering(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{
		task("t1", model.StatusBacklog, 1),
		{ID: "s1", ParentID: "t1", Status: model.StatusBacklog, Title: "child"},
		task("t2", model.StatusBacklog, 2),
	})

	column := s.OrderedTasks(model.StatusBacklog)
	require.Len(t, column, 2)

	subs := s.Subtasks("t1")
	require.Len(t, subs, 1)
	assert.Equal(t, "s1", subs[0].ID)
}

func TestDeleteRemovesLocally(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{
		task("t1", model.StatusBacklog, 1),
		task("t2", model.StatusBacklog, 2),
	})

	require.NoError(t, s.Delete(context.Background(), "t1"))
	_, ok := s.Task("t1")
	assert.False(t, ok)
}

func TestConnectivityFlagDoesNotTouchState(t *testing.T) {
	t.Parallel()

	s, _ := newLoadedStore(t, []model.Task{task("t1", model.StatusBacklog, 1)})

	s.SetConnected(true)
	s.SetConnected(false)

	assert.False(t, s.Connected())
	assert.Len(t, s.All(), 1, "channel loss never discards task state")
}
