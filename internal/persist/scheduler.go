package persist

import (
	"context"
	"sync"
	"time"

	"github.com/metalagman/taskdeck/internal/model"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultWindow is the quiescence window between the last Schedule
// call and the outbound write batch.
const DefaultWindow = 500 * time.Millisecond

// Scheduler coalesces bursts of local reordering into one debounced
// write batch. Every Schedule call restarts the window and supersedes
// the previous snapshot; intermediate states are discarded by design.
//
// If any write in a batch fails, the scheduler abandons local
// assumptions: it fetches the authoritative task list and hands it to
// the reload callback, which replaces local state wholesale.
type Scheduler struct {
	client    Client
	projectID string
	window    time.Duration
	onReload  func([]model.Task)

	mu      sync.Mutex
	timer   *time.Timer
	pending []model.Task
	synced  map[string]model.Task
	flushed chan struct{}
}

// NewScheduler creates a scheduler. The reload callback receives the
// authoritative task list after a failed batch and replaces local
// state wholesale.
func NewScheduler(client Client, projectID string, window time.Duration, onReload func([]model.Task)) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	if onReload == nil {
		onReload = func([]model.Task) {}
	}
	return &Scheduler{
		client:    client,
		projectID: projectID,
		window:    window,
		onReload:  onReload,
		synced:    map[string]model.Task{},
	}
}

// Baseline records the last state known to match the backend. The
// next batch writes only tasks whose order or status differs from it.
func (s *Scheduler) Baseline(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = indexByID(tasks)
}

// Schedule records the latest full state and (re)starts the
// quiescence window.
func (s *Scheduler) Schedule(tasks []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending[:0:0], tasks...)
	s.flushed = make(chan struct{})
	if s.timer == nil {
		s.timer = time.AfterFunc(s.window, s.fire)
		return
	}
	s.timer.Reset(s.window)
}

// Stop cancels any pending window without flushing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil && s.timer.Stop() && s.flushed != nil {
		close(s.flushed)
		s.flushed = nil
	}
	s.pending = nil
}

// Wait blocks until the batch scheduled most recently has settled.
// It returns immediately when nothing is pending.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.flushed
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	batch := s.pending
	baseline := s.synced
	done := s.flushed
	s.pending = nil
	s.mu.Unlock()
	if done != nil {
		defer close(done)
	}
	if batch == nil {
		return
	}

	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)
	writes := 0
	for _, t := range batch {
		prev, known := baseline[t.ID]
		if known && prev.Order == t.Order && prev.Status == t.Status {
			continue
		}
		if !known {
			// Created after the baseline snapshot; the create call
			// already persisted its order.
			continue
		}
		writes++
		t := t
		g.Go(func() error {
			patch := TaskPatch{Order: &t.Order}
			if prev.Status != t.Status {
				patch.Status = &t.Status
			}
			_, err := s.client.UpdateTask(gctx, t.ID, patch)
			return err
		})
	}

	if writes == 0 {
		s.mu.Lock()
		s.synced = indexByID(batch)
		s.mu.Unlock()
		return
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Int("writes", writes).Msg("persist: batch failed, reloading authoritative state")
		s.recover(ctx)
		return
	}

	s.mu.Lock()
	s.synced = indexByID(batch)
	s.mu.Unlock()
	log.Debug().Int("writes", writes).Msg("persist: batch settled")
}

// recover discards local assumptions and replaces them with the
// backend's view.
func (s *Scheduler) recover(ctx context.Context) {
	authoritative, err := s.client.ListTasks(ctx, s.projectID)
	if err != nil {
		log.Error().Err(err).Msg("persist: authoritative reload failed")
		return
	}
	s.mu.Lock()
	s.synced = indexByID(authoritative)
	s.mu.Unlock()
	s.onReload(authoritative)
}

func indexByID(tasks []model.Task) map[string]model.Task {
	idx := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		idx[t.ID] = t
	}
	return idx
}
