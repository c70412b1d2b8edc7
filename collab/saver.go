package collab

import (
	"sync"
	"time"
)

// saveScheduler debounces persistence per draft id. Every accepted update
// re-arms the draft's timer; the save runs once the quiet interval elapses.
// A draft is "dirty" from the first accepted update until a save succeeds,
// so a failed save is retried by the next update or by the forced flush on
// last-disconnect.
type saveScheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
	dirty  map[string]bool
	save   func(draftID string) error
}

func newSaveScheduler(delay time.Duration, save func(draftID string) error) *saveScheduler {
	return &saveScheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
		dirty:  make(map[string]bool),
		save:   save,
	}
}

// markDirty records an unsaved change and (re-)arms the trailing timer.
func (s *saveScheduler) markDirty(draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[draftID] = true
	if t, ok := s.timers[draftID]; ok {
		t.Stop()
	}
	s.timers[draftID] = time.AfterFunc(s.delay, func() {
		s.fire(draftID)
	})
}

// fire runs a scheduled save. The timer bookkeeping is cleared first so an
// update arriving while the save runs re-arms cleanly.
func (s *saveScheduler) fire(draftID string) {
	s.mu.Lock()
	delete(s.timers, draftID)
	if !s.dirty[draftID] {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if err := s.save(draftID); err == nil {
		s.clearIfQuiet(draftID)
	}
}

// flush cancels any pending timer and saves immediately if the draft is
// dirty. It returns true when the draft is clean afterwards.
func (s *saveScheduler) flush(draftID string) bool {
	s.mu.Lock()
	if t, ok := s.timers[draftID]; ok {
		t.Stop()
		delete(s.timers, draftID)
	}
	if !s.dirty[draftID] {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	if err := s.save(draftID); err != nil {
		return false
	}
	s.clearIfQuiet(draftID)
	return true
}

// clearIfQuiet drops the dirty flag unless another update re-armed the
// timer while the save was in flight.
func (s *saveScheduler) clearIfQuiet(draftID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, rearmed := s.timers[draftID]; !rearmed {
		delete(s.dirty, draftID)
	}
}

func (s *saveScheduler) isDirty(draftID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty[draftID]
}

// flushAll force-saves every dirty draft, used during shutdown.
func (s *saveScheduler) flushAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.flush(id)
	}
}
