package application

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrSchedulerStopped is returned by Schedule after Stop
var ErrSchedulerStopped = errors.New("snipe scheduler stopped")

// Timers is the one-shot timer backend behind SnipeScheduler
type Timers interface {
	// Schedule runs fn once at the given time and returns a cancel func
	Schedule(at time.Time, fn func()) (cancel func(), err error)
}

// ExpiryHandler is invoked when an auction's deadline passes
type ExpiryHandler func(auctionID int64)

type timerEntry struct {
	generation uint64
	endsAt     time.Time
	cancel     func()
}

// SnipeScheduler holds at most one live deadline per auction. Every change
// goes through cancel-then-replace; a fire from a superseded generation is
// dropped.
type SnipeScheduler struct {
	mu         sync.Mutex
	timers     Timers
	entries    map[int64]*timerEntry
	generation uint64
	onExpire   ExpiryHandler
	now        func() time.Time
	stopped    bool
}

// NewSnipeScheduler creates a scheduler backed by timers
func NewSnipeScheduler(timers Timers) *SnipeScheduler {
	return &SnipeScheduler{
		timers:  timers,
		entries: make(map[int64]*timerEntry),
		now:     time.Now,
	}
}

// SetExpiryHandler installs the callback run when a deadline passes
func (s *SnipeScheduler) SetExpiryHandler(handler ExpiryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = handler
}

// Schedule arms the auction's deadline at the given time, replacing any
// earlier one. A deadline already in the past fires right away.
func (s *SnipeScheduler) Schedule(auctionID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	s.cancelLocked(auctionID)

	s.generation++
	gen := s.generation
	entry := &timerEntry{generation: gen, endsAt: at}

	if !at.After(s.now()) {
		s.entries[auctionID] = entry
		go s.fire(auctionID, gen)
		return nil
	}

	cancel, err := s.timers.Schedule(at, func() { s.fire(auctionID, gen) })
	if err != nil {
		return err
	}
	entry.cancel = cancel
	s.entries[auctionID] = entry

	log.WithFields(log.Fields{
		"auctionID": auctionID,
		"endsAt":    at,
	}).Debug("Auction deadline armed")
	return nil
}

// Cancel drops the auction's deadline. It reports whether one was pending.
func (s *SnipeScheduler) Cancel(auctionID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(auctionID)
}

// Pending returns the armed deadline for an auction
func (s *SnipeScheduler) Pending(auctionID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[auctionID]
	if !ok {
		return time.Time{}, false
	}
	return entry.endsAt, true
}

// Len returns the number of armed deadlines
func (s *SnipeScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stop cancels every deadline and refuses new ones
func (s *SnipeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.entries {
		s.cancelLocked(id)
	}
	s.stopped = true
}

func (s *SnipeScheduler) cancelLocked(auctionID int64) bool {
	entry, ok := s.entries[auctionID]
	if !ok {
		return false
	}
	if entry.cancel != nil {
		entry.cancel()
	}
	delete(s.entries, auctionID)
	return true
}

func (s *SnipeScheduler) fire(auctionID int64, gen uint64) {
	s.mu.Lock()
	entry, ok := s.entries[auctionID]
	if !ok || entry.generation != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, auctionID)
	handler := s.onExpire
	s.mu.Unlock()

	if handler != nil {
		handler(auctionID)
	}
}
