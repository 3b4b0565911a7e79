package state

import (
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/five82/foreman/internal/session"
)

// Snapshot is the latest session health seen by the heartbeat.
type Snapshot struct {
	Session             session.Snapshot
	Expired             bool
	LastChecked         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline reports whether the backend has been unreachable for several
// heartbeats in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records one heartbeat. When err is non-nil the previous session data
// is kept and the failure is counted.
func (s *Store) Update(sess session.Snapshot, expired bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastChecked = time.Now()
	s.snapshot.Expired = expired
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Session = cloneSession(sess)
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Reset forgets everything, e.g. after logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = Snapshot{}
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Session = cloneSession(s.snapshot.Session)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneSession(in session.Snapshot) session.Snapshot {
	out := in
	if in.Profile != nil {
		out.Profile = maps.Clone(in.Profile)
	}
	if in.Claims != nil {
		c := *in.Claims
		out.Claims = &c
	}
	return out
}
