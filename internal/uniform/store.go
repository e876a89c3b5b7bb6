package uniform

import (
	"sync/atomic"
	"time"
)

// Store publishes the latest snapshot to readers outside the frame loop.
// The frame loop is the only writer.
type Store struct {
	latest      atomic.Pointer[Snapshot]
	publishedAt atomic.Int64 // unix nanos
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Publish atomically replaces the current snapshot.
func (s *Store) Publish(snap Snapshot) {
	s.latest.Store(&snap)
	s.publishedAt.Store(time.Now().UnixNano())
}

// Get returns the current snapshot, or nil before the first export.
// The returned value must not be modified.
func (s *Store) Get() *Snapshot {
	return s.latest.Load()
}

// Frame returns the frame number of the current snapshot, or 0 if none.
func (s *Store) Frame() uint64 {
	if snap := s.latest.Load(); snap != nil {
		return snap.Frame
	}
	return 0
}

// AgeSeconds returns seconds since the last publish, or -1 if none.
func (s *Store) AgeSeconds() float64 {
	ns := s.publishedAt.Load()
	if ns == 0 {
		return -1
	}
	return time.Since(time.Unix(0, ns)).Seconds()
}
