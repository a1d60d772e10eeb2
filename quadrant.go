package crossroads

import (
	"sync"
	"sync/atomic"
)

// QuadrantSet holds the four mutually exclusive quadrants shared by every
// crossing worker. A single set is created per intersection and handed to
// each worker explicitly.
type QuadrantSet struct {
	locks   [NumQuadrants]sync.Mutex
	holders [NumQuadrants]atomic.Pointer[Vehicle]
}

// NewQuadrantSet creates a set with every quadrant free
func NewQuadrantSet() *QuadrantSet {
	return &QuadrantSet{}
}

// Acquire locks every quadrant of path in ascending order on behalf of
// v. Acquiring in one global order is what rules out circular waits
// between lanes.
func (s *QuadrantSet) Acquire(v *Vehicle, path Path) {
	for _, q := range path {
		s.locks[q.Index()].Lock()
		s.holders[q.Index()].Store(v)
	}
}

// Release unlocks every quadrant of path in descending order
func (s *QuadrantSet) Release(path Path) {
	for i := len(path) - 1; i >= 0; i-- {
		q := path[i]
		s.holders[q.Index()].Store(nil)
		s.locks[q.Index()].Unlock()
	}
}

// Holder returns the vehicle currently holding q, or nil when q is free.
// The answer is only a snapshot.
func (s *QuadrantSet) Holder(q Quadrant) *Vehicle {
	return s.holders[q.Index()].Load()
}

// Held reports whether q is currently held
func (s *QuadrantSet) Held(q Quadrant) bool {
	return s.Holder(q) != nil
}
