// Package dashboard shows a live terminal view of an intersection run
package dashboard

import (
	"fmt"
	"strings"
	"sync"

	"github.com/anggasct/crossroads"
	"github.com/samber/lo"
)

// DefaultHistory is the number of recent crossings a model keeps
const DefaultHistory = 12

// LaneView is the displayed state of one lane
type LaneView struct {
	Lane      crossroads.Approach
	Queued    int
	Crossed   int
	Rejected  int
	Occupancy int
	Arrival   crossroads.WorkerState
	Crossing  crossroads.WorkerState
}

// Snapshot is a consistent copy of a model
type Snapshot struct {
	Capacity int
	Vehicles int
	Running  bool
	Err      error
	Lanes    [crossroads.NumApproaches]LaneView
	// Holders maps each quadrant index to the id of the vehicle inside it
	Holders [crossroads.NumQuadrants]*int
	Recent  []crossroads.Record
}

// Model is an observer that keeps the state the dashboard draws
type Model struct {
	crossroads.BaseObserver

	mutex    sync.Mutex
	history  int
	snapshot Snapshot
}

// NewModel creates a model keeping the last history crossings
func NewModel(history int) *Model {
	if history < 1 {
		history = DefaultHistory
	}
	m := &Model{history: history}
	for _, a := range crossroads.Approaches() {
		m.snapshot.Lanes[a].Lane = a
	}
	return m
}

// Snapshot returns a copy of the current state
func (m *Model) Snapshot() Snapshot {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	s := m.snapshot
	s.Recent = append([]crossroads.Record(nil), m.snapshot.Recent...)
	for i, h := range m.snapshot.Holders {
		if h != nil {
			id := *h
			s.Holders[i] = &id
		}
	}
	return s
}

// OnRunStarted implements the ExtendedObserver method and records the run shape
func (m *Model) OnRunStarted(info crossroads.RunInfo) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.snapshot.Capacity = info.LaneCapacity
	m.snapshot.Vehicles = info.Vehicles
	m.snapshot.Running = true
}

// OnRunStopped implements the ExtendedObserver method
func (m *Model) OnRunStopped(summary crossroads.Summary, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.snapshot.Running = false
	m.snapshot.Err = err
}

// OnWorkerStateChange implements the ExtendedObserver method and tracks each worker's state
func (m *Model) OnWorkerStateChange(lane crossroads.Approach, role crossroads.WorkerRole, from, to crossroads.WorkerState) {
	if !lane.Valid() {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if role == crossroads.RoleArrival {
		m.snapshot.Lanes[lane].Arrival = to
	} else {
		m.snapshot.Lanes[lane].Crossing = to
	}
}

// OnVehicleQueued implements the ExtendedObserver method and updates lane occupancy
func (m *Model) OnVehicleQueued(lane crossroads.Approach, v *crossroads.Vehicle, occupancy int) {
	if !lane.Valid() {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	l := &m.snapshot.Lanes[lane]
	l.Queued++
	// the crossing worker may report before the arrival worker does
	l.Occupancy = lo.Max([]int{0, l.Queued - l.Crossed - l.Rejected})
}

// OnQuadrantsAcquired implements the ExtendedObserver method and marks the holder of each quadrant
func (m *Model) OnQuadrantsAcquired(v *crossroads.Vehicle, path crossroads.Path) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, q := range path {
		id := v.ID()
		m.snapshot.Holders[q.Index()] = &id
	}
}

// OnQuadrantsReleased implements the ExtendedObserver method
func (m *Model) OnQuadrantsReleased(v *crossroads.Vehicle, path crossroads.Path) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, q := range path {
		m.snapshot.Holders[q.Index()] = nil
	}
}

// OnCrossing implements the Observer interface and keeps the most recent crossings
func (m *Model) OnCrossing(rec crossroads.Record) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if rec.In.Valid() {
		l := &m.snapshot.Lanes[rec.In]
		l.Crossed++
		l.Occupancy = lo.Max([]int{0, l.Queued - l.Crossed - l.Rejected})
	}
	m.snapshot.Recent = append(m.snapshot.Recent, rec)
	if over := len(m.snapshot.Recent) - m.history; over > 0 {
		m.snapshot.Recent = m.snapshot.Recent[over:]
	}
}

// OnVehicleRejected implements the ExtendedObserver method
func (m *Model) OnVehicleRejected(v *crossroads.Vehicle, err error) {
	if !v.In().Valid() {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	l := &m.snapshot.Lanes[v.In()]
	l.Rejected++
	l.Occupancy = lo.Max([]int{0, l.Queued - l.Crossed - l.Rejected})
}

// Percent returns the lane occupancy as a percentage of capacity
func (s Snapshot) Percent(lane crossroads.Approach) int {
	if s.Capacity == 0 || !lane.Valid() {
		return 0
	}
	return lo.Clamp(s.Lanes[lane].Occupancy*100/s.Capacity, 0, 100)
}

// Crossed returns the number of crossings on all lanes
func (s Snapshot) Crossed() int {
	return lo.SumBy(s.Lanes[:], func(l LaneView) int { return l.Crossed })
}

// Status renders the one-line run status
func (s Snapshot) Status() string {
	switch {
	case s.Running:
		return fmt.Sprintf("running: %d/%d crossed", s.Crossed(), s.Vehicles)
	case s.Err != nil:
		return fmt.Sprintf("halted: %v", s.Err)
	case s.Vehicles > 0 || s.Crossed() > 0:
		return fmt.Sprintf("done: %d/%d crossed", s.Crossed(), s.Vehicles)
	default:
		return "waiting"
	}
}

// Grid renders the four quadrants as a 2x2 box, NW and NE on top
func (s Snapshot) Grid() string {
	cell := func(q crossroads.Quadrant) string {
		if h := s.Holders[q.Index()]; h != nil {
			return fmt.Sprintf("%s:%-4d", q, *h)
		}
		return fmt.Sprintf("%s:%-4s", q, "--")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s\n", cell(crossroads.Q2), cell(crossroads.Q1))
	fmt.Fprintf(&b, "%s | %s", cell(crossroads.Q3), cell(crossroads.Q4))
	return b.String()
}

// RecentRows renders the recent crossings newest first
func (s Snapshot) RecentRows() []string {
	rows := lo.Map(s.Recent, func(rec crossroads.Record, _ int) string {
		return fmt.Sprintf("#%-4d %3d  %-5s -> %-5s %s", rec.Seq, rec.VehicleID, rec.In, rec.Out, rec.Path)
	})
	return lo.Reverse(rows)
}
