package crossroads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Intersection owns the four lanes, the shared quadrant set and the workers
// that drive them. An intersection is loaded once and run once.
type Intersection struct {
	config    Config
	runID     uuid.UUID
	lanes     [NumApproaches]*Lane
	quadrants *QuadrantSet
	observers *ObserverManager

	ids     map[int]struct{}
	idsMu   sync.Mutex
	seq     atomic.Int64
	started atomic.Bool

	arrivals  [NumApproaches]*ArrivalWorker
	crossings [NumApproaches]*CrossingWorker
}

// New creates an empty intersection
func New(opts ...Option) (*Intersection, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	runID := config.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}

	ix := &Intersection{
		config:    config,
		runID:     runID,
		quadrants: NewQuadrantSet(),
		observers: NewObserverManager(),
		ids:       make(map[int]struct{}),
	}
	for _, a := range Approaches() {
		ix.lanes[a] = NewLane(a, config.LaneCapacity)
	}
	for _, a := range Approaches() {
		lane := ix.lanes[a]
		ix.arrivals[a] = NewArrivalWorker(lane, ix.observers)
		ix.crossings[a] = NewCrossingWorker(lane, &ix.lanes, ix.quadrants, ix.observers, config.RoutePolicy, runID, &ix.seq)
	}
	for _, o := range config.observers {
		ix.observers.AddObserver(o)
	}
	return ix, nil
}

// Config returns the configuration the intersection was created with
func (ix *Intersection) Config() Config {
	return ix.config
}

// RunID returns the id stamped on every record of this intersection's run
func (ix *Intersection) RunID() uuid.UUID {
	return ix.runID
}

// Lane returns the lane of approach a
func (ix *Intersection) Lane(a Approach) *Lane {
	if !a.Valid() {
		return nil
	}
	return ix.lanes[a]
}

// Quadrants returns the shared quadrant set
func (ix *Intersection) Quadrants() *QuadrantSet {
	return ix.quadrants
}

// AddObserver registers an observer
func (ix *Intersection) AddObserver(observer Observer) {
	ix.observers.AddObserver(observer)
}

// RemoveObserver unregisters an observer
func (ix *Intersection) RemoveObserver(observer Observer) {
	ix.observers.RemoveObserver(observer)
}

// AddVehicle appends v to the inbound list of its entry lane.
// Vehicles can only be added before Run.
func (ix *Intersection) AddVehicle(v *Vehicle) error {
	if ix.started.Load() {
		return fmt.Errorf("add vehicle %d: %w", v.ID(), ErrAlreadyRun)
	}
	if !v.In().Valid() {
		return NewLoadError(ErrCodeInvalidApproach, v.ID(), fmt.Sprintf("entry approach %d out of range", int(v.In())))
	}

	ix.idsMu.Lock()
	if _, dup := ix.ids[v.ID()]; dup {
		ix.idsMu.Unlock()
		return NewLoadError(ErrCodeInvalidVehicle, v.ID(), "duplicate vehicle id")
	}
	ix.ids[v.ID()] = struct{}{}
	ix.idsMu.Unlock()

	ix.lanes[v.In()].enqueue(v)
	return nil
}

// Load adds every vehicle in order, stopping at the first error
func (ix *Intersection) Load(vehicles []*Vehicle) error {
	for _, v := range vehicles {
		if err := ix.AddVehicle(v); err != nil {
			return err
		}
	}
	return nil
}

// Vehicles returns the number of vehicles loaded
func (ix *Intersection) Vehicles() int {
	ix.idsMu.Lock()
	defer ix.idsMu.Unlock()
	return len(ix.ids)
}

// Summary returns the per-lane counters
func (ix *Intersection) Summary() Summary {
	s := Summary{RunID: ix.runID}
	for _, a := range Approaches() {
		s.Lanes[a] = ix.lanes[a].Summary()
	}
	return s
}

// WorkerState returns the state of one of the eight workers
func (ix *Intersection) WorkerState(lane Approach, role WorkerRole) WorkerState {
	if !lane.Valid() {
		return WorkerIdle
	}
	switch role {
	case RoleArrival:
		return ix.arrivals[lane].State()
	case RoleCrossing:
		return ix.crossings[lane].State()
	}
	return WorkerIdle
}

// Run starts an arrival and a crossing worker per lane and waits for all
// eight to stop. It returns nil once every lane is drained. A run-fatal error
// (an invalid route under PolicyHalt, or ctx being cancelled) halts every
// lane and is returned as a *RunError.
func (ix *Intersection) Run(ctx context.Context) error {
	if !ix.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	ix.observers.NotifyRunStarted(RunInfo{
		RunID:        ix.runID,
		LaneCapacity: ix.config.LaneCapacity,
		Policy:       ix.config.RoutePolicy,
		Vehicles:     ix.Vehicles(),
	})

	var (
		failMu    sync.Mutex
		failure   error
		failedOn  Approach
		waitGroup sync.WaitGroup
	)
	fail := func(lane Approach, err error) {
		failMu.Lock()
		defer failMu.Unlock()
		if failure != nil {
			return
		}
		failure = err
		failedOn = lane
		ix.observers.NotifyError(err)
		ix.halt()
	}

	run := func(lane Approach, work func() error) {
		defer waitGroup.Done()
		if err := work(); err != nil && !errors.Is(err, ErrHalted) {
			fail(lane, err)
		}
	}

	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			fail(-1, fmt.Errorf("%w: %w", ErrHalted, ctx.Err()))
		case <-done:
		}
	}()

	for _, a := range Approaches() {
		waitGroup.Add(2)
		go run(a, ix.arrivals[a].Run)
		go run(a, ix.crossings[a].Run)
	}
	waitGroup.Wait()
	close(done)
	<-watcherDone

	failMu.Lock()
	var err error
	if failure != nil {
		err = &RunError{RunID: ix.runID, Lane: failedOn, Cause: failure}
	}
	failMu.Unlock()

	ix.observers.NotifyRunStopped(ix.Summary(), err)
	return err
}

// halt wakes every blocked worker and makes them stop
func (ix *Intersection) halt() {
	for _, lane := range ix.lanes {
		lane.buffer.Halt()
	}
}
