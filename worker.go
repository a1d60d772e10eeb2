package crossroads

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerRole distinguishes the two workers of a lane
type WorkerRole int

const (
	// RoleArrival moves vehicles from the inbound list into the lane buffer
	RoleArrival WorkerRole = iota
	// RoleCrossing moves vehicles from the lane buffer across the intersection
	RoleCrossing
)

func (r WorkerRole) String() string {
	switch r {
	case RoleArrival:
		return "arrival"
	case RoleCrossing:
		return "crossing"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// WorkerState is the lifecycle state of a worker
type WorkerState int32

const (
	// Worker was created but not started
	WorkerIdle WorkerState = iota
	// Worker is processing its lane
	WorkerRunning
	// Worker ran out of input and stopped normally
	WorkerTerminated
	// Worker stopped because the run was halted
	WorkerHalted
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerTerminated:
		return "terminated"
	case WorkerHalted:
		return "halted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// workerBase carries the lifecycle shared by both workers
type workerBase struct {
	lane      *Lane
	role      WorkerRole
	observers *ObserverManager
	lifecycle *Lifecycle
}

// newWorkerBase builds the idle -> running -> terminated | halted lifecycle.
// drain fires only when drained reports true; onDrain runs as its action.
func newWorkerBase(lane *Lane, role WorkerRole, observers *ObserverManager, drained GuardFunc, onDrain ActionFunc) workerBase {
	w := workerBase{lane: lane, role: role, observers: observers}
	w.lifecycle = NewLifecycle(WorkerIdle,
		NewTransition(WorkerIdle, WorkerRunning, EventStart),
		NewTransition(WorkerRunning, WorkerTerminated, EventDrain).WithGuard(drained).WithAction(onDrain),
		NewTransition(WorkerRunning, WorkerHalted, EventHalt),
	).OnTransition(func(from, to WorkerState, _ WorkerEvent) {
		observers.NotifyWorkerStateChange(lane.approach, role, from, to)
	})
	return w
}

// State returns the worker's current state
func (w *workerBase) State() WorkerState {
	return w.lifecycle.State()
}

// Lifecycle returns the worker's state machine
func (w *workerBase) Lifecycle() *Lifecycle {
	return w.lifecycle
}

// halt moves the worker to halted and returns cause
func (w *workerBase) halt(cause error) error {
	w.lifecycle.HandleEvent(EventHalt)
	return cause
}

// drain moves the worker to terminated. It fails if the drain guard or action does.
func (w *workerBase) drain() error {
	return w.lifecycle.HandleEvent(EventDrain).Error
}

// ArrivalWorker feeds one lane's buffer from its inbound list
type ArrivalWorker struct {
	workerBase
}

// NewArrivalWorker creates the arrival worker of lane
func NewArrivalWorker(lane *Lane, observers *ObserverManager) *ArrivalWorker {
	noneLeft := func() bool { return lane.Pending() == 0 }
	closeBuffer := func() error {
		lane.buffer.Close()
		return nil
	}
	return &ArrivalWorker{
		workerBase: newWorkerBase(lane, RoleArrival, observers, noneLeft, closeBuffer),
	}
}

// Run moves vehicles one at a time from the inbound list into the buffer,
// blocking while the buffer is full. When the inbound list is exhausted it
// closes the buffer and returns nil. It returns ErrHalted if the run is halted.
func (w *ArrivalWorker) Run() error {
	if res := w.lifecycle.HandleEvent(EventStart); !res.Success() {
		return res.Error
	}
	buffer := w.lane.buffer

	for {
		v, ok := w.lane.nextInbound()
		if !ok {
			return w.drain()
		}

		if err := buffer.PushCommit(v, w.lane.dropInbound); err != nil {
			return w.halt(err)
		}
		w.observers.NotifyVehicleQueued(w.lane.approach, v, buffer.Len())
	}
}

// CrossingWorker drains one lane's buffer across the intersection
type CrossingWorker struct {
	workerBase
	lanes     *[NumApproaches]*Lane
	quadrants *QuadrantSet
	policy    RoutePolicy
	runID     uuid.UUID
	seq       *atomic.Int64
}

// NewCrossingWorker creates the crossing worker of lane. lanes is used to
// deliver vehicles to their exit lane, quadrants is the intersection's shared set.
func NewCrossingWorker(lane *Lane, lanes *[NumApproaches]*Lane, quadrants *QuadrantSet, observers *ObserverManager, policy RoutePolicy, runID uuid.UUID, seq *atomic.Int64) *CrossingWorker {
	w := &CrossingWorker{
		lanes:     lanes,
		quadrants: quadrants,
		policy:    policy,
		runID:     runID,
		seq:       seq,
	}
	w.workerBase = newWorkerBase(lane, RoleCrossing, observers, w.drained, nil)
	return w
}

// drained reports whether no more vehicles can arrive and every enqueued one was handled
func (w *CrossingWorker) drained() bool {
	l := w.lane
	return l.Pending() == 0 && l.Passed()+l.Rejected() == l.Inc()
}

// Run crosses the lane's vehicles in buffer order until the lane is drained.
// An invalid route returns a *RouteError under PolicyHalt; under PolicySkip the
// vehicle is dropped. It returns ErrHalted if the run is halted.
func (w *CrossingWorker) Run() error {
	if res := w.lifecycle.HandleEvent(EventStart); !res.Success() {
		return res.Error
	}
	buffer := w.lane.buffer

	for {
		if w.drained() {
			return w.drain()
		}

		v, ok := buffer.Peek()
		if !ok {
			if buffer.Halted() {
				return w.halt(ErrHalted)
			}
			// closed and empty: every popped vehicle was counted by this worker
			return w.drain()
		}

		path, err := ComputePath(v.In(), v.Out())
		if err != nil {
			var routeErr *RouteError
			if errors.As(err, &routeErr) {
				err = routeErr.ForVehicle(v.ID())
			}
			if w.policy == PolicySkip {
				if _, ok := buffer.Pop(); !ok {
					return w.halt(ErrHalted)
				}
				w.lane.rejected.Add(1)
				w.observers.NotifyVehicleRejected(v, err)
				continue
			}
			return w.halt(err)
		}

		w.quadrants.Acquire(v, path)
		w.observers.NotifyQuadrantsAcquired(v, path)
		err = w.cross(v, path)
		w.observers.NotifyQuadrantsReleased(v, path)
		w.quadrants.Release(path)
		if err != nil {
			return w.halt(err)
		}
		w.lane.passed.Add(1)
	}
}

// cross moves v from the buffer head to its exit lane and reports it.
// The caller holds every quadrant of path.
func (w *CrossingWorker) cross(v *Vehicle, path Path) error {
	if _, ok := w.lane.buffer.Pop(); !ok {
		return ErrHalted
	}
	w.lanes[v.Out()].deliver(v)
	w.observers.NotifyCrossing(Record{
		RunID:     w.runID,
		Seq:       w.seq.Add(1),
		VehicleID: v.ID(),
		In:        v.In(),
		Out:       v.Out(),
		Path:      path,
		Time:      time.Now(),
	})
	return nil
}
