package crossroads

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestObserver records every notification and checks quadrant exclusion as it goes
type TestObserver struct {
	BaseObserver

	mutex       sync.Mutex
	Records     []Record
	Queued      []*Vehicle
	Rejected    []*Vehicle
	Errors      []error
	States      []StateChange
	Started     []RunInfo
	Stopped     []error
	Violations  []string
	holders     [NumQuadrants]*Vehicle
	active      int
	MaxParallel int
}

type StateChange struct {
	Lane Approach
	Role WorkerRole
	From WorkerState
	To   WorkerState
}

// NewTestObserver creates a new test observer
func NewTestObserver() *TestObserver {
	return &TestObserver{}
}

func (o *TestObserver) OnCrossing(rec Record) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Records = append(o.Records, rec)
	for _, q := range rec.Path {
		if h := o.holders[q.Index()]; h == nil || h.ID() != rec.VehicleID {
			o.Violations = append(o.Violations, fmt.Sprintf("vehicle %d reported without holding %s", rec.VehicleID, q))
		}
	}
}

func (o *TestObserver) OnRunStarted(info RunInfo) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Started = append(o.Started, info)
}

func (o *TestObserver) OnRunStopped(summary Summary, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Stopped = append(o.Stopped, err)
}

func (o *TestObserver) OnWorkerStateChange(lane Approach, role WorkerRole, from, to WorkerState) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.States = append(o.States, StateChange{Lane: lane, Role: role, From: from, To: to})
}

func (o *TestObserver) OnVehicleQueued(lane Approach, v *Vehicle, occupancy int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Queued = append(o.Queued, v)
}

func (o *TestObserver) OnQuadrantsAcquired(v *Vehicle, path Path) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	for _, q := range path {
		if h := o.holders[q.Index()]; h != nil {
			o.Violations = append(o.Violations, fmt.Sprintf("%s held by %d and %d", q, h.ID(), v.ID()))
		}
		o.holders[q.Index()] = v
	}
	o.active++
	if o.active > o.MaxParallel {
		o.MaxParallel = o.active
	}
}

func (o *TestObserver) OnQuadrantsReleased(v *Vehicle, path Path) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	for _, q := range path {
		if h := o.holders[q.Index()]; h != v {
			o.Violations = append(o.Violations, fmt.Sprintf("%s released by %d but not held by it", q, v.ID()))
		}
		o.holders[q.Index()] = nil
	}
	o.active--
}

func (o *TestObserver) OnVehicleRejected(v *Vehicle, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Rejected = append(o.Rejected, v)
}

func (o *TestObserver) OnError(err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.Errors = append(o.Errors, err)
}

// RecordsFrom returns the records of vehicles that entered from lane, in report order
func (o *TestObserver) RecordsFrom(lane Approach) []Record {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	var out []Record
	for _, r := range o.Records {
		if r.In == lane {
			out = append(out, r)
		}
	}
	return out
}

// RecordCount returns the number of crossings recorded so far
func (o *TestObserver) RecordCount() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return len(o.Records)
}

// runWithTimeout runs ix and fails the test if it does not stop in time
func runWithTimeout(t *testing.T, ix *Intersection, timeout time.Duration) error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- ix.Run(context.Background())
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		t.Fatalf("run did not terminate within %s", timeout)
		return nil
	}
}
