package observers

import (
	"fmt"
	"sync"

	"github.com/anggasct/crossroads"
	"golang.org/x/exp/slices"
)

// ValidationObserver checks that a run respects the intersection rules:
// no quadrant has two holders, every record follows its route, vehicles leave
// each lane in the order they were scheduled, and a clean run drains every lane.
type ValidationObserver struct {
	crossroads.BaseObserver

	holders    map[crossroads.Quadrant]int
	expected   map[crossroads.Approach][]int
	crossings  map[int]bool
	passed     int
	violations []string
	mutex      sync.RWMutex
}

// NewValidationObserver creates a new validation observer
func NewValidationObserver() *ValidationObserver {
	return &ValidationObserver{
		holders:    make(map[crossroads.Quadrant]int),
		expected:   make(map[crossroads.Approach][]int),
		crossings:  make(map[int]bool),
		violations: make([]string, 0),
	}
}

// Expect registers the schedule of a run so lane order can be checked.
// Vehicles must be given in the order they were added to the intersection.
func (o *ValidationObserver) Expect(vehicles []*crossroads.Vehicle) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	for _, v := range vehicles {
		o.expected[v.In()] = append(o.expected[v.In()], v.ID())
	}
}

// addViolation adds a violation; the caller holds the mutex
func (o *ValidationObserver) addViolation(format string, args ...interface{}) {
	o.violations = append(o.violations, fmt.Sprintf(format, args...))
}

// leave checks that v is the next scheduled vehicle of its entry lane
func (o *ValidationObserver) leave(lane crossroads.Approach, id int) {
	queue, tracked := o.expected[lane]
	if !tracked {
		return
	}
	if len(queue) == 0 {
		o.addViolation("vehicle %d left %s lane which has no scheduled vehicles left", id, lane)
		return
	}
	if queue[0] != id {
		o.addViolation("vehicle %d left %s lane ahead of vehicle %d", id, lane, queue[0])
		if i := slices.Index(queue, id); i >= 0 {
			o.expected[lane] = slices.Delete(queue, i, i+1)
		}
		return
	}
	o.expected[lane] = queue[1:]
}

// OnQuadrantsAcquired checks that no quadrant of path is already held
func (o *ValidationObserver) OnQuadrantsAcquired(v *crossroads.Vehicle, path crossroads.Path) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	for _, q := range path {
		if holder, held := o.holders[q]; held {
			o.addViolation("vehicle %d acquired %s while vehicle %d held it", v.ID(), q, holder)
		}
		o.holders[q] = v.ID()
	}
}

// OnQuadrantsReleased clears the holders of path
func (o *ValidationObserver) OnQuadrantsReleased(v *crossroads.Vehicle, path crossroads.Path) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	for _, q := range path {
		if holder, held := o.holders[q]; !held || holder != v.ID() {
			o.addViolation("vehicle %d released %s which it did not hold", v.ID(), q)
			continue
		}
		delete(o.holders, q)
	}
}

// OnCrossing checks the record against the route table and the holders
func (o *ValidationObserver) OnCrossing(rec crossroads.Record) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.crossings[rec.VehicleID] {
		o.addViolation("vehicle %d crossed twice", rec.VehicleID)
	}
	o.crossings[rec.VehicleID] = true
	o.passed++

	want, err := crossroads.ComputePath(rec.In, rec.Out)
	if err != nil {
		o.addViolation("vehicle %d crossed on an invalid route: %v", rec.VehicleID, err)
	} else if !slices.Equal(want, rec.Path) {
		o.addViolation("vehicle %d crossed %s -> %s via %s, expected %s", rec.VehicleID, rec.In, rec.Out, rec.Path, want)
	}

	for _, q := range rec.Path {
		if holder, held := o.holders[q]; held && holder != rec.VehicleID {
			o.addViolation("vehicle %d crossed through %s held by vehicle %d", rec.VehicleID, q, holder)
		}
	}

	o.leave(rec.In, rec.VehicleID)
}

// OnVehicleRejected counts a dropped vehicle as having left its lane
func (o *ValidationObserver) OnVehicleRejected(v *crossroads.Vehicle, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.leave(v.In(), v.ID())
}

// OnRunStopped checks that a clean run drained every lane
func (o *ValidationObserver) OnRunStopped(summary crossroads.Summary, err error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if len(o.holders) > 0 {
		o.addViolation("%d quadrants still held after the run stopped", len(o.holders))
	}
	if summary.Passed() != o.passed {
		o.addViolation("summary reports %d crossings, observed %d", summary.Passed(), o.passed)
	}
	if err != nil {
		return
	}
	for _, lane := range summary.Lanes {
		if !lane.Drained() {
			o.addViolation("%s lane not drained: %d enqueued, %d crossed, %d rejected",
				lane.Lane, lane.Inc, lane.Passed, lane.Rejected)
		}
		if lane.Pending != 0 {
			o.addViolation("%s lane finished with %d vehicles still waiting", lane.Lane, lane.Pending)
		}
	}
}

// GetViolations returns all violations
func (o *ValidationObserver) GetViolations() []string {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return slices.Clone(o.violations)
}

// HasViolations returns true if there are any violations
func (o *ValidationObserver) HasViolations() bool {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return len(o.violations) > 0
}

// Reset clears all violations and tracked state
func (o *ValidationObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.holders = make(map[crossroads.Quadrant]int)
	o.expected = make(map[crossroads.Approach][]int)
	o.crossings = make(map[int]bool)
	o.passed = 0
	o.violations = make([]string, 0)
}
