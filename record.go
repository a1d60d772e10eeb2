package crossroads

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Record is the completion report of one crossing. It is emitted while the
// vehicle still holds its quadrants.
type Record struct {
	RunID     uuid.UUID `json:"run_id"`
	Seq       int64     `json:"seq"`
	VehicleID int       `json:"id"`
	In        Approach  `json:"in"`
	Out       Approach  `json:"out"`
	Path      Path      `json:"path"`
	Time      time.Time `json:"time"`
}

// String renders the record as "<in> <out> <id>" using integer approaches
func (r Record) String() string {
	return fmt.Sprintf("%d %d %d", int(r.In), int(r.Out), r.VehicleID)
}

// RunInfo describes a run when it starts
type RunInfo struct {
	RunID        uuid.UUID
	LaneCapacity int
	Policy       RoutePolicy
	Vehicles     int
}

// LaneSummary counts what happened on one lane
type LaneSummary struct {
	Lane     Approach
	Inc      int
	Passed   int
	Rejected int
	Pending  int
	Outbound int
}

// Drained reports whether every vehicle enqueued on the lane was handled
func (s LaneSummary) Drained() bool {
	return s.Passed+s.Rejected == s.Inc
}

// Summary counts what happened on all four lanes
type Summary struct {
	RunID uuid.UUID
	Lanes [NumApproaches]LaneSummary
}

// Passed returns the number of vehicles that crossed
func (s Summary) Passed() int {
	return lo.SumBy(s.Lanes[:], func(l LaneSummary) int { return l.Passed })
}

// Rejected returns the number of vehicles dropped for an invalid route
func (s Summary) Rejected() int {
	return lo.SumBy(s.Lanes[:], func(l LaneSummary) int { return l.Rejected })
}

// Drained reports whether every lane was drained
func (s Summary) Drained() bool {
	return lo.EveryBy(s.Lanes[:], LaneSummary.Drained)
}
