package crossroads

import (
	"sync"
	"sync/atomic"
)

// Lane is the per-approach unit of state.
//
// The inbound list is filled before the run and drained only by the lane's
// arrival worker. The buffer is shared by the lane's two workers. passed and
// rejected are written only by the lane's crossing worker. The outbound list
// is appended to by the crossing workers of the other lanes.
type Lane struct {
	approach Approach

	inbound     []*Vehicle
	inboundHead int
	inboundMu   sync.Mutex

	buffer *LaneBuffer

	inc      int
	passed   atomic.Int64
	rejected atomic.Int64

	outbound   []*Vehicle
	outboundMu sync.Mutex
}

// NewLane creates an empty lane for approach a
func NewLane(a Approach, capacity int) *Lane {
	return &Lane{
		approach: a,
		buffer:   NewLaneBuffer(capacity),
	}
}

// Approach returns the approach this lane serves
func (l *Lane) Approach() Approach {
	return l.approach
}

// Buffer returns the lane's bounded buffer
func (l *Lane) Buffer() *LaneBuffer {
	return l.buffer
}

// enqueue appends v to the inbound list. Only valid before the run.
func (l *Lane) enqueue(v *Vehicle) {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	l.inbound = append(l.inbound, v)
	l.inc++
}

// nextInbound returns the head of the inbound list without removing it
func (l *Lane) nextInbound() (*Vehicle, bool) {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	if l.inboundHead == len(l.inbound) {
		return nil, false
	}
	return l.inbound[l.inboundHead], true
}

// dropInbound removes the head of the inbound list. The arrival worker calls
// it from inside the buffer's push so v is never in both places.
func (l *Lane) dropInbound() {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	l.inbound[l.inboundHead] = nil
	l.inboundHead++
}

// deliver appends v to the outbound list
func (l *Lane) deliver(v *Vehicle) {
	l.outboundMu.Lock()
	defer l.outboundMu.Unlock()
	l.outbound = append(l.outbound, v)
}

// Pending returns the number of vehicles not yet moved into the buffer
func (l *Lane) Pending() int {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	return len(l.inbound) - l.inboundHead
}

// Inc returns the number of vehicles ever enqueued on this lane
func (l *Lane) Inc() int {
	l.inboundMu.Lock()
	defer l.inboundMu.Unlock()
	return l.inc
}

// Passed returns the number of vehicles from this lane that crossed
func (l *Lane) Passed() int {
	return int(l.passed.Load())
}

// Rejected returns the number of vehicles from this lane dropped for an invalid route
func (l *Lane) Rejected() int {
	return int(l.rejected.Load())
}

// Outbound returns a copy of the vehicles that left the intersection by this approach,
// in delivery order
func (l *Lane) Outbound() []*Vehicle {
	l.outboundMu.Lock()
	defer l.outboundMu.Unlock()
	out := make([]*Vehicle, len(l.outbound))
	copy(out, l.outbound)
	return out
}

// Summary returns the lane's counters
func (l *Lane) Summary() LaneSummary {
	l.outboundMu.Lock()
	outbound := len(l.outbound)
	l.outboundMu.Unlock()
	return LaneSummary{
		Lane:     l.approach,
		Inc:      l.Inc(),
		Passed:   l.Passed(),
		Rejected: l.Rejected(),
		Pending:  l.Pending(),
		Outbound: outbound,
	}
}
