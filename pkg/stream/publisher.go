// Package stream publishes intersection runs as server-sent events.
//
// Two streams are served. "crossings" carries one JSON completion record per
// crossed vehicle. "runs" carries run start and stop events. Clients select a
// stream with the stream query parameter, e.g. /events?stream=crossings.
package stream

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/anggasct/crossroads"
	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"
)

const (
	// CrossingsStream carries completion records
	CrossingsStream = "crossings"
	// RunsStream carries run lifecycle events
	RunsStream = "runs"
)

// RunStarted is the payload of a "started" event on the runs stream
type RunStarted struct {
	RunID        uuid.UUID `json:"run_id"`
	LaneCapacity int       `json:"lane_capacity"`
	Policy       string    `json:"policy"`
	Vehicles     int       `json:"vehicles"`
}

// RunStopped is the payload of a "stopped" event on the runs stream
type RunStopped struct {
	RunID    uuid.UUID `json:"run_id"`
	Passed   int       `json:"passed"`
	Rejected int       `json:"rejected"`
	Drained  bool      `json:"drained"`
	Error    string    `json:"error,omitempty"`
}

// Publisher is an observer that forwards run events to SSE clients
type Publisher struct {
	crossroads.BaseObserver

	s       *sse.Server
	dropped atomic.Int64
	onError func(error)
}

// NewPublisher creates a publisher with both streams ready
func NewPublisher() *Publisher {
	p := &Publisher{s: sse.New()}
	p.s.CreateStream(CrossingsStream)
	p.s.CreateStream(RunsStream)
	return p
}

// OnMarshalError sets a callback for events that could not be encoded
func (p *Publisher) OnMarshalError(fn func(error)) {
	p.onError = fn
}

// Dropped returns how many events were discarded because a stream was full
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) publish(stream, event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		if p.onError != nil {
			p.onError(err)
		}
		return
	}
	// never block the worker that holds the quadrants
	ok := p.s.TryPublish(stream, &sse.Event{
		Event: []byte(event),
		Data:  data,
	})
	if !ok {
		p.dropped.Add(1)
	}
}

// OnCrossing publishes the completion record
func (p *Publisher) OnCrossing(rec crossroads.Record) {
	p.publish(CrossingsStream, "crossing", rec)
}

// OnRunStarted publishes the run parameters
func (p *Publisher) OnRunStarted(info crossroads.RunInfo) {
	p.publish(RunsStream, "started", RunStarted{
		RunID:        info.RunID,
		LaneCapacity: info.LaneCapacity,
		Policy:       info.Policy.String(),
		Vehicles:     info.Vehicles,
	})
}

// OnRunStopped publishes the run outcome
func (p *Publisher) OnRunStopped(summary crossroads.Summary, err error) {
	stopped := RunStopped{
		RunID:    summary.RunID,
		Passed:   summary.Passed(),
		Rejected: summary.Rejected(),
		Drained:  summary.Drained(),
	}
	if err != nil {
		stopped.Error = err.Error()
	}
	p.publish(RunsStream, "stopped", stopped)
}

// ServeHTTP serves the event streams
func (p *Publisher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.s.ServeHTTP(w, r)
}

// Close disconnects every client and removes the streams
func (p *Publisher) Close() {
	p.s.Close()
}
