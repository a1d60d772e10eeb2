package crossroads

import "sync"

// LaneBuffer is the bounded FIFO between a lane's arrival and crossing workers.
// It is a fixed circular arena indexed by head and tail modulo its capacity.
type LaneBuffer struct {
	slots    []*Vehicle
	head     int
	tail     int
	count    int
	closed   bool
	halted   bool
	mutex    sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
}

// NewLaneBuffer creates an empty buffer holding at most capacity vehicles
func NewLaneBuffer(capacity int) *LaneBuffer {
	if capacity < 1 {
		panic("crossroads: lane buffer capacity must be positive")
	}
	b := &LaneBuffer{
		slots: make([]*Vehicle, capacity),
	}
	b.notFull = sync.NewCond(&b.mutex)
	b.notEmpty = sync.NewCond(&b.mutex)
	return b
}

// Push appends v at the tail, blocking while the buffer is full.
// It never overwrites a queued vehicle.
func (b *LaneBuffer) Push(v *Vehicle) error {
	return b.PushCommit(v, nil)
}

// PushCommit is Push with a commit hook. commit runs under the buffer lock
// after v is stored and before any consumer can see it, so a producer can
// retire v from its source in the same critical section.
func (b *LaneBuffer) PushCommit(v *Vehicle, commit func()) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for !b.halted && !b.closed && b.count == len(b.slots) {
		b.notFull.Wait()
	}
	if b.halted {
		return ErrHalted
	}
	if b.closed {
		return ErrBufferClosed
	}

	b.slots[b.tail] = v
	b.tail = (b.tail + 1) % len(b.slots)
	b.count++
	if commit != nil {
		commit()
	}
	b.notEmpty.Signal()
	return nil
}

// waitForHead blocks until a vehicle is queued, the buffer is closed and
// drained, or the run is halted. mutex must be held.
func (b *LaneBuffer) waitForHead() bool {
	for !b.halted && !b.closed && b.count == 0 {
		b.notEmpty.Wait()
	}
	return !b.halted && b.count > 0
}

// Peek returns the head without removing it, blocking while the buffer is
// empty. It returns false once the buffer is closed and drained or halted.
func (b *LaneBuffer) Peek() (*Vehicle, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.waitForHead() {
		return nil, false
	}
	return b.slots[b.head], true
}

// Pop removes and returns the head, blocking while the buffer is empty,
// and wakes one waiting producer
func (b *LaneBuffer) Pop() (*Vehicle, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.waitForHead() {
		return nil, false
	}
	v := b.slots[b.head]
	b.slots[b.head] = nil
	b.head = (b.head + 1) % len(b.slots)
	b.count--
	b.notFull.Signal()
	return v, true
}

// Close marks that no more vehicles will ever be pushed. Queued vehicles can
// still be popped.
func (b *LaneBuffer) Close() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.closed = true
	b.notEmpty.Broadcast()
	b.notFull.Broadcast()
}

// Halt aborts every current and future wait on the buffer
func (b *LaneBuffer) Halt() {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.halted = true
	b.notEmpty.Broadcast()
	b.notFull.Broadcast()
}

// Len returns the current occupancy
func (b *LaneBuffer) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.count
}

// Cap returns the fixed capacity
func (b *LaneBuffer) Cap() int {
	return len(b.slots)
}

// Closed reports whether Close was called
func (b *LaneBuffer) Closed() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.closed
}

// Halted reports whether Halt was called
func (b *LaneBuffer) Halted() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.halted
}
