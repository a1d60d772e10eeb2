package crossroads

import (
	"fmt"
	"sync"
)

// Observer receives the completion record of every crossing
type Observer interface {
	// OnCrossing is called once per crossed vehicle while it still holds its quadrants
	OnCrossing(rec Record)
}

// ExtendedObserver provides additional optional observation methods
type ExtendedObserver interface {
	Observer

	// OnRunStarted is called before any worker starts
	OnRunStarted(info RunInfo)

	// OnRunStopped is called after every worker stopped. err is nil when all lanes drained.
	OnRunStopped(summary Summary, err error)

	// OnWorkerStateChange is called when an arrival or crossing worker changes state
	OnWorkerStateChange(lane Approach, role WorkerRole, from, to WorkerState)

	// OnVehicleQueued is called when a vehicle moves from the inbound list into the lane buffer
	OnVehicleQueued(lane Approach, v *Vehicle, occupancy int)

	// OnQuadrantsAcquired is called once every quadrant of path is held
	OnQuadrantsAcquired(v *Vehicle, path Path)

	// OnQuadrantsReleased is called just before the quadrants of path are released
	OnQuadrantsReleased(v *Vehicle, path Path)

	// OnVehicleRejected is called when a vehicle with an invalid route is dropped
	OnVehicleRejected(v *Vehicle, err error)

	// OnError is called when a run-fatal error occurs
	OnError(err error)
}

// BaseObserver provides a default implementation with no-op methods
type BaseObserver struct{}

// OnCrossing implements the required Observer method
func (o *BaseObserver) OnCrossing(rec Record) {}

// OnRunStarted implements the optional ExtendedObserver method
func (o *BaseObserver) OnRunStarted(info RunInfo) {}

// OnRunStopped implements the optional ExtendedObserver method
func (o *BaseObserver) OnRunStopped(summary Summary, err error) {}

// OnWorkerStateChange implements the optional ExtendedObserver method
func (o *BaseObserver) OnWorkerStateChange(lane Approach, role WorkerRole, from, to WorkerState) {}

// OnVehicleQueued implements the optional ExtendedObserver method
func (o *BaseObserver) OnVehicleQueued(lane Approach, v *Vehicle, occupancy int) {}

// OnQuadrantsAcquired implements the optional ExtendedObserver method
func (o *BaseObserver) OnQuadrantsAcquired(v *Vehicle, path Path) {}

// OnQuadrantsReleased implements the optional ExtendedObserver method
func (o *BaseObserver) OnQuadrantsReleased(v *Vehicle, path Path) {}

// OnVehicleRejected implements the optional ExtendedObserver method
func (o *BaseObserver) OnVehicleRejected(v *Vehicle, err error) {}

// OnError implements the optional ExtendedObserver method
func (o *BaseObserver) OnError(err error) {}

// ObserverManager fans notifications out to a collection of observers.
// A panicking observer is reported through OnError and never interrupts the
// worker that notified it, so quadrants held by that worker are always released.
type ObserverManager struct {
	observers []Observer
	mutex     sync.RWMutex
}

// NewObserverManager creates a new observer manager
func NewObserverManager() *ObserverManager {
	return &ObserverManager{
		observers: make([]Observer, 0),
	}
}

// AddObserver adds an observer to the manager
func (om *ObserverManager) AddObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	om.observers = append(om.observers, observer)
}

// RemoveObserver removes an observer from the manager
func (om *ObserverManager) RemoveObserver(observer Observer) {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	for i, obs := range om.observers {
		if obs == observer {
			om.observers = append(om.observers[:i], om.observers[i+1:]...)
			break
		}
	}
}

// Len returns the number of registered observers
func (om *ObserverManager) Len() int {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	return len(om.observers)
}

func (om *ObserverManager) snapshot() []Observer {
	om.mutex.RLock()
	defer om.mutex.RUnlock()
	observers := make([]Observer, len(om.observers))
	copy(observers, om.observers)
	return observers
}

// notify calls fn for every observer with panic recovery
func (om *ObserverManager) notify(method string, fn func(Observer)) {
	for _, observer := range om.snapshot() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if extObs, ok := observer.(ExtendedObserver); ok {
						func() {
							defer func() { recover() }()
							extObs.OnError(fmt.Errorf("observer panic in %s: %v", method, r))
						}()
					}
				}
			}()
			fn(observer)
		}()
	}
}

// notifyExtended calls fn for every ExtendedObserver with panic recovery
func (om *ObserverManager) notifyExtended(method string, fn func(ExtendedObserver)) {
	om.notify(method, func(observer Observer) {
		if extObs, ok := observer.(ExtendedObserver); ok {
			fn(extObs)
		}
	})
}

// NotifyCrossing notifies all observers of a completed crossing
func (om *ObserverManager) NotifyCrossing(rec Record) {
	om.notify("OnCrossing", func(o Observer) { o.OnCrossing(rec) })
}

// NotifyRunStarted notifies all observers that a run started
func (om *ObserverManager) NotifyRunStarted(info RunInfo) {
	om.notifyExtended("OnRunStarted", func(o ExtendedObserver) { o.OnRunStarted(info) })
}

// NotifyRunStopped notifies all observers that a run stopped
func (om *ObserverManager) NotifyRunStopped(summary Summary, err error) {
	om.notifyExtended("OnRunStopped", func(o ExtendedObserver) { o.OnRunStopped(summary, err) })
}

// NotifyWorkerStateChange notifies all observers of a worker state change
func (om *ObserverManager) NotifyWorkerStateChange(lane Approach, role WorkerRole, from, to WorkerState) {
	om.notifyExtended("OnWorkerStateChange", func(o ExtendedObserver) { o.OnWorkerStateChange(lane, role, from, to) })
}

// NotifyVehicleQueued notifies all observers that a vehicle entered a lane buffer
func (om *ObserverManager) NotifyVehicleQueued(lane Approach, v *Vehicle, occupancy int) {
	om.notifyExtended("OnVehicleQueued", func(o ExtendedObserver) { o.OnVehicleQueued(lane, v, occupancy) })
}

// NotifyQuadrantsAcquired notifies all observers that a vehicle holds its path
func (om *ObserverManager) NotifyQuadrantsAcquired(v *Vehicle, path Path) {
	om.notifyExtended("OnQuadrantsAcquired", func(o ExtendedObserver) { o.OnQuadrantsAcquired(v, path) })
}

// NotifyQuadrantsReleased notifies all observers that a vehicle is about to release its path
func (om *ObserverManager) NotifyQuadrantsReleased(v *Vehicle, path Path) {
	om.notifyExtended("OnQuadrantsReleased", func(o ExtendedObserver) { o.OnQuadrantsReleased(v, path) })
}

// NotifyVehicleRejected notifies all observers that a vehicle was dropped
func (om *ObserverManager) NotifyVehicleRejected(v *Vehicle, err error) {
	om.notifyExtended("OnVehicleRejected", func(o ExtendedObserver) { o.OnVehicleRejected(v, err) })
}

// NotifyError notifies all observers of a run-fatal error
func (om *ObserverManager) NotifyError(err error) {
	om.notifyExtended("OnError", func(o ExtendedObserver) { o.OnError(err) })
}
