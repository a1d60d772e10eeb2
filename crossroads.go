// Package crossroads simulates a four-way intersection as a concurrency problem.
//
// Vehicles queue on four lanes, one per approach. Each lane has an arrival
// worker that moves vehicles from the lane's inbound list into a bounded
// buffer, and a crossing worker that takes them out of the buffer in FIFO
// order and drives them across the intersection. A crossing vehicle holds
// every quadrant its path traverses at once; quadrants are always acquired
// in ascending order and released in reverse, so vehicles from different
// lanes can never wait on each other in a cycle.
//
// A minimal run:
//
//	ix, _ := crossroads.New(crossroads.WithObserver(reporter))
//	_ = ix.AddVehicle(crossroads.NewVehicle(1, crossroads.North, crossroads.South))
//	err := ix.Run(context.Background())
package crossroads
