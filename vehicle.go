package crossroads

import "fmt"

// Vehicle is a single car with a fixed route. It is immutable once created.
type Vehicle struct {
	id  int
	in  Approach
	out Approach
}

// NewVehicle creates a vehicle entering from in and leaving by out.
// Routes are not validated here; invalid routes surface when the vehicle crosses.
func NewVehicle(id int, in, out Approach) *Vehicle {
	return &Vehicle{id: id, in: in, out: out}
}

// ID returns the vehicle id
func (v *Vehicle) ID() int {
	return v.id
}

// In returns the entry approach
func (v *Vehicle) In() Approach {
	return v.in
}

// Out returns the exit approach
func (v *Vehicle) Out() Approach {
	return v.out
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("vehicle %d (%s->%s)", v.id, v.in, v.out)
}
