package crossroads

import (
	"strings"
)

// Path is the ascending, duplicate-free list of quadrants a crossing vehicle
// must hold at the same time
type Path []Quadrant

// routes is indexed by [in][out]. A nil entry is a u-turn.
// Vehicles drive on the right: entering from the north they start in Q2 and
// sweep counter-clockwise (Q2, Q3, Q4, Q1) until they reach the quadrant that
// borders their exit.
var routes = [NumApproaches][NumApproaches]Path{
	North: {
		South: {Q2, Q3},
		East:  {Q2, Q3, Q4},
		West:  {Q2},
	},
	South: {
		North: {Q1, Q4},
		East:  {Q4},
		West:  {Q1, Q2, Q4},
	},
	East: {
		North: {Q1},
		South: {Q1, Q2, Q3},
		West:  {Q1, Q2},
	},
	West: {
		North: {Q1, Q3, Q4},
		South: {Q3},
		East:  {Q3, Q4},
	},
}

// entryQuadrant is the quadrant a vehicle occupies first when entering from an approach
var entryQuadrant = [NumApproaches]Quadrant{North: Q2, South: Q4, East: Q1, West: Q3}

// exitQuadrant is the quadrant a vehicle occupies last when leaving by an approach
var exitQuadrant = [NumApproaches]Quadrant{North: Q1, South: Q3, East: Q4, West: Q2}

// ComputePath returns the quadrants a vehicle entering from in and leaving by
// out must hold, in ascending order. U-turns and out-of-range approaches
// return a *RouteError and no path.
func ComputePath(in, out Approach) (Path, error) {
	if !in.Valid() || !out.Valid() {
		return nil, NewInvalidApproachError(in, out)
	}
	if in == out {
		return nil, NewUTurnError(in)
	}
	route := routes[in][out]
	path := make(Path, len(route))
	copy(path, route)
	return path, nil
}

// EntryQuadrant returns the first quadrant crossed when entering from a
func EntryQuadrant(a Approach) Quadrant {
	return entryQuadrant[a]
}

// ExitQuadrant returns the quadrant bordering exit a. Every path leaving by a
// contains it, so deliveries into the same lane never overlap.
func ExitQuadrant(a Approach) Quadrant {
	return exitQuadrant[a]
}

// Contains reports whether q is part of the path
func (p Path) Contains(q Quadrant) bool {
	for _, pq := range p {
		if pq == q {
			return true
		}
	}
	return false
}

// Overlaps reports whether p and other share at least one quadrant
func (p Path) Overlaps(other Path) bool {
	for _, q := range p {
		if other.Contains(q) {
			return true
		}
	}
	return false
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, q := range p {
		parts[i] = q.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
