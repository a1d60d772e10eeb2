package crossroads

import (
	"fmt"
	"strconv"
	"strings"
)

// Approach is one of the four fixed directions a vehicle can enter or leave by.
// The integer values are the ones used by schedule files and console records.
type Approach int

const (
	North Approach = iota
	South
	East
	West
)

// NumApproaches is the number of approaches (and lanes) of the intersection
const NumApproaches = 4

// Approaches returns all approaches in lane order
func Approaches() []Approach {
	return []Approach{North, South, East, West}
}

// Valid reports whether a is one of the four approaches
func (a Approach) Valid() bool {
	return a >= North && a <= West
}

func (a Approach) String() string {
	switch a {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	default:
		return fmt.Sprintf("approach(%d)", int(a))
	}
}

// ParseApproach parses an approach from its integer form ("0".."3"),
// its name or its initial, case-insensitively
func ParseApproach(s string) (Approach, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		a := Approach(n)
		if !a.Valid() {
			return a, fmt.Errorf("approach %d out of range", n)
		}
		return a, nil
	}

	switch strings.ToLower(s) {
	case "n", "north":
		return North, nil
	case "s", "south":
		return South, nil
	case "e", "east":
		return East, nil
	case "w", "west":
		return West, nil
	}
	return -1, fmt.Errorf("unknown approach %q", s)
}

// Quadrant is one of the four shared sub-areas of the intersection.
// Quadrants are numbered 1 to 4 counter-clockwise starting north-east.
type Quadrant int

const (
	Q1 Quadrant = iota + 1 // north-east
	Q2                     // north-west
	Q3                     // south-west
	Q4                     // south-east
)

// NumQuadrants is the number of lockable quadrants
const NumQuadrants = 4

// Quadrants returns all quadrants in ascending order
func Quadrants() []Quadrant {
	return []Quadrant{Q1, Q2, Q3, Q4}
}

// Valid reports whether q is one of the four quadrants
func (q Quadrant) Valid() bool {
	return q >= Q1 && q <= Q4
}

// Index returns the zero-based array index of q
func (q Quadrant) Index() int {
	return int(q) - 1
}

func (q Quadrant) String() string {
	return "q" + strconv.Itoa(int(q))
}
