// Package schedule reads arrival schedules for an intersection.
//
// A schedule is plain text with one vehicle per line:
//
//	<id> <in> <out>
//
// where in and out are approaches given as 0-3 (north, south, east, west) or
// by name. Blank lines and lines starting with '#' are ignored. Vehicles keep
// file order within their entry lane.
package schedule

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/anggasct/crossroads"
)

// ParseError reports a malformed schedule line
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schedule line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Parse reads every vehicle from r
func Parse(r io.Reader) ([]*crossroads.Vehicle, error) {
	var vehicles []*crossroads.Vehicle
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		v, err := parseLine(text)
		if err != nil {
			return nil, &ParseError{Line: line, Text: text, Reason: err.Error()}
		}
		vehicles = append(vehicles, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	return vehicles, nil
}

func parseLine(text string) (*crossroads.Vehicle, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return nil, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("vehicle id: %w", err)
	}
	in, err := crossroads.ParseApproach(fields[1])
	if err != nil {
		return nil, fmt.Errorf("entry: %w", err)
	}
	// exit approaches are only range-checked when the vehicle crosses, so a
	// u-turn or a bad exit is reported by the run, not the parser
	out, err := parseExit(fields[2])
	if err != nil {
		return nil, fmt.Errorf("exit: %w", err)
	}
	return crossroads.NewVehicle(id, in, out), nil
}

func parseExit(s string) (crossroads.Approach, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return crossroads.Approach(n), nil
	}
	return crossroads.ParseApproach(s)
}

// ParseFile reads every vehicle from the file at path
func ParseFile(path string) ([]*crossroads.Vehicle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Load parses r and adds every vehicle to ix
func Load(ix *crossroads.Intersection, r io.Reader) (int, error) {
	vehicles, err := Parse(r)
	if err != nil {
		return 0, err
	}
	if err := ix.Load(vehicles); err != nil {
		return 0, err
	}
	return len(vehicles), nil
}

// LoadFile parses the file at path and adds every vehicle to ix
func LoadFile(ix *crossroads.Intersection, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()
	return Load(ix, f)
}
