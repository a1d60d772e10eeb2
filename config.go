package crossroads

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultLaneCapacity is the number of vehicles a lane buffer holds by default
const DefaultLaneCapacity = 10

// RoutePolicy decides what an invalid route does to the run
type RoutePolicy int

const (
	// PolicyHalt stops the whole run on the first invalid route
	PolicyHalt RoutePolicy = iota
	// PolicySkip drops the offending vehicle and keeps the run going
	PolicySkip
)

func (p RoutePolicy) String() string {
	switch p {
	case PolicyHalt:
		return "halt"
	case PolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseRoutePolicy parses "halt" or "skip"
func ParseRoutePolicy(s string) (RoutePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "halt", "":
		return PolicyHalt, nil
	case "skip":
		return PolicySkip, nil
	}
	return PolicyHalt, NewConfigurationError("RoutePolicy", fmt.Sprintf("unknown policy %q", s))
}

// Config configures an intersection
type Config struct {
	// LaneCapacity is the capacity shared by all four lane buffers
	LaneCapacity int
	// RoutePolicy decides whether an invalid route halts the run or drops the vehicle
	RoutePolicy RoutePolicy
	// RunID identifies the run in records. A random one is generated when nil.
	RunID uuid.UUID

	observers []Observer
}

// DefaultConfig returns the configuration used when no options are given
func DefaultConfig() Config {
	return Config{
		LaneCapacity: DefaultLaneCapacity,
		RoutePolicy:  PolicyHalt,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.LaneCapacity < 1 {
		return NewConfigurationError("LaneCapacity", fmt.Sprintf("must be positive, got %d", c.LaneCapacity))
	}
	if c.RoutePolicy != PolicyHalt && c.RoutePolicy != PolicySkip {
		return NewConfigurationError("RoutePolicy", fmt.Sprintf("unknown policy %d", int(c.RoutePolicy)))
	}
	return nil
}

// Option configures an intersection
type Option func(*Config)

// WithLaneCapacity sets the lane buffer capacity
func WithLaneCapacity(capacity int) Option {
	return func(c *Config) {
		c.LaneCapacity = capacity
	}
}

// WithRoutePolicy sets the invalid route policy
func WithRoutePolicy(policy RoutePolicy) Option {
	return func(c *Config) {
		c.RoutePolicy = policy
	}
}

// WithRunID sets the run id stamped on records
func WithRunID(id uuid.UUID) Option {
	return func(c *Config) {
		c.RunID = id
	}
}

// WithObserver registers an observer before the run starts
func WithObserver(observer Observer) Option {
	return func(c *Config) {
		c.observers = append(c.observers, observer)
	}
}
