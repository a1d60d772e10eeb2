package crossroads

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode represents specific error conditions of a simulation run
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// Entry and exit approach are the same
	ErrCodeUTurn
	// An approach value is outside the four fixed directions
	ErrCodeInvalidApproach
	// Configuration is invalid
	ErrCodeInvalidConfiguration
	// A vehicle could not be loaded onto a lane
	ErrCodeInvalidVehicle
	// Intersection was already run
	ErrCodeAlreadyRun
	// Run was halted before all lanes drained
	ErrCodeHalted
	// A worker lifecycle event had no valid transition
	ErrCodeInvalidTransition
)

var (
	// ErrBufferClosed is returned when pushing into a lane buffer that will accept no more input
	ErrBufferClosed = errors.New("lane buffer closed")

	// ErrHalted is returned by blocked operations once the run has been halted
	ErrHalted = errors.New("run halted")

	// ErrAlreadyRun is returned when an intersection is loaded or run after its run started
	ErrAlreadyRun = errors.New("intersection already run")
)

// RouteError is the InvalidRoute condition: a vehicle whose (entry, exit) pair has no path
type RouteError struct {
	Code      ErrorCode
	VehicleID int
	In        Approach
	Out       Approach
	Message   string

	hasVehicle bool
}

func (e *RouteError) Error() string {
	if e.hasVehicle {
		return fmt.Sprintf("invalid route [%s->%s] for vehicle %d: %s", e.In, e.Out, e.VehicleID, e.Message)
	}
	return fmt.Sprintf("invalid route [%s->%s]: %s", e.In, e.Out, e.Message)
}

// NewUTurnError creates a route error for a vehicle leaving by the approach it entered from
func NewUTurnError(in Approach) *RouteError {
	return &RouteError{
		Code:    ErrCodeUTurn,
		In:      in,
		Out:     in,
		Message: "u-turn",
	}
}

// NewInvalidApproachError creates a route error for an out-of-range approach
func NewInvalidApproachError(in, out Approach) *RouteError {
	bad := in
	if in.Valid() {
		bad = out
	}
	return &RouteError{
		Code:    ErrCodeInvalidApproach,
		In:      in,
		Out:     out,
		Message: fmt.Sprintf("approach %d out of range", int(bad)),
	}
}

// ForVehicle returns a copy of the error attributed to vehicle id
func (e *RouteError) ForVehicle(id int) *RouteError {
	c := *e
	c.VehicleID = id
	c.hasVehicle = true
	return &c
}

// ConfigurationError represents invalid intersection configuration
type ConfigurationError struct {
	Field string
	Issue string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, issue string) *ConfigurationError {
	return &ConfigurationError{
		Field: field,
		Issue: issue,
	}
}

// LoadError represents a vehicle that cannot be placed on a lane
type LoadError struct {
	Code      ErrorCode
	VehicleID int
	Reason    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("cannot load vehicle %d: %s", e.VehicleID, e.Reason)
}

// NewLoadError creates a new load error
func NewLoadError(code ErrorCode, vehicleID int, reason string) *LoadError {
	return &LoadError{
		Code:      code,
		VehicleID: vehicleID,
		Reason:    reason,
	}
}

// TransitionError is returned when a worker lifecycle rejects an event
type TransitionError struct {
	State  WorkerState
	Event  WorkerEvent
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("worker cannot handle %q in state %s: %s", e.Event, e.State, e.Reason)
}

// NewTransitionError creates a new transition error
func NewTransitionError(state WorkerState, event WorkerEvent, reason string) *TransitionError {
	return &TransitionError{
		State:  state,
		Event:  event,
		Reason: reason,
	}
}

// RunError is returned by Intersection.Run when the run stopped before all lanes drained.
// Lane is the lane whose worker failed, or -1 when the run was cancelled from outside.
type RunError struct {
	RunID uuid.UUID
	Lane  Approach
	Cause error
}

func (e *RunError) Error() string {
	if !e.Lane.Valid() {
		return fmt.Sprintf("run %s halted: %v", e.RunID, e.Cause)
	}
	return fmt.Sprintf("run %s halted on %s lane: %v", e.RunID, e.Lane, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// IsRouteError checks if err is or wraps a RouteError
func IsRouteError(err error) bool {
	var re *RouteError
	return errors.As(err, &re)
}

// IsConfigurationError checks if err is or wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsLoadError checks if err is or wraps a LoadError
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsTransitionError checks if err is or wraps a TransitionError
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// IsRunError checks if err is or wraps a RunError
func IsRunError(err error) bool {
	var re *RunError
	return errors.As(err, &re)
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	var (
		routeErr  *RouteError
		configErr *ConfigurationError
		loadErr   *LoadError
		transErr  *TransitionError
	)
	switch {
	case errors.As(err, &routeErr):
		return routeErr.Code
	case errors.As(err, &configErr):
		return ErrCodeInvalidConfiguration
	case errors.As(err, &loadErr):
		return loadErr.Code
	case errors.As(err, &transErr):
		return ErrCodeInvalidTransition
	case errors.Is(err, ErrAlreadyRun):
		return ErrCodeAlreadyRun
	case errors.Is(err, ErrHalted):
		return ErrCodeHalted
	default:
		return ErrCodeNone
	}
}
