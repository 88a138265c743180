package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoReferenceShape = errors.New("no reference shape")
	ErrInvalidGeometry  = errors.New("invalid geometry")
	ErrHostCall         = errors.New("host call failed")
	ErrDialogTimeout    = errors.New("guarded call did not return")
)

// NoReferenceShapeError is returned when spacing, relative placement or a
// shape query needs a last-shape record and none exists in the sketch.
type NoReferenceShapeError struct {
	Op string
}

func (e *NoReferenceShapeError) Error() string {
	return fmt.Sprintf("%s: no shape has been drawn in the active sketch yet", e.Op)
}

func (e *NoReferenceShapeError) Is(target error) bool { return target == ErrNoReferenceShape }

// InvalidGeometryError reports degenerate or contradictory shape parameters.
// It is always raised before anything is sent to the host.
type InvalidGeometryError struct {
	Kind   ShapeKind
	Reason string
}

func (e *InvalidGeometryError) Error() string {
	if e.Kind == "" {
		return "invalid geometry: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Reason)
}

func (e *InvalidGeometryError) Is(target error) bool { return target == ErrInvalidGeometry }

// Invalid is shorthand for building an InvalidGeometryError.
func Invalid(kind ShapeKind, format string, args ...any) error {
	return &InvalidGeometryError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// HostCallError wraps a failure reported by the CAD host. The host's own
// message is kept verbatim.
type HostCallError struct {
	Op  string
	Err error
}

func (e *HostCallError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *HostCallError) Unwrap() error { return e.Err }

func (e *HostCallError) Is(target error) bool { return target == ErrHostCall }

// HostFailure builds a HostCallError from a message.
func HostFailure(op, format string, args ...any) error {
	return &HostCallError{Op: op, Err: fmt.Errorf(format, args...)}
}

// DialogTimeoutError is the hung-call diagnostic: no dialog was found within
// the detection window and the guarded call still had not returned afterwards.
type DialogTimeoutError struct {
	Op      string
	Elapsed time.Duration
	Polls   int
}

func (e *DialogTimeoutError) Error() string {
	return fmt.Sprintf("%s: no dialog detected after %d polls and the call is still running after %s; the host may need operator attention",
		e.Op, e.Polls, e.Elapsed.Round(time.Millisecond))
}

func (e *DialogTimeoutError) Is(target error) bool { return target == ErrDialogTimeout }
