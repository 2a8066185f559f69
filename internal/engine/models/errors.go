package models

import "fmt"

// ============================================================
// Error taxonomy
// ============================================================

// All engine failures are deterministic functions of input; nothing is
// retried internally. Handlers map these to the unified API error codes.

// MalformedGeometryError means the input is not a well-formed vector
// document: unbalanced path data, non-finite coordinates, empty document,
// missing reference measurement.
type MalformedGeometryError struct {
	Reason string
}

func (e *MalformedGeometryError) Error() string {
	return fmt.Sprintf("malformed geometry: %s", e.Reason)
}

// LandmarkNotFoundError means the piece topology does not support the
// requested edit: a required role is missing or ambiguous.
type LandmarkNotFoundError struct {
	Role   Role
	Reason string
}

func (e *LandmarkNotFoundError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("landmark not found: %s", e.Role)
	}
	return fmt.Sprintf("landmark not found: %s (%s)", e.Role, e.Reason)
}

// UnsupportedOperationError surfaces when a rule reaches the engine without
// passing the upstream operation-set check.
type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Operation)
}

// GeometryOutOfBoundsError means the requested edit would move an anchor
// past a hard geometric bound. The offending rule is identified.
type GeometryOutOfBoundsError struct {
	Operation string
	ValueCM   float64
	Reason    string
}

func (e *GeometryOutOfBoundsError) Error() string {
	return fmt.Sprintf("%s by %g cm out of bounds: %s", e.Operation, e.ValueCM, e.Reason)
}

// InvariantViolationError means a post-application sanity check failed.
// The whole rule list is rejected; partial application is never returned.
type InvariantViolationError struct {
	ElementID string
	Reason    string
}

func (e *InvariantViolationError) Error() string {
	if e.ElementID == "" {
		return fmt.Sprintf("invariant violation: %s", e.Reason)
	}
	return fmt.Sprintf("invariant violation in %s: %s", e.ElementID, e.Reason)
}
