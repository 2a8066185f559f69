package rules

import (
	"fmt"
	"math"
)

// ============================================================
// Operations
// ============================================================

// Operation is one of the fixed set of parametric pattern edits.
type Operation string

const (
	// Body length / hem
	OpCropHem          Operation = "crop_hem"
	OpExtendHem        Operation = "extend_hem"
	OpAdjustBodyLength Operation = "adjust_body_length"

	// Body ease
	OpAddEaseBody    Operation = "add_ease_body"
	OpRemoveEaseBody Operation = "remove_ease_body"

	// Sleeves
	OpWidenSleeve   Operation = "widen_sleeve"
	OpNarrowSleeve  Operation = "narrow_sleeve"
	OpShortenSleeve Operation = "shorten_sleeve"
	OpExtendSleeve  Operation = "extend_sleeve"
	OpAddEaseSleeve Operation = "add_ease_sleeve"

	// Neckline
	OpRaiseNeckline Operation = "raise_neckline"
	OpLowerNeckline Operation = "lower_neckline"
)

// All lists every supported operation. The transform registry must cover
// exactly this set.
var All = []Operation{
	OpCropHem,
	OpExtendHem,
	OpAdjustBodyLength,
	OpAddEaseBody,
	OpRemoveEaseBody,
	OpWidenSleeve,
	OpNarrowSleeve,
	OpShortenSleeve,
	OpExtendSleeve,
	OpAddEaseSleeve,
	OpRaiseNeckline,
	OpLowerNeckline,
}

var allowed = func() map[Operation]struct{} {
	m := make(map[Operation]struct{}, len(All))
	for _, op := range All {
		m[op] = struct{}{}
	}
	return m
}()

// Valid reports whether op is a supported operation.
func (o Operation) Valid() bool {
	_, ok := allowed[o]
	return ok
}

// ============================================================
// Rules
// ============================================================

// Rule is one parametric edit. Rules are immutable values; order in a rule
// list is significant because edits compose additively.
type Rule struct {
	Operation Operation `json:"operation"`
	ValueCM   float64   `json:"value_cm"`
}

// ValidationError describes the first invalid rule in a list.
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid rules: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rule at index %d: %s", e.Index, e.Reason)
}

// Validate checks a rule list against the supported operation set. The
// geometry engine trusts rules that pass this check, but still re-validates
// geometric bounds itself.
func Validate(list []Rule) error {
	if len(list) == 0 {
		return &ValidationError{Index: -1, Reason: "rules list cannot be empty"}
	}

	for i, r := range list {
		if r.Operation == "" {
			return &ValidationError{Index: i, Reason: "operation cannot be empty"}
		}
		if !r.Operation.Valid() {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("unsupported operation: %s", r.Operation)}
		}
		if math.IsNaN(r.ValueCM) || math.IsInf(r.ValueCM, 0) {
			return &ValidationError{Index: i, Reason: "value_cm must be finite"}
		}
	}

	return nil
}
