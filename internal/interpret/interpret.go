package interpret

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"cutmind/internal/rules"
)

// ============================================================
// Prompt Interpretation
// ============================================================

// ErrUnsupportedInstruction means no part of the prompt mapped onto a
// supported operation.
var ErrUnsupportedInstruction = errors.New("prompt maps to no supported operation")

// mapping binds a phrase pattern to an operation and a default value used
// when the prompt gives no measurement. Patterns are tried in order and
// each contributes at most one rule, so interpretation is deterministic.
// Ease/fit bundles expand here, before the geometry engine ever sees the
// rule list.
type mapping struct {
	pattern *regexp.Regexp
	op      rules.Operation
	defCM   float64
}

var valueGroup = `(?:\s+by)?\s+(\d+(?:\.\d+)?)\s*cm`

var mappings = []mapping{
	{pat(`(?:crop|shorten|raise)(?:\s+\w+)?\s+(?:the\s+)?hem`), rules.OpCropHem, 5},
	{pat(`(?:extend|lengthen|lower|drop)(?:\s+\w+)?\s+(?:the\s+)?hem`), rules.OpExtendHem, 5},
	{pat(`(?:shorten|crop)(?:\s+\w+)?\s+(?:the\s+)?(?:body|length)`), rules.OpCropHem, 5},
	{pat(`(?:extend|lengthen)(?:\s+\w+)?\s+(?:the\s+)?(?:body|length)`), rules.OpExtendHem, 5},
	{pat(`widen(?:\s+\w+)?\s+(?:the\s+)?sleeves?`), rules.OpWidenSleeve, 3},
	{pat(`(?:narrow|tighten)(?:\s+\w+)?\s+(?:the\s+)?sleeves?`), rules.OpNarrowSleeve, 3},
	{pat(`shorten(?:\s+\w+)?\s+(?:the\s+)?sleeves?`), rules.OpShortenSleeve, 4},
	{pat(`(?:extend|lengthen)(?:\s+\w+)?\s+(?:the\s+)?sleeves?`), rules.OpExtendSleeve, 4},
	{pat(`(?:more\s+room|looser|ease)(?:\s+\w+)?\s+(?:in|for|around)?\s*(?:the\s+)?sleeves?`), rules.OpAddEaseSleeve, 2},
	{pat(`(?:looser|roomier|oversized|more\s+room|add\s+ease)`), rules.OpAddEaseBody, 2},
	{pat(`(?:tighter|slimmer|fitted|remove\s+ease|less\s+room)`), rules.OpRemoveEaseBody, 2},
	{pat(`(?:raise|higher)(?:\s+\w+)?\s+(?:the\s+)?neck(?:line)?`), rules.OpRaiseNeckline, 2},
	{pat(`(?:lower|deeper|drop)(?:\s+\w+)?\s+(?:the\s+)?neck(?:line)?`), rules.OpLowerNeckline, 2},
}

func pat(phrase string) *regexp.Regexp {
	return regexp.MustCompile(phrase + `(?:` + valueGroup + `)?`)
}

// Interpret converts a natural-language prompt into structured rules using
// the fixed phrase table. It is a deterministic stand-in for an LLM
// mapping layer: the output always validates against the supported
// operation set.
func Interpret(prompt string) ([]rules.Rule, error) {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	if normalized == "" {
		return nil, ErrUnsupportedInstruction
	}

	var out []rules.Rule
	seen := make(map[rules.Operation]struct{})

	for _, m := range mappings {
		match := m.pattern.FindStringSubmatch(normalized)
		if match == nil {
			continue
		}
		if _, dup := seen[m.op]; dup {
			continue
		}
		seen[m.op] = struct{}{}

		value := m.defCM
		if len(match) > 1 && match[1] != "" {
			if v, err := strconv.ParseFloat(match[1], 64); err == nil {
				value = v
			}
		}

		out = append(out, rules.Rule{Operation: m.op, ValueCM: value})
	}

	if len(out) == 0 {
		return nil, ErrUnsupportedInstruction
	}
	return out, nil
}
