// Package filter translates human-written filter expressions into the compact filter syntax of
// the Google Analytics reporting API.
//
// Input filters combine predicates of the form `name operator value` with && (AND) and || (OR):
//
//	sessions > 100 && country == 'Norway'
//
// which translates to:
//
//	ga:sessions>100;ga:country==Norway
//
// The grammar is flat: there is no grouping or nesting.
package filter

import (
	"strings"
)

// Namespace is the prefix the reporting API requires on metric and dimension names.
const Namespace = "ga:"

// A Stage is one step of the translation pipeline. Stages must run in the order of Stages, since
// each one relies on the output format of the previous.
type Stage struct {
	Name  string
	Apply func(filter string) string
}

var Stages = []Stage{
	{Name: "collapse-whitespace", Apply: collapseWhitespace},
	{Name: "escape-reserved", Apply: escapeReserved},
	{Name: "qualify-identifiers", Apply: qualifyIdentifiers},
	{Name: "strip-quotes", Apply: stripQuotes},
	{Name: "rewrite-operators", Apply: rewriteOperators},
}

// Normalize translates the given raw filter. If the filter is empty after translation (including
// when raw is blank), ok is false and the filter should be omitted from the request.
func Normalize(raw string) (normalized string, ok bool) {
	normalized = raw
	for _, stage := range Stages {
		normalized = stage.Apply(normalized)
	}

	if len(normalized) == 0 {
		return "", false
	}
	return normalized, true
}

type StageOutput struct {
	Stage  string `json:"stage"`
	Output string `json:"output"`
}

// Trace runs the same pipeline as Normalize, but returns the output of every stage.
func Trace(raw string) []StageOutput {
	outputs := make([]StageOutput, 0, len(Stages))

	filter := raw
	for _, stage := range Stages {
		filter = stage.Apply(filter)
		outputs = append(outputs, StageOutput{Stage: stage.Name, Output: filter})
	}

	return outputs
}

func collapseWhitespace(filter string) string {
	return strings.Join(strings.Fields(filter), " ")
}

// Escapes the API's reserved separators (',' and ';') in literal values. Separators that are
// already escaped are left alone, as are unescaped separators directly followed by a
// namespace-qualified predicate: those are separators from an already translated filter.
func escapeReserved(filter string) string {
	var builder strings.Builder
	builder.Grow(len(filter))

	for i := 0; i < len(filter); i++ {
		char := filter[i]

		switch {
		case char == '\\' && i+1 < len(filter) && isReserved(filter[i+1]):
			builder.WriteByte(char)
			builder.WriteByte(filter[i+1])
			i++
		case isReserved(char) && !startsQualifiedPredicate(filter[i+1:]):
			builder.WriteByte('\\')
			builder.WriteByte(char)
		default:
			builder.WriteByte(char)
		}
	}

	return builder.String()
}

// Prefixes bare identifiers at the start of each predicate with the namespace. Predicates start at
// the beginning of the filter, or after && or ||.
func qualifyIdentifiers(filter string) string {
	var builder strings.Builder
	builder.Grow(len(filter) + 2*len(Namespace))

	predicateStart := true
	for i := 0; i < len(filter); {
		if predicateStart {
			predicateStart = false
			if startsBarePredicate(filter[i:]) {
				builder.WriteString(Namespace)
			}
		}

		if conjunction, ok := leadingConjunction(filter[i:]); ok {
			builder.WriteString(conjunction)
			i += len(conjunction)
			for i < len(filter) && filter[i] == ' ' {
				builder.WriteByte(' ')
				i++
			}
			predicateStart = true
			continue
		}

		builder.WriteByte(filter[i])
		i++
	}

	return builder.String()
}

var quoteRemover = strings.NewReplacer("'", "", `"`, "")

// The target syntax has no quoting.
func stripQuotes(filter string) string {
	return quoteRemover.Replace(filter)
}

// Rewrites && to ';' and || to ',', and removes whitespace around those and around comparison
// operators.
func rewriteOperators(filter string) string {
	output := make([]byte, 0, len(filter))

	for i := 0; i < len(filter); {
		rest := filter[i:]

		var replacement string
		var length int
		if conjunction, ok := leadingConjunction(rest); ok {
			replacement, length = conjunctionSeparators[conjunction], len(conjunction)
		} else if operator, ok := leadingOperator(rest); ok {
			replacement = operator.String()
			length = len(replacement)
		} else {
			output = append(output, filter[i])
			i++
			continue
		}

		for len(output) > 0 && output[len(output)-1] == ' ' {
			output = output[:len(output)-1]
		}
		output = append(output, replacement...)

		i += length
		for i < len(filter) && filter[i] == ' ' {
			i++
		}
	}

	return string(output)
}

const (
	and = "&&"
	or  = "||"
)

var conjunctionSeparators = map[string]string{
	and: ";",
	or:  ",",
}

func leadingConjunction(s string) (conjunction string, ok bool) {
	switch {
	case strings.HasPrefix(s, and):
		return and, true
	case strings.HasPrefix(s, or):
		return or, true
	default:
		return "", false
	}
}

func isReserved(char byte) bool {
	return char == ',' || char == ';'
}

// Checks for a run of ASCII letters, optionally followed by a space, and then an operator.
func startsBarePredicate(s string) bool {
	end := 0
	for end < len(s) && isLetter(s[end]) {
		end++
	}
	if end == 0 {
		return false
	}

	_, ok := leadingOperator(strings.TrimPrefix(s[end:], " "))
	return ok
}

// Checks for Namespace followed by a name and an operator, e.g. "ga:sessions>".
func startsQualifiedPredicate(s string) bool {
	s, ok := strings.CutPrefix(strings.TrimPrefix(s, " "), Namespace)
	if !ok {
		return false
	}

	end := 0
	for end < len(s) && isNameChar(s[end]) {
		end++
	}
	if end == 0 {
		return false
	}

	_, ok = leadingOperator(strings.TrimPrefix(s[end:], " "))
	return ok
}

func isLetter(char byte) bool {
	return ('a' <= char && char <= 'z') || ('A' <= char && char <= 'Z')
}

func isNameChar(char byte) bool {
	return isLetter(char) || ('0' <= char && char <= '9') || char == '_'
}
