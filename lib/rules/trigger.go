// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/whydiag/why/lib/metric"
)

// Op is a comparison operator in a trigger condition.
type Op int

const (
	// OpGreater is ">".
	OpGreater Op = iota
	// OpGreaterEq is ">=".
	OpGreaterEq
	// OpLess is "<".
	OpLess
	// OpLessEq is "<=".
	OpLessEq
	// OpEqual is "=".
	OpEqual
	// OpNotEqual is "!=".
	OpNotEqual
)

// String returns the operator's source form.
func (o Op) String() string {
	switch o {
	case OpGreater:
		return ">"
	case OpGreaterEq:
		return ">="
	case OpLess:
		return "<"
	case OpLessEq:
		return "<="
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	}
	return "?"
}

// Condition is one term of a trigger. Either a comparison
// (key op literal) or, when Contains is set, a substring containment
// test (key ~ substring) against a Text value.
type Condition struct {
	Key string

	// Contains marks a "~" containment term. Substring holds the
	// needle; Op and Literal are unused.
	Contains  bool
	Substring string

	Op      Op
	Literal metric.Value
}

// String reconstructs the condition's source form.
func (c Condition) String() string {
	if c.Contains {
		return c.Key + "~" + c.Substring
	}
	return c.Key + c.Op.String() + c.Literal.String()
}

// Trigger is a compiled trigger expression: an ordered conjunction of
// conditions. There is no disjunction, no grouping, and no arithmetic —
// deliberate limits of the language, not gaps in the parser.
type Trigger struct {
	// Source is the original trigger text, kept for error reporting
	// and display.
	Source string

	// Conditions are evaluated left to right; all must hold.
	Conditions []Condition
}

// ParseTrigger compiles source into a Trigger. The grammar is
//
//	expr := term ("&&" term)*
//	term := key op literal | key "~" text
//
// with op one of > < >= <= = != and whitespace insignificant between
// tokens. Literals are true/false, a number, or bare text; they never
// reference other metric keys.
func ParseTrigger(source string) (Trigger, error) {
	terms := strings.Split(source, "&&")
	trigger := Trigger{Source: source}

	for _, term := range terms {
		condition, err := parseTerm(strings.TrimSpace(term))
		if err != nil {
			return Trigger{}, fmt.Errorf("term %q: %w", strings.TrimSpace(term), err)
		}
		trigger.Conditions = append(trigger.Conditions, condition)
	}
	if len(trigger.Conditions) == 0 {
		return Trigger{}, fmt.Errorf("empty trigger")
	}
	return trigger, nil
}

func parseTerm(term string) (Condition, error) {
	if term == "" {
		return Condition{}, fmt.Errorf("empty term")
	}

	key, rest := scanKey(term)
	if key == "" {
		return Condition{}, fmt.Errorf("missing key")
	}
	rest = strings.TrimLeft(rest, " \t")
	if rest == "" {
		return Condition{}, fmt.Errorf("missing operator")
	}

	if rest[0] == '~' {
		needle := strings.TrimSpace(rest[1:])
		if needle == "" {
			return Condition{}, fmt.Errorf("missing substring after ~")
		}
		return Condition{Key: key, Contains: true, Substring: needle}, nil
	}

	op, rest, ok := scanOp(rest)
	if !ok {
		return Condition{}, fmt.Errorf("malformed operator")
	}
	literalText := strings.TrimSpace(rest)
	if literalText == "" {
		return Condition{}, fmt.Errorf("missing literal after %s", op)
	}
	if strings.ContainsAny(literalText, "<>=!~") {
		return Condition{}, fmt.Errorf("malformed literal %q", literalText)
	}

	return Condition{Key: key, Op: op, Literal: parseLiteral(literalText)}, nil
}

// scanKey reads the leading identifier ([A-Za-z_][A-Za-z0-9_]*) and
// returns it with the unconsumed remainder.
func scanKey(term string) (string, string) {
	end := 0
	for end < len(term) {
		c := term[end]
		alpha := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		digit := c >= '0' && c <= '9'
		if !alpha && !(digit && end > 0) {
			break
		}
		end++
	}
	return term[:end], term[end:]
}

func scanOp(rest string) (Op, string, bool) {
	two := map[string]Op{">=": OpGreaterEq, "<=": OpLessEq, "!=": OpNotEqual}
	if len(rest) >= 2 {
		if op, ok := two[rest[:2]]; ok {
			return op, rest[2:], true
		}
	}
	switch rest[0] {
	case '>':
		return OpGreater, rest[1:], true
	case '<':
		return OpLess, rest[1:], true
	case '=':
		return OpEqual, rest[1:], true
	}
	return 0, "", false
}

// parseLiteral types a literal token: true/false before numbers, and
// anything non-numeric is Text. Numbers use the strict decimal form
// (triggers are authored, not scraped, so locale normalization does
// not apply here).
func parseLiteral(text string) metric.Value {
	switch text {
	case "true":
		return metric.Bool(true)
	case "false":
		return metric.Bool(false)
	}
	if number, err := strconv.ParseFloat(text, 64); err == nil {
		return metric.Number(number)
	}
	return metric.Text(text)
}
