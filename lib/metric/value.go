// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"fmt"
	"strconv"
)

// Kind discriminates the Value union. The set is closed: the evaluator
// switches over all four kinds and treats any cross-kind comparison as
// false, so adding a kind is a deliberate engine change, not a silent
// fallthrough.
type Kind int

const (
	// KindAbsent means no value was collected for the key. Comparisons
	// against Absent are false, never errors.
	KindAbsent Kind = iota
	// KindNumber is a real number (percentages, megabytes, dBm, ...).
	KindNumber
	// KindBool is a boolean signal (wifi_connected, steam_running, ...).
	KindBool
	// KindText is a free-form string (filesystem type, GPU vendor, ...).
	KindText
)

// Value is one metric reading. The zero Value is Absent.
type Value struct {
	kind    Kind
	number  float64
	boolean bool
	text    string
}

// Absent returns the Absent value. Equivalent to the zero Value; the
// constructor exists so call sites read as what they mean.
func Absent() Value { return Value{} }

// Number returns a numeric Value.
func Number(v float64) Value { return Value{kind: KindNumber, number: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, boolean: v} }

// Text returns a text Value.
func Text(v string) Value { return Value{kind: KindText, text: v} }

// Kind reports which member of the union this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsAbsent reports whether the Value is Absent.
func (v Value) IsAbsent() bool { return v.kind == KindAbsent }

// AsNumber returns the numeric content. The second result is false
// when the Value is not a Number.
func (v Value) AsNumber() (float64, bool) {
	return v.number, v.kind == KindNumber
}

// AsBool returns the boolean content. The second result is false when
// the Value is not a Bool.
func (v Value) AsBool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

// AsText returns the text content. The second result is false when the
// Value is not Text.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// String renders the Value for logs and debug output.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindText:
		return v.text
	default:
		return "(absent)"
	}
}

// GoString makes %#v output readable in test failures.
func (v Value) GoString() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("metric.Number(%v)", v.number)
	case KindBool:
		return fmt.Sprintf("metric.Bool(%v)", v.boolean)
	case KindText:
		return fmt.Sprintf("metric.Text(%q)", v.text)
	default:
		return "metric.Absent()"
	}
}
