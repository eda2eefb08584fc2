// Copyright 2026 The Why Authors
// SPDX-License-Identifier: Apache-2.0

// Package numparse converts locale-ambiguous numeric text into a
// canonical float64. Vendor tools and sysfs neighbors disagree on
// whether "," or "." is the decimal separator; on PT/DE/FR systems a
// tool that ignores LC_ALL=C will happily print "1.234,56". Parse is a
// pure function of its input — it never consults the process locale,
// so behavior cannot vary with the host environment.
package numparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotANumber is wrapped by all Parse failures. Call sites in the
// collectors convert the failure to an Absent metric; it is never
// fatal.
var ErrNotANumber = errors.New("not a number")

// Parse normalizes raw and returns its value.
//
// If both "." and "," appear, the rightmost of the two is the decimal
// separator and every occurrence of the other is removed as a grouping
// separator. If only one of the two appears, it is treated as a
// grouping separator only when the digits around it form canonical
// thousands groups (exactly three digits after each occurrence, no
// fractional tail); otherwise it is the decimal separator.
func Parse(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("empty input: %w", ErrNotANumber)
	}

	sign := ""
	body := trimmed
	if body[0] == '+' || body[0] == '-' {
		sign = body[:1]
		body = body[1:]
	}
	if body == "" {
		return 0, fmt.Errorf("%q: %w", raw, ErrNotANumber)
	}

	lastDot := strings.LastIndexByte(body, '.')
	lastComma := strings.LastIndexByte(body, ',')

	var normalized string
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: rightmost is decimal, the other is grouping.
		if lastDot > lastComma {
			normalized = strings.ReplaceAll(body, ",", "")
		} else {
			normalized = strings.ReplaceAll(body, ".", "")
			normalized = strings.Replace(normalized, ",", ".", 1)
		}
	case lastDot >= 0:
		normalized = resolveSingleSeparator(body, '.')
	case lastComma >= 0:
		normalized = resolveSingleSeparator(body, ',')
		normalized = strings.Replace(normalized, ",", ".", 1)
	default:
		normalized = body
	}

	for _, r := range normalized {
		if (r < '0' || r > '9') && r != '.' {
			return 0, fmt.Errorf("%q: %w", raw, ErrNotANumber)
		}
	}
	if strings.Count(normalized, ".") > 1 {
		return 0, fmt.Errorf("%q: %w", raw, ErrNotANumber)
	}

	value, err := strconv.ParseFloat(sign+normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, ErrNotANumber)
	}
	return value, nil
}

// resolveSingleSeparator decides whether the single separator character
// in body is a grouping separator (and removes every occurrence) or the
// decimal separator (and leaves body untouched, keeping only its last
// occurrence meaningful — multiple occurrences force grouping).
//
// Grouping requires canonical form: every group after the first
// separator has exactly three digits, and the leading group has one to
// three. "1,234" and "1,234,567" group; "12,5" and "1234,5" do not.
func resolveSingleSeparator(body string, sep byte) string {
	groups := strings.Split(body, string(sep))
	canonical := len(groups) >= 2 && len(groups[0]) >= 1 && len(groups[0]) <= 3
	for _, group := range groups[1:] {
		if len(group) != 3 {
			canonical = false
			break
		}
	}
	if canonical {
		for _, group := range groups {
			for i := 0; i < len(group); i++ {
				if group[i] < '0' || group[i] > '9' {
					canonical = false
				}
			}
		}
	}
	if canonical {
		return strings.ReplaceAll(body, string(sep), "")
	}
	return body
}
