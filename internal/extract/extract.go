// Package extract holds the site-independent parsing helpers used by the page extractors.
package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// LongDateLayout matches dates written as "14 March 2023".
const LongDateLayout = "2 January 2006"

// ISODateLayout is the storage format for dates.
const ISODateLayout = "2006-01-02"

// ParseCount parses a metrics-bar count such as "250", "12k", "1.2k" or "3,401".
// A trailing k or K multiplies by 1000.
func ParseCount(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty count")
	}

	multiplier := 1.0
	if last := s[len(s)-1]; last == 'k' || last == 'K' {
		multiplier = 1000
		s = s[:len(s)-1]
	}

	if multiplier == 1 {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid count %q: %w", s, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("invalid count %q: negative", s)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f*multiplier >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid count %qk", s)
	}
	return int64(f*multiplier + 0.5), nil
}

// ParseLongDate parses a "DD Month YYYY" date.
func ParseLongDate(s string) (time.Time, error) {
	t, err := time.Parse(LongDateLayout, strings.Join(strings.Fields(s), " "))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// NormalizeDate converts a "DD Month YYYY" date to ISO 8601 ("YYYY-MM-DD").
func NormalizeDate(s string) (string, error) {
	t, err := ParseLongDate(s)
	if err != nil {
		return "", err
	}
	return t.Format(ISODateLayout), nil
}

// ParseISODate parses the machine-readable dates found in datetime attributes.
func ParseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(ISODateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// TitleTokens splits a title on every rune that is neither a letter nor a digit,
// lowercases the pieces and drops empty ones. Repeated words are kept.
func TitleTokens(title string) []string {
	fields := strings.FieldsFunc(title, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// CleanText collapses internal whitespace and trims the result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
