// Package datefmt implements the moment-style date format patterns used for
// completion stamps: YYYY-MM-DD tokens with [bracketed] literal runs.
//
// A format is tokenized once and can then be rendered two ways: Format
// produces the stamp for a point in time, Pattern produces a regular
// expression matching any stamp the format could have produced.
package datefmt

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type piece struct {
	token   string // empty for literal text
	literal string
}

// Layout is a parsed date format.
type Layout struct {
	source string
	pieces []piece
}

// tokens are ordered longest first so that YYYY is never read as YY+YY and
// MMM never as MM+M.
var tokens = []string{
	"YYYY", "YY",
	"MMMM", "MMM", "MM", "M",
	"dddd", "ddd",
	"DD", "Do", "D",
	"HH", "H", "hh", "h",
	"mm", "m", "ss", "s",
	"A", "a",
}

var tokenPatterns = map[string]string{
	"YYYY": `\d{4}`,
	"YY":   `\d{2}`,
	"MMMM": `[A-Za-z]+`,
	"MMM":  `[A-Za-z]{3}`,
	"MM":   `\d{2}`,
	"M":    `\d{1,2}`,
	"dddd": `[A-Za-z]+`,
	"ddd":  `[A-Za-z]{3}`,
	"DD":   `\d{2}`,
	"Do":   `\d{1,2}(?:st|nd|rd|th)`,
	"D":    `\d{1,2}`,
	"HH":   `\d{2}`,
	"H":    `\d{1,2}`,
	"hh":   `\d{2}`,
	"h":    `\d{1,2}`,
	"mm":   `\d{2}`,
	"m":    `\d{1,2}`,
	"ss":   `\d{2}`,
	"s":    `\d{1,2}`,
	"A":    `(?:AM|PM)`,
	"a":    `(?:am|pm)`,
}

// Parse tokenizes a date format. Text inside square brackets is literal;
// a doubled closing bracket ("[[x]]") keeps the inner bracket pair.
func Parse(format string) Layout {
	l := Layout{source: format}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			l.pieces = append(l.pieces, piece{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); {
		if format[i] == '[' {
			if end := strings.IndexByte(format[i+1:], ']'); end >= 0 {
				stop := i + 1 + end
				if stop+1 < len(format) && format[stop+1] == ']' {
					stop++
				}
				lit.WriteString(format[i+1 : stop])
				i = stop + 1
				continue
			}
		}
		if tok := tokenAt(format[i:]); tok != "" {
			flush()
			l.pieces = append(l.pieces, piece{token: tok})
			i += len(tok)
			continue
		}
		lit.WriteByte(format[i])
		i++
	}
	flush()
	return l
}

func tokenAt(s string) string {
	for _, tok := range tokens {
		if strings.HasPrefix(s, tok) {
			return tok
		}
	}
	return ""
}

// String returns the original format.
func (l Layout) String() string {
	return l.source
}

// IsZero reports whether the layout was built from an empty format.
func (l Layout) IsZero() bool {
	return len(l.pieces) == 0
}

// Format renders t according to the layout.
func (l Layout) Format(t time.Time) string {
	var b strings.Builder
	for _, p := range l.pieces {
		if p.token == "" {
			b.WriteString(p.literal)
			continue
		}
		b.WriteString(formatToken(p.token, t))
	}
	return b.String()
}

// Pattern returns an unanchored regular expression matching the output of
// Format for any time value.
func (l Layout) Pattern() string {
	var b strings.Builder
	for _, p := range l.pieces {
		if p.token == "" {
			b.WriteString(regexp.QuoteMeta(p.literal))
			continue
		}
		b.WriteString(tokenPatterns[p.token])
	}
	return b.String()
}

func formatToken(tok string, t time.Time) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return fmt.Sprintf("%d", int(t.Month()))
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "Do":
		return ordinal(t.Day())
	case "D":
		return fmt.Sprintf("%d", t.Day())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return fmt.Sprintf("%d", t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", hour12(t))
	case "h":
		return fmt.Sprintf("%d", hour12(t))
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "m":
		return fmt.Sprintf("%d", t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return fmt.Sprintf("%d", t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	}
	return tok
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 10 {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	if n%100 >= 11 && n%100 <= 13 {
		suffix = "th"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
