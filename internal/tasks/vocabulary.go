package tasks

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Class is the state a checkbox mark denotes.
type Class int

const (
	Incomplete Class = iota
	Complete
	Canceled
	// Unrecognized marks are task lines whose mark belongs to no configured
	// class. They are never completed, reset or moved in bulk.
	Unrecognized
)

func (c Class) String() string {
	switch c {
	case Incomplete:
		return "incomplete"
	case Complete:
		return "complete"
	case Canceled:
		return "canceled"
	}
	return "unrecognized"
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, bool) {
	for _, c := range []Class{Incomplete, Complete, Canceled, Unrecognized} {
		if c.String() == s {
			return c, true
		}
	}
	return Unrecognized, false
}

// Vocabulary partitions mark characters into classes. The sets are
// disjoint: a mark listed as incomplete is never also complete or canceled.
type Vocabulary struct {
	sets [Unrecognized]string
}

// NewVocabulary derives the mark partition from settings. A space is always
// an incomplete mark, and incomplete marks are removed from the complete and
// canceled sets.
func NewVocabulary(s Settings) Vocabulary {
	incomplete := dedupe(" " + s.IncompleteTaskValues)

	complete := "xX"
	if s.OnlyLowercaseX {
		complete = "x"
	}
	canceled := ""
	if s.SupportCanceledTasks {
		canceled = "-"
	}

	var v Vocabulary
	v.sets[Incomplete] = incomplete
	v.sets[Complete] = without(complete, incomplete)
	v.sets[Canceled] = without(canceled, incomplete)
	return v
}

// Marks returns the mark characters of one class.
func (v Vocabulary) Marks(c Class) string {
	if c < 0 || c >= Unrecognized {
		return ""
	}
	return v.sets[c]
}

// Union returns the marks of all given classes, each mark once.
func (v Vocabulary) Union(classes ...Class) string {
	var b strings.Builder
	for _, c := range classes {
		b.WriteString(v.Marks(c))
	}
	return dedupe(b.String())
}

// ClassOf returns the class of a single-character mark.
func (v Vocabulary) ClassOf(mark string) Class {
	if utf8.RuneCountInString(mark) != 1 {
		return Unrecognized
	}
	for c := Incomplete; c < Unrecognized; c++ {
		if strings.Contains(v.sets[c], mark) {
			return c
		}
	}
	return Unrecognized
}

// charClass renders marks as a regular expression character class.
func charClass(marks string) string {
	if marks == "" {
		// matches nothing
		return `[^\x00-\x{10FFFF}]`
	}
	var b strings.Builder
	b.WriteByte('[')
	for _, r := range marks {
		switch r {
		case '-':
			b.WriteString(`\-`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte(']')
	return b.String()
}

func dedupe(s string) string {
	var b strings.Builder
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		b.WriteRune(r)
	}
	return b.String()
}

func without(s, exclude string) string {
	var b strings.Builder
	for _, r := range s {
		if !strings.ContainsRune(exclude, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
