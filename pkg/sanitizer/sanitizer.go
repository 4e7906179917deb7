package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reWhitespace    = regexp.MustCompile(`\s+`)
	reMultiSep      = regexp.MustCompile(`_+`)
	reIdentifierBad = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func lower(s string) string {
	return strings.ToLower(s)
}

func collapseWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, " ")
}

func removeWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, "")
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Text cleans human-written text such as a cancellation reason: control
// characters are dropped and runs of whitespace become a single space.
func Text(input string) string {
	p := Pipeline{
		dropControl,
		collapseWhitespace,
		trim,
	}
	return p.Apply(input)
}

// Identifier keeps letters, digits, dashes and underscores. IDs are case
// sensitive so the case is preserved.
func Identifier(input string) string {
	p := Pipeline{
		trim,
		func(s string) string { return reIdentifierBad.ReplaceAllString(s, "") },
	}
	return p.Apply(input)
}

// Pattern lowercases a recurrence pattern, strips all whitespace and
// collapses repeated separators, so "Weekly__1_ Mon, Wed" becomes
// "weekly_1_mon,wed".
func Pattern(input string) string {
	p := Pipeline{
		removeWhitespace,
		lower,
		func(s string) string { return reMultiSep.ReplaceAllString(s, "_") },
		func(s string) string { return strings.Trim(s, "_") },
	}
	return p.Apply(input)
}

// Reference trims an external payment reference.
func Reference(input string) string {
	p := Pipeline{
		trim,
		removeWhitespace,
	}
	return p.Apply(input)
}
