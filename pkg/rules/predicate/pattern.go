package predicate

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Flags is a bit set of pattern options. Flags compose with bitwise OR.
type Flags uint16

const (
	FlagIgnoreCase Flags = 1 << iota
	FlagLocale
	FlagMultiline
	FlagDotAll
	FlagUnicode
	FlagVerbose
)

var flagNames = map[string]Flags{
	"IGNORECASE": FlagIgnoreCase,
	"I":          FlagIgnoreCase,
	"LOCALE":     FlagLocale,
	"L":          FlagLocale,
	"MULTILINE":  FlagMultiline,
	"M":          FlagMultiline,
	"DOTMATCH":   FlagDotAll,
	"DOTALL":     FlagDotAll,
	"S":          FlagDotAll,
	"UNICODE":    FlagUnicode,
	"U":          FlagUnicode,
	"VERBOSE":    FlagVerbose,
	"X":          FlagVerbose,
}

var flagOrder = []struct {
	flag Flags
	name string
}{
	{FlagIgnoreCase, "IGNORECASE"},
	{FlagLocale, "LOCALE"},
	{FlagMultiline, "MULTILINE"},
	{FlagDotAll, "DOTMATCH"},
	{FlagUnicode, "UNICODE"},
	{FlagVerbose, "VERBOSE"},
}

// ParseFlags combines flag names into a Flags value. Nil entries are skipped;
// names it does not recognise are returned so the caller can warn about them.
func ParseFlags(names []*string) (Flags, []string) {
	var flags Flags
	var unknown []string
	for _, name := range names {
		if name == nil {
			continue
		}
		f, ok := flagNames[strings.ToUpper(strings.TrimSpace(*name))]
		if !ok {
			unknown = append(unknown, *name)
			continue
		}
		flags |= f
	}
	return flags, unknown
}

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String returns the flag names joined by "|".
func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, fo := range flagOrder {
		if f.Has(fo.flag) {
			parts = append(parts, fo.name)
		}
	}
	return strings.Join(parts, "|")
}

// options maps flags onto regexp2 options. LOCALE has no equivalent: Go
// strings are UTF-8 and there is no process locale to consult.
func (f Flags) options() regexp2.RegexOptions {
	var opts regexp2.RegexOptions
	if f.Has(FlagIgnoreCase) {
		opts |= regexp2.IgnoreCase
	}
	if f.Has(FlagMultiline) {
		opts |= regexp2.Multiline
	}
	if f.Has(FlagDotAll) {
		opts |= regexp2.Singleline
	}
	if f.Has(FlagVerbose) {
		opts |= regexp2.IgnorePatternWhitespace
	}
	if f.Has(FlagUnicode) {
		opts |= regexp2.Unicode
	}
	return opts
}

// Pattern reports a violation when its regular expression is found anywhere
// in the value's text form. With Invert set, a violation is reported when
// the expression is not found.
type Pattern struct {
	source string
	flags  Flags
	invert bool
	re     *regexp2.Regexp
}

// NewPattern compiles pattern once. A non-positive timeout disables the
// per-match time limit.
func NewPattern(pattern string, flags Flags, invert bool, timeout time.Duration) (*Pattern, error) {
	re, err := regexp2.Compile(pattern, flags.options())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return &Pattern{
		source: pattern,
		flags:  flags,
		invert: invert,
		re:     re,
	}, nil
}

// Kind implements Predicate.
func (p *Pattern) Kind() Kind { return KindPattern }

// Evaluate implements Predicate. Any value is accepted; non-strings are
// matched against their text form (see ToText).
func (p *Pattern) Evaluate(value any) (bool, error) {
	found, err := p.re.MatchString(ToText(value))
	if err != nil {
		return false, fmt.Errorf("pattern %q: %w", p.source, err)
	}
	return found != p.invert, nil
}

// Source returns the uncompiled pattern text.
func (p *Pattern) Source() string { return p.source }

// Flags returns the pattern flags.
func (p *Pattern) Flags() Flags { return p.flags }

// Inverted reports whether a missing match is the violation.
func (p *Pattern) Inverted() bool { return p.invert }

func (p *Pattern) String() string {
	s := fmt.Sprintf("regex /%s/", p.source)
	if p.flags != 0 {
		s += " flags=" + p.flags.String()
	}
	if p.invert {
		s += " (violation when absent)"
	}
	return s
}

func (p *Pattern) sealed() {}
