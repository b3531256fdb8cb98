// Package layout compiles conversion-pattern strings into reusable log
// formatting strategies for the prism logger.
package layout

import (
	"bytes"
	"fmt"

	"github.com/Lunar-Chipter/prism/internal/core"
)

// Conversion patterns are compiled once at appender construction; malformed
// syntax fails here, never on the formatting path.
const (
	// DefaultTimestampFormat is the timestamp layout used by the %d directive.
	DefaultTimestampFormat = "2006-01-02 15:04:05.000"

	// DefaultPattern is the built-in single-line conversion pattern.
	DefaultPattern = "%d [%p] <%c> %m%n"

	// TwoLinePattern is the built-in pattern printing the message on an
	// indented continuation line.
	TwoLinePattern = "%d [%p] <%c>%n%x%m%n"

	// indentMarker is the text emitted by the %x directive.
	indentMarker = "  "

	// rootCategory is printed for the root logger's empty name.
	rootCategory = "root"
)

// ErrInvalidPattern is returned by Compile for malformed pattern syntax.
var ErrInvalidPattern = fmt.Errorf("invalid conversion pattern")

type tokenKind uint8

const (
	tokenLiteral tokenKind = iota
	tokenTimestamp
	tokenLevel
	tokenCategory
	tokenMessage
	tokenNewline
	tokenIndent
)

type token struct {
	kind tokenKind
	text string // literal text, tokenLiteral only
}

// Layout holds the compiled representation of a conversion pattern: literal
// segments interleaved with field directives. A Layout is owned exclusively
// by its appender.
type Layout struct {
	pattern string
	tokens  []token
}

// Compile parses a conversion-pattern string. Directives: %d timestamp,
// %p level, %c category, %m message, %n newline, %x indentation marker,
// %% literal percent. Anything else after a percent fails with
// ErrInvalidPattern.
func Compile(pattern string) (*Layout, error) {
	var tokens []token
	var literal bytes.Buffer

	flush := func() {
		if literal.Len() > 0 {
			tokens = append(tokens, token{kind: tokenLiteral, text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			literal.WriteByte(c)
			continue
		}
		if i+1 >= len(pattern) {
			return nil, fmt.Errorf("%w: trailing %% in %q", ErrInvalidPattern, pattern)
		}
		i++
		switch pattern[i] {
		case '%':
			literal.WriteByte('%')
			continue
		case 'd':
			flush()
			tokens = append(tokens, token{kind: tokenTimestamp})
		case 'p':
			flush()
			tokens = append(tokens, token{kind: tokenLevel})
		case 'c':
			flush()
			tokens = append(tokens, token{kind: tokenCategory})
		case 'm':
			flush()
			tokens = append(tokens, token{kind: tokenMessage})
		case 'n':
			flush()
			tokens = append(tokens, token{kind: tokenNewline})
		case 'x':
			flush()
			tokens = append(tokens, token{kind: tokenIndent})
		default:
			return nil, fmt.Errorf("%w: unknown directive %%%c in %q", ErrInvalidPattern, pattern[i], pattern)
		}
	}
	flush()

	return &Layout{pattern: pattern, tokens: tokens}, nil
}

// MustCompile compiles a built-in pattern and panics on failure. Only used
// for the package's own constants.
func MustCompile(pattern string) *Layout {
	l, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return l
}

// Pattern returns the source pattern string.
func (l *Layout) Pattern() string {
	return l.pattern
}

// Format renders one event using the compiled token sequence.
func (l *Layout) Format(ev *core.Event) []byte {
	// Room for timestamp, level, category and separators beyond the message.
	buf := bytes.NewBuffer(make([]byte, 0, 64+len(ev.Message)))
	for _, t := range l.tokens {
		switch t.kind {
		case tokenLiteral:
			buf.WriteString(t.text)
		case tokenTimestamp:
			buf.WriteString(ev.Time.Format(DefaultTimestampFormat))
		case tokenLevel:
			buf.WriteString(ev.Level.String())
		case tokenCategory:
			if ev.Logger == "" {
				buf.WriteString(rootCategory)
			} else {
				buf.WriteString(ev.Logger)
			}
		case tokenMessage:
			buf.WriteString(ev.Message)
		case tokenNewline:
			buf.WriteByte('\n')
		case tokenIndent:
			buf.WriteString(indentMarker)
		}
	}
	return buf.Bytes()
}
