// Package config implements the configuration directive interpreter of the
// prism logger: it parses a flat, loosely-typed directive list, validates it,
// and applies the validated changes atomically to one logger hierarchy
// context. It also hosts the property-file configurator and the file-watch
// reload loop.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Lunar-Chipter/prism/internal/core"
)

// SelfLoggerName is the framework's internal diagnostic logger. Directive
// calls carrying the SELF flag target it; watcher reload errors are reported
// through it.
const SelfLoggerName = "prism.self"

// Validation failures surfaced by Configure. All are detected before any
// mutation; none leave partial state.
var (
	ErrConflictingTarget      = errors.New("explicit target conflicts with SELF")
	ErrUnknownDirective       = errors.New("unknown directive")
	ErrUnrecognizedArgument   = errors.New("unrecognized argument")
	ErrDuplicateLevel         = errors.New("duplicate level")
	ErrMissingArgument        = errors.New("missing argument")
	ErrNothingToDo            = errors.New("nothing to do")
	ErrIncompatibleDirectives = errors.New("incompatible directives")
)

// pendingSet is the parsed-but-unapplied representation of one configuration
// call. It is discarded after application or on validation failure.
type pendingSet struct {
	level    core.Level
	hasLevel bool

	sane           bool
	clear          bool
	all            bool
	own            bool
	immediateFlush bool
	twoline        bool
	console        bool
	watch          bool
	self           bool

	dailyPath string
	hasDaily  bool

	propsPath string
	hasProps  bool

	pattern    string
	hasPattern bool
}

// parseDirectives turns the token list into a pending set. Order-independent
// except that DAILY, PROPERTIES and PATTERN consume exactly one following
// argument.
func parseDirectives(directives []any) (*pendingSet, error) {
	p := &pendingSet{level: core.UNSET}

	takeArg := func(i int, flag string) (string, error) {
		if i+1 >= len(directives) {
			return "", fmt.Errorf("%w: %s requires an argument", ErrMissingArgument, flag)
		}
		arg, ok := directives[i+1].(string)
		if !ok {
			return "", fmt.Errorf("%w: %s requires a string argument, got %T", ErrMissingArgument, flag, directives[i+1])
		}
		return arg, nil
	}

	setLevel := func(lv core.Level) error {
		if p.hasLevel {
			return fmt.Errorf("%w: %s after %s", ErrDuplicateLevel, lv, p.level)
		}
		p.level = lv
		p.hasLevel = true
		return nil
	}

	for i := 0; i < len(directives); i++ {
		if lv, ok := directives[i].(core.Level); ok {
			if err := setLevel(lv); err != nil {
				return nil, err
			}
			continue
		}
		tok, ok := directives[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v (%T)", ErrUnrecognizedArgument, directives[i], directives[i])
		}

		switch strings.ToUpper(tok) {
		case "SANE":
			p.sane = true
		case "CLEAR":
			p.clear = true
		case "ALL":
			p.all = true
		case "OWN":
			p.own = true
		case "IMMEDIATE_FLUSH":
			p.immediateFlush = true
		case "TWOLINE":
			p.twoline = true
		case "CONSOLE":
			p.console = true
		case "WATCH":
			p.watch = true
		case "SELF":
			p.self = true
		case "DAILY":
			arg, err := takeArg(i, "DAILY")
			if err != nil {
				return nil, err
			}
			p.dailyPath, p.hasDaily = arg, true
			i++
		case "PROPERTIES":
			arg, err := takeArg(i, "PROPERTIES")
			if err != nil {
				return nil, err
			}
			p.propsPath, p.hasProps = arg, true
			i++
		case "PATTERN":
			arg, err := takeArg(i, "PATTERN")
			if err != nil {
				return nil, err
			}
			p.pattern, p.hasPattern = arg, true
			i++
		default:
			if lv, err := core.Resolve(tok); err == nil {
				if err := setLevel(lv); err != nil {
					return nil, err
				}
				continue
			}
			if flagShaped(tok) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownDirective, tok)
			}
			return nil, fmt.Errorf("%w: %q", ErrUnrecognizedArgument, tok)
		}
	}
	return p, nil
}

// flagShaped reports whether a token looks like a directive name: letters,
// digits and underscores only. "ALL" is flag-shaped and a flag; "x.log" and
// "/tmp/a" are not.
func flagShaped(tok string) bool {
	if tok == "" {
		return false
	}
	for _, c := range tok {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// validate enforces the cross-directive constraints. It runs before any
// mutation; a failure leaves the hierarchy untouched.
func (p *pendingSet) validate() error {
	if !p.hasLevel && !p.sane && !p.clear && !p.hasDaily && !p.hasProps {
		return ErrNothingToDo
	}
	if p.hasProps && (p.sane || p.hasDaily || p.hasPattern || p.hasLevel) {
		return fmt.Errorf("%w: PROPERTIES cannot be combined with SANE, DAILY, PATTERN or a level", ErrIncompatibleDirectives)
	}
	return nil
}
