package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/Lunar-Chipter/prism/internal/core"
)

// ErrPropertyParse is returned for property files that cannot be read or
// whose content is not a directive-equivalent configuration.
var ErrPropertyParse = errors.New("property file parse failed")

// propertyEntry is one fully prepared file entry: parsed, validated, and with
// its sinks already built. Preparing every entry before touching any logger
// is what makes a failed file leave no partial state.
type propertyEntry struct {
	name    string
	pending *pendingSet
	sinks   []core.Appender
	target  *core.Logger
}

// ApplyProperties reads a flat key/value configuration file and applies it
// to the hierarchy. The file syntax is whatever viper understands from the
// path's extension (yaml, toml, json, ...); only its effect is defined here:
//
//	root:            directive list for the root logger
//	logger.<name>:   directive list for the named logger
//
// A directive list is a comma-separated token list in Configure's grammar,
// with arguments attached positionally ("daily, /var/log/app.log, debug").
// PROPERTIES, WATCH and SELF are rejected inside files. viper lower-cases
// keys, so logger names configured through files are lower-case.
//
// Every entry is parsed, validated and has its sinks built before any logger
// is mutated; a bad entry fails the whole file with ErrPropertyParse and no
// partial state. All entries then apply in a single transaction.
func ApplyProperties(h *core.Hierarchy, hctx core.Context, path string) error {
	entries, err := loadProperties(path)
	if err != nil {
		return err
	}
	for i := range entries {
		entries[i].target = h.GetOrCreate(entries[i].name)
	}

	mu := h.ConfigLock(hctx)
	mu.Lock()
	removed := h.Update(hctx, func(tx *core.Tx) {
		for _, e := range entries {
			applyBuilt(tx, e.target, e.pending, e.sinks)
		}
	})
	mu.Unlock()
	core.CloseAppenders(removed)
	return nil
}

// loadProperties reads and fully prepares a property file without touching
// any logger. A failure on any entry closes the sinks already built for
// earlier ones and returns ErrPropertyParse.
func loadProperties(path string) ([]propertyEntry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPropertyParse, path, err)
	}

	var entries []propertyEntry
	fail := func(err error) ([]propertyEntry, error) {
		closeEntrySinks(entries)
		return nil, err
	}

	keys := v.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		var name string
		switch {
		case key == "root":
			name = ""
		case strings.HasPrefix(key, "logger."):
			name = strings.TrimPrefix(key, "logger.")
		default:
			return fail(fmt.Errorf("%w: %s: unknown key %q", ErrPropertyParse, path, key))
		}

		p, err := parseDirectives(splitDirectiveList(v.GetString(key)))
		if err != nil {
			return fail(fmt.Errorf("%w: %s: key %q: %v", ErrPropertyParse, path, key, err))
		}
		if p.hasProps || p.watch || p.self {
			return fail(fmt.Errorf("%w: %s: key %q: PROPERTIES, WATCH and SELF are not allowed in a property file", ErrPropertyParse, path, key))
		}
		if err := p.validate(); err != nil {
			return fail(fmt.Errorf("%w: %s: key %q: %v", ErrPropertyParse, path, key, err))
		}
		sinks, err := buildSinks(p)
		if err != nil {
			return fail(fmt.Errorf("%w: %s: key %q: %v", ErrPropertyParse, path, key, err))
		}
		entries = append(entries, propertyEntry{name: name, pending: p, sinks: sinks})
	}
	return entries, nil
}

func closeEntrySinks(entries []propertyEntry) {
	for _, e := range entries {
		core.CloseAppenders(e.sinks)
	}
}

// splitDirectiveList turns a comma-separated value into directive tokens.
func splitDirectiveList(raw string) []any {
	var toks []any
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			toks = append(toks, part)
		}
	}
	return toks
}
