package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/Lunar-Chipter/prism/internal/core"
	"github.com/Lunar-Chipter/prism/internal/layout"
	"github.com/Lunar-Chipter/prism/internal/outputs"
)

func kinds(l *core.Logger, ctx core.Context) []string {
	var ks []string
	for _, a := range l.Appenders(ctx) {
		ks = append(ks, a.Kind())
	}
	sort.Strings(ks)
	return ks
}

func TestConfigureNoDirectivesRendersTree(t *testing.T) {
	h := core.NewHierarchy()
	h.GetOrCreate("app.db")

	out, err := Configure(h, 0)
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if !strings.Contains(out, "root") {
		t.Errorf("tree output missing root line:\n%s", out)
	}
	if h.Root().Level(0) != core.UNSET {
		t.Error("read-only call mutated the root level")
	}
}

func TestConfigureSetsLevelByPrefix(t *testing.T) {
	h := core.NewHierarchy()

	if _, err := Configure(h, 0, []string{"app", "db"}, "w"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := h.GetOrCreate("app.db").Level(0); got != core.WARN {
		t.Errorf("level = %v; expected WARN", got)
	}
	if got := h.GetOrCreate("app").Level(0); got != core.UNSET {
		t.Errorf("parent level = %v; expected UNSET", got)
	}
}

func TestConfigureExplicitLoggerTarget(t *testing.T) {
	h := core.NewHierarchy()
	l := h.GetOrCreate("worker")

	if _, err := Configure(h, 0, l, core.ERROR); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := l.Level(0); got != core.ERROR {
		t.Errorf("level = %v; expected ERROR", got)
	}
}

func TestConfigureConflictingTarget(t *testing.T) {
	h := core.NewHierarchy()

	_, err := Configure(h, 0, []string{"app"}, "self", "debug")
	if !errors.Is(err, ErrConflictingTarget) {
		t.Errorf("error = %v; expected ErrConflictingTarget", err)
	}
}

func TestSaneInstallsConsole(t *testing.T) {
	h := core.NewHierarchy()

	if _, err := Configure(h, 0, "sane"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	root := h.Root()
	if got := kinds(root, 0); len(got) != 1 || got[0] != "console" {
		t.Errorf("appender kinds = %v; expected [console]", got)
	}
	if got := root.Level(0); got != core.DefaultLevel {
		t.Errorf("level = %v; expected %v", got, core.DefaultLevel)
	}
}

func TestSaneWithDailyInstallsSingleDaily(t *testing.T) {
	h := core.NewHierarchy()
	path := filepath.Join(t.TempDir(), "app.log")

	if _, err := Configure(h, 0, "sane", "daily", path); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	t.Cleanup(func() { core.CloseAppenders(h.Root().Appenders(0)) })

	if got := kinds(h.Root(), 0); len(got) != 1 || got[0] != "daily-file" {
		t.Errorf("appender kinds = %v; expected [daily-file]", got)
	}
}

func TestConsoleDailyKeepsBoth(t *testing.T) {
	h := core.NewHierarchy()
	path := filepath.Join(t.TempDir(), "app.log")

	if _, err := Configure(h, 0, "sane"); err != nil {
		t.Fatalf("Configure sane: %v", err)
	}
	if _, err := Configure(h, 0, "console", "daily", path); err != nil {
		t.Fatalf("Configure console daily: %v", err)
	}
	t.Cleanup(func() { core.CloseAppenders(h.Root().Appenders(0)) })

	got := kinds(h.Root(), 0)
	expected := []string{"console", "daily-file"}
	if len(got) != 2 || got[0] != expected[0] || got[1] != expected[1] {
		t.Errorf("appender kinds = %v; expected %v", got, expected)
	}
}

func TestDailyReplacesPreviousDaily(t *testing.T) {
	h := core.NewHierarchy()
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	if _, err := Configure(h, 0, "sane", "daily", first); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := Configure(h, 0, "info", "daily", second); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	t.Cleanup(func() { core.CloseAppenders(h.Root().Appenders(0)) })

	apps := h.Root().Appenders(0)
	if len(apps) != 1 {
		t.Fatalf("appender count = %d; expected 1", len(apps))
	}
	daily, ok := apps[0].(*outputs.DailyFile)
	if !ok {
		t.Fatalf("appender type = %T; expected *outputs.DailyFile", apps[0])
	}
	if daily.Path() != second {
		t.Errorf("path = %q; expected %q", daily.Path(), second)
	}
}

func TestClearKeepsNonAdditiveDescendantAppenders(t *testing.T) {
	h := core.NewHierarchy()
	path := filepath.Join(t.TempDir(), "db.log")

	if _, err := Configure(h, 0, []string{"app", "db"}, "debug", "own", "daily", path); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	db := h.GetOrCreate("app.db")
	t.Cleanup(func() { core.CloseAppenders(db.Appenders(0)) })

	if _, err := Configure(h, 0, "clear"); err != nil {
		t.Fatalf("Configure clear: %v", err)
	}
	if got := db.Level(0); got != core.UNSET {
		t.Errorf("level after clear = %v; expected UNSET", got)
	}
	if !db.Additive(0) {
		t.Error("additivity not restored by clear")
	}
	if got := kinds(db, 0); len(got) != 1 || got[0] != "daily-file" {
		t.Errorf("appender kinds = %v; plain clear should keep a non-additive descendant's appenders", got)
	}
}

func TestClearAllStripsEverything(t *testing.T) {
	h := core.NewHierarchy()
	path := filepath.Join(t.TempDir(), "db.log")

	if _, err := Configure(h, 0, []string{"app", "db"}, "debug", "own", "daily", path); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := Configure(h, 0, "clear", "all"); err != nil {
		t.Fatalf("Configure clear all: %v", err)
	}
	db := h.GetOrCreate("app.db")
	if got := len(db.Appenders(0)); got != 0 {
		t.Errorf("appender count = %d; expected 0 after CLEAR ALL", got)
	}
	if got := db.Level(0); got != core.UNSET {
		t.Errorf("level = %v; expected UNSET", got)
	}
}

func TestOwnStopsPropagation(t *testing.T) {
	h := core.NewHierarchy()

	if _, err := Configure(h, 0, []string{"app"}, "debug", "own"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if h.GetOrCreate("app").Additive(0) {
		t.Error("OWN did not mark the target non-additive")
	}
}

func TestSelfRememberedAcrossCalls(t *testing.T) {
	h := core.NewHierarchy()
	t.Cleanup(func() { forgetSelf(h) })

	if _, err := Configure(h, 0, "self", "sane", "d"); err != nil {
		t.Fatalf("Configure self sane: %v", err)
	}
	self := h.GetOrCreate(SelfLoggerName)
	if got := self.Level(0); got != core.DEBUG {
		t.Errorf("level = %v; expected DEBUG", got)
	}

	// A narrow follow-up keeps the established console sink.
	if _, err := Configure(h, 0, "self", "warn"); err != nil {
		t.Fatalf("Configure self warn: %v", err)
	}
	if got := self.Level(0); got != core.WARN {
		t.Errorf("level = %v; expected WARN", got)
	}
	if got := kinds(self, 0); len(got) != 1 || got[0] != "console" {
		t.Errorf("appender kinds = %v; expected the remembered [console]", got)
	}
}

func TestConfigureNothingToDo(t *testing.T) {
	h := core.NewHierarchy()

	if _, err := Configure(h, 0, "own"); !errors.Is(err, ErrNothingToDo) {
		t.Errorf("error = %v; expected ErrNothingToDo", err)
	}
}

func TestInvalidPatternLeavesStateUntouched(t *testing.T) {
	h := core.NewHierarchy()

	_, err := Configure(h, 0, "sane", "debug", "pattern", "%q")
	if !errors.Is(err, layout.ErrInvalidPattern) {
		t.Fatalf("error = %v; expected ErrInvalidPattern", err)
	}
	root := h.Root()
	if got := root.Level(0); got != core.UNSET {
		t.Errorf("level = %v; failed call must not change the level", got)
	}
	if got := len(root.Appenders(0)); got != 0 {
		t.Errorf("appender count = %d; failed call must not install sinks", got)
	}
}

func TestClearWithBadPropertiesFileLeavesStateUntouched(t *testing.T) {
	h := core.NewHierarchy()
	if _, err := Configure(h, 0, []string{"app", "db"}, "debug"); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "absent.yaml")
	_, err := Configure(h, 0, "clear", "properties", missing)
	if !errors.Is(err, ErrPropertyParse) {
		t.Fatalf("error = %v; expected ErrPropertyParse", err)
	}
	if got := h.GetOrCreate("app.db").Level(0); got != core.DEBUG {
		t.Errorf("level = %v; CLEAR must not run when the file fails to load", got)
	}
}

func TestFailedSelfCallDoesNotPoisonRecord(t *testing.T) {
	h := core.NewHierarchy()
	t.Cleanup(func() { forgetSelf(h) })
	path := filepath.Join(t.TempDir(), "self.log")

	_, err := Configure(h, 0, "self", "daily", path, "pattern", "%q")
	if !errors.Is(err, layout.ErrInvalidPattern) {
		t.Fatalf("error = %v; expected ErrInvalidPattern", err)
	}

	if _, err := Configure(h, 0, "self", "warn"); err != nil {
		t.Fatalf("Configure self warn: %v", err)
	}
	self := h.GetOrCreate(SelfLoggerName)
	if got := self.Level(0); got != core.WARN {
		t.Errorf("level = %v; expected WARN", got)
	}
	if got := len(self.Appenders(0)); got != 0 {
		t.Errorf("appender count = %d; a failed call must not be remembered", got)
	}
}

func TestSelfPropertiesCallKeepsEstablishedSinks(t *testing.T) {
	h := core.NewHierarchy()
	t.Cleanup(func() { forgetSelf(h) })
	dir := t.TempDir()

	if _, err := Configure(h, 0, "self", "sane", "daily", filepath.Join(dir, "self.log")); err != nil {
		t.Fatalf("Configure self sane daily: %v", err)
	}
	self := h.GetOrCreate(SelfLoggerName)
	t.Cleanup(func() { core.CloseAppenders(self.Appenders(0)) })
	before := self.Appenders(0)
	if len(before) != 1 {
		t.Fatalf("appender count = %d; expected 1", len(before))
	}

	props := filepath.Join(dir, "prism.yaml")
	if err := os.WriteFile(props, []byte("root: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Configure(h, 0, "self", "properties", props); err != nil {
		t.Fatalf("Configure self properties: %v", err)
	}

	if got := h.Root().Level(0); got != core.INFO {
		t.Errorf("root level = %v; expected INFO from the file", got)
	}
	after := self.Appenders(0)
	if len(after) != 1 || after[0] != before[0] {
		t.Errorf("self sinks rebuilt by a PROPERTIES call; expected the established instance to survive")
	}
}

func TestConfigureContextsIndependent(t *testing.T) {
	h := core.NewHierarchy()

	if _, err := Configure(h, 2, "sane", "error"); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	root := h.Root()
	if got := root.Level(2); got != core.ERROR {
		t.Errorf("level in context 2 = %v; expected ERROR", got)
	}
	if got := root.Level(0); got != core.UNSET {
		t.Errorf("level in context 0 = %v; expected UNSET", got)
	}
	if got := len(root.Appenders(0)); got != 0 {
		t.Errorf("context 0 appender count = %d; expected 0", got)
	}
}
