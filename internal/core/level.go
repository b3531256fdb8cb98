// Package core provides core components for the prism logger hierarchy
package core

import (
	"fmt"
	"strings"
)

// Level represents the severity threshold of a logger or log event
// Level merepresentasikan ambang keparahan dari sebuah logger atau event log
type Level uint8

const (
	// ALL level enables every event regardless of severity
	// Level ALL mengaktifkan semua event tanpa memandang keparahan
	ALL Level = iota

	// DEBUG level for debugging information, useful for diagnosing problems
	// Level DEBUG untuk informasi debugging, berguna untuk mendiagnosis masalah
	DEBUG

	// INFO level for general information messages about application progress
	// Level INFO untuk pesan informasi umum tentang kemajuan aplikasi
	INFO

	// WARN level for warning messages about potential issues or unusual conditions
	// Level WARN untuk pesan peringatan tentang masalah potensial atau kondisi tidak biasa
	WARN

	// ERROR level for error messages indicating that a function failed to complete
	// Level ERROR untuk pesan kesalahan yang menunjukkan bahwa suatu fungsi gagal diselesaikan
	ERROR

	// FATAL level for critical errors that cause program termination after logging
	// Level FATAL untuk kesalahan kritis yang menyebabkan program berhenti setelah logging
	FATAL

	// OFF level disables every event on the logger
	// Level OFF menonaktifkan semua event pada logger
	OFF
)

// UNSET is the distinguished "no explicit setting" value. It is excluded from
// the level ordering and means the logger inherits its effective level from
// the nearest ancestor with a concrete level.
// UNSET adalah nilai khusus "tanpa pengaturan eksplisit". Nilai ini dikecualikan
// dari urutan level dan berarti logger mewarisi level efektifnya dari leluhur
// terdekat yang memiliki level konkret.
const UNSET Level = 255

// DefaultLevel is the framework-wide fallback applied when no logger on the
// parent chain has a concrete level.
// DefaultLevel adalah fallback seluruh framework yang dipakai ketika tidak ada
// logger pada rantai induk yang memiliki level konkret.
const DefaultLevel = INFO

// Pre-computed string representations for zero-allocation access to level names
// Representasi string pra-komputasi untuk akses zero-allocation ke nama level
var levelStrings = [...]string{
	"ALL", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", "OFF",
}

// ErrAmbiguousOrUnknownLevel is returned by Resolve for tokens that match no
// level name or more than one level name prefix.
var ErrAmbiguousOrUnknownLevel = fmt.Errorf("ambiguous or unknown level")

// String returns the string representation of the level
// String mengembalikan representasi string dari level
func (l Level) String() string {
	if l == UNSET {
		return "UNSET"
	}
	if l < Level(len(levelStrings)) {
		return levelStrings[l]
	}
	return "UNKNOWN"
}

// Enabled reports whether an event at level l passes the given threshold.
// UNSET never compares: it is not a valid event level nor a valid threshold.
// Enabled melaporkan apakah event pada level l melewati ambang yang diberikan.
// UNSET tidak pernah dibandingkan: bukan level event maupun ambang yang valid.
func (l Level) Enabled(threshold Level) bool {
	if l == UNSET || threshold == UNSET {
		return false
	}
	return l >= threshold
}

// Resolve parses a level token. It accepts a full case-insensitive level name
// or any case-insensitive prefix that matches exactly one level name, e.g.
// "d" or "deb" for DEBUG. Tokens matching zero or several names fail with
// ErrAmbiguousOrUnknownLevel.
// Resolve mem-parsing token level. Menerima nama level lengkap (tanpa membedakan
// huruf besar/kecil) atau prefiks apa pun yang cocok dengan tepat satu nama
// level, mis. "d" atau "deb" untuk DEBUG. Token yang cocok dengan nol atau
// beberapa nama gagal dengan ErrAmbiguousOrUnknownLevel.
func Resolve(token string) (Level, error) {
	if token == "" {
		return UNSET, fmt.Errorf("%w: empty token", ErrAmbiguousOrUnknownLevel)
	}
	upper := strings.ToUpper(token)

	match := UNSET
	count := 0
	for i, name := range levelStrings {
		if name == upper {
			return Level(i), nil
		}
		if strings.HasPrefix(name, upper) {
			match = Level(i)
			count++
		}
	}
	if count == 1 {
		return match, nil
	}
	return UNSET, fmt.Errorf("%w: %q", ErrAmbiguousOrUnknownLevel, token)
}
