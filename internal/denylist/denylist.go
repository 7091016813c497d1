// Package denylist screens command lines against a fixed set of forbidden substrings.
//
// The check is a textual heuristic: it does not parse shell syntax, so commands
// like `rm${IFS}-rf${IFS}/` are not caught. It's a best effort guard and must not be
// treated as a security boundary.
package denylist

import (
	"slices"
	"strings"
)

// DefaultPatterns are the destructive or system disruptive operations denied by default.
var DefaultPatterns = []string{
	"rm -rf /",
	"mkfs",
	"dd if=",
	"format",
	"fdisk",
	"shutdown",
	"reboot",
	"halt",
	"init 0",
	"init 6",
	"kill -9 1",
	"killall -9",
	":(){ :|:& };:", // Fork bomb.
	"chmod 777 /",
	"chown root /",
}

// Denylist is an immutable set of case-insensitive substrings.
// It's safe for concurrent use.
type Denylist struct {
	patterns []string
}

// New returns a denylist with the given patterns. Patterns are lower-cased,
// empty ones are ignored and duplicates removed.
func New(patterns ...string) *Denylist {
	ps := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(p)
		if strings.TrimSpace(p) == "" || slices.Contains(ps, p) {
			continue
		}
		ps = append(ps, p)
	}

	return &Denylist{patterns: ps}
}

// Default returns a denylist with the DefaultPatterns.
func Default() *Denylist { return New(DefaultPatterns...) }

// WithExtra returns a new denylist with the receiver patterns plus the extra ones.
func (d *Denylist) WithExtra(extra ...string) *Denylist {
	return New(append(d.Patterns(), extra...)...)
}

// IsDangerous returns true if the command contains any of the patterns.
func (d *Denylist) IsDangerous(command string) bool {
	_, ok := d.Matched(command)
	return ok
}

// Matched returns the first pattern contained in the command.
func (d *Denylist) Matched(command string) (pattern string, ok bool) {
	cmd := strings.ToLower(command)
	for _, p := range d.patterns {
		if strings.Contains(cmd, p) {
			return p, true
		}
	}

	return "", false
}

// Patterns returns a copy of the denylist patterns.
func (d *Denylist) Patterns() []string {
	return slices.Clone(d.patterns)
}
