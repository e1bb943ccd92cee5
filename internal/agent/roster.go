// Package agent defines the capability roster used to route plan steps to
// workers. A capability is an opaque name (e.g. "researcher",
// "coder-claude"); the executor depends only on roster membership, the
// coding-capability classification, and the failover pairing — never on a
// concrete worker implementation.
package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Well-known capability names used by the default roster.
const (
	CapabilityResearcher  = "researcher"
	CapabilityAnalyst     = "analyst"
	CapabilityWriter      = "writer"
	CapabilityCoderClaude = "coder-claude"
	CapabilityCoderCodex  = "coder-codex"
)

// RosterConfig describes a roster. It is plain data so alternate rosters
// can be supplied per test or per deployment; the package keeps no mutable
// globals.
type RosterConfig struct {
	// Capabilities lists every known capability name.
	Capabilities []string

	// CodingPatterns are glob patterns identifying the interchangeable
	// coding capabilities (e.g. "coder-*").
	CodingPatterns []string

	// FailoverPairs maps a coding capability to its mutual fallback.
	// Pairs are symmetric: supplying a->b implies b->a.
	FailoverPairs map[string]string

	// LockedAgent, when non-empty, pins every coding step to this
	// capability for the whole run.
	LockedAgent string
}

// Roster is an immutable view of the agent capability configuration.
type Roster struct {
	capabilities map[string]bool
	names        []string
	codingGlobs  []glob.Glob
	failover     map[string]string
	lockedAgent  string
}

// NewRoster builds a Roster from configuration.
// It validates glob patterns, failover pair membership, and the lock target.
func NewRoster(cfg RosterConfig) (*Roster, error) {
	if len(cfg.Capabilities) == 0 {
		return nil, fmt.Errorf("roster has no capabilities")
	}

	r := &Roster{
		capabilities: make(map[string]bool, len(cfg.Capabilities)),
		failover:     make(map[string]string, len(cfg.FailoverPairs)*2),
		lockedAgent:  cfg.LockedAgent,
	}

	for _, name := range cfg.Capabilities {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !r.capabilities[name] {
			r.capabilities[name] = true
			r.names = append(r.names, name)
		}
	}
	sort.Strings(r.names)

	for _, pattern := range cfg.CodingPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid coding pattern %q: %w", pattern, err)
		}
		r.codingGlobs = append(r.codingGlobs, g)
	}

	for a, b := range cfg.FailoverPairs {
		if !r.capabilities[a] {
			return nil, fmt.Errorf("failover pair references unknown capability %q", a)
		}
		if !r.capabilities[b] {
			return nil, fmt.Errorf("failover pair references unknown capability %q", b)
		}
		r.failover[a] = b
		r.failover[b] = a
	}

	if r.lockedAgent != "" && !r.capabilities[r.lockedAgent] {
		return nil, fmt.Errorf("locked agent %q is not in the roster", r.lockedAgent)
	}

	return r, nil
}

// DefaultRoster returns the built-in roster: research, analysis and writing
// capabilities plus the claude/codex coding pair with mutual failover.
func DefaultRoster() *Roster {
	r, err := NewRoster(RosterConfig{
		Capabilities: []string{
			CapabilityResearcher,
			CapabilityAnalyst,
			CapabilityWriter,
			CapabilityCoderClaude,
			CapabilityCoderCodex,
		},
		CodingPatterns: []string{"coder-*"},
		FailoverPairs: map[string]string{
			CapabilityCoderClaude: CapabilityCoderCodex,
		},
	})
	if err != nil {
		// The built-in configuration is statically correct.
		panic(err)
	}
	return r
}

// Known reports whether the capability is in the roster.
func (r *Roster) Known(name string) bool {
	return r.capabilities[name]
}

// Names returns all capability names in sorted order.
func (r *Roster) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// IsCoding reports whether the capability matches any configured coding
// pattern.
func (r *Roster) IsCoding(name string) bool {
	for _, g := range r.codingGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// FailoverPartner returns the configured failover capability for name,
// if one exists.
func (r *Roster) FailoverPartner(name string) (string, bool) {
	partner, ok := r.failover[name]
	return partner, ok
}

// LockedAgent returns the pinned coding capability, or empty when no lock
// is active.
func (r *Roster) LockedAgent() string {
	return r.lockedAgent
}

// WithLock returns a copy of the roster with the locked agent replaced.
// Returns an error if the capability is unknown.
func (r *Roster) WithLock(name string) (*Roster, error) {
	if name != "" && !r.capabilities[name] {
		return nil, fmt.Errorf("locked agent %q is not in the roster", name)
	}
	clone := *r
	clone.lockedAgent = name
	return &clone, nil
}
