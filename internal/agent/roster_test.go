package agent

import (
	"testing"
)

func TestDefaultRoster(t *testing.T) {
	r := DefaultRoster()

	for _, name := range []string{
		CapabilityResearcher,
		CapabilityAnalyst,
		CapabilityWriter,
		CapabilityCoderClaude,
		CapabilityCoderCodex,
	} {
		if !r.Known(name) {
			t.Errorf("Known(%q) = false, want true", name)
		}
	}
	if r.Known("coder-gemini") {
		t.Error("Known(coder-gemini) = true, want false")
	}

	if !r.IsCoding(CapabilityCoderClaude) || !r.IsCoding(CapabilityCoderCodex) {
		t.Error("coder capabilities not classified as coding")
	}
	if r.IsCoding(CapabilityWriter) {
		t.Error("writer classified as coding")
	}

	partner, ok := r.FailoverPartner(CapabilityCoderClaude)
	if !ok || partner != CapabilityCoderCodex {
		t.Errorf("FailoverPartner(coder-claude) = %q, %v", partner, ok)
	}
	partner, ok = r.FailoverPartner(CapabilityCoderCodex)
	if !ok || partner != CapabilityCoderClaude {
		t.Errorf("FailoverPartner(coder-codex) = %q, %v, want symmetric pair", partner, ok)
	}
	if _, ok := r.FailoverPartner(CapabilityWriter); ok {
		t.Error("writer has a failover partner")
	}
}

func TestNewRosterValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RosterConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg: RosterConfig{
				Capabilities:   []string{"a", "b"},
				CodingPatterns: []string{"b*"},
				FailoverPairs:  map[string]string{"a": "b"},
			},
		},
		{
			name:    "no capabilities",
			cfg:     RosterConfig{},
			wantErr: true,
		},
		{
			name: "bad glob pattern",
			cfg: RosterConfig{
				Capabilities:   []string{"a"},
				CodingPatterns: []string{"[unclosed"},
			},
			wantErr: true,
		},
		{
			name: "failover references unknown capability",
			cfg: RosterConfig{
				Capabilities:  []string{"a"},
				FailoverPairs: map[string]string{"a": "ghost"},
			},
			wantErr: true,
		},
		{
			name: "locked agent unknown",
			cfg: RosterConfig{
				Capabilities: []string{"a"},
				LockedAgent:  "ghost",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRoster(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRoster() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNamesSortedAndCopied(t *testing.T) {
	r, err := NewRoster(RosterConfig{Capabilities: []string{"zeta", "alpha", "mid"}})
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}

	names := r.Names()
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}

	names[0] = "mutated"
	if r.Names()[0] != "alpha" {
		t.Error("Names() returned a shared slice")
	}
}

func TestRosterDeduplicatesAndTrims(t *testing.T) {
	r, err := NewRoster(RosterConfig{Capabilities: []string{" a ", "a", "", "b"}})
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	if got := len(r.Names()); got != 2 {
		t.Errorf("got %d names %v, want 2", got, r.Names())
	}
	if !r.Known("a") || !r.Known("b") {
		t.Errorf("Names() = %v, want a and b known", r.Names())
	}
}

func TestWithLock(t *testing.T) {
	r := DefaultRoster()
	if r.LockedAgent() != "" {
		t.Errorf("default roster lock = %q, want empty", r.LockedAgent())
	}

	locked, err := r.WithLock(CapabilityCoderCodex)
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if locked.LockedAgent() != CapabilityCoderCodex {
		t.Errorf("lock = %q, want coder-codex", locked.LockedAgent())
	}
	if r.LockedAgent() != "" {
		t.Error("WithLock mutated the original roster")
	}

	if _, err := r.WithLock("ghost"); err == nil {
		t.Error("WithLock(ghost) did not fail")
	}

	cleared, err := locked.WithLock("")
	if err != nil {
		t.Fatalf("WithLock(\"\") error = %v", err)
	}
	if cleared.LockedAgent() != "" {
		t.Error("clearing the lock failed")
	}
}
