package chat

import (
	"testing"

	"github.com/iniduniaku/anon/internal/geo"
)

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name     string
		nickname string
		want     string
	}{
		{"plain nickname", "alice", "alice"},
		{"trims whitespace", "  bob  ", "bob"},
		{"empty defaults", "", DefaultNickname},
		{"whitespace-only defaults", "   ", DefaultNickname},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			p := r.Register("c1", tt.nickname, nil)

			if p.Nickname != tt.want {
				t.Errorf("Nickname = %q, want %q", p.Nickname, tt.want)
			}
			if p.ID != "c1" {
				t.Errorf("ID = %q, want c1", p.ID)
			}
			if p.JoinedAt.IsZero() {
				t.Error("JoinedAt is zero")
			}
		})
	}
}

func TestRegistryRegisterOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "first", nil)

	loc := &geo.Location{Country: "Japan"}
	r.Register("c1", "second", loc)

	p, ok := r.Lookup("c1")
	if !ok {
		t.Fatal("Lookup(c1) not found")
	}
	if p.Nickname != "second" || p.Location != loc {
		t.Errorf("profile = %+v, want overwritten values", p)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Register("c1", "alice", nil)

	r.Remove("c1")
	if _, ok := r.Lookup("c1"); ok {
		t.Error("Lookup(c1) found after Remove")
	}

	// Removing again, or removing an unknown id, is a no-op.
	r.Remove("c1")
	r.Remove("never-registered")
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}
