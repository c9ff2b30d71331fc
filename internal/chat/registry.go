package chat

import (
	"strings"
	"time"

	"github.com/iniduniaku/anon/internal/geo"
)

// DefaultNickname is used when a client joins without supplying a name.
const DefaultNickname = "Anonymous"

// Profile is the lightweight identity of one live connection. It exists from
// the first "join" event until disconnect and is owned by the Registry.
type Profile struct {
	// ID is the server-assigned connection id.
	ID string

	// Nickname as supplied by the user, trimmed, never empty.
	Nickname string

	// Location resolved at join time. Nil when unknown.
	Location *geo.Location

	// JoinedAt is when the profile was created.
	JoinedAt time.Time
}

// Registry maps live connection ids to their profiles.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]*Profile)}
}

// Register creates (or overwrites) the profile for a connection id. The
// nickname is trimmed and defaulted, nothing else is validated.
func (r *Registry) Register(id, nickname string, loc *geo.Location) *Profile {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = DefaultNickname
	}

	p := &Profile{
		ID:       id,
		Nickname: nickname,
		Location: loc,
		JoinedAt: time.Now(),
	}
	r.profiles[id] = p
	return p
}

// Lookup returns the profile for a connection id.
func (r *Registry) Lookup(id string) (*Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// Remove deletes the profile for a connection id. No-op if absent.
func (r *Registry) Remove(id string) {
	delete(r.profiles, id)
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}
