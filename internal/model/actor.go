package model

import "strings"

// Role is the closed set of account roles.  Every authenticated request is
// resolved to exactly one of these at the HTTP boundary.
type Role string

const (
	RoleClient    Role = "CLIENT"
	RoleAdvocate  Role = "ADVOCATE"
	RoleAdmin     Role = "ADMIN"
	RoleAssistant Role = "ASSISTANT"
)

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleClient, RoleAdvocate, RoleAdmin, RoleAssistant:
		return r, true
	}
	return "", false
}

// Actor is the authenticated caller of a core operation.  Profile links are
// resolved once when the request is authenticated and passed down; a nil
// pointer means the user has no such profile.
//
//	ClientID    – client_profiles.id for CLIENT users.
//	AdvocateID  – advocate_profiles.id for ADVOCATE users.
//	AssistantOf – advocate_profiles.id an ASSISTANT works for.
type Actor struct {
	UserID      uint64
	Role        Role
	ClientID    *uint64
	AdvocateID  *uint64
	AssistantOf *uint64
}

// IsAdmin reports whether the actor has administrative rights.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsClient reports whether the actor is the client with the given profile id.
func (a Actor) IsClient(clientID uint64) bool {
	return a.Role == RoleClient && a.ClientID != nil && *a.ClientID == clientID
}

// IsAdvocate reports whether the actor is the advocate with the given profile id.
func (a Actor) IsAdvocate(advocateID uint64) bool {
	return a.Role == RoleAdvocate && a.AdvocateID != nil && *a.AdvocateID == advocateID
}

// ActsFor reports whether the actor may read on behalf of the advocate:
// the advocate themself or one of their assistants.
func (a Actor) ActsFor(advocateID uint64) bool {
	if a.IsAdvocate(advocateID) {
		return true
	}
	return a.Role == RoleAssistant && a.AssistantOf != nil && *a.AssistantOf == advocateID
}
