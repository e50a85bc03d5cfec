// Package contacts defines the Store interface for resolving emergency
// contacts at dispatch time.
//
// Contact management (UI, persistence, permissions) is external to this
// system; the dispatcher only needs the resolved set: at most one primary
// call contact and any number of secondary SMS contacts. The package ships
// [StaticStore], an immutable in-memory store populated from configuration.
package contacts

import "context"

// Set is the resolved contact set for one dispatch.
type Set struct {
	// Primary is the phone number receiving the emergency call. Empty means
	// no call contact is configured.
	Primary string

	// Secondary lists the phone numbers receiving the distress SMS. May be
	// empty.
	Secondary []string
}

// Store resolves the emergency contact set.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Contacts returns the current contact set. An error means the backing
	// storage is unavailable; the dispatcher reports this and skips the
	// dispatch rather than guessing.
	Contacts(ctx context.Context) (Set, error)
}

// StaticStore is a [Store] with a fixed contact set, typically built from
// the configuration file. It is immutable and safe for concurrent use.
type StaticStore struct {
	set Set
}

// Compile-time interface check.
var _ Store = (*StaticStore)(nil)

// NewStatic creates a StaticStore. The secondary slice is copied.
func NewStatic(primary string, secondary []string) *StaticStore {
	sec := make([]string, len(secondary))
	copy(sec, secondary)
	return &StaticStore{set: Set{Primary: primary, Secondary: sec}}
}

// Contacts returns the fixed contact set.
func (s *StaticStore) Contacts(_ context.Context) (Set, error) {
	// Copy the slice so callers cannot mutate the store.
	sec := make([]string, len(s.set.Secondary))
	copy(sec, s.set.Secondary)
	return Set{Primary: s.set.Primary, Secondary: sec}, nil
}
