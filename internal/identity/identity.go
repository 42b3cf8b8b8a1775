package identity

import "github.com/google/uuid"

// counselorID is the storage representation of the scripted counselor
// persona. It is never produced by registration and must never appear in
// match results.
var counselorID = uuid.Nil

// Identity is either a human user or the distinguished counselor persona.
// Keeping the distinction as a tag means exclusion logic is a comparison on
// Kind, not a string match against a well-known UUID.
type Identity struct {
	Kind Kind
	ID   uuid.UUID
}

type Kind int

const (
	KindHuman Kind = iota
	KindCounselor
)

func Human(id uuid.UUID) Identity {
	return Identity{Kind: KindHuman, ID: id}
}

func Counselor() Identity {
	return Identity{Kind: KindCounselor, ID: counselorID}
}

// FromStored maps a persisted sender/owner id back to an Identity.
func FromStored(id uuid.UUID) Identity {
	if id == counselorID {
		return Counselor()
	}
	return Human(id)
}

func (i Identity) IsCounselor() bool {
	return i.Kind == KindCounselor
}

// StorageID is the uuid written to sender/owner columns.
func (i Identity) StorageID() uuid.UUID {
	return i.ID
}

func (i Identity) Equal(other Identity) bool {
	return i.Kind == other.Kind && i.ID == other.ID
}

func (i Identity) String() string {
	if i.Kind == KindCounselor {
		return "counselor"
	}
	return i.ID.String()
}
