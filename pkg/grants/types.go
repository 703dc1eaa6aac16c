package grants

import (
	"time"

	"github.com/folioworks/folio/pkg/model"
)

// Capability is a single permission over an object. Grants are additive;
// the absence of any grant is the default-deny state.
type Capability string

const (
	CapabilityRead   Capability = "read"
	CapabilityCreate Capability = "create"
	CapabilityUpdate Capability = "update"
	CapabilityDelete Capability = "delete"
)

// CRUD is the full capability set.
var CRUD = []Capability{CapabilityRead, CapabilityCreate, CapabilityUpdate, CapabilityDelete}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityRead, CapabilityCreate, CapabilityUpdate, CapabilityDelete:
		return true
	}
	return false
}

// ExceedsRead reports whether c grants more than read-only access. The
// shared-container privilege derivation requires this: read-only sharing
// means "can see content", not "can see who else can see content".
func (c Capability) ExceedsRead() bool {
	return c == CapabilityCreate || c == CapabilityUpdate || c == CapabilityDelete
}

// Grant is a (subject, object, capability) relation. Exactly one of
// SubjectID and GroupID is set; group grants apply to every member and
// the effective capability set is the union across both.
type Grant struct {
	ID         int64            `json:"id"`
	SubjectID  *int64           `json:"subject_id,omitempty"`
	GroupID    *int64           `json:"group_id,omitempty"`
	ObjectType model.EntityType `json:"object_type"`
	ObjectID   int64            `json:"object_id"`
	Capability Capability       `json:"capability"`
	GrantedBy  *int64           `json:"granted_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Group is a named set of profiles that grants can be attached to.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatorID int64     `json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember is a profile's membership in a group.
type GroupMember struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	ProfileID int64     `json:"profile_id"`
	AddedBy   *int64    `json:"added_by,omitempty"`
	AddedAt   time.Time `json:"added_at"`
}
