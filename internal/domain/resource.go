// Package domain defines the Komodo resource model: the generic Resource
// envelope, per-kind Config/Info shapes, and the Update/Log journal types.
package domain

import "time"

// Kind identifies a resource kind. Used as the bbolt bucket name and the
// action-state registry partition key.
type Kind string

const (
	KindServer       Kind = "Server"
	KindDeployment   Kind = "Deployment"
	KindStack        Kind = "Stack"
	KindBuild        Kind = "Build"
	KindRepo         Kind = "Repo"
	KindProcedure    Kind = "Procedure"
	KindAction       Kind = "Action"
	KindResourceSync Kind = "ResourceSync"
	KindBuilder      Kind = "Builder"
	KindAlerter      Kind = "Alerter"
	KindVariable     Kind = "Variable"
	KindUserGroup    Kind = "UserGroup"
	KindTag          Kind = "Tag"
	KindSecret       Kind = "Secret"
)

// AllKinds enumerates every resource kind, in the fixed sync execution order
// (spec §4.8 "Execution order") where applicable; Tag is appended as it is
// not itself sync-ordered but does need a bucket.
var AllKinds = []Kind{
	KindVariable,
	KindUserGroup,
	KindResourceSync,
	KindServer,
	KindAlerter,
	KindAction,
	KindBuilder,
	KindRepo,
	KindBuild,
	KindDeployment,
	KindStack,
	KindProcedure,
	KindTag,
	KindSecret,
}

// PermissionLevel is the access level a UserGroup permission binding grants.
type PermissionLevel string

const (
	PermissionRead    PermissionLevel = "Read"
	PermissionExecute PermissionLevel = "Execute"
	PermissionWrite   PermissionLevel = "Write"
)

// Meta is the fields common to every resource, embedded by each kind's
// concrete struct. Id is server-assigned and immutable; Name is unique
// within the kind.
type Meta struct {
	Id             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Tags           []string  `json:"tags,omitempty"` // tag ids
	BasePermission PermissionLevel `json:"base_permission,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Tag is a user-defined label resources can be grouped by.
type Tag struct {
	Meta
}

// Target identifies a resource by kind+id — the "ResourceTarget" sum type
// from spec §9 Design Notes, represented as a plain struct with a common
// accessor rather than a tagged union (Go has no native sum types).
type Target struct {
	Kind Kind   `json:"kind"`
	Id   string `json:"id"`
}

// ExtractVariantId returns the (kind, id) pair, mirroring the accessor named
// in spec §9.
func (t Target) ExtractVariantId() (Kind, string) {
	return t.Kind, t.Id
}

// PermissionBinding is one entry of a UserGroup's `permissions` list.
type PermissionBinding struct {
	Target Target          `json:"target"`
	Level  PermissionLevel `json:"level"`
}
