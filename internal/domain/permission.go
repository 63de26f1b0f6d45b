package domain

// Permission is a persisted row binding a UserGroup to a Target at a Level.
// UserGroup.Permissions (resourcesync/TOML-facing) describes the same data
// declaratively; Permission rows are the normalized, queryable storage form
// the delete path (spec §4.6 "Delete") and the sync engine's permission
// deltas operate on.
type Permission struct {
	Id          string          `json:"id"`
	UserGroupId string          `json:"user_group_id"`
	Target      Target          `json:"target"`
	Level       PermissionLevel `json:"level"`
}
