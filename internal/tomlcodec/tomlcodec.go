// Package tomlcodec parses and serializes the TOML resource-file format
// synced resources are authored in (spec §6, §9 Design Notes). Configs are
// kept as generic maps rather than 14 parallel partial-config types: a
// resource file only ever specifies the fields it wants to override, and
// the sync engine's diff/minimize logic (internal/exec/sync_diff.go) needs
// to compare and re-serialize whatever subset was present — a typed struct
// per kind would need its own "was this field set" tracking to do the same
// job twice.
package tomlcodec

import (
	"reflect"

	toml "github.com/pelletier/go-toml/v2"
)

// Entry is one resource block: the common envelope fields plus an
// open-ended config map holding only the fields the file specified.
type Entry struct {
	Name           string         `toml:"name"`
	Description    string         `toml:"description,omitempty"`
	Tags           []string       `toml:"tags,omitempty"`
	BasePermission string         `toml:"base_permission,omitempty"`
	Deploy         bool           `toml:"deploy,omitempty"`
	After          []string       `toml:"after,omitempty"`
	Config         map[string]any `toml:"config,omitempty"`
}

// ResourcesToml is the root document shape (spec §4.8 "ResourcesToml
// {servers, deployments, stacks, builds, repos, procedures, actions,
// builders, alerters, server_templates, resource_syncs, variables,
// user_groups}").
type ResourcesToml struct {
	Server         []Entry `toml:"server,omitempty"`
	Deployment     []Entry `toml:"deployment,omitempty"`
	Stack          []Entry `toml:"stack,omitempty"`
	Build          []Entry `toml:"build,omitempty"`
	Repo           []Entry `toml:"repo,omitempty"`
	Procedure      []Entry `toml:"procedure,omitempty"`
	Action         []Entry `toml:"action,omitempty"`
	Builder        []Entry `toml:"builder,omitempty"`
	Alerter        []Entry `toml:"alerter,omitempty"`
	ServerTemplate []Entry `toml:"server_template,omitempty"`
	ResourceSync   []Entry `toml:"resource_sync,omitempty"`
	Variable       []Entry `toml:"variable,omitempty"`
	UserGroup      []Entry `toml:"user_group,omitempty"`
}

// Parse decodes a TOML resource file.
func Parse(data []byte) (*ResourcesToml, error) {
	var r ResourcesToml
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Serialize encodes a ResourcesToml document back to TOML.
func Serialize(r *ResourcesToml) ([]byte, error) {
	return toml.Marshal(r)
}

// MinimizePartial drops every key from config whose value equals the
// matching key in defaults, so only the fields that actually differ get
// written out to a synced TOML entry (spec §4.8 "resource.config is
// minimized to only the differing fields").
func MinimizePartial(config, defaults map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range config {
		if dv, ok := defaults[k]; !ok || !reflect.DeepEqual(v, dv) {
			out[k] = v
		}
	}
	return out
}
