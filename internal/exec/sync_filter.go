package exec

import (
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/tomlcodec"
)

// includeResource implements spec §4.8 "Filtering (include_resource)":
// include iff the name, kind, and tag filters all pass. kind is this
// loop's resource kind; required tags are matched against the entry's own
// Tags list, which carries names at this stage — the engine resolves them
// to ids only when writing.
func includeResource(cfg domain.ResourceSyncConfig, kind domain.Kind, entry tomlcodec.Entry) bool {
	if len(cfg.MatchResources) > 0 && !containsString(cfg.MatchResources, entry.Name) {
		return false
	}
	if cfg.MatchResourceType != "" && cfg.MatchResourceType != string(kind) {
		return false
	}
	if len(cfg.MatchTags) > 0 {
		for _, want := range cfg.MatchTags {
			if !containsString(entry.Tags, want) {
				return false
			}
		}
	}
	if kind == domain.KindResourceSync && cfg.FileContents != "" {
		// A sync cannot reference itself by file_contents (self-referential).
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// resolveTagIds maps tag names to ids, creating any tag that doesn't exist
// yet (spec §4.8 "the engine resolves or creates missing tags by name
// before writing").
func (e *Engine) resolveTagIds(names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		tag, err := e.Store.GetTagByName(name)
		if err != nil {
			tag = &domain.Tag{Meta: domain.Meta{Name: name}}
			if err := e.Store.CreateTag(tag); err != nil {
				return nil, err
			}
		}
		ids = append(ids, tag.Id)
	}
	return ids, nil
}

// tagNames maps tag ids back to names for display/diff purposes, best-effort.
func (e *Engine) tagNames(ids []string) []string {
	tags, err := e.Store.ListTags()
	if err != nil {
		return ids
	}
	byId := make(map[string]string, len(tags))
	for _, t := range tags {
		byId[t.Id] = t.Name
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if name, ok := byId[id]; ok {
			out[i] = name
		} else {
			out[i] = id
		}
	}
	return out
}
