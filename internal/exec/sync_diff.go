package exec

import (
	"fmt"
	"reflect"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/tomlcodec"
)

// kindDiff is the create/update/delete plan for one kind (spec §4.8
// "get_updates_for_execution<T>").
type kindDiff struct {
	kind    domain.Kind
	creates []syncItem
	updates []syncItem // Id set, Config merged onto the kind's type defaults
	deletes []string   // ids
}

func entriesForKind(r *tomlcodec.ResourcesToml, kind domain.Kind) []tomlcodec.Entry {
	switch kind {
	case domain.KindVariable:
		return r.Variable
	case domain.KindUserGroup:
		return r.UserGroup
	case domain.KindResourceSync:
		return r.ResourceSync
	case domain.KindServer:
		return r.Server
	case domain.KindAlerter:
		return r.Alerter
	case domain.KindAction:
		return r.Action
	case domain.KindBuilder:
		return r.Builder
	case domain.KindRepo:
		return r.Repo
	case domain.KindBuild:
		return r.Build
	case domain.KindDeployment:
		return r.Deployment
	case domain.KindStack:
		return r.Stack
	case domain.KindProcedure:
		return r.Procedure
	default:
		return nil
	}
}

// diffKind computes the create/update/delete plan for one kind (spec §4.8
// "Diff computation"). Existing rows and incoming entries have already
// passed includeResource; deletion additionally requires managed/delete and,
// for Variable/UserGroup, an empty match_tags (spec §9 Open Question 2).
func (e *Engine) diffKind(syncCfg domain.ResourceSyncConfig, adapter kindAdapter, entries []tomlcodec.Entry) (kindDiff, error) {
	existing, err := adapter.list()
	if err != nil {
		return kindDiff{}, err
	}
	byName := make(map[string]syncItem, len(existing))
	for _, it := range existing {
		if includeResource(syncCfg, adapter.kind, tomlcodec.Entry{Name: it.Name, Tags: e.tagNames(it.Tags)}) {
			byName[it.Name] = it
		}
	}

	diff := kindDiff{kind: adapter.kind}
	seen := make(map[string]bool, len(entries))

	for _, entry := range entries {
		if !includeResource(syncCfg, adapter.kind, entry) {
			continue
		}
		seen[entry.Name] = true

		tagIds, err := e.resolveTagIds(entry.Tags)
		if err != nil {
			return kindDiff{}, err
		}

		current, exists := byName[entry.Name]
		if !exists {
			diff.creates = append(diff.creates, syncItem{
				Name: entry.Name, Description: entry.Description, Tags: tagIds, Config: entry.Config,
			})
			continue
		}

		// Project the incoming partial onto this kind's type defaults, not
		// onto the currently stored config (spec §4.8): a field the TOML
		// entry no longer sets must revert to its zero value rather than
		// keep whatever was last persisted.
		merged := make(map[string]any, len(adapter.defaults))
		for k, v := range adapter.defaults {
			merged[k] = v
		}
		for k, v := range entry.Config {
			merged[k] = v
		}

		configChanged := !reflect.DeepEqual(merged, current.Config)
		metaChanged := current.Description != entry.Description || !reflect.DeepEqual(e.tagNames(current.Tags), entry.Tags)
		if !configChanged && !metaChanged {
			continue
		}
		diff.updates = append(diff.updates, syncItem{
			Id: current.Id, Name: entry.Name, Description: entry.Description, Tags: tagIds, Config: merged,
		})
	}

	if syncCfg.Managed || syncCfg.Delete {
		if (adapter.kind == domain.KindVariable || adapter.kind == domain.KindUserGroup) && len(syncCfg.MatchTags) > 0 {
			return diff, nil
		}
		for name, it := range byName {
			if !seen[name] {
				diff.deletes = append(diff.deletes, it.Id)
			}
		}
	}

	return diff, nil
}

// applyKindDiff executes delete, then create, then update (spec §4.8
// "Within each kind, apply delete -> create -> update"), never aborting the
// kind on an individual item failure.
func (e *Engine) applyKindDiff(adapter kindAdapter, diff kindDiff) domain.Log {
	success := true
	var stderr string
	note := func(err error) {
		if err != nil {
			success = false
			stderr += err.Error() + "; "
		}
	}

	for _, id := range diff.deletes {
		note(adapter.delete(id))
	}
	for _, item := range diff.creates {
		note(adapter.create(item))
	}
	for _, item := range diff.updates {
		note(adapter.update(item.Id, item))
	}

	if success {
		return logInfo(string(adapter.kind), "")
	}
	return logErr(string(adapter.kind), fmt.Errorf("%s", stderr))
}
