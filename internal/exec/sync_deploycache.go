package exec

import (
	"fmt"
	"reflect"
	"time"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/tomlcodec"
)

// deployCacheItem is one Deployment or Stack that build_deploy_cache decided
// needs a (re)deploy (spec §4.8 "Deploy cache").
type deployCacheItem struct {
	Kind   domain.Kind
	Id     string
	Name   string
	Reason string
	After  []string // pruned to only parents that will also deploy
}

// buildDeployCache implements spec §4.8 "build_deploy_cache": independent of
// the per-kind create/update/delete sets, decide which Deployments and
// Stacks need a (re)deploy after reconciliation.
func (e *Engine) buildDeployCache(resources *tomlcodec.ResourcesToml) ([]deployCacheItem, error) {
	marked := map[string]deployCacheItem{} // keyed by name, across both kinds

	for _, entry := range resources.Deployment {
		if !entry.Deploy {
			continue
		}
		item, err := e.evaluateDeploymentDeploy(entry)
		if err != nil {
			return nil, err
		}
		if item != nil {
			marked[entry.Name] = *item
		}
	}
	for _, entry := range resources.Stack {
		if !entry.Deploy {
			continue
		}
		item, err := e.evaluateStackDeploy(entry)
		if err != nil {
			return nil, err
		}
		if item != nil {
			marked[entry.Name] = *item
		}
	}

	// Parent propagation: anything not yet marked deploys if any of its
	// `after` parents is marked, repeating until a fixed point (spec §4.8
	// "If not self-marked, recursively evaluate parents... Else skip").
	// An entry with deploy=false can never be marked this way, parent or no
	// parent — only entries actually opted into deploy participate in the
	// fixed point at all.
	allEntries := map[string][]string{} // name -> after list, across both kinds
	for _, entry := range resources.Deployment {
		if !entry.Deploy {
			continue
		}
		allEntries[entry.Name] = entry.After
	}
	for _, entry := range resources.Stack {
		if !entry.Deploy {
			continue
		}
		allEntries[entry.Name] = entry.After
	}

	changed := true
	for changed {
		changed = false
		for name, after := range allEntries {
			if _, ok := marked[name]; ok {
				continue
			}
			for _, parent := range after {
				if _, ok := marked[parent]; ok {
					item := deployCacheItem{Kind: domain.KindDeployment, Name: name, Reason: fmt.Sprintf("parent %s is deploying", parent), After: after}
					if d, err := e.Store.GetDeploymentByName(name); err == nil {
						item.Id = d.Id
					} else if s, err := e.Store.GetStackByName(name); err == nil {
						item.Kind, item.Id = domain.KindStack, s.Id
					}
					marked[name] = item
					changed = true
					break
				}
			}
		}
	}

	out := make([]deployCacheItem, 0, len(marked))
	for _, item := range marked {
		var pruned []string
		for _, parent := range item.After {
			if _, ok := marked[parent]; ok {
				pruned = append(pruned, parent)
			}
		}
		item.After = pruned
		out = append(out, item)
	}
	return out, nil
}

func (e *Engine) evaluateDeploymentDeploy(entry tomlcodec.Entry) (*deployCacheItem, error) {
	existing, err := e.Store.GetDeploymentByName(entry.Name)
	if err != nil {
		return &deployCacheItem{Kind: domain.KindDeployment, Name: entry.Name, Reason: "deploy on creation", After: entry.After}, nil
	}

	switch existing.Info.State {
	case domain.StateUnknown:
		return nil, nil
	case domain.StateRunning:
		var incoming domain.Deployment
		fromMap(entry.Config, &incoming.Config)
		if !reflect.DeepEqual(incoming.DockerRunAffectingFingerprint(), existing.DockerRunAffectingFingerprint()) {
			return &deployCacheItem{Kind: domain.KindDeployment, Id: existing.Id, Name: entry.Name, Reason: "config has changed", After: entry.After}, nil
		}
		if existing.Config.Image.IsBuild() && existing.Config.Image.Version != "" && existing.Config.Image.Version != "latest" {
			build, err := e.Store.GetBuild(existing.Config.Image.BuildId)
			if err == nil && build.Config.Version.String() != existing.Info.DeployedVersion {
				return &deployCacheItem{Kind: domain.KindDeployment, Id: existing.Id, Name: entry.Name, Reason: "newer build version available", After: entry.After}, nil
			}
		}
		return nil, nil
	default:
		return &deployCacheItem{Kind: domain.KindDeployment, Id: existing.Id, Name: entry.Name, Reason: fmt.Sprintf("current state is %s", existing.Info.State), After: entry.After}, nil
	}
}

func (e *Engine) evaluateStackDeploy(entry tomlcodec.Entry) (*deployCacheItem, error) {
	existing, err := e.Store.GetStackByName(entry.Name)
	if err != nil {
		return &deployCacheItem{Kind: domain.KindStack, Name: entry.Name, Reason: "deploy on creation", After: entry.After}, nil
	}

	switch existing.Info.State {
	case domain.StateUnknown:
		return nil, nil
	case domain.StateRunning:
		var incoming domain.Stack
		fromMap(entry.Config, &incoming.Config)
		if !reflect.DeepEqual(incoming.DockerRunAffectingFingerprint(), existing.DockerRunAffectingFingerprint()) {
			return &deployCacheItem{Kind: domain.KindStack, Id: existing.Id, Name: entry.Name, Reason: "config has changed", After: entry.After}, nil
		}
		if !reflect.DeepEqual(existing.Info.DeployedContents, existing.Info.RemoteContents) {
			return &deployCacheItem{Kind: domain.KindStack, Id: existing.Id, Name: entry.Name, Reason: "remote contents changed", After: entry.After}, nil
		}
		return nil, nil
	default:
		return &deployCacheItem{Kind: domain.KindStack, Id: existing.Id, Name: entry.Name, Reason: fmt.Sprintf("current state is %s", existing.Info.State), After: entry.After}, nil
	}
}

// drainDeployCache implements spec §4.8 "Deploy-cache drain": round-based,
// parallel within a round, abort remaining rounds on any round error, 1s
// sleep between non-empty rounds.
func (e *Engine) drainDeployCache(items []deployCacheItem, update *domain.Update) {
	pending := make(map[string]deployCacheItem, len(items))
	for _, it := range items {
		pending[it.Name] = it
	}

	for len(pending) > 0 {
		var round []deployCacheItem
		for _, it := range pending {
			ready := true
			for _, parent := range it.After {
				if _, stillPending := pending[parent]; stillPending {
					ready = false
					break
				}
			}
			if ready {
				round = append(round, it)
			}
		}
		if len(round) == 0 {
			// Cyclic or unresolved after-references: give up on what's left.
			e.Journal.AppendLog(update, logErr("deploy-cache-drain", fmt.Errorf("%d item(s) never became ready", len(pending))))
			return
		}

		type outcome struct {
			name string
			err  error
		}
		results := make(chan outcome, len(round))
		for _, it := range round {
			go func(it deployCacheItem) {
				var err error
				if it.Kind == domain.KindStack {
					_, err = e.DeployStack(it.Id, SyncOperator)
				} else {
					_, err = e.Deploy(it.Id, SyncOperator)
				}
				results <- outcome{name: it.Name, err: err}
			}(it)
		}

		var roundErr error
		for range round {
			o := <-results
			if o.err != nil {
				roundErr = fmt.Errorf("%s: %w", o.name, o.err)
			}
			delete(pending, o.name)
		}
		if roundErr != nil {
			e.Journal.AppendLog(update, logErr("deploy-cache-drain", roundErr))
			return
		}

		if len(pending) > 0 {
			time.Sleep(1 * time.Second)
		}
	}
}
