package exec

import (
	"fmt"
	"sync"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// fanOutPostBuildRedeploys implements spec §4.9: every running Deployment
// that tracks this Build with redeploy_on_build set is redeployed
// concurrently under SyncOperator, bypassing permission checks, with the
// outcome summarized back onto the Build's own Update as a "redeployed" log
// line plus, when any redeploy failed, an error log line naming the failures.
func (e *Engine) fanOutPostBuildRedeploys(build *domain.Build, buildUpdate *domain.Update) {
	deployments, err := e.Store.ListDeployments()
	if err != nil {
		e.Journal.AppendLog(buildUpdate, logErr("post-build-list", err))
		return
	}

	var targets []*domain.Deployment
	for _, d := range deployments {
		if d.Config.Image.BuildId != build.Id {
			continue
		}
		if !d.Config.RedeployOnBuild {
			continue
		}
		if d.Info.State != domain.StateRunning {
			continue
		}
		targets = append(targets, d)
	}
	if len(targets) == 0 {
		return
	}

	var mu sync.Mutex
	var succeeded, failed []string
	var wg sync.WaitGroup
	for _, d := range targets {
		wg.Add(1)
		go func(d *domain.Deployment) {
			defer wg.Done()
			_, err := e.Deploy(d.Id, SyncOperator)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, d.Name)
			} else {
				succeeded = append(succeeded, d.Name)
			}
		}(d)
	}
	wg.Wait()

	e.Journal.AppendLog(buildUpdate, logInfo("post-build-redeploy", fmt.Sprintf("redeployed: %v", succeeded)))
	if len(failed) > 0 {
		e.Journal.AppendLog(buildUpdate, logErr("post-build-redeploy", fmt.Errorf("failed to redeploy: %v", failed)))
	}
}
