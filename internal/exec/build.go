package exec

import (
	"fmt"
	"sync"
	"time"

	"github.com/komodo-io/komodo-core/internal/actionstate"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/logging"
	"github.com/komodo-io/komodo-core/internal/metrics"
	"github.com/komodo-io/komodo-core/internal/periphery"
)

// forcedReleaseWindow bounds how long a build's Update can stay InProgress
// once a cancel for that build has arrived (spec §4.3, §5 "60 s").
const forcedReleaseWindow = 60 * time.Second

// buildImageNameTag resolves the `image_name:tag` a Build publishes to,
// sharing the toSafeImageName fallback resolveImage applies on the deploy
// side; no registry domain/org/account prefix is added here (spec §4.6/§4.7).
func buildImageNameTag(b *domain.Build) (name, tag string) {
	name = b.Config.ImageName
	if name == "" {
		name = toSafeImageName(b.Name)
	}
	tag = b.Config.Version.String()
	if b.Config.ImageTag != "" {
		tag = tag + "-" + b.Config.ImageTag
	}
	return name, tag
}

// RunBuild implements spec §4.7's Build run sequence: acquire the building
// guard, bump the patch version in memory, provision (or reuse) a builder,
// clone the repo, invoke the build, fan out post-build redeploys on
// success, and always release whatever the builder acquired.
func (e *Engine) RunBuild(id, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindBuild, id, actionstate.FlagBuilding, "RunBuild", operator)
	if err != nil {
		return nil, err
	}

	// release is the shared finalize+guard-release body; finish runs it exactly
	// once, either when RunBuild returns or, once a cancel for this build has
	// arrived, when forcedReleaseWindow elapses first (spec §4.3 "60 s"
	// fallback — a cancelled build's Update does not sit InProgress forever).
	release := func() {
		_ = e.Journal.Finalize(u)
		guard.Release()
		metrics.UpdatesTotal.WithLabelValues(string(domain.KindBuild), "RunBuild", boolLabel(u.Success)).Inc()
	}
	var releaseOnce sync.Once
	finish := func() { releaseOnce.Do(release) }
	defer finish()

	cancelCh := e.cancel.subscribe()
	cancelled := make(chan struct{})
	go func() {
		defer e.cancel.unsubscribe(cancelCh)
		for {
			select {
			case msg, ok := <-cancelCh:
				if !ok {
					return
				}
				if msg.targetId != id {
					continue
				}
				close(cancelled)
				forcedReleaseAfter(forcedReleaseWindow, finish)
				return
			case <-cancelled:
				return
			}
		}
	}()

	build, err := e.Store.GetBuild(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}

	builder, err := e.Store.GetBuilder(build.Config.BuilderId)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-builder", err))
		return u, err
	}

	nextVersion := build.Config.Version.IncrementPatch()
	build.Config.Version = nextVersion
	u.Version = nextVersion.String()

	client, cleanup, err := e.getBuilderPeriphery(build)
	defer e.cleanupBuilderInstance(cleanup)
	if err != nil {
		e.Journal.AppendLog(u, logErr("provision", err))
		return u, err
	}

	select {
	case <-cancelled:
		e.Journal.AppendLog(u, logErr("cancel", fmt.Errorf("build cancelled before repo checkout")))
		return u, nil
	default:
	}

	snap, err := e.snapshot()
	if err != nil {
		e.Journal.AppendLog(u, logErr("snapshot", err))
		return u, err
	}

	var gitToken string
	repo := domain.Repo{Config: domain.RepoConfig{
		Repo:        build.Config.Repo,
		Branch:      build.Config.Branch,
		Commit:      build.Config.Commit,
		GitProvider: build.Config.GitProvider,
		GitAccount:  build.Config.GitAccount,
	}}
	repoResp, err := client.PullOrCloneRepo(bgCtx(), periphery.PullOrCloneRepoRequest{
		Repo:     repo,
		GitToken: gitToken,
	})
	if err != nil {
		e.Journal.AppendLog(u, logErr("clone", err))
		return u, err
	}
	for _, l := range repoResp.Logs {
		e.Journal.AppendLog(u, l)
	}
	u.CommitHash = repoResp.CommitHash

	select {
	case <-cancelled:
		e.Journal.AppendLog(u, logErr("cancel", fmt.Errorf("build cancelled after repo checkout")))
		if builder.Config.Type == domain.BuilderTypeServer {
			logging.Info("cancellation not possible for Server builders; use an ephemeral builder")
		}
		return u, nil
	default:
	}

	imageName, tag := buildImageNameTag(build)
	var registryToken string
	if build.Config.ImageRegistry.Account != "" {
		registryToken, _ = e.RegistryAuth.Token(build.Config.ImageRegistry.Domain, build.Config.ImageRegistry.Account)
	}

	resp, err := client.Build(bgCtx(), periphery.BuildRequest{
		Build:         *build,
		ImageName:     imageName,
		ImageTag:      tag,
		GitToken:      gitToken,
		RegistryToken: registryToken,
		Replacers:     replacersFor(snap, nil),
	})
	if err != nil {
		e.Journal.AppendLog(u, logErr("build", err))
		return u, err
	}
	for _, l := range resp.Logs {
		e.Journal.AppendLog(u, l)
	}

	if !resp.Pushed {
		return u, nil
	}

	build.Info.LastBuiltAt = time.Now().UnixMilli()
	if err := e.Store.UpdateBuild(build); err != nil {
		e.Journal.AppendLog(u, logErr("persist", err))
		return u, err
	}

	e.fanOutPostBuildRedeploys(build, u)

	return u, nil
}

// CancelBuild broadcasts a cancellation for a running Build (spec §4.3).
func (e *Engine) CancelBuild(buildId, updateId string) {
	e.cancel.publish(cancelMsg{targetId: buildId, updateId: updateId})
}
