package exec

import (
	"fmt"

	"github.com/komodo-io/komodo-core/internal/actionstate"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/interp"
	"github.com/komodo-io/komodo-core/internal/periphery"
)

// interpolateStack interpolates file_contents, environment, extra_args,
// build_extra_args, and pre_deploy.command (spec §4.6 DeployStack), unless
// skip_secret_interp is set.
func (e *Engine) interpolateStack(s domain.Stack, snap interp.Snapshot) (domain.Stack, interp.Result, error) {
	if s.Config.SkipSecretInterp {
		return s, interp.Result{}, nil
	}
	var agg interp.Result

	fc, r, err := interp.Interpolate(s.Config.FileContents, snap)
	if err != nil {
		return domain.Stack{}, interp.Result{}, err
	}
	s.Config.FileContents = fc.Value
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	env, r, err := interp.InterpolateMap(s.Config.Environment, snap)
	if err != nil {
		return domain.Stack{}, interp.Result{}, err
	}
	s.Config.Environment = env
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	extraArgs, r, err := interp.InterpolateAll(s.Config.ExtraArgs, snap)
	if err != nil {
		return domain.Stack{}, interp.Result{}, err
	}
	s.Config.ExtraArgs = extraArgs
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	buildExtraArgs, r, err := interp.InterpolateAll(s.Config.BuildExtraArgs, snap)
	if err != nil {
		return domain.Stack{}, interp.Result{}, err
	}
	s.Config.BuildExtraArgs = buildExtraArgs
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	pd, r, err := interp.InterpolatePathCommand(interp.PathCommand{
		Path: s.Config.PreDeploy.Path, Command: s.Config.PreDeploy.Command,
	}, snap)
	if err != nil {
		return domain.Stack{}, interp.Result{}, err
	}
	s.Config.PreDeploy = domain.PreDeploy{Path: pd.Path, Command: pd.Command}
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	return s, agg, nil
}

// DeployStack implements spec §4.6 DeployStack.
func (e *Engine) DeployStack(id, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindStack, id, actionstate.FlagDeploying, "DeployStack", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindStack, "DeployStack")
	return e.deployStackInner(u, id)
}

// deployStackInner runs the body of DeployStack without taking the action
// guard — used both by DeployStack directly and by the deploy-cache drain,
// which takes its own outer guard (spec §4.2 "guards do not stack").
func (e *Engine) deployStackInner(u *domain.Update, id string) (*domain.Update, error) {
	s, err := e.Store.GetStack(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}
	server, err := e.Store.GetServer(s.Config.ServerId)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-server", err))
		return u, err
	}

	snap, err := e.snapshot()
	if err != nil {
		e.Journal.AppendLog(u, logErr("snapshot", err))
		return u, err
	}
	interpolated, ir, err := e.interpolateStack(*s, snap)
	if err != nil {
		e.Journal.AppendLog(u, logErr("interpolate", err))
		return u, err
	}

	var gitToken, registryToken string
	if s.Config.RegistryAccount != "" {
		registryToken, _ = e.RegistryAuth.Token(s.Config.RegistryProvider, s.Config.RegistryAccount)
	}

	resp, err := e.periphery(server).ComposeUp(bgCtx(), periphery.ComposeUpRequest{
		Stack:         interpolated,
		GitToken:      gitToken,
		RegistryToken: registryToken,
		Replacers:     replacersFor(snap, ir.SecretReplacers),
	})
	if err != nil {
		e.Journal.AppendLog(u, logErr("deploy-stack", err))
		return u, err
	}
	for _, l := range resp.Logs {
		e.Journal.AppendLog(u, l)
	}

	if resp.Deployed {
		s.Info.DeployedServices = resp.Services
		s.Info.DeployedContents = []domain.FileContentEntry{{Path: "docker-compose.yml", Contents: resp.FileContents}}
		s.Info.DeployedHash = resp.CommitHash
		s.Info.DeployedMessage = resp.CommitMessage
		s.Info.DeployedProjectName = defaultString(s.Config.ProjectName, s.Name)
	}
	if len(resp.Services) > 0 {
		s.Info.LatestServices = resp.Services
	}
	if s.Config.FileContents == "" {
		s.Info.RemoteContents = []domain.FileContentEntry{{Path: "docker-compose.yml", Contents: resp.FileContents}}
		s.Info.RemoteErrors = resp.RemoteErrors
	}
	s.Info.MissingFiles = resp.MissingFiles

	if err := e.Store.UpdateStack(s); err != nil {
		e.Journal.AppendLog(u, logErr("persist", err))
		return u, err
	}
	return u, nil
}

// DeployStackIfChanged compares the stored deployed vs. remote contents and
// only deploys if they diverge. It does not refresh the remote contents
// first; the comparison uses whatever Info.RemoteContents already holds.
func (e *Engine) DeployStackIfChanged(id, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindStack, id, actionstate.FlagDeploying, "DeployStackIfChanged", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindStack, "DeployStackIfChanged")

	s, err := e.Store.GetStack(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}

	if stackContentsEqual(s.Info.DeployedContents, s.Info.RemoteContents) {
		e.Journal.AppendLog(u, domain.Log{Stage: "no changes", Success: true})
		return u, nil
	}

	return e.deployStackInner(u, id)
}

func stackContentsEqual(a, b []domain.FileContentEntry) bool {
	if len(a) != len(b) {
		return false
	}
	idx := make(map[string]string, len(a))
	for _, e := range a {
		idx[e.Path] = e.Contents
	}
	for _, e := range b {
		if idx[e.Path] != e.Contents {
			return false
		}
	}
	return true
}

type composeOp func(c *periphery.Client, s *domain.Stack) (*domain.Log, error)

func (e *Engine) stackOperation(id, operator, flag, operation string, op composeOp) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindStack, id, flag, operation, operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindStack, operation)

	s, err := e.Store.GetStack(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}
	server, err := e.Store.GetServer(s.Config.ServerId)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-server", err))
		return u, err
	}
	log, err := op(e.periphery(server), s)
	if err != nil {
		e.Journal.AppendLog(u, logErr(operation, err))
		return u, err
	}
	e.Journal.AppendLog(u, *log)
	return u, nil
}

// PullStack pulls a Stack's compose images.
func (e *Engine) PullStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagPulling, "PullStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposePull(bgCtx(), periphery.ComposePullRequest{Stack: *s})
	})
}

// StartStack starts a previously-created compose project without rebuilding
// — thin periphery wrapper (spec §4.6).
func (e *Engine) StartStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagStarting, "StartStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposeStart(bgCtx(), *s)
	})
}

// RestartStack restarts every service of a Stack's compose project.
func (e *Engine) RestartStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagRestarting, "RestartStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposeRestart(bgCtx(), *s)
	})
}

// PauseStack pauses every service of a Stack's compose project.
func (e *Engine) PauseStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagPausing, "PauseStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposePause(bgCtx(), *s)
	})
}

// UnpauseStack unpauses every service of a Stack's compose project.
func (e *Engine) UnpauseStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagUnpausing, "UnpauseStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposeUnpause(bgCtx(), *s)
	})
}

// StopStack stops a Stack's compose project without removing containers.
func (e *Engine) StopStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagStopping, "StopStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposeStop(bgCtx(), *s)
	})
}

// DestroyStack tears down a Stack's compose project (spec §4.6 Delete path
// also calls this before removing the DB row).
func (e *Engine) DestroyStack(id, operator string) (*domain.Update, error) {
	return e.stackOperation(id, operator, actionstate.FlagDestroying, "DestroyStack", func(c *periphery.Client, s *domain.Stack) (*domain.Log, error) {
		return c.ComposeDestroy(bgCtx(), *s)
	})
}

// RenameStack mirrors RenameDeployment's rename semantics for Stacks (spec
// §4.6 "Rename"): rejects Unknown state, DB-only rename when NotDeployed,
// otherwise renames the live compose project first and aborts the DB
// update on RPC failure.
func (e *Engine) RenameStack(id, newName, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindStack, id, actionstate.FlagRenaming, "RenameStack", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindStack, "RenameStack")

	s, err := e.Store.GetStack(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}
	if s.Info.State == domain.StateUnknown {
		err := fmt.Errorf("cannot rename: container state is Unknown")
		e.Journal.AppendLog(u, logErr("rename", err))
		return u, err
	}

	if s.Info.State != domain.StateNotDeployed {
		server, err := e.Store.GetServer(s.Config.ServerId)
		if err != nil {
			e.Journal.AppendLog(u, logErr("resolve-server", err))
			return u, err
		}
		from := defaultString(s.Info.DeployedProjectName, s.Name)
		log, err := e.periphery(server).ComposeRename(bgCtx(), from, newName)
		if err != nil {
			e.Journal.AppendLog(u, logErr("rename-compose", err))
			return u, err
		}
		e.Journal.AppendLog(u, *log)
		s.Info.DeployedProjectName = newName
	}

	s.Name = newName
	if err := e.Store.UpdateStack(s); err != nil {
		e.Journal.AppendLog(u, logErr("persist", err))
		return u, err
	}
	return u, nil
}

// DeleteStack implements spec §4.6 "Delete" for Stacks.
func (e *Engine) DeleteStack(id, operator string) error {
	if err := e.checkExecutePermission(domain.KindStack, id, operator); err != nil {
		return err
	}
	s, err := e.Store.GetStack(id)
	if err != nil {
		return err
	}
	if s.Info.State != domain.StateNotDeployed && s.Info.State != domain.StateUnknown {
		if server, serr := e.Store.GetServer(s.Config.ServerId); serr == nil {
			_, _ = e.periphery(server).ComposeDestroy(bgCtx(), *s)
		}
	}
	_ = e.Store.DeletePermissionsForTarget(domain.Target{Kind: domain.KindStack, Id: id})
	return e.Store.DeleteStack(id)
}
