package exec

import (
	"fmt"
	"strings"

	"github.com/komodo-io/komodo-core/internal/actionstate"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/interp"
	"github.com/komodo-io/komodo-core/internal/periphery"
)

// toSafeImageName lowercases and replaces anything but [a-z0-9._-] with a
// dash, matching the "to_safe(name)" helper named in spec §4.6 Deploy.
func toSafeImageName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// resolveImage implements spec §4.6 Deploy's image resolution: Build-mode
// deployments compute `domain/org/account/image_name:tag` from the Build's
// config; Image-mode deployments pass their image through unchanged.
func (e *Engine) resolveImage(d *domain.Deployment) (image, registryAccount string, err error) {
	if !d.Config.Image.IsBuild() {
		return d.Config.Image.Image, d.Config.ImageRegistryAccount, nil
	}

	build, err := e.Store.GetBuild(d.Config.Image.BuildId)
	if err != nil {
		return "", "", err
	}

	imageName := build.Config.ImageName
	if imageName == "" {
		imageName = toSafeImageName(build.Name)
	}

	var prefix []string
	if build.Config.ImageRegistry.Domain != "" {
		prefix = append(prefix, build.Config.ImageRegistry.Domain)
	}
	if build.Config.ImageRegistry.Organization != "" {
		prefix = append(prefix, build.Config.ImageRegistry.Organization)
	}
	if build.Config.ImageRegistry.Account != "" {
		prefix = append(prefix, build.Config.ImageRegistry.Account)
	}
	prefix = append(prefix, imageName)
	fullName := strings.Join(prefix, "/")

	version := d.Config.Image.Version
	if version == "" || version == "latest" {
		version = build.Config.Version.String()
	}
	tag := version
	if build.Config.ImageTag != "" {
		tag = tag + "-" + build.Config.ImageTag
	}

	account := d.Config.ImageRegistryAccount
	if account == "" {
		account = build.Config.ImageRegistry.Account
	}

	return fmt.Sprintf("%s:%s", fullName, tag), account, nil
}

// interpolateDeployment runs the interpolator over every `[[NAME]]`-bearing
// field of a Deployment's config (spec §4.6 Deploy: "Interpolates
// environment, ports, volumes, extra_args, command"), unless
// skip_secret_interp is set (spec §4.4).
func (e *Engine) interpolateDeployment(d domain.Deployment, snap interp.Snapshot) (domain.Deployment, interp.Result, error) {
	if d.Config.SkipSecretInterp {
		return d, interp.Result{}, nil
	}
	var agg interp.Result

	env, r, err := interp.InterpolateMap(d.Config.Environment, snap)
	if err != nil {
		return domain.Deployment{}, interp.Result{}, err
	}
	d.Config.Environment = env
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	extraArgs, r, err := interp.InterpolateAll(d.Config.ExtraArgs, snap)
	if err != nil {
		return domain.Deployment{}, interp.Result{}, err
	}
	d.Config.ExtraArgs = extraArgs
	agg.GlobalReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, r.SecretReplacers...)

	cmdR, err := interp.Interpolate(d.Config.Command, snap)
	if err != nil {
		return domain.Deployment{}, interp.Result{}, err
	}
	d.Config.Command = cmdR.Value
	agg.GlobalReplacers = append(agg.GlobalReplacers, cmdR.GlobalReplacers...)
	agg.SecretReplacers = append(agg.SecretReplacers, cmdR.SecretReplacers...)

	ports, volumes := append([]domain.PortMapping(nil), d.Config.Ports...), append([]domain.VolumeMount(nil), d.Config.Volumes...)
	var fields []*string
	for i := range ports {
		fields = append(fields, &ports[i].Host, &ports[i].Container)
	}
	for i := range volumes {
		fields = append(fields, &volumes[i].Host, &volumes[i].Container)
	}
	for _, f := range fields {
		if r, err = interp.Interpolate(*f, snap); err != nil {
			return domain.Deployment{}, interp.Result{}, err
		}
		*f = r.Value
		agg.GlobalReplacers, agg.SecretReplacers = append(agg.GlobalReplacers, r.GlobalReplacers...), append(agg.SecretReplacers, r.SecretReplacers...)
	}
	d.Config.Ports, d.Config.Volumes = ports, volumes

	return d, agg, nil
}

func replacersFor(snap interp.Snapshot, names []string) []periphery.Replacer {
	out := make([]periphery.Replacer, 0, len(names))
	for _, n := range names {
		if v, ok := snap.Secrets[n]; ok {
			out = append(out, periphery.Replacer{Value: v, Placeholder: "[[" + n + "]]"})
		}
	}
	return out
}

// Deploy runs the Deploy operation (spec §4.6) for the Deployment id, under
// operator's identity.
func (e *Engine) Deploy(id, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindDeployment, id, actionstate.FlagDeploying, "Deploy", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindDeployment, "Deploy")

	d, err := e.Store.GetDeployment(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}

	image, account, err := e.resolveImage(d)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-image", err))
		return u, err
	}
	rpc := *d
	rpc.Config.Image.Image = image
	rpc.Config.ImageRegistryAccount = account

	server, err := e.Store.GetServer(d.Config.ServerId)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-server", err))
		return u, err
	}

	snap, err := e.snapshot()
	if err != nil {
		e.Journal.AppendLog(u, logErr("snapshot", err))
		return u, err
	}
	interpolated, ir, err := e.interpolateDeployment(rpc, snap)
	if err != nil {
		e.Journal.AppendLog(u, logErr("interpolate", err))
		return u, err
	}

	var token string
	if account != "" {
		domainName := registryDomainOf(image)
		token, err = e.RegistryAuth.Token(domainName, account)
		if err != nil {
			e.Journal.AppendLog(u, logErr("registry-auth", err))
			return u, err
		}
	}

	resp, err := e.periphery(server).Deploy(bgCtx(), periphery.DeployRequest{
		Deployment:    interpolated,
		StopSignal:    defaultString(d.Config.TerminationSignal, "SIGTERM"),
		StopTime:      defaultInt(d.Config.TerminationTimeout, 10),
		RegistryToken: token,
		Replacers:     replacersFor(snap, ir.SecretReplacers),
	})
	if err != nil {
		e.Journal.AppendLog(u, logErr("deploy", err))
		return u, err
	}
	e.Journal.AppendLog(u, resp.Log)

	d.Info.State = resp.State
	d.Info.DeployedVersion = versionLabel(d, image)
	_ = e.Store.UpdateDeployment(d)

	return u, nil
}

func versionLabel(d *domain.Deployment, resolvedImage string) string {
	if idx := strings.LastIndex(resolvedImage, ":"); idx >= 0 {
		return resolvedImage[idx+1:]
	}
	return d.Config.Image.Version
}

func registryDomainOf(image string) string {
	slash := strings.Index(image, "/")
	if slash < 0 {
		return ""
	}
	candidate := image[:slash]
	if strings.Contains(candidate, ".") || strings.Contains(candidate, ":") {
		return candidate
	}
	return ""
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// PullDeployment pulls the resolved image for a Deployment without touching
// its container, coalesced through the pull-dedup cache (spec §4.5, §4.6).
func (e *Engine) PullDeployment(id, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindDeployment, id, actionstate.FlagPulling, "PullDeployment", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindDeployment, "PullDeployment")

	d, err := e.Store.GetDeployment(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}
	image, account, err := e.resolveImage(d)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-image", err))
		return u, err
	}
	server, err := e.Store.GetServer(d.Config.ServerId)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-server", err))
		return u, err
	}
	var token string
	if account != "" {
		token, _ = e.RegistryAuth.Token(registryDomainOf(image), account)
	}

	log, err := e.PullCache.PullOrWait(server.Id, image, func() (domain.Log, error) {
		l, err := e.periphery(server).PullImage(bgCtx(), periphery.PullImageRequest{
			Name: image, Account: account, Token: token,
		})
		if err != nil {
			return domain.Log{}, err
		}
		return *l, nil
	})
	if err != nil {
		e.Journal.AppendLog(u, logErr("pull", err))
		return u, err
	}
	e.Journal.AppendLog(u, log)
	return u, nil
}

type containerOp func(c *periphery.Client) (*domain.Log, error)

func (e *Engine) containerOperation(id, operator, flag, operation string, op containerOp) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindDeployment, id, flag, operation, operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindDeployment, operation)

	d, err := e.Store.GetDeployment(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}
	server, err := e.Store.GetServer(d.Config.ServerId)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve-server", err))
		return u, err
	}
	log, err := op(e.periphery(server))
	if err != nil {
		e.Journal.AppendLog(u, logErr(operation, err))
		return u, err
	}
	e.Journal.AppendLog(u, *log)
	return u, nil
}

// StartContainer starts a Deployment's container (spec §4.6).
func (e *Engine) StartContainer(id, operator string) (*domain.Update, error) {
	return e.containerOperation(id, operator, actionstate.FlagStarting, "StartContainer", func(c *periphery.Client) (*domain.Log, error) {
		d, err := e.Store.GetDeployment(id)
		if err != nil {
			return nil, err
		}
		return c.StartContainer(bgCtx(), d.Name)
	})
}

// RestartContainer restarts a Deployment's container.
func (e *Engine) RestartContainer(id, operator string) (*domain.Update, error) {
	return e.containerOperation(id, operator, actionstate.FlagRestarting, "RestartContainer", func(c *periphery.Client) (*domain.Log, error) {
		d, err := e.Store.GetDeployment(id)
		if err != nil {
			return nil, err
		}
		return c.RestartContainer(bgCtx(), d.Name)
	})
}

// PauseContainer pauses a Deployment's container.
func (e *Engine) PauseContainer(id, operator string) (*domain.Update, error) {
	return e.containerOperation(id, operator, actionstate.FlagPausing, "PauseContainer", func(c *periphery.Client) (*domain.Log, error) {
		d, err := e.Store.GetDeployment(id)
		if err != nil {
			return nil, err
		}
		return c.PauseContainer(bgCtx(), d.Name)
	})
}

// UnpauseContainer unpauses a Deployment's container.
func (e *Engine) UnpauseContainer(id, operator string) (*domain.Update, error) {
	return e.containerOperation(id, operator, actionstate.FlagUnpausing, "UnpauseContainer", func(c *periphery.Client) (*domain.Log, error) {
		d, err := e.Store.GetDeployment(id)
		if err != nil {
			return nil, err
		}
		return c.UnpauseContainer(bgCtx(), d.Name)
	})
}

// StopContainer stops a Deployment's container, with optional signal/time
// override (defaults come from the Deployment's own termination config,
// spec §4.6).
func (e *Engine) StopContainer(id, operator, signal string, seconds int) (*domain.Update, error) {
	return e.containerOperation(id, operator, actionstate.FlagStopping, "StopContainer", func(c *periphery.Client) (*domain.Log, error) {
		d, err := e.Store.GetDeployment(id)
		if err != nil {
			return nil, err
		}
		sig := defaultString(signal, defaultString(d.Config.TerminationSignal, "SIGTERM"))
		t := seconds
		if t == 0 {
			t = defaultInt(d.Config.TerminationTimeout, 10)
		}
		return c.StopContainer(bgCtx(), d.Name, sig, t)
	})
}

// DestroyDeployment removes a Deployment's live container (spec §4.6), with
// the same signal/time override semantics as StopContainer.
func (e *Engine) DestroyDeployment(id, operator, signal string, seconds int) (*domain.Update, error) {
	return e.containerOperation(id, operator, actionstate.FlagDestroying, "DestroyDeployment", func(c *periphery.Client) (*domain.Log, error) {
		d, err := e.Store.GetDeployment(id)
		if err != nil {
			return nil, err
		}
		sig := defaultString(signal, defaultString(d.Config.TerminationSignal, "SIGTERM"))
		t := seconds
		if t == 0 {
			t = defaultInt(d.Config.TerminationTimeout, 10)
		}
		return c.RemoveContainer(bgCtx(), d.Name, sig, t)
	})
}

// RenameDeployment implements spec §4.6 "Rename": rejects Unknown state,
// DB-only rename when NotDeployed, otherwise renames the live container
// first and aborts the DB update on RPC failure.
func (e *Engine) RenameDeployment(id, newName, operator string) (*domain.Update, error) {
	u, guard, err := e.begin(domain.KindDeployment, id, actionstate.FlagRenaming, "RenameDeployment", operator)
	if err != nil {
		return nil, err
	}
	defer e.finish(u, guard, domain.KindDeployment, "RenameDeployment")

	d, err := e.Store.GetDeployment(id)
	if err != nil {
		e.Journal.AppendLog(u, logErr("resolve", err))
		return u, err
	}

	if d.Info.State == domain.StateUnknown {
		err := fmt.Errorf("cannot rename: container state is Unknown")
		e.Journal.AppendLog(u, logErr("rename", err))
		return u, err
	}

	if d.Info.State != domain.StateNotDeployed {
		server, err := e.Store.GetServer(d.Config.ServerId)
		if err != nil {
			e.Journal.AppendLog(u, logErr("resolve-server", err))
			return u, err
		}
		log, err := e.periphery(server).RenameContainer(bgCtx(), d.Name, newName)
		if err != nil {
			e.Journal.AppendLog(u, logErr("rename-container", err))
			return u, err
		}
		e.Journal.AppendLog(u, *log)
	}

	d.Name = newName
	if err := e.Store.UpdateDeployment(d); err != nil {
		e.Journal.AppendLog(u, logErr("persist", err))
		return u, err
	}
	return u, nil
}

// DeleteDeployment implements spec §4.6 "Delete": best-effort destroy the
// live container, delete permission rows, then delete the resource row.
func (e *Engine) DeleteDeployment(id, operator string) error {
	if err := e.checkExecutePermission(domain.KindDeployment, id, operator); err != nil {
		return err
	}
	d, err := e.Store.GetDeployment(id)
	if err != nil {
		return err
	}
	if d.Info.State != domain.StateNotDeployed && d.Info.State != domain.StateUnknown {
		if server, serr := e.Store.GetServer(d.Config.ServerId); serr == nil {
			sig := defaultString(d.Config.TerminationSignal, "SIGTERM")
			t := defaultInt(d.Config.TerminationTimeout, 10)
			_, _ = e.periphery(server).RemoveContainer(bgCtx(), d.Name, sig, t)
		}
	}
	_ = e.Store.DeletePermissionsForTarget(domain.Target{Kind: domain.KindDeployment, Id: id})
	return e.Store.DeleteDeployment(id)
}
