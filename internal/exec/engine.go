// Package exec implements the Execute* operation skeleton (spec §4.6):
// acquire guard, emit Update, resolve resource + linked resources,
// interpolate secrets, call periphery, push Log, refresh cache, finalize.
// Grounded on the teacher's pkg/worker/worker.go sequential stage-logged
// execute flow and pkg/manager/manager.go CRUD-per-kind shape, generalized
// across Komodo's resource kinds and retargeted from container scheduling to
// build/deploy dispatch.
package exec

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/komodo-io/komodo-core/internal/actionstate"
	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/interp"
	"github.com/komodo-io/komodo-core/internal/journal"
	"github.com/komodo-io/komodo-core/internal/metrics"
	"github.com/komodo-io/komodo-core/internal/periphery"
	"github.com/komodo-io/komodo-core/internal/pullcache"
	"github.com/komodo-io/komodo-core/internal/registryauth"
	"github.com/komodo-io/komodo-core/internal/store"
)

// SyncOperator is the synthetic identity post-build redeploys and sync-cache
// drains run under, bypassing permission checks (spec §4.9).
const SyncOperator = "sync"

// Engine wires every process-wide singleton the execution operations need
// (spec §5 "Shared resources"): the DB, action-state registry, pull cache,
// registry-auth resolver, cancel broadcaster, and periphery client factory.
type Engine struct {
	Store       *store.Store
	Journal     *journal.Journal
	ActionState *actionstate.Registry
	PullCache   *pullcache.Cache
	RegistryAuth *registryauth.Resolver
	ImagePrefix  ImagePrefixConfig

	cancel *cancelBroadcaster

	ec2     CloudBuilder
	hetzner CloudBuilder
	alerter AlertSink

	peripheryFactory func(address, passkey string) *periphery.Client
}

// WithCloudBuilders attaches the AWS EC2 and Hetzner CloudBuilder
// implementations (spec §4.7). Either may be nil if that provider is not
// configured; cloudBuilderFor then returns a ProviderError for that
// provider rather than panicking.
func (e *Engine) WithCloudBuilders(ec2, hetzner CloudBuilder) *Engine {
	e.ec2, e.hetzner = ec2, hetzner
	return e
}

// WithAlerter attaches an AlertSink (spec §4.7 "emits a Critical alert",
// §4.9 supplemented Ok/Warning/Critical severities).
func (e *Engine) WithAlerter(sink AlertSink) *Engine {
	e.alerter = sink
	return e
}

// ImagePrefixConfig holds the configured registry domain/organization
// prefix. resolveImage does not read it: build-resolved image names take
// their domain/org/account prefix from each Build's ImageRegistry config.
type ImagePrefixConfig struct {
	Domain       string
	Organization string
}

// New builds an Engine. peripheryFactory is injectable for tests.
func New(st *store.Store, j *journal.Journal, as *actionstate.Registry, pc *pullcache.Cache, ra *registryauth.Resolver) *Engine {
	return &Engine{
		Store:        st,
		Journal:      j,
		ActionState:  as,
		PullCache:    pc,
		RegistryAuth: ra,
		cancel:       newCancelBroadcaster(),
		peripheryFactory: func(address, passkey string) *periphery.Client {
			return periphery.New(address, passkey)
		},
	}
}

func (e *Engine) periphery(server *domain.Server) *periphery.Client {
	return e.peripheryFactory(server.Config.Address, server.Config.Passkey)
}

// snapshot loads the {variables, secrets} table for interpolation (spec
// §4.4 "fetched at operation start").
func (e *Engine) snapshot() (interp.Snapshot, error) {
	snap := interp.Snapshot{
		Variables: map[string]string{},
		Secrets:   map[string]string{},
	}
	vars, err := e.Store.ListVariables()
	if err != nil {
		return interp.Snapshot{}, err
	}
	for _, v := range vars {
		snap.Variables[v.Name] = v.Value
	}
	secrets, err := e.Store.ListSecretMeta()
	if err != nil {
		return interp.Snapshot{}, err
	}
	for _, meta := range secrets {
		full, err := e.Store.GetSecret(meta.Id)
		if err != nil {
			continue // secret box not configured, or value missing: tolerate and let a token miss fail interpolation
		}
		snap.Secrets[full.Name] = full.Value
	}
	return snap, nil
}

// begin is the common permission-check + guard-acquire + Update-emit
// prologue shared by every Execute* operation (spec §4.6 skeleton: "resolve
// resource (with permission check at PermissionLevel.Execute)").
func (e *Engine) begin(kind domain.Kind, id, flag, operation, operator string) (*domain.Update, *actionstate.Guard, error) {
	if err := e.checkExecutePermission(kind, id, operator); err != nil {
		return nil, nil, err
	}
	guard, err := e.ActionState.Acquire(kind, id, flag)
	if err != nil {
		metrics.ResourceBusyTotal.WithLabelValues(string(kind)).Inc()
		return nil, nil, err
	}
	u, err := e.Journal.Begin(uuid.NewString(), domain.Target{Kind: kind, Id: id}, operation, operator)
	if err != nil {
		guard.Release()
		return nil, nil, err
	}
	return u, guard, nil
}

// finish finalizes u, releases guard, and records the operation metric.
// Call via defer immediately after begin succeeds.
func (e *Engine) finish(u *domain.Update, guard *actionstate.Guard, kind domain.Kind, operation string) {
	_ = e.Journal.Finalize(u)
	guard.Release()
	metrics.UpdatesTotal.WithLabelValues(string(kind), operation, boolLabel(u.Success)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// logErr builds a failed Log entry from an error, for the "push a resulting
// Log (or an error Log)" step of the skeleton.
func logErr(stage string, err error) domain.Log {
	now := time.Now()
	return domain.Log{
		Stage:   stage,
		Stderr:  err.Error(),
		Success: false,
		StartTs: now,
		EndTs:   now,
	}
}

// logInfo builds a successful Log entry carrying an informational message,
// for summary lines that aren't the result of a periphery call (e.g. the
// post-build redeploy fan-out summary).
func logInfo(stage, message string) domain.Log {
	now := time.Now()
	return domain.Log{
		Stage:   stage,
		Stdout:  message,
		Success: true,
		StartTs: now,
		EndTs:   now,
	}
}

// bgCtx builds the background context every periphery call uses; operations
// are not individually cancellable by users (spec §5 "Cancellation").
func bgCtx() context.Context {
	return context.Background()
}
