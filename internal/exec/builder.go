package exec

import (
	"fmt"
	"time"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	"github.com/komodo-io/komodo-core/internal/logging"
	"github.com/komodo-io/komodo-core/internal/metrics"
	"github.com/komodo-io/komodo-core/internal/periphery"
)

// CleanupKind distinguishes a static Server builder from an ephemeral cloud
// instance needing teardown (spec §4.7 "get_builder_periphery").
type CleanupKind string

const (
	CleanupServer CleanupKind = "Server"
	CleanupCloud  CleanupKind = "Cloud"
)

// CleanupData is the handle the builder lifecycle needs to release whatever
// resource Build acquired (spec §4.7).
type CleanupData struct {
	Kind       CleanupKind
	RepoName   string // CleanupServer
	InstanceId string // CleanupCloud
	Region     string // CleanupCloud
	Provider   domain.CloudProvider
}

// CloudBuilder unifies provisioning/polling/teardown across cloud providers
// (spec §4.7: "EC2 example; Hetzner analogous"). Implemented by ec2Builder
// and hetznerBuilder.
type CloudBuilder interface {
	// Provision creates an instance and returns its id plus the IP address
	// to reach its Periphery agent on.
	Provision(cfg domain.BuilderConfig, tagName string) (instanceId, ip string, err error)
	// PollRunning polls until the instance reaches a running state.
	PollRunning(instanceId string) error
	// Terminate tears down instanceId, retrying per the teardown policy.
	Terminate(instanceId string) error
}

const (
	provisionPollAttempts   = 30
	provisionPollInterval   = 2 * time.Second
	reachabilityAttempts    = 30
	reachabilityInterval    = 2 * time.Second
	teardownAttempts        = 5
	teardownBackoff         = 15 * time.Second
)

// cloudBuilderFor resolves the CloudBuilder implementation for a provider.
func (e *Engine) cloudBuilderFor(provider domain.CloudProvider) (CloudBuilder, error) {
	switch provider {
	case domain.CloudProviderAWS:
		if e.ec2 == nil {
			return nil, komodoerr.Wrap(komodoerr.ProviderError, "exec.cloudBuilderFor", fmt.Errorf("EC2 builder not configured"))
		}
		return e.ec2, nil
	case domain.CloudProviderHetzner:
		if e.hetzner == nil {
			return nil, komodoerr.Wrap(komodoerr.ProviderError, "exec.cloudBuilderFor", fmt.Errorf("Hetzner builder not configured"))
		}
		return e.hetzner, nil
	default:
		return nil, komodoerr.Wrap(komodoerr.InvalidConfig, "exec.cloudBuilderFor", fmt.Errorf("unknown cloud provider: %s", provider))
	}
}

// getBuilderPeriphery implements spec §4.7 "get_builder_periphery": resolves
// a Build's configured Builder to a periphery client plus the cleanup
// handle needed to release whatever it acquired.
func (e *Engine) getBuilderPeriphery(build *domain.Build) (*periphery.Client, CleanupData, error) {
	builder, err := e.Store.GetBuilder(build.Config.BuilderId)
	if err != nil {
		return nil, CleanupData{}, err
	}

	if builder.Config.Type == domain.BuilderTypeServer {
		server, err := e.Store.GetServer(builder.Config.ServerId)
		if err != nil {
			return nil, CleanupData{}, err
		}
		return e.periphery(server), CleanupData{Kind: CleanupServer, RepoName: build.Name}, nil
	}

	cb, err := e.cloudBuilderFor(builder.Config.Provider)
	if err != nil {
		return nil, CleanupData{}, err
	}

	tagName := fmt.Sprintf("BUILDER-%s-v%s", build.Name, build.Config.Version.String())
	instanceId, ip, err := cb.Provision(builder.Config, tagName)
	if err != nil {
		cleanup := CleanupData{}
		if instanceId != "" {
			cleanup = CleanupData{Kind: CleanupCloud, InstanceId: instanceId, Region: builder.Config.Region, Provider: builder.Config.Provider}
		}
		return nil, cleanup, komodoerr.Wrap(komodoerr.ProviderError, "exec.getBuilderPeriphery", err)
	}
	timer := metrics.NewTimer()
	if err := cb.PollRunning(instanceId); err != nil {
		return nil, CleanupData{Kind: CleanupCloud, InstanceId: instanceId, Region: builder.Config.Region, Provider: builder.Config.Provider},
			komodoerr.Wrap(komodoerr.ProviderError, "exec.getBuilderPeriphery", err)
	}
	timer.ObserveDurationVec(metrics.BuilderProvisionDuration, string(builder.Config.Provider))

	port := builder.Config.Port
	if port == 0 {
		port = 8120
	}
	address := fmt.Sprintf("http://%s:%d", ip, port)
	client := e.peripheryFactory(address, "")

	if err := e.waitForAgent(client); err != nil {
		return nil, CleanupData{Kind: CleanupCloud, InstanceId: instanceId, Region: builder.Config.Region, Provider: builder.Config.Provider},
			komodoerr.Wrap(komodoerr.ProviderError, "exec.getBuilderPeriphery", err)
	}

	return client, CleanupData{Kind: CleanupCloud, InstanceId: instanceId, Region: builder.Config.Region, Provider: builder.Config.Provider}, nil
}

// waitForAgent polls the periphery /health endpoint until it responds or
// the attempt budget is exhausted (spec §4.7 step 4).
func (e *Engine) waitForAgent(client *periphery.Client) error {
	var lastErr error
	for i := 0; i < reachabilityAttempts; i++ {
		resp, err := client.Health(bgCtx())
		if err == nil {
			logging.Info("builder agent reachable, version=" + resp.Version)
			return nil
		}
		lastErr = err
		time.Sleep(reachabilityInterval)
	}
	return fmt.Errorf("agent unreachable after %d attempts: %w", reachabilityAttempts, lastErr)
}

// cleanupBuilderInstance releases whatever getBuilderPeriphery acquired —
// always invoked, regardless of build success, failure, or cancellation
// (spec §4.7 step 8). Teardown failures never abort the containing build
// operation; they alert instead (spec §7 propagation policy).
func (e *Engine) cleanupBuilderInstance(cleanup CleanupData) {
	if cleanup.Kind != CleanupCloud {
		return
	}
	cb, err := e.cloudBuilderFor(cleanup.Provider)
	if err != nil {
		logging.Errorf("cleanup builder: %v", err)
		return
	}
	if err := cb.Terminate(cleanup.InstanceId); err != nil {
		metrics.BuilderTerminationFailuresTotal.WithLabelValues(string(cleanup.Provider)).Inc()
		e.raiseCritical(fmt.Sprintf("builder instance %s (%s) failed to terminate: %v", cleanup.InstanceId, cleanup.Provider, err))
	}
}

// retryTeardown retries fn up to teardownAttempts times with
// teardownBackoff between attempts (spec §4.7 "retry up to 5 times with 15
// s backoff").
func retryTeardown(fn func() error) error {
	var lastErr error
	for i := 0; i < teardownAttempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i < teardownAttempts-1 {
			time.Sleep(teardownBackoff)
		}
	}
	return lastErr
}
