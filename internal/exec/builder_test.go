package exec

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgentServer serves a minimal /health so waitForAgent succeeds on its
// first attempt, avoiding reachabilityInterval's real sleep in a test.
func fakeAgentServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"test"}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

// agentHostPort splits an httptest server's listener address into the host
// and numeric port getBuilderPeriphery needs to build an agent address from.
func agentHostPort(t *testing.T, ts *httptest.Server) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(ts.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

type fakeCloudBuilder struct {
	provisionErr error
	terminateErr error
	ip           string

	terminated []string
}

func (f *fakeCloudBuilder) Provision(cfg domain.BuilderConfig, tagName string) (string, string, error) {
	if f.provisionErr != nil {
		return "", "", f.provisionErr
	}
	ip := f.ip
	if ip == "" {
		ip = "10.0.0.1"
	}
	return "instance-1", ip, nil
}
func (f *fakeCloudBuilder) PollRunning(instanceId string) error { return nil }
func (f *fakeCloudBuilder) Terminate(instanceId string) error {
	f.terminated = append(f.terminated, instanceId)
	return f.terminateErr
}

func TestCloudBuilderForReturnsConfiguredEC2Builder(t *testing.T) {
	e := newTestEngine(t)
	fake := &fakeCloudBuilder{}
	e.WithCloudBuilders(fake, nil)

	cb, err := e.cloudBuilderFor(domain.CloudProviderAWS)
	require.NoError(t, err)
	assert.Same(t, CloudBuilder(fake), cb)
}

func TestCloudBuilderForErrorsWhenEC2NotConfigured(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.cloudBuilderFor(domain.CloudProviderAWS)
	assert.True(t, komodoerr.Is(err, komodoerr.ProviderError))
}

func TestCloudBuilderForErrorsWhenHetznerNotConfigured(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.cloudBuilderFor(domain.CloudProviderHetzner)
	assert.True(t, komodoerr.Is(err, komodoerr.ProviderError))
}

func TestCloudBuilderForRejectsUnknownProvider(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.cloudBuilderFor(domain.CloudProvider("openstack"))
	assert.True(t, komodoerr.Is(err, komodoerr.InvalidConfig))
}

func TestRetryTeardownSucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := retryTeardown(func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGetBuilderPeripheryResolvesServerBuilder(t *testing.T) {
	e := newTestEngine(t)

	server := &domain.Server{Meta: domain.Meta{Name: "host-1"}, Config: domain.ServerConfig{Address: "http://10.0.0.5:8120", Passkey: "secret"}}
	require.NoError(t, e.Store.CreateServer(server))
	builder := &domain.Builder{Meta: domain.Meta{Name: "builder-1"}, Config: domain.BuilderConfig{Type: domain.BuilderTypeServer, ServerId: server.Id}}
	require.NoError(t, e.Store.CreateBuilder(builder))
	build := &domain.Build{Meta: domain.Meta{Name: "app"}, Config: domain.BuildConfig{BuilderId: builder.Id}}

	client, cleanup, err := e.getBuilderPeriphery(build)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, CleanupServer, cleanup.Kind)
	assert.Equal(t, build.Name, cleanup.RepoName)
}

func TestGetBuilderPeripheryProvisionsCloudBuilder(t *testing.T) {
	e := newTestEngine(t)
	ts := fakeAgentServer(t)
	host, port := agentHostPort(t, ts)

	fake := &fakeCloudBuilder{ip: host}
	e.WithCloudBuilders(fake, nil)

	builder := &domain.Builder{Meta: domain.Meta{Name: "cloud-builder"}, Config: domain.BuilderConfig{
		Type: domain.BuilderTypeCloud, Provider: domain.CloudProviderAWS, Port: port,
	}}
	require.NoError(t, e.Store.CreateBuilder(builder))
	build := &domain.Build{Meta: domain.Meta{Name: "app"}, Config: domain.BuildConfig{BuilderId: builder.Id, Version: domain.Version{Patch: 1}}}

	client, cleanup, err := e.getBuilderPeriphery(build)
	require.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, CleanupCloud, cleanup.Kind)
	assert.Equal(t, "instance-1", cleanup.InstanceId)
	assert.Equal(t, domain.CloudProviderAWS, cleanup.Provider)
}

func TestGetBuilderPeripheryErrorsWhenProviderNotConfigured(t *testing.T) {
	e := newTestEngine(t)

	builder := &domain.Builder{Meta: domain.Meta{Name: "cloud-builder"}, Config: domain.BuilderConfig{
		Type: domain.BuilderTypeCloud, Provider: domain.CloudProviderAWS,
	}}
	require.NoError(t, e.Store.CreateBuilder(builder))
	build := &domain.Build{Meta: domain.Meta{Name: "app"}, Config: domain.BuildConfig{BuilderId: builder.Id}}

	_, _, err := e.getBuilderPeriphery(build)
	assert.True(t, komodoerr.Is(err, komodoerr.ProviderError))
}

func TestCleanupBuilderInstanceIsNoopForServerBuilds(t *testing.T) {
	e := newTestEngine(t)
	fake := &fakeCloudBuilder{}
	e.WithCloudBuilders(fake, nil)

	e.cleanupBuilderInstance(CleanupData{Kind: CleanupServer})
	assert.Empty(t, fake.terminated)
}

func TestCleanupBuilderInstanceTerminatesCloudInstance(t *testing.T) {
	e := newTestEngine(t)
	fake := &fakeCloudBuilder{}
	e.WithCloudBuilders(fake, nil)

	e.cleanupBuilderInstance(CleanupData{Kind: CleanupCloud, InstanceId: "instance-9", Provider: domain.CloudProviderAWS})
	assert.Equal(t, []string{"instance-9"}, fake.terminated)
}

func TestCleanupBuilderInstanceRaisesCriticalOnTerminateFailure(t *testing.T) {
	e := newTestEngine(t)
	fake := &fakeCloudBuilder{terminateErr: assertError("terminate failed")}
	e.WithCloudBuilders(fake, nil)
	sink := &fakeAlertSink{}
	e.WithAlerter(sink)

	e.cleanupBuilderInstance(CleanupData{Kind: CleanupCloud, InstanceId: "instance-9", Provider: domain.CloudProviderAWS})

	require.Len(t, sink.received, 1)
	assert.Equal(t, SeverityCritical, sink.received[0].Severity)
}

type assertError string

func (e assertError) Error() string { return string(e) }

