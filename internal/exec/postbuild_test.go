package exec

import (
	"testing"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginTestUpdate(t *testing.T, e *Engine, kind domain.Kind, id string) *domain.Update {
	t.Helper()
	u, err := e.Journal.Begin("update-1", domain.Target{Kind: kind, Id: id}, "RunBuild", "operator")
	require.NoError(t, err)
	return u
}

func TestFanOutPostBuildRedeploysOnlyTargetsMatchingRunningDeployments(t *testing.T) {
	e := newTestEngine(t)
	build := &domain.Build{Meta: domain.Meta{Name: "app"}}
	require.NoError(t, e.Store.CreateBuild(build))

	running := &domain.Deployment{
		Meta:   domain.Meta{Name: "api"},
		Config: domain.DeploymentConfig{Image: domain.ImageSource{BuildId: build.Id}, RedeployOnBuild: true},
		Info:   domain.DeploymentInfo{State: domain.StateRunning},
	}
	require.NoError(t, e.Store.CreateDeployment(running))

	notOptedIn := &domain.Deployment{
		Meta:   domain.Meta{Name: "worker"},
		Config: domain.DeploymentConfig{Image: domain.ImageSource{BuildId: build.Id}, RedeployOnBuild: false},
		Info:   domain.DeploymentInfo{State: domain.StateRunning},
	}
	require.NoError(t, e.Store.CreateDeployment(notOptedIn))

	notRunning := &domain.Deployment{
		Meta:   domain.Meta{Name: "staging"},
		Config: domain.DeploymentConfig{Image: domain.ImageSource{BuildId: build.Id}, RedeployOnBuild: true},
		Info:   domain.DeploymentInfo{State: domain.StateNotDeployed},
	}
	require.NoError(t, e.Store.CreateDeployment(notRunning))

	otherBuild := &domain.Deployment{
		Meta:   domain.Meta{Name: "unrelated"},
		Config: domain.DeploymentConfig{Image: domain.ImageSource{BuildId: "other-build"}, RedeployOnBuild: true},
		Info:   domain.DeploymentInfo{State: domain.StateRunning},
	}
	require.NoError(t, e.Store.CreateDeployment(otherBuild))

	u := beginTestUpdate(t, e, domain.KindBuild, build.Id)
	e.fanOutPostBuildRedeploys(build, u)

	require.NotEmpty(t, u.Logs)
	summary := u.Logs[len(u.Logs)-1]
	assert.Contains(t, summary.Stdout+summary.Stderr, "api")
	assert.NotContains(t, summary.Stdout+summary.Stderr, "worker")
	assert.NotContains(t, summary.Stdout+summary.Stderr, "staging")
	assert.NotContains(t, summary.Stdout+summary.Stderr, "unrelated")
}

func TestFanOutPostBuildRedeploysNoOpWhenNoTargets(t *testing.T) {
	e := newTestEngine(t)
	build := &domain.Build{Meta: domain.Meta{Name: "app"}}
	require.NoError(t, e.Store.CreateBuild(build))

	u := beginTestUpdate(t, e, domain.KindBuild, build.Id)
	e.fanOutPostBuildRedeploys(build, u)

	assert.Empty(t, u.Logs)
}

func TestFanOutPostBuildRedeploysReportsFailuresSeparately(t *testing.T) {
	e := newTestEngine(t)
	build := &domain.Build{Meta: domain.Meta{Name: "app"}}
	require.NoError(t, e.Store.CreateBuild(build))

	// No ServerId configured, so Deploy fails resolving the Deployment's
	// server - landing this target in the "failed to redeploy" log line.
	failing := &domain.Deployment{
		Meta:   domain.Meta{Name: "api"},
		Config: domain.DeploymentConfig{Image: domain.ImageSource{BuildId: build.Id}, RedeployOnBuild: true},
		Info:   domain.DeploymentInfo{State: domain.StateRunning},
	}
	require.NoError(t, e.Store.CreateDeployment(failing))

	u := beginTestUpdate(t, e, domain.KindBuild, build.Id)
	e.fanOutPostBuildRedeploys(build, u)

	require.Len(t, u.Logs, 2)
	assert.Contains(t, u.Logs[1].Stderr, "api")
	assert.False(t, u.Logs[1].Success)
}
