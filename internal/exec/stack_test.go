package exec

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/interp"
	"github.com/komodo-io/komodo-core/internal/periphery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStackSnapshot() interp.Snapshot {
	return interp.Snapshot{
		Variables: map[string]string{"REGION": "us-east-1"},
		Secrets:   map[string]string{"DB_PASSWORD": "hunter2"},
	}
}

func TestInterpolateStackSubstitutesEveryField(t *testing.T) {
	e := newTestEngine(t)
	s := domain.Stack{Config: domain.StackConfig{
		FileContents:   "region: [[REGION]]",
		Environment:    map[string]string{"PASS": "[[DB_PASSWORD]]"},
		ExtraArgs:      []string{"--tag=[[REGION]]"},
		BuildExtraArgs: []string{"--build-arg=[[REGION]]"},
		PreDeploy:      domain.PreDeploy{Path: "/srv/[[REGION]]", Command: "echo [[DB_PASSWORD]]"},
	}}

	out, agg, err := e.interpolateStack(s, testStackSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "region: us-east-1", out.Config.FileContents)
	assert.Equal(t, "hunter2", out.Config.Environment["PASS"])
	assert.Equal(t, []string{"--tag=us-east-1"}, out.Config.ExtraArgs)
	assert.Equal(t, []string{"--build-arg=us-east-1"}, out.Config.BuildExtraArgs)
	assert.Equal(t, "/srv/us-east-1", out.Config.PreDeploy.Path)
	assert.Equal(t, "echo hunter2", out.Config.PreDeploy.Command)
	assert.Contains(t, agg.GlobalReplacers, "REGION")
	assert.Contains(t, agg.SecretReplacers, "DB_PASSWORD")
}

func TestInterpolateStackSkipsWhenConfigured(t *testing.T) {
	e := newTestEngine(t)
	s := domain.Stack{Config: domain.StackConfig{FileContents: "[[REGION]]", SkipSecretInterp: true}}

	out, agg, err := e.interpolateStack(s, testStackSnapshot())
	require.NoError(t, err)
	assert.Equal(t, "[[REGION]]", out.Config.FileContents)
	assert.Equal(t, interp.Result{}, agg)
}

func TestStackContentsEqual(t *testing.T) {
	a := []domain.FileContentEntry{{Path: "docker-compose.yml", Contents: "x"}}
	b := []domain.FileContentEntry{{Path: "docker-compose.yml", Contents: "x"}}
	assert.True(t, stackContentsEqual(a, b))

	c := []domain.FileContentEntry{{Path: "docker-compose.yml", Contents: "y"}}
	assert.False(t, stackContentsEqual(a, c))

	assert.False(t, stackContentsEqual(a, nil))
}

func TestDeployStackIfChangedSkipsWhenContentsMatch(t *testing.T) {
	e := newTestEngine(t)
	entries := []domain.FileContentEntry{{Path: "docker-compose.yml", Contents: "same"}}
	s := &domain.Stack{
		Meta: domain.Meta{Name: "core", BasePermission: domain.PermissionExecute},
		Info: domain.StackInfo{DeployedContents: entries, RemoteContents: entries},
	}
	require.NoError(t, e.Store.CreateStack(s))

	u, err := e.DeployStackIfChanged(s.Id, "operator")
	require.NoError(t, err)
	require.Len(t, u.Logs, 1)
	assert.Equal(t, "no changes", u.Logs[0].Stage)
}

func TestRenameStackRejectsUnknownState(t *testing.T) {
	e := newTestEngine(t)
	s := &domain.Stack{Meta: domain.Meta{Name: "core", BasePermission: domain.PermissionExecute}, Info: domain.StackInfo{State: domain.StateUnknown}}
	require.NoError(t, e.Store.CreateStack(s))

	_, err := e.RenameStack(s.Id, "renamed", "operator")
	assert.Error(t, err)

	unchanged, err := e.Store.GetStack(s.Id)
	require.NoError(t, err)
	assert.Equal(t, "core", unchanged.Name)
}

func TestRenameStackRenamesWhenNotDeployed(t *testing.T) {
	e := newTestEngine(t)
	s := &domain.Stack{
		Meta: domain.Meta{Name: "core", BasePermission: domain.PermissionExecute},
		Info: domain.StackInfo{State: domain.StateNotDeployed},
	}
	require.NoError(t, e.Store.CreateStack(s))

	_, err := e.RenameStack(s.Id, "renamed", "operator")
	require.NoError(t, err)

	renamed, err := e.Store.GetStack(s.Id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)
}

func TestRenameStackRenamesLiveComposeProjectWhenDeployed(t *testing.T) {
	e := newTestEngine(t)

	var gotPath string
	var gotReq struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(domain.Log{Stage: "compose-rename", Success: true})
	}))
	defer ts.Close()
	e.peripheryFactory = func(address, passkey string) *periphery.Client { return periphery.New(ts.URL, passkey) }

	server := &domain.Server{Meta: domain.Meta{Name: "host-1"}, Config: domain.ServerConfig{Address: ts.URL}}
	require.NoError(t, e.Store.CreateServer(server))

	s := &domain.Stack{
		Meta:   domain.Meta{Name: "core", BasePermission: domain.PermissionExecute},
		Config: domain.StackConfig{ServerId: server.Id},
		Info:   domain.StackInfo{State: domain.StateRunning, DeployedProjectName: "core"},
	}
	require.NoError(t, e.Store.CreateStack(s))

	_, err := e.RenameStack(s.Id, "renamed", "operator")
	require.NoError(t, err)

	assert.Equal(t, "/compose/rename", gotPath)
	assert.Equal(t, "core", gotReq.From)
	assert.Equal(t, "renamed", gotReq.To)

	renamed, err := e.Store.GetStack(s.Id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Name)
	assert.Equal(t, "renamed", renamed.Info.DeployedProjectName)
}

func TestRenameStackAbortsDBUpdateWhenLiveRenameFails(t *testing.T) {
	e := newTestEngine(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent unreachable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	e.peripheryFactory = func(address, passkey string) *periphery.Client { return periphery.New(ts.URL, passkey) }

	server := &domain.Server{Meta: domain.Meta{Name: "host-1"}, Config: domain.ServerConfig{Address: ts.URL}}
	require.NoError(t, e.Store.CreateServer(server))

	s := &domain.Stack{
		Meta:   domain.Meta{Name: "core", BasePermission: domain.PermissionExecute},
		Config: domain.StackConfig{ServerId: server.Id},
		Info:   domain.StackInfo{State: domain.StateRunning, DeployedProjectName: "core"},
	}
	require.NoError(t, e.Store.CreateStack(s))

	_, err := e.RenameStack(s.Id, "renamed", "operator")
	assert.Error(t, err)

	unchanged, err := e.Store.GetStack(s.Id)
	require.NoError(t, err)
	assert.Equal(t, "core", unchanged.Name)
}

func TestDeleteStackRemovesNotDeployedStackWithoutTouchingPeriphery(t *testing.T) {
	e := newTestEngine(t)
	s := &domain.Stack{
		Meta: domain.Meta{Name: "core", BasePermission: domain.PermissionExecute},
		Info: domain.StackInfo{State: domain.StateNotDeployed},
	}
	require.NoError(t, e.Store.CreateStack(s))

	require.NoError(t, e.DeleteStack(s.Id, "operator"))

	_, err := e.Store.GetStack(s.Id)
	assert.Error(t, err)
}
