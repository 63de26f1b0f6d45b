package periphery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/komodoerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthReturnsVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "Bearer test-passkey", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(HealthResponse{Version: "1.2.3"})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	resp, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestDoSurfacesNonOKStatusAsRemoteTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, komodoerr.Is(err, komodoerr.RemoteTransport))
}

func TestDoSurfacesConnectionFailureAsRemoteTransport(t *testing.T) {
	c := New("http://127.0.0.1:1", "test-passkey")
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, komodoerr.Is(err, komodoerr.RemoteTransport))
}

func TestPullImagePostsRequestBody(t *testing.T) {
	var gotReq PullImageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/image/pull", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(domain.Log{Stage: "pull", Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	log, err := c.PullImage(context.Background(), PullImageRequest{Name: "example/api:latest", Account: "myorg"})
	require.NoError(t, err)
	assert.True(t, log.Success)
	assert.Equal(t, "example/api:latest", gotReq.Name)
	assert.Equal(t, "myorg", gotReq.Account)
}

func TestStartContainerSendsNameAndParsesLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/container/start", r.URL.Path)
		var body struct {
			Name string `json:"name"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "api-1", body.Name)
		_ = json.NewEncoder(w).Encode(domain.Log{Stage: "start", Success: true})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	log, err := c.StartContainer(context.Background(), "api-1")
	require.NoError(t, err)
	assert.True(t, log.Success)
}

func TestBuildPostsBuildRequestAndParsesResponse(t *testing.T) {
	var gotReq BuildRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/build", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(BuildResponse{Pushed: true, Logs: []domain.Log{{Stage: "docker-build", Success: true}}})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	build := domain.Build{Meta: domain.Meta{Name: "app"}}
	resp, err := c.Build(context.Background(), BuildRequest{Build: build, ImageName: "app", ImageTag: "1.0.0"})
	require.NoError(t, err)
	assert.True(t, resp.Pushed)
	assert.Equal(t, "app", gotReq.ImageName)
	assert.Equal(t, "1.0.0", gotReq.ImageTag)
}

func TestComposeUpPostsStackAndParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compose/up", r.URL.Path)
		var gotReq ComposeUpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		assert.Equal(t, "core", gotReq.Stack.Name)
		_ = json.NewEncoder(w).Encode(ComposeUpResponse{Deployed: true, Services: []string{"web", "db"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	resp, err := c.ComposeUp(context.Background(), ComposeUpRequest{Stack: domain.Stack{Meta: domain.Meta{Name: "core"}}})
	require.NoError(t, err)
	assert.True(t, resp.Deployed)
	assert.Equal(t, []string{"web", "db"}, resp.Services)
}

func TestPullOrCloneRepoPostsRepoAndParsesCommitHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/git/pull-or-clone", r.URL.Path)
		_ = json.NewEncoder(w).Encode(RepoActionResponse{CommitHash: "abc123"})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	resp, err := c.PullOrCloneRepo(context.Background(), PullOrCloneRepoRequest{Repo: domain.Repo{Meta: domain.Meta{Name: "app"}}})
	require.NoError(t, err)
	assert.Equal(t, "abc123", resp.CommitHash)
}

func TestPullOrCloneRepoTranslatesLegacyResponseShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"logs":[],"hash":"legacy-abc","msg":"legacy commit message"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "test-passkey")
	resp, err := c.PullOrCloneRepo(context.Background(), PullOrCloneRepoRequest{Repo: domain.Repo{Meta: domain.Meta{Name: "app"}}})
	require.NoError(t, err)
	assert.Equal(t, "legacy-abc", resp.CommitHash)
	assert.Equal(t, "legacy commit message", resp.CommitMessage)
}
