package periphery

import (
	"context"
	"net/http"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// ComposeUpRequest is the compose-oriented ComposeUp call (spec §4.1).
// Service narrows the call to a single compose service; empty means the
// whole project.
type ComposeUpRequest struct {
	Stack         domain.Stack `json:"stack"`
	Service       string       `json:"service,omitempty"`
	GitToken      string       `json:"git_token,omitempty"`
	RegistryToken string       `json:"registry_token,omitempty"`
	Replacers     []Replacer   `json:"replacers,omitempty"`
}

// ComposeUpResponse mirrors the fields the execution engine folds back into
// Stack.Info (spec §4.1 operation Deploy/DeployStack).
type ComposeUpResponse struct {
	Logs           []domain.Log `json:"logs"`
	Deployed       bool         `json:"deployed"`
	Services       []string     `json:"services"`
	FileContents   string       `json:"file_contents,omitempty"`
	MissingFiles   []string     `json:"missing_files,omitempty"`
	RemoteErrors   []string     `json:"remote_errors,omitempty"`
	CommitHash     string       `json:"commit_hash,omitempty"`
	CommitMessage  string       `json:"commit_message,omitempty"`
}

// ComposeUp brings up (or updates) a compose project.
func (c *Client) ComposeUp(ctx context.Context, req ComposeUpRequest) (*ComposeUpResponse, error) {
	var resp ComposeUpResponse
	if err := c.do(ctx, http.MethodPost, "/compose/up", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ComposePullRequest pulls the images referenced by a compose project
// without bringing it up.
type ComposePullRequest struct {
	Stack         domain.Stack `json:"stack"`
	Service       string       `json:"service,omitempty"`
	RegistryToken string       `json:"registry_token,omitempty"`
	Replacers     []Replacer   `json:"replacers,omitempty"`
}

// ComposePull pulls a compose project's images.
func (c *Client) ComposePull(ctx context.Context, req ComposePullRequest) (*domain.Log, error) {
	var log domain.Log
	if err := c.do(ctx, http.MethodPost, "/compose/pull", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// composeOpRequest is the shared shape for the Stack lifecycle verbs below
// (start/restart/pause/unpause/stop/destroy), which all take only the
// project identity and dispatch to the matching periphery route.
type composeOpRequest struct {
	Stack   domain.Stack `json:"stack"`
	Service string       `json:"service,omitempty"`
}

func (c *Client) composeVerb(ctx context.Context, route string, stack domain.Stack) (*domain.Log, error) {
	var log domain.Log
	req := composeOpRequest{Stack: stack}
	if err := c.do(ctx, http.MethodPost, route, req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// ComposeStart starts a previously-created compose project without
// recreating containers.
func (c *Client) ComposeStart(ctx context.Context, stack domain.Stack) (*domain.Log, error) {
	return c.composeVerb(ctx, "/compose/start", stack)
}

// ComposeRestart restarts every service in a compose project.
func (c *Client) ComposeRestart(ctx context.Context, stack domain.Stack) (*domain.Log, error) {
	return c.composeVerb(ctx, "/compose/restart", stack)
}

// ComposePause pauses every service in a compose project.
func (c *Client) ComposePause(ctx context.Context, stack domain.Stack) (*domain.Log, error) {
	return c.composeVerb(ctx, "/compose/pause", stack)
}

// ComposeUnpause unpauses every service in a compose project.
func (c *Client) ComposeUnpause(ctx context.Context, stack domain.Stack) (*domain.Log, error) {
	return c.composeVerb(ctx, "/compose/unpause", stack)
}

// ComposeStop stops every service in a compose project without removing
// containers.
func (c *Client) ComposeStop(ctx context.Context, stack domain.Stack) (*domain.Log, error) {
	return c.composeVerb(ctx, "/compose/stop", stack)
}

// ComposeDestroy tears down a compose project entirely.
func (c *Client) ComposeDestroy(ctx context.Context, stack domain.Stack) (*domain.Log, error) {
	return c.composeVerb(ctx, "/compose/destroy", stack)
}

// ComposeRename renames a live compose project's project name on the host,
// mirroring RenameContainer's container-rename contract for Stacks.
func (c *Client) ComposeRename(ctx context.Context, from, to string) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{From: from, To: to}
	if err := c.do(ctx, http.MethodPost, "/compose/rename", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}
