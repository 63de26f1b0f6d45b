package periphery

import (
	"context"
	"net/http"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// DeployRequest is the container-oriented Deploy call (spec §4.1). Image has
// already been resolved to a concrete "name:tag" string by the execution
// engine before reaching the client.
type DeployRequest struct {
	Deployment    domain.Deployment `json:"deployment"`
	StopSignal    string            `json:"stop_signal"`
	StopTime      int               `json:"stop_time"`
	RegistryToken string            `json:"registry_token,omitempty"`
	Replacers     []Replacer        `json:"replacers,omitempty"`
}

// DeployResponse carries the agent's execution log plus the container state
// observed immediately after.
type DeployResponse struct {
	Log   domain.Log    `json:"log"`
	State domain.State  `json:"state"`
}

// Deploy runs (or replaces) a container from a resolved image.
func (c *Client) Deploy(ctx context.Context, req DeployRequest) (*DeployResponse, error) {
	var resp DeployResponse
	if err := c.do(ctx, http.MethodPost, "/container/deploy", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartContainer starts a stopped container by name.
func (c *Client) StartContainer(ctx context.Context, name string) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPost, "/container/start", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// StopContainer stops a running container, signalling with signal and
// waiting up to time seconds before force-killing.
func (c *Client) StopContainer(ctx context.Context, name, signal string, seconds int) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		Name   string `json:"name"`
		Signal string `json:"signal,omitempty"`
		Time   int    `json:"time,omitempty"`
	}{Name: name, Signal: signal, Time: seconds}
	if err := c.do(ctx, http.MethodPost, "/container/stop", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// RestartContainer restarts a container by name.
func (c *Client) RestartContainer(ctx context.Context, name string) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPost, "/container/restart", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// PauseContainer pauses a container by name.
func (c *Client) PauseContainer(ctx context.Context, name string) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPost, "/container/pause", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// UnpauseContainer unpauses a container by name.
func (c *Client) UnpauseContainer(ctx context.Context, name string) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.do(ctx, http.MethodPost, "/container/unpause", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// RemoveContainer force-removes a container by name, signalling first.
func (c *Client) RemoveContainer(ctx context.Context, name, signal string, seconds int) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		Name   string `json:"name"`
		Signal string `json:"signal,omitempty"`
		Time   int    `json:"time,omitempty"`
	}{Name: name, Signal: signal, Time: seconds}
	if err := c.do(ctx, http.MethodPost, "/container/remove", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// RenameContainer renames a live container on the host.
func (c *Client) RenameContainer(ctx context.Context, from, to string) (*domain.Log, error) {
	var log domain.Log
	req := struct {
		From string `json:"from"`
		To   string `json:"to"`
	}{From: from, To: to}
	if err := c.do(ctx, http.MethodPost, "/container/rename", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}
