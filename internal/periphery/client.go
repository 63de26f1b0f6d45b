// Package periphery is the RPC client Core uses to talk to Periphery agents
// (spec §4.1). Grounded on the teacher's pkg/client/client.go typed-method +
// context.WithTimeout shape; transport swapped from gRPC+mTLS to net/http +
// bearer passkey per spec §4.1/§6 (Periphery is a lightweight HTTP agent,
// not a raft peer).
package periphery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/komodo-io/komodo-core/internal/komodoerr"
)

const defaultTimeout = 10 * time.Second

// Client talks to one Periphery agent over HTTP using its passkey as
// bearer credential.
type Client struct {
	httpClient *http.Client
	baseURL    string
	passkey    string
}

// New builds a Client for the agent reachable at address, authenticating
// with passkey.
func New(address, passkey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    address,
		passkey:    passkey,
	}
}

// Replacer is a (value, placeholder) pair sent on the wire so the agent can
// redact secret values from the commands it echoes back in logs (spec
// §4.4).
type Replacer struct {
	Value       string `json:"value"`
	Placeholder string `json:"placeholder"`
}

// do issues one request/response round-trip. Transport-level failures and
// non-2xx responses both surface as the single RemoteTransport error
// variant the contract requires (spec §4.1).
func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return komodoerr.Wrap(komodoerr.RemoteTransport, "periphery."+path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return komodoerr.Wrap(komodoerr.RemoteTransport, "periphery."+path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.passkey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return komodoerr.Wrap(komodoerr.RemoteTransport, "periphery."+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return komodoerr.Wrap(komodoerr.RemoteTransport, "periphery."+path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return komodoerr.Wrap(komodoerr.RemoteTransport, "periphery."+path,
			fmt.Errorf("agent returned %d: %s", resp.StatusCode, string(data)))
	}

	if respBody == nil {
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, respBody); err != nil {
		return komodoerr.Wrap(komodoerr.RemoteTransport, "periphery."+path, err)
	}
	return nil
}

// HealthResponse is the no-payload ping response (spec §4.1).
type HealthResponse struct {
	Version string `json:"version"`
}

// Health pings the agent and returns its version.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
