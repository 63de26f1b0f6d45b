package periphery

import (
	"context"
	"net/http"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// CloneRepoRequest clones a repo fresh onto the remote host.
type CloneRepoRequest struct {
	Repo        domain.Repo `json:"repo"`
	GitToken    string      `json:"git_token,omitempty"`
	Replacers   []Replacer  `json:"replacers,omitempty"`
}

// RepoActionResponse is the {logs, commit_hash?, commit_message?,
// env_file_path?} shape returned by CloneRepo/PullOrCloneRepo (spec §4.1).
type RepoActionResponse struct {
	Logs          []domain.Log `json:"logs"`
	CommitHash    string       `json:"commit_hash,omitempty"`
	CommitMessage string       `json:"commit_message,omitempty"`
	EnvFilePath   string       `json:"env_file_path,omitempty"`
}

// CloneRepo clones a repo fresh.
func (c *Client) CloneRepo(ctx context.Context, req CloneRepoRequest) (*RepoActionResponse, error) {
	var raw json13Envelope
	if err := c.do(ctx, http.MethodPost, "/git/clone", req, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}

// PullOrCloneRepoRequest pulls an existing clone, or clones if absent.
type PullOrCloneRepoRequest struct {
	Repo      domain.Repo `json:"repo"`
	GitToken  string      `json:"git_token,omitempty"`
	Replacers []Replacer  `json:"replacers,omitempty"`
}

// PullOrCloneRepo pulls the repo if already cloned, clones otherwise.
func (c *Client) PullOrCloneRepo(ctx context.Context, req PullOrCloneRepoRequest) (*RepoActionResponse, error) {
	var raw json13Envelope
	if err := c.do(ctx, http.MethodPost, "/git/pull-or-clone", req, &raw); err != nil {
		return nil, err
	}
	return raw.normalize(), nil
}
