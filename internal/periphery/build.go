package periphery

import (
	"context"
	"net/http"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// BuildRequest asks the builder agent to build and push an image from a
// repo already cloned/pulled onto it (spec §4.7 step 6).
type BuildRequest struct {
	Build         domain.Build `json:"build"`
	ImageName     string       `json:"image_name"`
	ImageTag      string       `json:"image_tag"`
	GitToken      string       `json:"git_token,omitempty"`
	RegistryToken string       `json:"registry_token,omitempty"`
	Replacers     []Replacer   `json:"replacers,omitempty"`
}

// BuildResponse is the build-and-push outcome.
type BuildResponse struct {
	Logs   []domain.Log `json:"logs"`
	Pushed bool         `json:"pushed"`
}

// Build runs a docker build + push on the builder agent.
func (c *Client) Build(ctx context.Context, req BuildRequest) (*BuildResponse, error) {
	var resp BuildResponse
	if err := c.do(ctx, http.MethodPost, "/build", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
