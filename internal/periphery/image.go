package periphery

import (
	"context"
	"net/http"

	"github.com/komodo-io/komodo-core/internal/domain"
)

// PullImageRequest is the image-oriented PullImage call (spec §4.1).
type PullImageRequest struct {
	Name    string `json:"name"`
	Account string `json:"account,omitempty"`
	Token   string `json:"token,omitempty"`
}

// PullImage pulls an image on the remote host, not any container.
func (c *Client) PullImage(ctx context.Context, req PullImageRequest) (*domain.Log, error) {
	var log domain.Log
	if err := c.do(ctx, http.MethodPost, "/image/pull", req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}
