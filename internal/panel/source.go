package panel

import (
	"context"
	"fmt"

	"github.com/milsim-hq/rosterd/internal/whitelist"
)

// RemoteSource adapts the panel client to the whitelist.Source contract:
// every store operation fetches fresh remote content and every successful
// mutation pushes the rewritten text straight back. Two bridges racing on
// the same remote path lose updates last-write-wins, same as two
// processes racing on a local file.
type RemoteSource struct {
	client *Client
	path   string
}

// NewRemoteSource builds a source for the remote file at path.
func NewRemoteSource(client *Client, path string) *RemoteSource {
	return &RemoteSource{client: client, path: path}
}

// Fetch downloads the current remote file text.
func (s *RemoteSource) Fetch(ctx context.Context) (string, error) {
	text, err := s.client.Download(ctx, s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", whitelist.ErrSourceUnavailable, err)
	}
	return text, nil
}

// Push uploads text as the new remote file contents.
func (s *RemoteSource) Push(ctx context.Context, text string) error {
	if err := s.client.Upload(ctx, s.path, text); err != nil {
		return fmt.Errorf("%w: %v", whitelist.ErrSourceUnavailable, err)
	}
	return nil
}
