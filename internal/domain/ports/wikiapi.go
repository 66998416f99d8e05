// Package ports defines interfaces for external service communication.
package ports

import (
	"context"

	"github.com/ersonp/suggestor/internal/domain/entities"
)

// Identity is the result of resolving a bearer token against the identity
// provider.
type Identity struct {
	Name      string `json:"name,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// LoggedIn reports whether the identity names a real account.
func (i Identity) LoggedIn() bool {
	return !i.Anonymous && i.Name != ""
}

// WikiAPI defines the remote wiki operations the review pipeline relies on.
type WikiAPI interface {
	// GetUsername resolves a bearer token. An anonymous session is a
	// successful call returning Identity{Anonymous: true}; transport or
	// protocol failures return an error wrapping ErrUpstream.
	GetUsername(ctx context.Context, token string) (Identity, error)

	// GetDiff renders a comparison between edit.BaseRevisionID and edit.Text.
	GetDiff(ctx context.Context, edit entities.Edit) (string, error)

	// MakeEdit publishes edit.Text to the wiki as the token's owner.
	MakeEdit(ctx context.Context, edit entities.Edit, token string) error
}
