// Package source defines the contract between the inbox pipeline and a
// remote mailbox service, and the loosely typed record the remotes return.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/newsreader/internal/model"
)

// AuthError indicates that authentication has failed or expired for a remote.
// It is returned by remote clients when a 401 response or a failed login
// is received.
type AuthError struct {
	Remote  string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Remote, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Remote is a paginated mailbox service.
type Remote interface {
	// Name identifies the remote in logs and errors.
	Name() string

	// FetchPage returns one page (1-based) of raw records for view. An
	// empty page signals end of data; a page shorter than the configured
	// page size is the last one. bypassCache asks the remote to skip any
	// server-side caching.
	FetchPage(ctx context.Context, page int, view model.View, bypassCache bool) ([]RawEmail, error)

	// SetFlag writes a single flag on one item.
	SetFlag(ctx context.Context, id string, flag model.Flag, value bool) error

	// Counts returns the mailbox-wide unread/read totals.
	Counts(ctx context.Context) (model.Counts, error)
}
