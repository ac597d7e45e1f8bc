// Package api implements source.Remote against the newsletter service's
// HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
)

const remoteName = "api"

// Adapter implements source.Remote for the newsletter service.
type Adapter struct {
	client   *Client
	pageSize int
}

// NewAdapter creates a new API remote.
func NewAdapter(baseURL, token string, pageSize int, requestsPerSecond float64) *Adapter {
	if pageSize < 1 {
		pageSize = 20
	}
	return &Adapter{
		client:   NewClient(baseURL, token, requestsPerSecond),
		pageSize: pageSize,
	}
}

// Name returns the remote identifier.
func (a *Adapter) Name() string {
	return remoteName
}

// FetchPage retrieves one page of emails for view.
func (a *Adapter) FetchPage(
	ctx context.Context,
	page int,
	view model.View,
	bypassCache bool,
) ([]source.RawEmail, error) {
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(a.pageSize))
	q.Set("filter", string(view))
	if bypassCache {
		q.Set("nocache", "1")
	}

	body, err := a.client.Get(ctx, "/api/emails?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetching %s page %d: %w", view, page, err)
	}

	items, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("fetching %s page %d: %w", view, page, err)
	}
	return items, nil
}

// SetFlag patches a single flag on one email.
func (a *Adapter) SetFlag(
	ctx context.Context,
	id string,
	flag model.Flag,
	value bool,
) error {
	path := "/api/emails/" + url.PathEscape(id)
	body := map[string]bool{string(flag): value}
	if err := a.client.Patch(ctx, path, body); err != nil {
		return fmt.Errorf("setting %s=%t on %s: %w", flag, value, id, err)
	}
	return nil
}

// Counts retrieves the unread/read totals.
func (a *Adapter) Counts(ctx context.Context) (model.Counts, error) {
	body, err := a.client.Get(ctx, "/api/emails/counts")
	if err != nil {
		return model.Counts{}, fmt.Errorf("fetching counts: %w", err)
	}

	var resp CountsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Counts{}, fmt.Errorf("decoding counts: %w", err)
	}

	total := resp.Total
	if total == 0 {
		total = resp.Unread + resp.Read
	}
	return model.Counts{Unread: resp.Unread, Read: resp.Read, Total: total}, nil
}
