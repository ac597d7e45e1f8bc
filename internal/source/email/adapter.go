// Package email implements source.Remote on top of a plain IMAP mailbox.
package email

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
)

const remoteName = "imap"

// flagReadLater is the IMAP keyword used for the read-later view.
const flagReadLater = imap.Flag("$ReadLater")

// mailbox is the subset of IMAPClient the adapter uses.
type mailbox interface {
	SearchUIDs(ctx context.Context, criteria *imap.SearchCriteria) ([]imap.UID, error)
	FetchMessages(ctx context.Context, uids []imap.UID) ([]Message, error)
	SetFlags(ctx context.Context, uid uint32, flags []imap.Flag, add bool) error
	MoveToTrash(ctx context.Context, uid uint32) error
	Status(ctx context.Context) (total, unseen uint32, err error)
}

// Adapter implements source.Remote for an IMAP INBOX.
type Adapter struct {
	box      mailbox
	pageSize int
}

// NewAdapter creates a new IMAP remote.
func NewAdapter(
	host, port string,
	username, password string,
	useTLS bool,
	pageSize int,
) *Adapter {
	return newAdapter(NewIMAPClient(host, port, username, password, useTLS), pageSize)
}

func newAdapter(box mailbox, pageSize int) *Adapter {
	if pageSize < 1 {
		pageSize = 20
	}
	return &Adapter{box: box, pageSize: pageSize}
}

// Name returns the remote identifier.
func (a *Adapter) Name() string {
	return remoteName
}

// FetchPage searches INBOX for the view, orders UIDs newest first and
// fetches the requested slice. IMAP has no server-side cache, so
// bypassCache is ignored.
func (a *Adapter) FetchPage(
	ctx context.Context,
	page int,
	view model.View,
	_ bool,
) ([]source.RawEmail, error) {
	uids, err := a.box.SearchUIDs(ctx, viewCriteria(view))
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", view, err)
	}

	pageUIDs := pageSlice(uids, page, a.pageSize)
	if len(pageUIDs) == 0 {
		return nil, nil
	}

	messages, err := a.box.FetchMessages(ctx, pageUIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching %s page %d: %w", view, page, err)
	}
	slices.SortFunc(messages, func(x, y Message) int {
		return cmp.Compare(y.Envelope.UID, x.Envelope.UID)
	})

	items := make([]source.RawEmail, 0, len(messages))
	for _, m := range messages {
		items = append(items, messageToRaw(m))
	}
	return items, nil
}

// SetFlag maps a flag onto IMAP system flags and keywords. Trashing
// moves the message out of INBOX and cannot be undone here.
func (a *Adapter) SetFlag(
	ctx context.Context,
	id string,
	flag model.Flag,
	value bool,
) error {
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	switch flag {
	case model.FlagRead:
		return a.box.SetFlags(ctx, uid, []imap.Flag{imap.FlagSeen}, value)
	case model.FlagFavorite:
		return a.box.SetFlags(ctx, uid, []imap.Flag{imap.FlagFlagged}, value)
	case model.FlagReadLater:
		return a.box.SetFlags(ctx, uid, []imap.Flag{flagReadLater}, value)
	case model.FlagTrashed:
		if !value {
			return fmt.Errorf("restoring %s from trash is not supported over IMAP", id)
		}
		return a.box.MoveToTrash(ctx, uid)
	default:
		return fmt.Errorf("unknown flag %q for email %s", flag, id)
	}
}

// Counts reads INBOX totals via STATUS.
func (a *Adapter) Counts(ctx context.Context) (model.Counts, error) {
	total, unseen, err := a.box.Status(ctx)
	if err != nil {
		return model.Counts{}, fmt.Errorf("fetching counts: %w", err)
	}
	return model.Counts{
		Unread: int(unseen),
		Read:   int(total - min(unseen, total)),
		Total:  int(total),
	}, nil
}

// viewCriteria builds the SEARCH criteria selecting a view. Messages
// marked \Deleted are excluded everywhere.
func viewCriteria(view model.View) *imap.SearchCriteria {
	c := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagDeleted}}
	switch view {
	case model.ViewUnread:
		c.NotFlag = append(c.NotFlag, imap.FlagSeen)
	case model.ViewRead:
		c.Flag = []imap.Flag{imap.FlagSeen}
	case model.ViewFavorites:
		c.Flag = []imap.Flag{imap.FlagFlagged}
	case model.ViewReadLater:
		c.Flag = []imap.Flag{flagReadLater}
	}
	return c
}

// pageSlice orders uids newest first and returns the 1-based page.
func pageSlice(uids []imap.UID, page, size int) []imap.UID {
	if page < 1 {
		page = 1
	}
	sorted := slices.Clone(uids)
	slices.SortFunc(sorted, func(x, y imap.UID) int { return cmp.Compare(y, x) })

	start := (page - 1) * size
	if start >= len(sorted) {
		return nil
	}
	end := min(start+size, len(sorted))
	return sorted[start:end]
}

// messageToRaw converts a message into the camelCase record shape the
// normalizer accepts as its fallback naming.
func messageToRaw(m Message) source.RawEmail {
	env := m.Envelope
	raw := source.RawEmail{
		"id":          strconv.FormatUint(uint64(env.UID), 10),
		"messageId":   env.MessageID,
		"from":        env.From,
		"fromAddress": env.FromAddress,
		"subject":     env.Subject,
		"isRead":      env.HasFlag(string(imap.FlagSeen)),
		"isFavorite":  env.HasFlag(string(imap.FlagFlagged)),
		"isReadLater": env.HasFlag(string(flagReadLater)),
	}
	if !env.Date.IsZero() {
		raw["receivedAt"] = env.Date.UTC().Format(time.RFC3339)
	}
	if m.TextBody != "" {
		raw["textBody"] = m.TextBody
	}
	if m.HTMLBody != "" {
		raw["htmlBody"] = m.HTMLBody
	}
	return raw
}

// parseUID converts a string item ID to a uint32 UID.
func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid email UID %q: %w", id, err)
	}
	return uint32(uid), nil
}
