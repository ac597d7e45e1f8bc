package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/newsreader/internal/source"
)

const (
	inbox      = "INBOX"
	trashBox   = "Trash"
	bodyPeekKB = 256
)

// IMAPClient wraps go-imap v2 for connecting to and querying IMAP servers.
// Every call opens its own connection.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(
	host, port, username, password string, tls bool,
) *IMAPClient {
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout/Close on the returned client.
func (c *IMAPClient) Connect(
	_ context.Context,
) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Remote: remoteName,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				c.username, err,
			),
		}
	}

	return client, nil
}

// withInbox connects, selects INBOX, runs fn and logs out. The
// connection is closed early if ctx is cancelled.
func (c *IMAPClient) withInbox(
	ctx context.Context,
	fn func(*imapclient.Client) error,
) error {
	client, err := c.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	defer stop()

	if _, err := client.Select(inbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting INBOX: %w", err)
	}
	return fn(client)
}

// SearchUIDs returns the UIDs in INBOX matching criteria.
func (c *IMAPClient) SearchUIDs(
	ctx context.Context,
	criteria *imap.SearchCriteria,
) ([]imap.UID, error) {
	var uids []imap.UID
	err := c.withInbox(ctx, func(client *imapclient.Client) error {
		data, err := client.UIDSearch(criteria, nil).Wait()
		if err != nil {
			return fmt.Errorf("searching messages: %w", err)
		}
		uids = data.AllUIDs()
		return nil
	})
	return uids, err
}

// FetchMessages fetches envelopes, flags and the first part of the
// body for uids, parsing text and HTML parts.
func (c *IMAPClient) FetchMessages(
	ctx context.Context,
	uids []imap.UID,
) ([]Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	var messages []Message
	err := c.withInbox(ctx, func(client *imapclient.Client) error {
		bodySection := &imap.FetchItemBodySection{
			Peek:    true,
			Partial: &imap.SectionPartial{Offset: 0, Size: bodyPeekKB << 10},
		}
		fetchOpts := &imap.FetchOptions{
			Envelope:    true,
			Flags:       true,
			UID:         true,
			BodySection: []*imap.FetchItemBodySection{bodySection},
		}

		fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
		defer fetchCmd.Close()

		for {
			msg := fetchCmd.Next()
			if msg == nil {
				break
			}

			buf, err := msg.Collect()
			if err != nil {
				continue
			}

			m := Message{Envelope: envelopeFromBuffer(buf)}
			if raw := buf.FindBodySection(bodySection); raw != nil {
				m.TextBody, m.HTMLBody = parseMIMEBody(raw)
			}
			messages = append(messages, m)
		}

		if err := fetchCmd.Close(); err != nil {
			return fmt.Errorf("fetching messages: %w", err)
		}
		return nil
	})
	return messages, err
}

// SetFlags modifies flags on a message.
// If add is true, the flags are added; otherwise they are removed.
func (c *IMAPClient) SetFlags(
	ctx context.Context,
	uid uint32,
	flags []imap.Flag,
	add bool,
) error {
	return c.withInbox(ctx, func(client *imapclient.Client) error {
		op := imap.StoreFlagsAdd
		if !add {
			op = imap.StoreFlagsDel
		}

		storeCmd := client.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
			Op:     op,
			Silent: true,
			Flags:  flags,
		}, nil)
		return storeCmd.Close()
	})
}

// MoveToTrash moves the message to the Trash mailbox, falling back to
// marking it as deleted when the server has no such mailbox.
func (c *IMAPClient) MoveToTrash(
	ctx context.Context, uid uint32,
) error {
	return c.withInbox(ctx, func(client *imapclient.Client) error {
		uidSet := imap.UIDSetNum(imap.UID(uid))

		for _, folder := range []string{trashBox, "[Gmail]/Trash", "INBOX.Trash", "Deleted Items"} {
			if _, err := client.Move(uidSet, folder).Wait(); err == nil {
				return nil
			}
		}

		storeCmd := client.Store(uidSet, &imap.StoreFlags{
			Op:     imap.StoreFlagsAdd,
			Silent: true,
			Flags:  []imap.Flag{imap.FlagDeleted},
		}, nil)
		return storeCmd.Close()
	})
}

// Status returns the INBOX message and unseen totals.
func (c *IMAPClient) Status(ctx context.Context) (total, unseen uint32, err error) {
	client, err := c.Connect(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = client.Logout().Wait() }()

	data, err := client.Status(inbox, &imap.StatusOptions{
		NumMessages: true,
		NumUnseen:   true,
	}).Wait()
	if err != nil {
		return 0, 0, fmt.Errorf("reading INBOX status: %w", err)
	}
	if data.NumMessages != nil {
		total = *data.NumMessages
	}
	if data.NumUnseen != nil {
		unseen = *data.NumUnseen
	}
	return total, unseen, nil
}

// envelopeFromBuffer extracts an Envelope from a FetchMessageBuffer.
func envelopeFromBuffer(buf *imapclient.FetchMessageBuffer) Envelope {
	env := Envelope{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		env.MessageID = buf.Envelope.MessageID
		env.Subject = buf.Envelope.Subject
		env.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			env.FromAddress = strings.ToLower(from.Addr())
			if from.Name != "" {
				env.From = fmt.Sprintf("%s <%s>", from.Name, env.FromAddress)
			} else {
				env.From = env.FromAddress
			}
		}
	}

	for _, flag := range buf.Flags {
		env.Flags = append(env.Flags, string(flag))
	}

	return env
}

// parseMIMEBody parses a raw RFC 2822 message using go-message and
// extracts the text/plain and text/html bodies. Attachments are skipped.
func parseMIMEBody(raw []byte) (textBody string, htmlBody string) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// If parsing fails, try treating the whole thing as plain text
		return string(raw), ""
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF, or a body truncated by the partial fetch.
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil && len(body) == 0 {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}

	return textBody, htmlBody
}
