// Package normalize turns loosely shaped remote records into model.Email.
package normalize

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/model"
	"github.com/nhle/newsreader/internal/source"
)

const (
	senderKeyPrefix = "sender:"
	previewRunes    = 200
)

// Field names, preferred spelling first.
var (
	fieldID         = []string{"id", "_id", "uid"}
	fieldSender     = []string{"sender", "from"}
	fieldSenderAddr = []string{"sender_address", "senderAddress", "from_address", "fromAddress"}
	fieldSubject    = []string{"subject", "title"}
	fieldPreview    = []string{"preview", "snippet"}
	fieldTextBody   = []string{"text_body", "textBody", "text"}
	fieldHTMLBody   = []string{"html_body", "htmlBody", "content", "html", "body"}
	fieldReceived   = []string{"received_at", "receivedAt", "date", "created_at", "createdAt"}
	fieldRead       = []string{"is_read", "isRead", "read"}
	fieldFavorite   = []string{"is_favorite", "isFavorite", "favorite"}
	fieldReadLater  = []string{"is_read_later", "isReadLater", "read_later", "readLater"}
	fieldTrashed    = []string{"is_trashed", "isTrashed", "trashed"}
	fieldNewsletter = []string{"newsletter_name", "newsletterName"}
	fieldLogo       = []string{"newsletter_logo", "newsletterLogo"}
	fieldFirstImage = []string{"first_image", "firstImage"}
)

// SenderInfo is what the normalizer remembers about a sender address.
type SenderInfo struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Normalizer converts remote records into model.Email. Sender-derived
// fields are memoized per address in the cache manager.
type Normalizer struct {
	cache     *cache.Manager
	senderTTL time.Duration
	log       log.FieldLogger
}

// New creates a Normalizer. A nil manager disables the sender cache.
func New(m *cache.Manager, senderTTL time.Duration, logger log.FieldLogger) *Normalizer {
	if senderTTL <= 0 {
		senderTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Normalizer{
		cache:     m,
		senderTTL: senderTTL,
		log:       logger.WithField("component", "normalize"),
	}
}

// NormalizeAll normalizes records in order, dropping those without an id.
func (n *Normalizer) NormalizeAll(raws []source.RawEmail) []model.Email {
	out := make([]model.Email, 0, len(raws))
	for _, raw := range raws {
		e := n.Normalize(raw)
		if e.ID == "" {
			n.log.Debug("dropping record without id")
			continue
		}
		out = append(out, e)
	}
	return out
}

// Normalize converts one record. It never fails: missing or mistyped
// fields become zero values.
func (n *Normalizer) Normalize(raw source.RawEmail) model.Email {
	sender := strings.TrimSpace(raw.String(fieldSender...))
	addr := strings.ToLower(strings.TrimSpace(raw.String(fieldSenderAddr...)))
	if addr == "" {
		addr = senderAddress(sender)
	}

	textBody := raw.String(fieldTextBody...)
	htmlBody := raw.String(fieldHTMLBody...)

	e := model.Email{
		ID:            raw.String(fieldID...),
		Sender:        sender,
		SenderAddress: addr,
		Subject:       strings.TrimSpace(raw.String(fieldSubject...)),
		Preview:       preview(raw.String(fieldPreview...), textBody, htmlBody),
		ReceivedAt:    raw.Time(fieldReceived...),
		Read:          raw.Bool(fieldRead...),
		Favorite:      raw.Bool(fieldFavorite...),
		ReadLater:     raw.Bool(fieldReadLater...),
		Trashed:       raw.Bool(fieldTrashed...),
		FirstImage:    raw.String(fieldFirstImage...),
	}

	info := n.senderInfo(addr, sender, raw.String(fieldNewsletter...), raw.String(fieldLogo...))
	e.NewsletterName = info.Name
	e.NewsletterLogo = info.Logo

	if e.FirstImage == "" {
		e.FirstImage = FirstImage(htmlBody, textBody)
	}
	return e
}

// senderInfo resolves the display name and logo: explicit values win,
// then the cached mapping, then a name extracted from the sender string.
// Explicit values refresh the cache.
func (n *Normalizer) senderInfo(addr, sender, explicitName, explicitLogo string) SenderInfo {
	var cached SenderInfo
	var hit bool
	if n.cache != nil && addr != "" {
		cached, hit = cache.Get[SenderInfo](n.cache, senderKeyPrefix+addr)
	}

	info := cached
	if explicitName != "" {
		info.Name = explicitName
	}
	if explicitLogo != "" {
		info.Logo = explicitLogo
	}
	if info.Name == "" {
		info.Name = ExtractName(sender)
	}

	if n.cache != nil && addr != "" && info.Name != "" && (!hit || info != cached) {
		cache.Set(n.cache, senderKeyPrefix+addr, info, n.senderTTL, true)
	}
	return info
}

// preview picks an explicit preview, else the text body, else the
// stripped HTML body, and shortens it.
func preview(explicit, textBody, htmlBody string) string {
	s := explicit
	if strings.TrimSpace(s) == "" {
		s = textBody
	}
	if strings.TrimSpace(s) == "" {
		s = stripHTML(htmlBody)
	}
	return truncate(collapseSpace(s), previewRunes)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
