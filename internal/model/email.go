package model

import "time"

// Email is the canonical record every remote item is normalized into
// before it reaches view state.
type Email struct {
	// ID is the stable, unique identifier of the item in the remote mailbox.
	ID string `json:"id"`

	// Sender is the raw sender string (e.g. "Morning Brew <crew@morningbrew.com>").
	Sender string `json:"sender"`

	// SenderAddress is the bare address parsed out of Sender, lowercased.
	SenderAddress string `json:"sender_address"`

	Subject string `json:"subject"`

	// Preview is a short plain-text excerpt of the content.
	Preview string `json:"preview"`

	// ReceivedAt is the zero time when the remote record carried no
	// usable timestamp.
	ReceivedAt time.Time `json:"received_at"`

	Read      bool `json:"read"`
	Favorite  bool `json:"favorite"`
	ReadLater bool `json:"read_later"`
	Trashed   bool `json:"trashed"`

	// NewsletterName is the display name of the sending newsletter.
	NewsletterName string `json:"newsletter_name,omitempty"`

	// NewsletterLogo is an image URL representing the newsletter.
	NewsletterLogo string `json:"newsletter_logo,omitempty"`

	// FirstImage is the first meaningful image referenced by the content.
	FirstImage string `json:"first_image,omitempty"`
}

// HasTimestamp reports whether the email carries a usable received time.
func (e Email) HasTimestamp() bool {
	return !e.ReceivedAt.IsZero()
}

// Thumbnail returns the image shown next to the email in lists: the
// newsletter logo when known, otherwise the first content image.
func (e Email) Thumbnail() string {
	if e.NewsletterLogo != "" {
		return e.NewsletterLogo
	}
	return e.FirstImage
}

// DisplayName returns the newsletter name, falling back to the raw sender.
func (e Email) DisplayName() string {
	if e.NewsletterName != "" {
		return e.NewsletterName
	}
	return e.Sender
}

// Counts holds the lightweight mailbox totals shown alongside the list.
type Counts struct {
	Unread int `json:"unread"`
	Read   int `json:"read"`
	Total  int `json:"total"`
}
