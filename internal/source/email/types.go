package email

import "time"

// Envelope holds the parsed envelope data from an IMAP message.
type Envelope struct {
	MessageID   string
	Subject     string
	From        string
	FromAddress string
	Date        time.Time
	Flags       []string // \Seen, \Flagged, $ReadLater, ...
	UID         uint32
}

// Message is an envelope plus the decoded text parts of its body.
type Message struct {
	Envelope Envelope
	TextBody string
	HTMLBody string
}

// HasFlag reports whether the message carries flag.
func (e Envelope) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
