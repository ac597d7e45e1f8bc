package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nhle/newsreader/internal/source"
)

// ErrorResponse is the error body the service returns on 4xx/5xx.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e ErrorResponse) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// pageEnvelope is the wrapped form of a page response. Older deployments
// return a bare array instead.
type pageEnvelope struct {
	Emails []source.RawEmail `json:"emails"`
	Data   []source.RawEmail `json:"data"`
	Items  []source.RawEmail `json:"items"`
}

// CountsResponse is the body of GET /api/emails/counts.
type CountsResponse struct {
	Unread int `json:"unread"`
	Read   int `json:"read"`
	Total  int `json:"total"`
}

// decodePage accepts either a bare array of records or an object
// wrapping them under "emails", "data" or "items".
func decodePage(body []byte) ([]source.RawEmail, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	if body[0] == '[' {
		var items []source.RawEmail
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decoding page array: %w", err)
		}
		return items, nil
	}

	var env pageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding page object: %w", err)
	}
	switch {
	case env.Emails != nil:
		return env.Emails, nil
	case env.Data != nil:
		return env.Data, nil
	default:
		return env.Items, nil
	}
}
