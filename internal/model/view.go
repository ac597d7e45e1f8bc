package model

import (
	"fmt"
	"strings"
)

// View is a logical, filtered slice of the inbox. Every view keeps its
// own pagination state.
type View string

const (
	ViewUnread    View = "unread"
	ViewRead      View = "read"
	ViewAll       View = "all"
	ViewFavorites View = "favorites"
	ViewReadLater View = "read_later"
)

// Views lists every supported view in display order.
var Views = []View{ViewUnread, ViewRead, ViewAll, ViewFavorites, ViewReadLater}

// ParseView converts user input into a View.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case ViewUnread, ViewRead, ViewAll, ViewFavorites, ViewReadLater:
		return v, nil
	case "readlater", "read-later", "later":
		return ViewReadLater, nil
	case "favorite", "starred":
		return ViewFavorites, nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// Includes reports whether e belongs to the view's filter. Trashed
// emails belong to no view.
func (v View) Includes(e Email) bool {
	if e.Trashed {
		return false
	}
	switch v {
	case ViewUnread:
		return !e.Read
	case ViewRead:
		return e.Read
	case ViewFavorites:
		return e.Favorite
	case ViewReadLater:
		return e.ReadLater
	default:
		return true
	}
}

// Title returns the label used in headers and tabs.
func (v View) Title() string {
	switch v {
	case ViewReadLater:
		return "Read later"
	case "":
		return ""
	default:
		s := string(v)
		return strings.ToUpper(s[:1]) + s[1:]
	}
}
