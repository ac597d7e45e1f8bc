package model

import "fmt"

// Flag names a per-email toggle that can be mutated remotely.
type Flag string

const (
	FlagRead      Flag = "read"
	FlagFavorite  Flag = "favorite"
	FlagReadLater Flag = "read_later"
	FlagTrashed   Flag = "trashed"
)

// FlagPatch is a partial update of an email's flags. Nil fields are left
// untouched.
type FlagPatch struct {
	Read      *bool
	Favorite  *bool
	ReadLater *bool
	Trashed   *bool
}

// PatchFor builds a single-field patch.
func PatchFor(flag Flag, value bool) (FlagPatch, error) {
	var p FlagPatch
	switch flag {
	case FlagRead:
		p.Read = &value
	case FlagFavorite:
		p.Favorite = &value
	case FlagReadLater:
		p.ReadLater = &value
	case FlagTrashed:
		p.Trashed = &value
	default:
		return p, fmt.Errorf("unknown flag %q", flag)
	}
	return p, nil
}

// Empty reports whether the patch changes nothing.
func (p FlagPatch) Empty() bool {
	return p.Read == nil && p.Favorite == nil && p.ReadLater == nil && p.Trashed == nil
}

// Apply returns a copy of e with the patch applied.
func (p FlagPatch) Apply(e Email) Email {
	if p.Read != nil {
		e.Read = *p.Read
	}
	if p.Favorite != nil {
		e.Favorite = *p.Favorite
	}
	if p.ReadLater != nil {
		e.ReadLater = *p.ReadLater
	}
	if p.Trashed != nil {
		e.Trashed = *p.Trashed
	}
	return e
}

// Value returns the current value of flag on e.
func (f Flag) Value(e Email) bool {
	switch f {
	case FlagRead:
		return e.Read
	case FlagFavorite:
		return e.Favorite
	case FlagReadLater:
		return e.ReadLater
	case FlagTrashed:
		return e.Trashed
	}
	return false
}
