package inbox

import (
	"context"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/newsreader/internal/cache"
	"github.com/nhle/newsreader/internal/model"
)

// ApplyLocalFlagChange patches the email with the given id in every
// loaded view. Views whose filter no longer matches drop it; loaded
// views that now match gain it. Cached pages are invalidated so the
// next fetch sees the change, but nothing is refetched now. It reports
// whether any view held the email.
func (p *Pipeline) ApplyLocalFlagChange(id string, patch model.FlagPatch) bool {
	if patch.Empty() {
		return false
	}

	p.mu.Lock()
	before, found := p.findLocked(id)
	if !found {
		p.mu.Unlock()
		return false
	}
	after := patch.Apply(before)

	for _, vs := range p.views {
		idx := indexOf(vs.items, id)
		switch {
		case idx >= 0 && vs.view.Includes(after):
			vs.items[idx] = after
		case idx >= 0:
			vs.items = slices.Delete(vs.items, idx, idx+1)
		case vs.state == StateReady && vs.view.Includes(after):
			vs.items = merge(vs.items, []model.Email{after})
		default:
			continue
		}
		p.publish(vs)
	}

	prevCounts := p.counts
	p.counts = adjustCounts(p.counts, before, after)
	counts := p.counts
	if counts != prevCounts {
		p.countsGen++
		if _, ok := cache.Get[model.Counts](p.cache, countsKey); ok {
			cache.Set(p.cache, countsKey, counts, p.cfg.CountsTTL, false)
		}
		if vs, ok := p.views[p.active]; ok {
			p.publish(vs)
		}
	}
	p.mu.Unlock()

	p.cache.InvalidatePrefix(pagePrefix)
	return true
}

// SetFlag applies the change locally and then sends it to the remote.
// A remote failure is returned; the local change is kept.
func (p *Pipeline) SetFlag(ctx context.Context, id string, flag model.Flag, value bool) error {
	patch, err := model.PatchFor(flag, value)
	if err != nil {
		return err
	}
	p.ApplyLocalFlagChange(id, patch)

	if err := p.remote.SetFlag(ctx, id, flag, value); err != nil {
		p.log.WithError(err).WithFields(log.Fields{"id": id, "flag": flag, "value": value}).Warn("remote flag update failed")
		return fmt.Errorf("setting %s=%t on %s: %w", flag, value, id, err)
	}
	return nil
}

// Find returns the email with the given id from any loaded view.
func (p *Pipeline) Find(id string) (model.Email, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findLocked(id)
}

func (p *Pipeline) findLocked(id string) (model.Email, bool) {
	if vs, ok := p.views[p.active]; ok {
		if i := indexOf(vs.items, id); i >= 0 {
			return vs.items[i], true
		}
	}
	for _, vs := range p.views {
		if i := indexOf(vs.items, id); i >= 0 {
			return vs.items[i], true
		}
	}
	return model.Email{}, false
}

// adjustCounts moves one email between the read, unread and trashed
// buckets.
func adjustCounts(c model.Counts, before, after model.Email) model.Counts {
	if before.Read == after.Read && before.Trashed == after.Trashed {
		return c
	}
	if !before.Trashed {
		c.Total--
		if before.Read {
			c.Read--
		} else {
			c.Unread--
		}
	}
	if !after.Trashed {
		c.Total++
		if after.Read {
			c.Read++
		} else {
			c.Unread++
		}
	}
	c.Unread = max(c.Unread, 0)
	c.Read = max(c.Read, 0)
	c.Total = max(c.Total, 0)
	return c
}
