package inbox

import (
	"slices"

	"github.com/nhle/newsreader/internal/model"
)

// merge folds incoming into existing. Duplicate ids keep their existing
// position but take the incoming copy; new ids are appended in arrival
// order. The result is then stably sorted newest first with undated
// items last.
func merge(existing, incoming []model.Email) []model.Email {
	out := make([]model.Email, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing)+len(incoming))

	for _, e := range existing {
		if i, ok := index[e.ID]; ok {
			out[i] = e
			continue
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	for _, e := range incoming {
		if i, ok := index[e.ID]; ok {
			out[i] = e
			continue
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}

	sortByReceived(out)
	return out
}

// sortByReceived orders by received time descending. Items without a
// timestamp go last and keep their relative order.
func sortByReceived(items []model.Email) {
	slices.SortStableFunc(items, func(a, b model.Email) int {
		switch {
		case !a.HasTimestamp() && !b.HasTimestamp():
			return 0
		case !a.HasTimestamp():
			return 1
		case !b.HasTimestamp():
			return -1
		}
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
}

func indexOf(items []model.Email, id string) int {
	return slices.IndexFunc(items, func(e model.Email) bool { return e.ID == id })
}
