// Package timeline merges confirmed and optimistic messages into the single
// ordered, deduplicated view a chat renderer consumes.
package timeline

import (
	"sort"
	"time"

	"github.com/petwell/pawchat/internal/domain"
)

// DefaultCorrelationWindow bounds the heuristic match between a local
// message and its confirmed copy when the server does not echo the client
// tag: same content, same sender, timestamps within this window.
const DefaultCorrelationWindow = 5000 * time.Millisecond

// Reconciler builds unified timelines. The zero value is not usable; use New.
type Reconciler struct {
	window time.Duration
	now    func() time.Time
}

// New creates a reconciler with the given correlation window.
// A non-positive window falls back to the default.
func New(window time.Duration) *Reconciler {
	if window <= 0 {
		window = DefaultCorrelationWindow
	}
	return &Reconciler{window: window, now: time.Now}
}

// Build produces the unified timeline: every confirmed message, plus every
// local message not yet superseded by a confirmed copy, sorted ascending by
// timestamp. Build never fails; entries with a missing timestamp are
// coerced to now.
func (r *Reconciler) Build(confirmed []domain.Message, local []domain.LocalMessage) []domain.TimelineEntry {
	entries := make([]domain.TimelineEntry, 0, len(confirmed)+len(local))

	for _, m := range confirmed {
		e := domain.FromMessage(m)
		if e.Timestamp.IsZero() {
			e.Timestamp = r.now()
		}
		entries = append(entries, e)
	}

	for _, lm := range local {
		if r.superseded(lm, confirmed) {
			continue
		}
		e := domain.FromLocal(lm)
		if e.Timestamp.IsZero() {
			e.Timestamp = r.now()
		}
		entries = append(entries, e)
	}

	// Stable: ties keep confirmed-before-local array order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries
}

// Superseded reports whether a confirmed copy of the local message exists.
func (r *Reconciler) Superseded(lm domain.LocalMessage, confirmed []domain.Message) bool {
	return r.superseded(lm, confirmed)
}

func (r *Reconciler) superseded(lm domain.LocalMessage, confirmed []domain.Message) bool {
	for _, m := range confirmed {
		if r.matches(lm, m) {
			return true
		}
	}
	return false
}

// matches prefers the exact client tag echoed by the server. When the
// backend does not echo tags it falls back to the content+sender+window
// heuristic, which can merge two genuinely distinct identical sends made
// within the window.
func (r *Reconciler) matches(lm domain.LocalMessage, m domain.Message) bool {
	if lm.ClientTag != "" && m.ClientTag != "" {
		return lm.ClientTag == m.ClientTag
	}
	if lm.Content != m.Content || lm.SenderID != m.SenderID {
		return false
	}
	delta := m.CreatedAt.Sub(lm.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= r.window
}
