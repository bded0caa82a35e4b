package relay

import (
	"sync"
	"time"

	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

// Settled is the final contents of a media burst: everything that
// arrived under one burst id before the quiet period elapsed.
type Settled struct {
	ChatID  int64
	UserID  int64
	Media   []e.Attachment
	Caption string
}

// Aggregator collects attachments that telegram delivers as separate
// updates sharing one media group id. Each arrival resets the settle
// timer, so a burst is finalized only after delay has passed with no new
// member. A burst id is single-use: once settled, the same id starts a
// fresh burst.
type Aggregator struct {
	delay    time.Duration
	onSettle func(Settled)

	mu     sync.Mutex
	bursts map[string]*burst
}

type burst struct {
	chatID  int64
	userID  int64
	media   []e.Attachment
	caption string
	timer   *time.Timer

	// gen invalidates superseded timers: a settle whose generation does
	// not match the buffer's is a leftover of a cancelled timer and must
	// not fire
	gen int
}

func NewAggregator(delay time.Duration, onSettle func(Settled)) *Aggregator {
	return &Aggregator{
		delay:    delay,
		onSettle: onSettle,
		bursts:   make(map[string]*burst),
	}
}

// Add records one attachment of a burst and restarts the settle timer.
// Duplicate attachments (same kind and file id) are dropped; the first
// non-empty caption wins.
func (a *Aggregator) Add(burstID string, chatID, userID int64, att e.Attachment, caption string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.bursts[burstID]
	if b == nil {
		b = &burst{chatID: chatID, userID: userID}
		a.bursts[burstID] = b
	}

	if !b.has(att) {
		b.media = append(b.media, att)
	}

	if b.caption == "" && caption != "" {
		b.caption = caption
	}

	if b.timer != nil {
		b.timer.Stop()
	}

	b.gen++
	gen := b.gen
	b.timer = time.AfterFunc(a.delay, func() {
		a.settle(burstID, gen)
	})
}

func (a *Aggregator) settle(burstID string, gen int) {
	a.mu.Lock()

	b := a.bursts[burstID]
	if b == nil || b.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.bursts, burstID)

	a.mu.Unlock()

	a.onSettle(Settled{
		ChatID:  b.chatID,
		UserID:  b.userID,
		Media:   b.media,
		Caption: b.caption,
	})
}

func (b *burst) has(att e.Attachment) bool {
	for _, m := range b.media {
		if m == att {
			return true
		}
	}
	return false
}
