// Package registry tracks user suspensions. Bans either expire on their
// own or, when stored without an expiry, last until an explicit unban.
// Expired bans are reclaimed lazily: any read that sees one deletes it.
package registry

import (
	"context"
	"fmt"
	"time"

	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

type BanStore interface {
	GetBan(ctx context.Context, userID int64) (*e.Ban, error)
	PutBan(ctx context.Context, ban e.Ban) error
	DeleteBan(ctx context.Context, userID int64) (bool, error)
	ListBans(ctx context.Context) ([]e.BanRecord, error)
}

type Registry struct {
	Store BanStore

	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// Status describes a user's ban state. Until is nil for permanent bans.
type Status struct {
	Active bool
	Until  *time.Time
	Reason string
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// IsBanned reports whether the user is currently banned. A stored ban
// whose expiry has passed is deleted as part of this read and reported
// inactive.
func (r *Registry) IsBanned(ctx context.Context, userID int64) (Status, error) {
	ban, err := r.Store.GetBan(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("getting ban: %w", err)
	}

	if ban == nil {
		return Status{}, nil
	}

	if !ban.Permanent() && r.now().After(*ban.Until) {
		if _, err := r.Store.DeleteBan(ctx, userID); err != nil {
			return Status{}, fmt.Errorf("removing expired ban: %w", err)
		}
		return Status{}, nil
	}

	return Status{Active: true, Until: ban.Until, Reason: ban.Reason}, nil
}

// Ban suspends the user for the given duration, replacing any existing
// ban.
func (r *Registry) Ban(ctx context.Context, userID int64, d time.Duration, reason string) error {
	until := r.now().Add(d)
	err := r.Store.PutBan(ctx, e.Ban{UserID: userID, Until: &until, Reason: reason})
	if err != nil {
		return fmt.Errorf("storing ban: %w", err)
	}
	return nil
}

// BanForever suspends the user with no expiry, replacing any existing
// ban.
func (r *Registry) BanForever(ctx context.Context, userID int64, reason string) error {
	err := r.Store.PutBan(ctx, e.Ban{UserID: userID, Reason: reason})
	if err != nil {
		return fmt.Errorf("storing ban: %w", err)
	}
	return nil
}

// Unban lifts the user's ban. It reports whether a ban existed.
func (r *Registry) Unban(ctx context.Context, userID int64) (bool, error) {
	existed, err := r.Store.DeleteBan(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("deleting ban: %w", err)
	}
	return existed, nil
}

// ListActive returns all active bans, deleting expired ones it comes
// across.
func (r *Registry) ListActive(ctx context.Context) ([]e.BanRecord, error) {
	bans, err := r.Store.ListBans(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing bans: %w", err)
	}

	now := r.now()

	active := bans[:0]
	for _, ban := range bans {
		if !ban.Permanent() && now.After(*ban.Until) {
			if _, err := r.Store.DeleteBan(ctx, ban.UserID); err != nil {
				return nil, fmt.Errorf("removing expired ban: %w", err)
			}
			continue
		}
		active = append(active, ban)
	}

	return active, nil
}
