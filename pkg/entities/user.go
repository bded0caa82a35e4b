package entities

import "time"

// User is an identity record. ID is the local id assigned on first
// contact, TgID is the telegram user id.
type User struct {
	ID       int64
	TgID     int64
	Username string
}

// Ban is a suspension of a local user. Until nil means the ban is
// permanent and is lifted only by an explicit unban.
type Ban struct {
	UserID int64
	Until  *time.Time
	Reason string
}

func (b Ban) Permanent() bool {
	return b.Until == nil
}

// BanRecord is a ban joined with the banned user's identity.
type BanRecord struct {
	Ban
	TgID     int64
	Username string
}
