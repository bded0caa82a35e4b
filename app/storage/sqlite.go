package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	e "nuclight.org/suggest-tg-bot/pkg/entities"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, filePath string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite3 database: %w", err)
	}

	client := &SQLite{
		db: db,
	}

	err = client.init(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing sqlite3 database: %w", err)
	}

	return client, nil
}

func (c *SQLite) Close() error {
	return c.db.Close()
}

// FindOrCreateUser returns the local id of the user with the given
// telegram id, creating the record on first contact.
func (c *SQLite) FindOrCreateUser(ctx context.Context, tgID int64, username string) (int64, error) {
	var id int64
	err := c.db.QueryRowContext(
		ctx,
		"SELECT id FROM users WHERE tg_id = ?",
		tgID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("selecting user: %w", err)
	}

	result, err := c.db.ExecContext(
		ctx,
		"INSERT INTO users (tg_id, username, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		tgID, username,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return id, nil
}

func (c *SQLite) UserExists(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := c.db.QueryRowContext(
		ctx,
		"SELECT 1 FROM users WHERE id = ?",
		userID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func (c *SQLite) ListUsers(ctx context.Context) ([]e.User, error) {
	rows, err := c.db.QueryContext(
		ctx,
		"SELECT id, tg_id, username FROM users ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("selecting users: %w", err)
	}
	defer rows.Close()

	var users []e.User
	for rows.Next() {
		var (
			user     e.User
			username sql.NullString
		)
		if err := rows.Scan(&user.ID, &user.TgID, &username); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		user.Username = username.String
		users = append(users, user)
	}

	return users, rows.Err()
}

// GetBan returns the user's stored ban, or nil if there is none. Expiry
// is not checked here, that is the registry's job.
func (c *SQLite) GetBan(ctx context.Context, userID int64) (*e.Ban, error) {
	var (
		until  sql.NullTime
		reason sql.NullString
	)
	err := c.db.QueryRowContext(
		ctx,
		"SELECT ban_until, reason FROM bans WHERE user_id = ?",
		userID,
	).Scan(&until, &reason)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	ban := &e.Ban{
		UserID: userID,
		Reason: reason.String,
	}
	if until.Valid {
		t := until.Time
		ban.Until = &t
	}

	return ban, nil
}

func (c *SQLite) PutBan(ctx context.Context, ban e.Ban) error {
	_, err := c.db.ExecContext(
		ctx,
		`INSERT INTO bans (user_id, ban_until, reason, created_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(user_id) DO UPDATE
			    SET ban_until = excluded.ban_until, reason = excluded.reason, created_at = CURRENT_TIMESTAMP`,
		ban.UserID, ban.Until, nullString(ban.Reason),
	)
	return err
}

func (c *SQLite) DeleteBan(ctx context.Context, userID int64) (bool, error) {
	result, err := c.db.ExecContext(
		ctx,
		"DELETE FROM bans WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting affected rows: %w", err)
	}

	return affected > 0, nil
}

func (c *SQLite) ListBans(ctx context.Context) ([]e.BanRecord, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT b.user_id, b.ban_until, b.reason, u.tg_id, u.username
			FROM bans b
			JOIN users u ON u.id = b.user_id
			ORDER BY b.rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("selecting bans: %w", err)
	}
	defer rows.Close()

	var bans []e.BanRecord
	for rows.Next() {
		var (
			ban      e.BanRecord
			until    sql.NullTime
			reason   sql.NullString
			username sql.NullString
		)
		if err := rows.Scan(&ban.UserID, &until, &reason, &ban.TgID, &username); err != nil {
			return nil, fmt.Errorf("scanning ban: %w", err)
		}
		if until.Valid {
			t := until.Time
			ban.Until = &t
		}
		ban.Reason = reason.String
		ban.Username = username.String
		bans = append(bans, ban)
	}

	return bans, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

//go:embed init.sql
var initQuery string

func (c *SQLite) init(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, initQuery)
	return err
}
