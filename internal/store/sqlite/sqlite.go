package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smolkov/gridchat-server/internal/store"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar_url    TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS groups (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	owner_id   INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (owner_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS group_members (
	group_id  INTEGER NOT NULL,
	user_id   INTEGER NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (group_id, user_id),
	FOREIGN KEY (group_id) REFERENCES groups(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS channels (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id   INTEGER NOT NULL,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (group_id, name),
	FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	group_id   INTEGER NOT NULL,
	channel    TEXT NOT NULL,
	user_id    INTEGER NOT NULL,
	body       TEXT NOT NULL,
	image_url  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (group_id) REFERENCES groups(id),
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(group_id, channel, created_at);

CREATE TABLE IF NOT EXISTS calls (
	id               TEXT PRIMARY KEY,
	caller_id        INTEGER NOT NULL,
	callee_id        INTEGER NOT NULL,
	status           TEXT NOT NULL,
	external_room_id TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (caller_id) REFERENCES users(id),
	FOREIGN KEY (callee_id) REFERENCES users(id)
);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function
// instead of applying the default schema. Useful for tests.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, avatar_url, created_at
		FROM users
		WHERE id = ?
	`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, avatar_url, created_at
		FROM users
		WHERE username = ?
	`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

func scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// UpdateAvatar sets the user's avatar URL.
func (s *SQLiteStore) UpdateAvatar(ctx context.Context, userID int64, avatarURL string) error {
	query := `
		UPDATE users SET avatar_url = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, avatarURL, userID)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user %w", ErrNotFound)
	}

	return nil
}

// SearchUsers finds users whose username contains the query, ordered by
// username.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string) ([]*store.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, avatar_url, created_at
		FROM users
		WHERE username LIKE ?
		ORDER BY username
		LIMIT 50
	`, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.AvatarURL, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup creates a group owned by the given user and adds the owner
// as a member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name string, ownerID int64) (*store.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO groups (name, owner_id)
		VALUES (?, ?)
	`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	groupID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id)
		VALUES (?, ?)
	`, groupID, ownerID); err != nil {
		return nil, fmt.Errorf("add owner to members: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetGroupByID(ctx, groupID)
}

// GetGroupByID retrieves a group by ID.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, id int64) (*store.Group, error) {
	query := `
		SELECT id, name, owner_id, created_at
		FROM groups
		WHERE id = ?
	`
	var group store.Group
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.OwnerID,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %w", ErrNotFound)
		}
		return nil, fmt.Errorf("query group: %w", err)
	}

	return &group, nil
}

// ListGroups lists groups the user belongs to.
func (s *SQLiteStore) ListGroups(ctx context.Context, userID int64) ([]*store.Group, error) {
	query := `
		SELECT g.id, g.name, g.owner_id, g.created_at
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = ?
		ORDER BY g.created_at
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []*store.Group
	for rows.Next() {
		var group store.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &group)
	}

	return groups, rows.Err()
}

// AddMember adds a user to a group. Idempotent.
func (s *SQLiteStore) AddMember(ctx context.Context, userID, groupID int64) error {
	query := `
		INSERT OR IGNORE INTO group_members (group_id, user_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}

	return nil
}

// IsMember reports whether the user belongs to the group.
func (s *SQLiteStore) IsMember(ctx context.Context, userID, groupID int64) (bool, error) {
	query := `
		SELECT 1 FROM group_members
		WHERE group_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}

	return true, nil
}

// CreateChannel creates a channel inside a group.
func (s *SQLiteStore) CreateChannel(ctx context.Context, groupID int64, name string) (*store.Channel, error) {
	query := `
		INSERT INTO channels (group_id, name)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, groupID, name)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	var channel store.Channel
	err = s.db.QueryRowContext(ctx, `
		SELECT id, group_id, name, created_at
		FROM channels
		WHERE id = ?
	`, id).Scan(&channel.ID, &channel.GroupID, &channel.Name, &channel.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("query channel: %w", err)
	}

	return &channel, nil
}

// ListChannels lists channels of a group.
func (s *SQLiteStore) ListChannels(ctx context.Context, groupID int64) ([]*store.Channel, error) {
	query := `
		SELECT id, group_id, name, created_at
		FROM channels
		WHERE group_id = ?
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*store.Channel
	for rows.Next() {
		var channel store.Channel
		if err := rows.Scan(&channel.ID, &channel.GroupID, &channel.Name, &channel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, &channel)
	}

	return channels, rows.Err()
}

// ChannelExists reports whether the named channel exists in the group.
func (s *SQLiteStore) ChannelExists(ctx context.Context, groupID int64, name string) (bool, error) {
	query := `
		SELECT 1 FROM channels
		WHERE group_id = ? AND name = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, groupID, name).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query channel: %w", err)
	}

	return true, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message and fills in its ID.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (group_id, channel, user_id, body, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		msg.GroupID, msg.Channel, msg.UserID, msg.Body, msg.ImageURL, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	return nil
}

// ListMessages retrieves the most recent limit messages of a group channel
// in ascending timestamp order, with author username and avatar resolved.
func (s *SQLiteStore) ListMessages(ctx context.Context, groupID int64, channel string, limit int) ([]*store.Message, error) {
	// Newest rows win the window; the slice is reversed to ascending below.
	query := `
		SELECT m.id, m.group_id, m.channel, m.user_id, u.username, u.avatar_url,
		       m.body, m.image_url, m.created_at
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = ? AND m.channel = ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, groupID, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.GroupID,
			&msg.Channel,
			&msg.UserID,
			&msg.Username,
			&msg.AvatarURL,
			&msg.Body,
			&msg.ImageURL,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// ==== CallStore implementation ====

// CreateCall creates a new call record.
func (s *SQLiteStore) CreateCall(ctx context.Context, call *store.Call) error {
	query := `
		INSERT INTO calls (id, caller_id, callee_id, status, external_room_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		call.ID, call.CallerID, call.CalleeID, call.Status,
		call.ExternalRoomID, call.CreatedAt, call.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}

	return nil
}

// GetCall retrieves a call by ID.
func (s *SQLiteStore) GetCall(ctx context.Context, id string) (*store.Call, error) {
	query := `
		SELECT id, caller_id, callee_id, status, external_room_id, created_at, updated_at
		FROM calls
		WHERE id = ?
	`
	var call store.Call
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&call.ID,
		&call.CallerID,
		&call.CalleeID,
		&call.Status,
		&call.ExternalRoomID,
		&call.CreatedAt,
		&call.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("call %w", ErrNotFound)
		}
		return nil, fmt.Errorf("query call: %w", err)
	}

	return &call, nil
}

// UpdateCallStatus transitions a call to the given status.
func (s *SQLiteStore) UpdateCallStatus(ctx context.Context, id string, status store.CallStatus) error {
	query := `
		UPDATE calls SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update call: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("call %w", ErrNotFound)
	}

	return nil
}

// Ensure SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)
