package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownCredential is returned when a credential does not map to any
// user. It is the only error the auth layer distinguishes; everything
// else is a server fault.
var ErrUnknownCredential = errors.New("unknown credential")

// ErrUsernameTaken is returned by Create when the username is already
// registered.
var ErrUsernameTaken = errors.New("username already taken")

type User struct {
	ID        string
	Username  string
	Email     string
	Password  string // bcrypt hash
	Role      string
	APIKey    string
	IsActive  bool
	CreatedAt time.Time
}

// Store persists user accounts in the embedded SQLite database.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, username, email, passwordHash, role string) (*User, error) {
	u := &User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		Password: passwordHash,
		Role:     role,
		APIKey:   uuid.NewString(),
		IsActive: true,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password, role, api_key)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Password, u.Role, u.APIKey)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return s.GetByID(ctx, u.ID)
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectUser+" WHERE id = ?", id))
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectUser+" WHERE username = ?", username))
}

func (s *Store) GetByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, selectUser+" WHERE api_key = ?", apiKey))
}

// RegenerateAPIKey replaces the user's API key and returns the updated user.
func (s *Store) RegenerateAPIKey(ctx context.Context, id string) (*User, error) {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET api_key = ? WHERE id = ?", uuid.NewString(), id)
	if err != nil {
		return nil, fmt.Errorf("update api key: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, selectUser+" ORDER BY created_at LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const selectUser = "SELECT id, username, email, password, role, api_key, is_active, created_at FROM users"

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row *sql.Row) (*User, error) {
	var u User
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownCredential
		}
		return nil, err
	}
	return &u, nil
}

func scanUser(row rowScanner, u *User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.Role, &u.APIKey, &u.IsActive, &u.CreatedAt)
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// the driver does not export a typed error for them.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
