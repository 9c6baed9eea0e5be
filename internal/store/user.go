package store

import (
	"database/sql"
	"fmt"
	"strings"

	"chorebank/internal/domain"
	"chorebank/internal/model"
)

type UserStore struct {
	q Querier
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{q: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *UserStore) WithTx(tx *sql.Tx) *UserStore {
	return &UserStore{q: tx}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var active, mustChange int

	err := scanner.Scan(
		&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.PasswordHash,
		&u.Avatar, &active, &mustChange, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Active = active != 0
	u.MustChangePassword = mustChange != 0
	return &u, nil
}

const userCols = `id, username, display_name, role, password_hash, avatar, is_active, must_change_password, created_at`

func (s *UserStore) Create(username, displayName string, role model.Role, passwordHash, avatar string, mustChange bool) (*model.User, error) {
	var mc int
	if mustChange {
		mc = 1
	}

	result, err := s.q.Exec(
		`INSERT INTO users (username, display_name, role, password_hash, avatar, must_change_password) VALUES (?, ?, ?, ?, ?, ?)`,
		username, displayName, role, passwordHash, avatar, mc,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, domain.Validationf("username %q already exists", username)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.q.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.q.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *UserStore) List() ([]model.User, error) {
	rows, err := s.q.Query(`SELECT ` + userCols + ` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListActiveChildren returns active CHILD users, the only valid chore
// assignees.
func (s *UserStore) ListActiveChildren() ([]model.User, error) {
	rows, err := s.q.Query(`SELECT `+userCols+` FROM users WHERE role = ? AND is_active = 1 ORDER BY display_name ASC`, model.RoleChild)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *UserStore) Count() (int, error) {
	var n int
	if err := s.q.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Update patches the mutable profile fields. Username and id are fixed for
// life so ledger and chore history stay attributable.
func (s *UserStore) Update(id int64, displayName string, role model.Role, avatar string, active, mustChange bool) (*model.User, error) {
	var a, mc int
	if active {
		a = 1
	}
	if mustChange {
		mc = 1
	}

	_, err := s.q.Exec(
		`UPDATE users SET display_name = ?, role = ?, avatar = ?, is_active = ?, must_change_password = ? WHERE id = ?`,
		displayName, role, avatar, a, mc, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdatePassword(id int64, passwordHash string, mustChange bool) error {
	var mc int
	if mustChange {
		mc = 1
	}
	_, err := s.q.Exec(
		`UPDATE users SET password_hash = ?, must_change_password = ? WHERE id = ?`,
		passwordHash, mc, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}
