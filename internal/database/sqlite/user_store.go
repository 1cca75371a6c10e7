package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nfrund/amruno/internal/domain"
)

// UserStore is the SQLite implementation of domain.UserRepository.
type UserStore struct {
	db *DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, full_name, mobile_number, hashed_password, gender"

func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (full_name, mobile_number, hashed_password, gender) VALUES (?, ?, ?, ?)",
		user.FullName, user.MobileNumber, user.HashedPassword, user.Gender)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}

	created := *user
	created.ID = strconv.FormatInt(id, 10)
	return &created, nil
}

func (s *UserStore) FindByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE mobile_number = ?", mobile)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (s *UserStore) ListExcept(ctx context.Context, mobile string) ([]*domain.User, error) {
	return s.list(ctx, "SELECT "+userColumns+" FROM users WHERE mobile_number <> ? ORDER BY full_name, id", mobile)
}

func (s *UserStore) FindByMobiles(ctx context.Context, mobiles []string) ([]*domain.User, error) {
	if len(mobiles) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(mobiles)), ",")
	args := make([]any, len(mobiles))
	for i, m := range mobiles {
		args[i] = m
	}
	return s.list(ctx, "SELECT "+userColumns+" FROM users WHERE mobile_number IN ("+placeholders+")", args...)
}

func (s *UserStore) list(ctx context.Context, query string, args ...any) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*domain.User, error) {
	var (
		id   int64
		user domain.User
	)
	if err := sc.Scan(&id, &user.FullName, &user.MobileNumber, &user.HashedPassword, &user.Gender); err != nil {
		return nil, err
	}
	user.ID = strconv.FormatInt(id, 10)
	return &user, nil
}
