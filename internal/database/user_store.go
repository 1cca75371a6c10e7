package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nfrund/amruno/internal/domain"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"
)

// UserStore encapsulates SurrealDB operations for users.
type UserStore struct {
	db *surrealdb.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *surrealdb.DB) *UserStore {
	return &UserStore{db: db}
}

type userRecord struct {
	ID             *models.RecordID `json:"id,omitempty"`
	FullName       string           `json:"full_name"`
	MobileNumber   string           `json:"mobile_number"`
	HashedPassword string           `json:"hashed_password"`
	Gender         string           `json:"gender"`
}

func (r *userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:             recordKey(r.ID),
		FullName:       r.FullName,
		MobileNumber:   r.MobileNumber,
		HashedPassword: r.HashedPassword,
		Gender:         r.Gender,
	}
}

// recordKey returns the key part of a record id ("abc" for user:abc).
func recordKey(id *models.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id.ID)
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	existing, err := s.FindByMobile(ctx, user.MobileNumber)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	query := `CREATE user SET
		full_name = $full_name,
		mobile_number = $mobile_number,
		hashed_password = $hashed_password,
		gender = $gender`
	params := map[string]any{
		"full_name":       user.FullName,
		"mobile_number":   user.MobileNumber,
		"hashed_password": user.HashedPassword,
		"gender":          user.Gender,
	}
	created, err := QueryOne[userRecord](ctx, s.db, query, params)
	if err != nil {
		// A concurrent registration can still trip the unique index.
		if strings.Contains(err.Error(), "already contains") {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, WrapError(err, "failed to create user")
	}
	if created == nil {
		return nil, NewDBError(ErrQueryFailed, "create user returned no record")
	}
	return created.toDomain(), nil
}

func (s *UserStore) FindByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	rec, err := QueryOne[userRecord](ctx, s.db,
		"SELECT * FROM user WHERE mobile_number = $mobile",
		map[string]any{"mobile": mobile})
	if err != nil {
		return nil, WrapError(err, "failed to find user")
	}
	if rec == nil {
		return nil, domain.ErrNotFound
	}
	return rec.toDomain(), nil
}

func (s *UserStore) ListExcept(ctx context.Context, mobile string) ([]*domain.User, error) {
	return s.list(ctx,
		"SELECT * FROM user WHERE mobile_number != $mobile ORDER BY full_name",
		map[string]any{"mobile": mobile})
}

func (s *UserStore) FindByMobiles(ctx context.Context, mobiles []string) ([]*domain.User, error) {
	if len(mobiles) == 0 {
		return nil, nil
	}
	return s.list(ctx,
		"SELECT * FROM user WHERE mobile_number INSIDE $mobiles",
		map[string]any{"mobiles": mobiles})
}

func (s *UserStore) list(ctx context.Context, query string, params map[string]any) ([]*domain.User, error) {
	recs, err := Query[userRecord](ctx, s.db, query, params)
	if err != nil {
		return nil, WrapError(err, "failed to list users")
	}
	users := make([]*domain.User, 0, len(recs))
	for i := range recs {
		users = append(users, recs[i].toDomain())
	}
	return users, nil
}
