// Package users manages accounts with bcrypt-hashed passwords.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/nlstn/go-stickynotes/internal/observability"
)

// DefaultCost is the bcrypt cost used for new password hashes.
const DefaultCost = 10

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("please provide username and password")
	ErrNotFound           = errors.New("user not found")
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           uint      `json:"id" gorm:"column:id;primaryKey"`
	Username     string    `json:"username" gorm:"column:username;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password;not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"column:createdat"`
}

// TableName pins the table name used by gorm.
func (User) TableName() string { return "users" }

// Store reads and writes users.
type Store struct {
	db     *gorm.DB
	cost   int
	tracer *observability.Tracer
}

// Option configures a Store.
type Option func(*Store)

// WithCost overrides the bcrypt cost. Values outside bcrypt's range are ignored.
func WithCost(cost int) Option {
	return func(s *Store) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithTracer traces signup and login.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, cost: DefaultCost, tracer: observability.NewNoopTracer()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the users table.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&User{})
}

// Signup creates a user. Usernames are unique.
func (s *Store) Signup(ctx context.Context, username, password string) (*User, error) {
	ctx, span := s.tracer.StartSpan(ctx, "users.signup", observability.OperationAttr(observability.OpSignup))
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		s.tracer.RecordError(span, err)
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{Username: username, PasswordHash: string(hash)}
	if err := db.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		s.tracer.RecordError(span, err)
		return nil, fmt.Errorf("create user: %w", err)
	}
	span.SetAttributes(observability.UserIDAttr(u.ID))
	return u, nil
}

// Authenticate returns the user whose password matches. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*User, error) {
	ctx, span := s.tracer.StartSpan(ctx, "users.login", observability.OperationAttr(observability.OpLogin))
	defer span.End()

	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var u User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		s.tracer.RecordError(span, err)
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(observability.UserIDAttr(u.ID))
	return &u, nil
}

// Get returns the user with the given id.
func (s *Store) Get(ctx context.Context, id uint) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Take(&u, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}
