package account

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("teacher already exists")
	ErrNotFound           = errors.New("teacher not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// Teacher is an account allowed to mark and export attendance.
type Teacher struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository persists teacher accounts.
type Repository interface {
	Create(ctx context.Context, t Teacher) error
	ByEmail(ctx context.Context, email string) (Teacher, error)
	ByID(ctx context.Context, id string) (Teacher, error)
}

// Service handles signup and login.
type Service struct {
	repo Repository
	cost int
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService creates an account service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Signup creates a teacher with a bcrypt-hashed password.
func (s *Service) Signup(ctx context.Context, email, password string) (Teacher, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Teacher{}, err
	}
	if len(password) < 8 {
		return Teacher{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "hash password")
	}
	t := Teacher{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Teacher, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	t, err := s.repo.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Teacher{}, ErrInvalidCredentials
	}
	if err != nil {
		return Teacher{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)); err != nil {
		return Teacher{}, ErrInvalidCredentials
	}
	return t, nil
}

// Get returns a teacher by id.
func (s *Service) Get(ctx context.Context, id string) (Teacher, error) {
	return s.repo.ByID(ctx, id)
}
