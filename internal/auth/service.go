// Package auth issues and validates prepwise tokens for students and the
// mentors they invite.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/felixgeelhaar/prepwise/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenExpiry = 72 * time.Hour
	DefaultInviteTTL   = 24 * time.Hour
	InviteCodeLength   = 6

	issuer       = "prepwise"
	inviteAlphas = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// UserStore persists accounts keyed by normalized email
type UserStore interface {
	GetUser(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user *domain.User) error
}

// InviteStore holds at most one pending invite per student. PutInvite
// replaces any earlier code. ConsumeInvite deletes the invite when code
// matches and returns ErrInvalidInvite otherwise.
type InviteStore interface {
	PutInvite(ctx context.Context, student, code string, expiresAt time.Time) error
	ConsumeInvite(ctx context.Context, student, code string, now time.Time) error
}

// Config holds token and hashing settings
type Config struct {
	Secret      []byte
	TokenExpiry time.Duration
	InviteTTL   time.Duration
	BcryptCost  int
}

// Claims are the prepwise token claims
type Claims struct {
	jwt.RegisteredClaims
	Role         domain.Role `json:"role"`
	Email        string      `json:"email"`
	StudentEmail string      `json:"student_email,omitempty"`
}

// User rebuilds the account the token was issued to
func (c *Claims) User() domain.User {
	return domain.User{
		Email:        c.Email,
		Name:         displayName(c.Role, c.Email, c.StudentEmail),
		Role:         c.Role,
		StudentEmail: c.StudentEmail,
	}
}

// LoginResult is returned by both login flows
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      domain.User `json:"user"`
}

// Invite is a pending mentor invitation
type Invite struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type mentorLogin struct {
	StudentEmail string `json:"student_email" validate:"required,email"`
	Code         string `json:"invite_code" validate:"required,len=6,alphanum"`
}

// Service handles authentication operations
type Service struct {
	users   UserStore
	invites InviteStore
	cfg     Config
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates an auth service. A secret is required.
func NewService(users UserStore, invites InviteStore, cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrNoSecret
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = DefaultTokenExpiry
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = DefaultInviteTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:   users,
		invites: invites,
		cfg:     cfg,
		now:     time.Now,
		logger:  slog.Default(),
	}, nil
}

// SetClock overrides the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetLogger sets the logger
func (s *Service) SetLogger(l *slog.Logger) {
	s.logger = l
}

// Login authenticates a student. An unknown email is registered on the spot
// with the given password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req := credentials{Email: domain.NormalizeEmail(email), Password: password}
	if err := validation.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, validation.Message(err))
	}

	user, err := s.users.GetUser(ctx, req.Email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		user, err = s.register(ctx, req)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	default:
		if user.Role != domain.RoleStudent {
			return nil, ErrInvalidCredentials
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			return nil, ErrInvalidCredentials
		}
	}

	return s.issue(*user)
}

func (s *Service) register(ctx context.Context, req credentials) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        req.Email,
		Name:         domain.DisplayName(req.Email),
		Role:         domain.RoleStudent,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			// lost a race with a concurrent first login
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("registered student", "email", user.Email)
	return user, nil
}

// CreateInvite issues a one-use mentor invite for student, replacing any
// earlier pending invite
func (s *Service) CreateInvite(ctx context.Context, student string) (*Invite, error) {
	student = domain.NormalizeEmail(student)
	user, err := s.users.GetUser(ctx, student)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleStudent {
		return nil, ErrNotStudent
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}
	inv := &Invite{Code: code, ExpiresAt: s.now().Add(s.cfg.InviteTTL)}
	if err := s.invites.PutInvite(ctx, student, code, inv.ExpiresAt); err != nil {
		return nil, fmt.Errorf("store invite: %w", err)
	}
	return inv, nil
}

// LoginMentor consumes a student's invite and issues a read-only mentor
// token bound to that student
func (s *Service) LoginMentor(ctx context.Context, studentEmail, code string) (*LoginResult, error) {
	req := mentorLogin{
		StudentEmail: domain.NormalizeEmail(studentEmail),
		Code:         strings.ToUpper(strings.TrimSpace(code)),
	}
	if err := validation.Struct(req); err != nil {
		return nil, ErrInvalidInvite
	}

	if err := s.invites.ConsumeInvite(ctx, req.StudentEmail, req.Code, s.now()); err != nil {
		if errors.Is(err, ErrInvalidInvite) {
			return nil, err
		}
		return nil, fmt.Errorf("consume invite: %w", err)
	}

	local := domain.DisplayName(req.StudentEmail)
	mentor := domain.User{
		Email:        "mentor-of-" + local + "@prepwise.local",
		Name:         displayName(domain.RoleMentor, "", req.StudentEmail),
		Role:         domain.RoleMentor,
		StudentEmail: req.StudentEmail,
	}
	s.logger.Info("mentor logged in", "student", req.StudentEmail)
	return s.issue(mentor)
}

// Validate parses a token and returns its claims
func (s *Service) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	switch claims.Role {
	case domain.RoleStudent:
	case domain.RoleMentor:
		if claims.StudentEmail == "" {
			return nil, fmt.Errorf("%w: mentor token without student", ErrInvalidToken)
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return claims, nil
}

func (s *Service) issue(user domain.User) (*LoginResult, error) {
	now := s.now()
	expires := now.Add(s.cfg.TokenExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role:         user.Role,
		Email:        user.Email,
		StudentEmail: user.StudentEmail,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	user.PasswordHash = ""
	return &LoginResult{Token: signed, ExpiresAt: expires, User: user}, nil
}

func displayName(role domain.Role, email, student string) string {
	if role == domain.RoleMentor {
		return "Mentor for " + domain.DisplayName(student)
	}
	return domain.DisplayName(email)
}

// newInviteCode returns a random uppercase alphanumeric code
func newInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	for i, b := range buf {
		buf[i] = inviteAlphas[int(b)%len(inviteAlphas)]
	}
	return string(buf), nil
}
