// Package auth implements email/password accounts with bearer-token sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/meetai/meetai/internal/config"
	"github.com/meetai/meetai/internal/domain"
	"github.com/meetai/meetai/internal/logging"
	"github.com/meetai/meetai/internal/store"
)

// SignUpInput is the payload of auth.signUp.
type SignUpInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate applies the sign-up form rules.
func (in SignUpInput) Validate(minLen int) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil || !strings.Contains(in.Email, "@") {
		fields["email"] = "Invalid email"
	}
	if len(in.Password) < minLen {
		fields["password"] = fmt.Sprintf("Password must be at least %d characters", minLen)
	}
	if in.ConfirmPassword == "" {
		fields["confirmPassword"] = "Password confirmation is required"
	} else if in.ConfirmPassword != in.Password {
		fields["confirmPassword"] = "Passwords do not match"
	}
	if len(fields) > 0 {
		return domain.Validation(fields)
	}
	return nil
}

// Result is a signed-in user and its session.
type Result struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Service signs users up and in and resolves bearer tokens.
type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	limiter  *RateLimiter
	log      *logging.Logger
	ttl      time.Duration
	minLen   int
	cost     int
	now      func() time.Time
}

// NewService creates an auth service.
func NewService(users *store.UserStore, sessions *store.SessionStore, cfg config.AuthConfig, log *logging.Logger) *Service {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = config.DefaultSessionTTLHours * time.Hour
	}
	minLen := cfg.MinPasswordLength
	if minLen <= 0 {
		minLen = 8
	}
	return &Service{
		users:    users,
		sessions: sessions,
		limiter:  NewRateLimiter(0, 0),
		log:      log.Sub("auth"),
		ttl:      ttl,
		minLen:   minLen,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Limiter returns the failed-attempt limiter shared with other entry points.
func (s *Service) Limiter() *RateLimiter { return s.limiter }

// SignUp creates an account and signs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Result, error) {
	if err := in.Validate(s.minLen); err != nil {
		return Result{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Result{}, domain.Internal(fmt.Errorf("hash password: %w", err))
	}

	user, err := s.users.Create(ctx, in.Name, in.Email, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		return Result{}, domain.Validation(map[string]string{"email": "User already exists"})
	}
	if err != nil {
		return Result{}, domain.Internal(fmt.Errorf("create user: %w", err))
	}

	s.log.Info().Str("user", user.ID).Msg("user signed up")
	return s.startSession(ctx, user)
}

// SignIn checks credentials and starts a session. Failures are counted per
// remote address; once the limit is reached every attempt is refused.
func (s *Service) SignIn(ctx context.Context, remoteAddr, email, password string) (Result, error) {
	if !s.limiter.Allow(remoteAddr) {
		s.log.Warn().Str("remote", remoteAddr).Msg("sign-in rate limited")
		return Result{}, domain.Unauthorized("Too many failed attempts, try again later")
	}

	rec, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, domain.Internal(fmt.Errorf("load user: %w", err))
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		s.limiter.RecordFailure(remoteAddr)
		return Result{}, domain.Unauthorized("Invalid email or password")
	}

	s.limiter.Reset(remoteAddr)
	return s.startSession(ctx, rec.User)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.Unauthorized("Authentication required")
	}
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.Unauthorized("Session expired or invalid")
	}
	if err != nil {
		return domain.User{}, domain.Internal(fmt.Errorf("load session: %w", err))
	}
	user, err := s.users.Get(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.Unauthorized("Session expired or invalid")
	}
	if err != nil {
		return domain.User{}, domain.Internal(fmt.Errorf("load user: %w", err))
	}
	return user, nil
}

// SignOut ends a session.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return domain.Internal(fmt.Errorf("delete session: %w", err))
	}
	return nil
}

// PruneSessions removes expired sessions.
func (s *Service) PruneSessions(ctx context.Context) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("pruning sessions failed")
		return
	}
	if n > 0 {
		s.log.Debug().Int64("count", n).Msg("pruned expired sessions")
	}
}

func (s *Service) startSession(ctx context.Context, user domain.User) (Result, error) {
	now := s.now().UTC()
	sess := domain.Session{
		Token:     newToken(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return Result{}, domain.Internal(fmt.Errorf("create session: %w", err))
	}
	return Result{User: user, Token: sess.Token}, nil
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}
