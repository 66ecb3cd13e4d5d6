package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/repository"
	"github.com/KhushalAcharya29/real-estate-app/pkg/crypto"
	jwtpkg "github.com/KhushalAcharya29/real-estate-app/pkg/jwt"
)

var (
	// ErrInvalidInput indicates a registration payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken covers a missing, unverifiable or revoked refresh token.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidToken indicates an access token failed verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthenticated indicates no verified claim accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// dummyHash is compared against when the email is unknown so both login
// failures spend the same bcrypt work.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := crypto.HashPassword("estate-timing-equaliser")
	if err != nil {
		return nil
	}
	return hash
})

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Claim is the verified identity attached to a request.
type Claim struct {
	Subject string
	Role    string
	TokenID string
}

// Service handles authentication workflows.
type Service struct {
	users    repository.UserRepository
	tokens   *jwtpkg.Issuer
	denylist Denylist
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Service. A nil denylist disables revocation.
func New(users repository.UserRepository, tokens *jwtpkg.Issuer, denylist Denylist, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{users: users, tokens: tokens, denylist: denylist, logger: logger, now: time.Now}
}

// Register creates an account and issues its first token pair.
func (s Service) Register(ctx context.Context, in RegisterInput) (*domain.User, jwtpkg.Pair, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	in.Role = strings.TrimSpace(in.Role)
	if err := validateRegistration(in); err != nil {
		return nil, jwtpkg.Pair{}, err
	}

	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return nil, jwtpkg.Pair{}, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, jwtpkg.Pair{}, ErrEmailTaken
		}
		return nil, jwtpkg.Pair{}, fmt.Errorf("create user: %w", err)
	}
	pair, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, jwtpkg.Pair{}, fmt.Errorf("issue tokens: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, pair, nil
}

func validateRegistration(in RegisterInput) error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	case len(in.Password) > 72:
		return fmt.Errorf("%w: password must be at most 72 bytes", ErrInvalidInput)
	case !domain.ValidRole(in.Role):
		return fmt.Errorf("%w: role must be agent or client", ErrInvalidInput)
	}
	return nil
}

// Login verifies credentials and issues a token pair.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, jwtpkg.Pair, error) {
	user, err := s.users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			crypto.VerifyPassword(dummyHash(), password)
			return nil, jwtpkg.Pair{}, ErrInvalidCredentials
		}
		return nil, jwtpkg.Pair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !crypto.VerifyPassword(user.PasswordHash, password) {
		return nil, jwtpkg.Pair{}, ErrInvalidCredentials
	}
	pair, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, jwtpkg.Pair{}, fmt.Errorf("issue tokens: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, pair, nil
}

// Logout revokes whichever presented tokens still verify. It never fails;
// denylist errors are logged and the tokens expire naturally.
func (s Service) Logout(ctx context.Context, accessToken, refreshToken string) {
	if claims := s.tokens.VerifyAccess(accessToken); claims != nil {
		s.revoke(ctx, claims)
	}
	if claims := s.tokens.VerifyRefresh(refreshToken); claims != nil {
		s.revoke(ctx, claims)
	}
}

// Refresh consumes a refresh token and issues a new pair from its claims.
func (s Service) Refresh(ctx context.Context, refreshToken string) (jwtpkg.Pair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return jwtpkg.Pair{}, ErrInvalidRefreshToken
	}
	claims := s.tokens.VerifyRefresh(refreshToken)
	if claims == nil {
		return jwtpkg.Pair{}, ErrInvalidRefreshToken
	}
	consumed, err := s.consume(ctx, claims)
	if err != nil {
		return jwtpkg.Pair{}, fmt.Errorf("check denylist: %w", err)
	}
	if !consumed {
		s.logger.Warn("revoked refresh token presented", "user_id", claims.Subject)
		return jwtpkg.Pair{}, ErrInvalidRefreshToken
	}
	pair, err := s.tokens.Issue(claims.Subject, claims.Role)
	if err != nil {
		return jwtpkg.Pair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// Authorize verifies an access token and returns its claim.
func (s Service) Authorize(ctx context.Context, accessToken string) (Claim, error) {
	claims := s.tokens.VerifyAccess(accessToken)
	if claims == nil {
		return Claim{}, ErrInvalidToken
	}
	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return Claim{}, fmt.Errorf("check denylist: %w", err)
	}
	if revoked {
		return Claim{}, ErrInvalidToken
	}
	return Claim{Subject: claims.Subject, Role: claims.Role, TokenID: claims.ID}, nil
}

// Me loads the account behind claim. A subject that no longer exists yields a nil user.
func (s Service) Me(ctx context.Context, claim *Claim) (*domain.User, error) {
	if claim == nil || claim.Subject == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, claim.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s Service) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.denylist == nil || tokenID == "" {
		return false, nil
	}
	return s.denylist.Revoked(ctx, tokenID)
}

// consume spends a refresh token. Without a denylist every verified token is spendable.
func (s Service) consume(ctx context.Context, claims *jwtpkg.Claims) (bool, error) {
	if s.denylist == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return true, nil
	}
	return s.denylist.Consume(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s Service) revoke(ctx context.Context, claims *jwtpkg.Claims) {
	if s.denylist == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error("revoke token", "user_id", claims.Subject, "typ", claims.Type, "error", err)
	}
}
