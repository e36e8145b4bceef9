package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/nabzkeeper/internal/auth"
	"github.com/dmitrijs2005/nabzkeeper/internal/common"
	"github.com/dmitrijs2005/nabzkeeper/internal/config"
	"github.com/dmitrijs2005/nabzkeeper/internal/logging"
	"github.com/dmitrijs2005/nabzkeeper/internal/models"
	"github.com/dmitrijs2005/nabzkeeper/internal/observability"
	"github.com/dmitrijs2005/nabzkeeper/internal/ratelimit"
	"github.com/dmitrijs2005/nabzkeeper/internal/repositories/repomanager"
)

// Auth event names and statuses written to the log.
const (
	eventRegistration = "REGISTRATION"
	eventLogin        = "LOGIN"

	statusSuccess     = "SUCCESS"
	statusInvalid     = "FAILED - Invalid credentials"
	statusRateLimited = "FAILED - Too many attempts"
)

// RateLimiter tracks failed logins per username.
type RateLimiter interface {
	Check(ctx context.Context, username string) (ratelimit.Decision, error)
	Record(ctx context.Context, username string, success bool) error
}

// PartitionEnsurer prepares a user's activity partition.
type PartitionEnsurer interface {
	EnsurePartition(ctx context.Context, username string) (models.Generation, error)
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
}

// PublicAuthConfig is the part of the auth configuration clients may see.
type PublicAuthConfig struct {
	LoginType          string `json:"login_type"`
	EnableRegistration bool   `json:"enable_registration"`
	MinUsernameLength  int    `json:"min_username_length"`
	MinPasswordLength  int    `json:"min_password_length"`
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	limiter     RateLimiter
	partitions  PartitionEnsurer
	rules       *credentialRules
	public      PublicAuthConfig
	bcryptCost  int
	log         logging.Logger
	now         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, limiter RateLimiter, partitions PartitionEnsurer, log logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		issuer:      auth.NewIssuer(cfg.SecretKey, cfg.TokenValidityDuration),
		limiter:     limiter,
		partitions:  partitions,
		rules:       newCredentialRules(cfg),
		public: PublicAuthConfig{
			LoginType:          cfg.LoginType,
			EnableRegistration: cfg.EnableRegistration,
			MinUsernameLength:  cfg.MinUsernameLength,
			MinPasswordLength:  cfg.MinPasswordLength,
		},
		bcryptCost: bcrypt.DefaultCost,
		log:        log.With("component", "auth"),
		now:        time.Now,
	}
}

func (s *AuthService) logEvent(ctx context.Context, username, event, status string) {
	s.log.Info(ctx, "auth event", "event", event, "status", status, "username", username)
}

// Register creates a user and prepares their partition.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if !s.public.EnableRegistration {
		return nil, common.ErrRegistrationDisabled
	}
	if err := s.rules.checkUsername(username); err != nil {
		return nil, err
	}
	if err := s.rules.checkPassword(password); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByUsername(ctx, username)
	if err == nil {
		return nil, common.ErrAlreadyExists
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: error creating user: %v", common.ErrStorage, err)
	}

	// the partition is created lazily on first use if this fails
	if _, err := s.partitions.EnsurePartition(ctx, username); err != nil {
		s.log.Warn(ctx, "failed to prepare partition", "username", username, "error", err)
	}

	s.logEvent(ctx, username, eventRegistration, statusSuccess)
	return user, nil
}

// Authenticate checks username and password and returns the identity.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*auth.Identity, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	return &auth.Identity{UserID: user.ID, Username: user.UserName}, nil
}

// Login authenticates under the rate limit, records last_login and issues a
// bearer token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	decision, err := s.limiter.Check(ctx, username)
	if err != nil {
		s.log.Warn(ctx, "rate limit check failed", "username", username, "error", err)
	} else if !decision.Allowed {
		observability.RecordLoginAttempt("rate_limited")
		s.logEvent(ctx, username, eventLogin, statusRateLimited)
		return nil, fmt.Errorf("%w: retry in %s", common.ErrRateLimited, decision.RetryAfter.Round(time.Second))
	}

	id, err := s.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			observability.RecordLoginAttempt("invalid")
			s.logEvent(ctx, username, eventLogin, statusInvalid)
			s.recordAttempt(ctx, username, false)
		} else {
			observability.RecordLoginAttempt(observability.ResultError)
		}
		return nil, err
	}
	s.recordAttempt(ctx, username, true)

	if err := s.repomanager.Users(s.db).TouchLastLogin(ctx, id.UserID, s.now()); err != nil {
		s.log.Warn(ctx, "failed to update last login", "username", username, "error", err)
	}

	token, expires, err := s.issuer.Issue(*id)
	if err != nil {
		observability.RecordLoginAttempt(observability.ResultError)
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	observability.RecordLoginAttempt(observability.ResultOK)
	s.logEvent(ctx, username, eventLogin, statusSuccess)

	return &LoginResult{Token: token, ExpiresAt: expires, UserID: id.UserID, Username: id.Username}, nil
}

func (s *AuthService) recordAttempt(ctx context.Context, username string, success bool) {
	if err := s.limiter.Record(ctx, username, success); err != nil {
		s.log.Warn(ctx, "failed to record login attempt", "username", username, "error", err)
	}
}

// ValidateToken returns the identity carried by a bearer token. The
// "Bearer " scheme prefix is optional.
func (s *AuthService) ValidateToken(token string) (*auth.Identity, error) {
	token = strings.TrimSpace(token)
	if rest, ok := strings.CutPrefix(token, common.BearerScheme+" "); ok {
		token = strings.TrimSpace(rest)
	}
	return s.issuer.Validate(token)
}

// PublicConfig returns the non-sensitive auth settings.
func (s *AuthService) PublicConfig() PublicAuthConfig {
	return s.public
}
