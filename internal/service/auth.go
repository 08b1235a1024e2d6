package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookgrid/account-service/internal/dto"
	"github.com/bookgrid/account-service/internal/errs"
	"github.com/bookgrid/account-service/internal/models"
	"github.com/bookgrid/account-service/internal/repository"
	"github.com/bookgrid/account-service/pkg/jwt"
	"github.com/bookgrid/account-service/pkg/logger"
	"github.com/bookgrid/account-service/pkg/validator"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrAlreadyActivated  = errors.New("account already activated")
	ErrTokenNotFound     = errors.New("verification token not found")
	ErrTokenExpired      = errors.New("verification token expired")
	ErrTokenConsumed     = errors.New("verification token already used")
)

// UserStore is the account lookup/update surface the guard needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Activate(ctx context.Context, id uuid.UUID) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePhoto(ctx context.Context, id uuid.UUID, photoPath string) error
}

type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	GetByRefreshToken(ctx context.Context, refreshToken string) (*models.Session, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error
}

var (
	_ UserStore    = (*repository.UserRepository)(nil)
	_ SessionStore = (*repository.SessionRepository)(nil)
)

type EmailSender interface {
	SendActivationEmail(to, name, token string) error
	SendPasswordResetEmail(to, name, token string) error
}

// LoginLimiter tracks failed login attempts per identity and reports when the
// account should be treated as temporarily locked.
type LoginLimiter interface {
	RecordFailure(ctx context.Context, email string) (locked bool, err error)
	IsLocked(ctx context.Context, email string) (bool, error)
	Reset(ctx context.Context, email string) error
}

// AuthService evaluates login, password-change and token-redemption attempts,
// translating low-level outcomes into the business-error catalog.
type AuthService struct {
	users         UserStore
	sessions      SessionStore
	tokens        *TokenService
	tokenManager  *jwt.TokenManager
	emailSender   EmailSender
	limiter       LoginLimiter
	activationTTL time.Duration
	resetTTL      time.Duration
}

type AuthServiceConfig struct {
	ActivationTokenTTL time.Duration
	ResetTokenTTL      time.Duration
}

func NewAuthService(
	users UserStore,
	sessions SessionStore,
	tokens *TokenService,
	tokenManager *jwt.TokenManager,
	emailSender EmailSender,
	limiter LoginLimiter,
	cfg AuthServiceConfig,
) *AuthService {
	if cfg.ActivationTokenTTL == 0 {
		cfg.ActivationTokenTTL = 15 * time.Minute
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = time.Hour
	}

	return &AuthService{
		users:         users,
		sessions:      sessions,
		tokens:        tokens,
		tokenManager:  tokenManager,
		emailSender:   emailSender,
		limiter:       limiter,
		activationTTL: cfg.ActivationTokenTTL,
		resetTTL:      cfg.ResetTokenTTL,
	}
}

// Register validates the submission, creates a disabled account and mails an
// activation token. The mail send is asynchronous; a failure there is logged
// and does not fail the registration.
func (s *AuthService) Register(ctx context.Context, req *dto.RegistrationRequest) (*models.User, error) {
	if v := validator.ValidateRegistrationRequest(req.FirstName, req.LastName, req.Email, req.Password); v.HasErrors() {
		return nil, v
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hashedPassword),
		Disabled:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	t, err := s.tokens.Issue(ctx, user.ID, s.activationTTL)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.emailSender.SendActivationEmail(user.Email, user.FullName(), t.Token); err != nil {
			logger.Error("failed to send activation email",
				zap.String("email", user.Email), zap.Error(err))
		}
	}()

	return user, nil
}

// Login evaluates a login attempt in fixed precedence: disabled account, then
// locked account, then the password itself. A disabled or locked account never
// reveals whether the password was correct.
func (s *AuthService) Login(ctx context.Context, req *dto.AuthenticationRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errs.BadCredentials
		}
		return nil, err
	}

	if user.Disabled {
		return nil, errs.AccountDisabled
	}

	if user.Locked {
		return nil, errs.AccountLocked
	}

	if s.limiter != nil {
		locked, err := s.limiter.IsLocked(ctx, email)
		if err != nil {
			logger.Warn("login limiter unavailable", zap.Error(err))
		} else if locked {
			return nil, errs.AccountLocked
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if s.limiter != nil {
			if _, err := s.limiter.RecordFailure(ctx, email); err != nil {
				logger.Warn("failed to record login failure", zap.Error(err))
			}
		}
		return nil, errs.BadCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			logger.Warn("failed to reset login failures", zap.Error(err))
		}
	}

	return s.createSession(ctx, user)
}

// ChangePassword verifies the current password, then that the new password
// matches its confirmation, then re-hashes.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req *dto.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return errs.IncorrectCurrentPassword
	}

	if req.NewPassword != req.ConfirmPassword {
		return errs.NewPasswordMismatch
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, userID, string(hashedPassword))
}

// ActivateAccount redeems an activation token value. Each redemption outcome
// surfaces as its own failure; a replayed token is a distinct signal from one
// that never existed.
func (s *AuthService) ActivateAccount(ctx context.Context, tokenValue string) (uuid.UUID, error) {
	outcome, err := s.tokens.Redeem(ctx, tokenValue)
	if err != nil {
		return uuid.Nil, err
	}

	switch outcome.Status {
	case RedeemNotFound:
		return uuid.Nil, ErrTokenNotFound
	case RedeemExpired:
		return uuid.Nil, ErrTokenExpired
	case RedeemAlreadyConsumed:
		return uuid.Nil, ErrTokenConsumed
	}

	if err := s.users.Activate(ctx, outcome.Owner); err != nil {
		return uuid.Nil, fmt.Errorf("failed to activate account: %w", err)
	}

	return outcome.Owner, nil
}

// ResendActivation revokes the owner's pending tokens, issues a fresh one and
// mails it.
func (s *AuthService) ResendActivation(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.Disabled {
		return ErrAlreadyActivated
	}

	if err := s.tokens.RevokeAllFor(ctx, user.ID); err != nil {
		return err
	}

	t, err := s.tokens.Issue(ctx, user.ID, s.activationTTL)
	if err != nil {
		return err
	}

	return s.emailSender.SendActivationEmail(user.Email, user.FullName(), t.Token)
}

// RequestPasswordReset issues a reset token for the account behind email. An
// unknown address is treated as success so the endpoint cannot be used to
// probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	if err := s.tokens.RevokeAllFor(ctx, user.ID); err != nil {
		return err
	}

	t, err := s.tokens.Issue(ctx, user.ID, s.resetTTL)
	if err != nil {
		return err
	}

	return s.emailSender.SendPasswordResetEmail(user.Email, user.FullName(), t.Token)
}

// ConfirmPasswordReset redeems a reset token and installs the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenValue, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return errs.NewPasswordMismatch
	}

	outcome, err := s.tokens.Redeem(ctx, tokenValue)
	if err != nil {
		return err
	}

	switch outcome.Status {
	case RedeemNotFound:
		return ErrTokenNotFound
	case RedeemExpired:
		return ErrTokenExpired
	case RedeemAlreadyConsumed:
		return ErrTokenConsumed
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.users.UpdatePassword(ctx, outcome.Owner, string(hashedPassword))
}

// RefreshSession exchanges a live refresh token for a fresh session. The old
// session is revoked first, so a refresh token works at most once.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	if _, err := s.tokenManager.ValidateToken(refreshToken); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	if user.Disabled {
		return nil, errs.AccountDisabled
	}
	if user.Locked {
		return nil, errs.AccountLocked
	}

	if err := s.sessions.Revoke(ctx, refreshToken); err != nil {
		return nil, err
	}

	return s.createSession(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.Revoke(ctx, refreshToken)
}

// LogoutAll revokes every live session the user holds.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.sessions.RevokeAllByUserID(ctx, userID)
}

func (s *AuthService) createSession(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, accessExpiresAt, err := s.tokenManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, refreshExpiresAt, err := s.tokenManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: refreshToken,
		AccessToken:  accessToken,
		ExpiresAt:    refreshExpiresAt,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Until(accessExpiresAt).Seconds()),
		User:         user,
	}, nil
}
