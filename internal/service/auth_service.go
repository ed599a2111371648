package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/pkg/config"
	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
	"github.com/crawdwall/capital-review-api/pkg/mailer"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

type officerFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.Officer, error)
}

type otpStore interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string)
}

// LoginRequest is the credential payload shared by all roles.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and the authenticated identity.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Role      models.UserRole `json:"role"`
	// OTPRequired signals that an admin must complete the OTP step before a
	// token is issued; Token is empty in that case.
	OTPRequired bool `json:"otp_required,omitempty"`
}

// AuthService issues and validates JWTs for organizers, officers and admins.
// Admin logins require a second factor: a one-time password delivered by
// email and held in Redis until verified.
type AuthService struct {
	users     userStore
	officers  officerFinder
	otp       otpStore
	mail      mailer.Mailer
	jwtCfg    config.JWTConfig
	otpCfg    config.OTPConfig
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAuthService(users userStore, officers officerFinder, otp otpStore, mail mailer.Mailer, jwtCfg config.JWTConfig, otpCfg config.OTPConfig, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if otpCfg.Length <= 0 {
		otpCfg.Length = 6
	}
	if otpCfg.MaxAttempts <= 0 {
		otpCfg.MaxAttempts = 3
	}
	return &AuthService{
		users:     users,
		officers:  officers,
		otp:       otp,
		mail:      mail,
		jwtCfg:    jwtCfg,
		otpCfg:    otpCfg,
		validator: validate,
		logger:    logger,
	}
}

// Login authenticates organizer and admin accounts. Admins get an OTP
// challenge instead of a token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	if user.Role == models.RoleAdmin {
		if err := s.issueOTP(ctx, user); err != nil {
			return nil, err
		}
		return &LoginResponse{UserID: user.ID, Name: user.Name, Role: user.Role, OTPRequired: true}, nil
	}

	return s.issueToken(ctx, user.ID, user.Email, user.Name, user.Role)
}

// LoginOfficer authenticates against the officer roster. Inactive and
// suspended officers can still not vote, but suspension also blocks login.
func (s *AuthService) LoginOfficer(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	officer, err := s.officers.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if officer.Status == models.OfficerSuspended {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "officer account is suspended")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(officer.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	return s.issueToken(ctx, officer.ID, officer.Email, officer.Name, models.RoleOfficer)
}

// VerifyOTP completes the admin login once the emailed code matches.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account")
	}
	if user.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "otp login is admin only")
	}

	attempts, err := s.otp.Incr(ctx, otpAttemptsKey(user.ID), s.otpCfg.Expiry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to track otp attempts")
	}
	if attempts > int64(s.otpCfg.MaxAttempts) {
		s.otp.Delete(ctx, otpCodeKey(user.ID))
		return nil, appErrors.Clone(appErrors.ErrOTPThrottled, "too many otp attempts, request a new code")
	}

	stored, err := s.otp.GetString(ctx, otpCodeKey(user.ID))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.ErrOTPExpired
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load otp")
	}
	if stored != code {
		return nil, appErrors.ErrOTPMismatch
	}

	s.otp.Delete(ctx, otpCodeKey(user.ID), otpAttemptsKey(user.ID), otpCooldownKey(user.ID))
	return s.issueToken(ctx, user.ID, user.Email, user.Name, user.Role)
}

// ValidateToken parses and verifies a JWT, returning its claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) issueToken(ctx context.Context, id, email, name string, role models.UserRole) (*LoginResponse, error) {
	expiresAt := time.Now().Add(s.jwtCfg.Expiration)
	claims := models.JWTClaims{
		UserID: id,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	if role != models.RoleOfficer {
		if err := s.users.TouchLastLogin(ctx, id); err != nil {
			s.logger.Warn("failed to update last login", zap.String("user_id", id), zap.Error(err))
		}
	}

	return &LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt,
		UserID:    id,
		Name:      name,
		Role:      role,
	}, nil
}

func (s *AuthService) issueOTP(ctx context.Context, user *models.User) error {
	if _, err := s.otp.GetString(ctx, otpCooldownKey(user.ID)); err == nil {
		return appErrors.ErrOTPThrottled
	}

	code, err := generateOTP(s.otpCfg.Length)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate otp")
	}
	if err := s.otp.SetString(ctx, otpCodeKey(user.ID), code, s.otpCfg.Expiry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store otp")
	}
	if err := s.otp.SetString(ctx, otpCooldownKey(user.ID), "1", s.otpCfg.ResendCooldown); err != nil {
		s.logger.Warn("failed to set otp cooldown", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.otp.Delete(ctx, otpAttemptsKey(user.ID))

	body := fmt.Sprintf("Your admin login code is %s. It expires in %s.", code, s.otpCfg.Expiry)
	if err := s.mail.Send(user.Email, "Admin login verification code", body); err != nil {
		s.otp.Delete(ctx, otpCodeKey(user.ID), otpCooldownKey(user.ID))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send otp email")
	}
	s.logger.Info("admin otp issued", zap.String("user_id", user.ID))
	return nil
}

func generateOTP(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func otpCodeKey(userID string) string     { return "otp:code:" + userID }
func otpAttemptsKey(userID string) string { return "otp:attempts:" + userID }
func otpCooldownKey(userID string) string { return "otp:cooldown:" + userID }
