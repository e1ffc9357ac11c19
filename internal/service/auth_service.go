package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

// AuthConfig defines how staff access tokens are signed and checked.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	Audience          []string
}

// StaffIdentity is what a staff token asserts.
type StaffIdentity struct {
	UserID   string          `validate:"required"`
	Email    string          `validate:"omitempty,email"`
	FullName string          `validate:"max=120"`
	Role     models.UserRole `validate:"required"`
}

// AuthService verifies staff JWTs for moderation routes and mints them for
// the operator CLI. There is no password login.
type AuthService struct {
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 15 * time.Minute
	}
	return &AuthService{validator: validate, logger: logger, config: config, now: time.Now}
}

// IssueToken signs an access token for a staff member. ttl <= 0 uses the
// configured expiry.
func (s *AuthService) IssueToken(identity StaffIdentity, ttl time.Duration) (string, time.Time, error) {
	if err := s.validator.Struct(identity); err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staff identity")
	}
	if !identity.Role.Valid() {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "unknown staff role")
	}
	if ttl <= 0 {
		ttl = s.config.AccessTokenExpiry
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		UserID:   identity.UserID,
		Role:     identity.Role,
		Email:    identity.Email,
		FullName: identity.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   identity.UserID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	s.logger.Info("staff token issued", zap.String("user_id", identity.UserID), zap.String("role", string(identity.Role)), zap.Time("expires_at", expiresAt))
	return signed, expiresAt, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	options := []jwt.ParserOption{jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, options...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role")
	}
	return claims, nil
}
